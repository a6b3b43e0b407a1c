package global

import (
	"fmt"

	"github.com/joshuapare/kmem/mem/alloc"
)

// Policy names an allocation strategy for the heap.
type Policy uint8

const (
	PolicyUnknown Policy = iota
	PolicyFreeList
	PolicyBump
)

func (p Policy) String() string {
	switch p {
	case PolicyFreeList:
		return "freelist"
	case PolicyBump:
		return "bump"
	default:
		return "unknown"
	}
}

// ParsePolicy maps a config name to a Policy. The empty string selects
// DefaultPolicy.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "":
		return DefaultPolicy, nil
	case "freelist", "free-list", "linked-list":
		return PolicyFreeList, nil
	case "bump":
		return PolicyBump, nil
	}
	return PolicyUnknown, fmt.Errorf("unknown heap policy %q", s)
}

func policyOf(a alloc.Allocator) Policy {
	switch a.(type) {
	case *alloc.FreeListAllocator:
		return PolicyFreeList
	case *alloc.BumpAllocator:
		return PolicyBump
	default:
		return PolicyUnknown
	}
}
