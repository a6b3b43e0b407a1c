package region

import (
	"fmt"
	"sort"
)

// Type tags a memory map area. Values follow the multiboot2 memory map
// entry types.
type Type uint32

const (
	Usable          Type = 1
	Reserved        Type = 2
	ACPIReclaimable Type = 3
	NVS             Type = 4
	BadMemory       Type = 5
)

// String returns the name of the area type.
func (t Type) String() string {
	switch t {
	case Usable:
		return "available"
	case Reserved:
		return "reserved"
	case ACPIReclaimable:
		return "ACPI (reclaimable)"
	case NVS:
		return "NVS"
	case BadMemory:
		return "bad memory"
	default:
		return fmt.Sprintf("unknown(%d)", uint32(t))
	}
}

// ParseType maps a config name or number to a Type.
func ParseType(s string) (Type, error) {
	switch s {
	case "available", "usable", "1":
		return Usable, nil
	case "reserved", "2":
		return Reserved, nil
	case "acpi", "3":
		return ACPIReclaimable, nil
	case "nvs", "4":
		return NVS, nil
	case "bad", "5":
		return BadMemory, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownType, s)
}

// Area is a memory map entry: a region plus its usability tag.
type Area struct {
	Region
	Type Type
}

// Usable reports whether the allocators may hand out memory from the area.
func (a Area) Usable() bool {
	return a.Type == Usable
}

// MemoryMap is the ordered sequence of areas reported by the boot loader.
type MemoryMap []Area

// Validate checks every area and rejects overlapping usable areas.
func (m MemoryMap) Validate() error {
	if len(m) == 0 {
		return ErrEmptyMap
	}
	for i, a := range m {
		if err := a.Validate(); err != nil {
			return fmt.Errorf("area %d: %w", i, err)
		}
	}
	usable := m.Usable()
	for i := 1; i < len(usable); i++ {
		if usable[i-1].Overlaps(usable[i].Region) {
			return fmt.Errorf("%w: %s and %s", ErrOverlap, usable[i-1].Region, usable[i].Region)
		}
	}
	return nil
}

// Usable returns the usable areas sorted by start address.
func (m MemoryMap) Usable() MemoryMap {
	out := make(MemoryMap, 0, len(m))
	for _, a := range m {
		if a.Usable() {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}

// TotalUsable returns the number of usable bytes in the map.
func (m MemoryMap) TotalUsable() uint64 {
	var total uint64
	for _, a := range m {
		if a.Usable() {
			total += a.Length
		}
	}
	return total
}

// HighestUsable returns the end address of the highest usable area.
func (m MemoryMap) HighestUsable() (uint64, bool) {
	var (
		end   uint64
		found bool
	)
	for _, a := range m {
		if a.Usable() && a.End() > end {
			end = a.End()
			found = true
		}
	}
	return end, found
}

// Visit calls fn for every area in map order until fn returns false.
func (m MemoryMap) Visit(fn func(Area) bool) {
	for _, a := range m {
		if !fn(a) {
			return
		}
	}
}
