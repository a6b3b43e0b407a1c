package alloc

import "fmt"

// tracker is the debug registry of live allocations.
type tracker struct {
	live map[uint64]Layout
}

func newTracker() *tracker {
	return &tracker{live: make(map[uint64]Layout)}
}

func (t *tracker) record(ptr uint64, l Layout) {
	t.live[ptr] = l
}

// release removes ptr, failing if it is unknown or was allocated with a
// different layout.
func (t *tracker) release(ptr uint64, l Layout) error {
	got, ok := t.live[ptr]
	if !ok {
		return fmt.Errorf("%w: %#x is not a live allocation", ErrPrecondition, ptr)
	}
	if got != l {
		return fmt.Errorf("%w: %#x allocated with %s, freed with %s", ErrPrecondition, ptr, got, l)
	}
	delete(t.live, ptr)
	return nil
}

func (t *tracker) len() int {
	return len(t.live)
}
