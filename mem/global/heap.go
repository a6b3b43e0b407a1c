// Package global is the kernel's allocation entry point: a single heap,
// guarded by a spinlock, that the runtime calls for every dynamic
// allocation.
//
// The heap wraps one allocation policy (see Policy). It is configured once
// with Init and then serves Alloc and Dealloc for the rest of the kernel's
// lifetime. Failures come back as the null address 0; MustAlloc turns a
// failure into a fatal report on the boot console followed by a halt.
//
// Heap operations take a spinlock and must never be called from interrupt
// context: an interrupt arriving while the lock is held would spin forever.
package global

import (
	"errors"
	"fmt"
	"io"

	"github.com/joshuapare/kmem/internal/console"
	"github.com/joshuapare/kmem/mem/alloc"
	"github.com/joshuapare/kmem/mem/spin"
)

// Null is the address returned when an allocation fails.
const Null uint64 = 0

// Heap is the locked front of an allocation policy.
type Heap struct {
	lock   spin.Lock
	a      alloc.Allocator
	policy Policy
	ready  bool

	console io.Writer
	halt    func()
}

// Option configures a Heap.
type Option func(*Heap)

// WithConsole sets where fatal allocation reports are printed.
func WithConsole(w io.Writer) Option {
	return func(h *Heap) {
		h.console = w
	}
}

// WithHalt replaces the function called after a fatal allocation report.
// The default blocks forever.
func WithHalt(fn func()) Option {
	return func(h *Heap) {
		h.halt = fn
	}
}

// New wraps a. The heap refuses allocations until Init succeeds.
func New(a alloc.Allocator, opts ...Option) *Heap {
	h := &Heap{
		a:       a,
		policy:  policyOf(a),
		console: io.Discard,
		halt:    haltForever,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Init runs fn (typically the policy's own Init) under the heap lock and
// marks the heap ready. It may succeed only once.
func (h *Heap) Init(fn func() error) error {
	h.lock.Lock()
	defer h.lock.Unlock()

	if h.ready {
		return alloc.ErrAlreadyInitialized
	}
	if fn != nil {
		if err := fn(); err != nil {
			return fmt.Errorf("heap init: %w", err)
		}
	}
	h.ready = true
	console.Info("heap ready", "policy", h.policy.String())
	return nil
}

// Ready reports whether Init has succeeded.
func (h *Heap) Ready() bool {
	h.lock.Lock()
	defer h.lock.Unlock()
	return h.ready
}

// Policy returns the allocation policy behind the heap.
func (h *Heap) Policy() Policy {
	return h.policy
}

// Inspect runs fn on the wrapped allocator with the heap lock held, so fn
// sees a free list no Alloc or Dealloc is changing. fn must not call back
// into the heap.
func (h *Heap) Inspect(fn func(alloc.Allocator) error) error {
	h.lock.Lock()
	defer h.lock.Unlock()
	return fn(h.a)
}

// Alloc returns the address of size bytes aligned to align, or Null.
func (h *Heap) Alloc(size, align uint64) uint64 {
	p, err := h.alloc(size, align)
	if err != nil {
		console.Debug("alloc refused", "size", size, "align", align, "err", err)
		return Null
	}
	return p
}

func (h *Heap) alloc(size, align uint64) (uint64, error) {
	h.lock.Lock()
	defer h.lock.Unlock()
	if !h.ready {
		return Null, alloc.ErrNotInitialized
	}
	return h.a.Alloc(size, align)
}

// Dealloc releases an allocation made with the same size and align.
func (h *Heap) Dealloc(ptr, size, align uint64) error {
	h.lock.Lock()
	defer h.lock.Unlock()
	if !h.ready {
		return alloc.ErrNotInitialized
	}
	return h.a.Free(ptr, size, align)
}

// MustAlloc is Alloc for callers with no way to handle failure. When the
// allocator is out of memory it reports the request on the console and
// halts. Any other failure, such as a bad layout, panics.
func (h *Heap) MustAlloc(size, align uint64) uint64 {
	p, err := h.alloc(size, align)
	if err == nil {
		return p
	}
	if errors.Is(err, alloc.ErrOutOfMemory) {
		h.fatal(size, align)
		return Null
	}
	panic(err)
}

// fatal is the allocation error handler: print and halt.
func (h *Heap) fatal(size, align uint64) {
	console.Error("allocation failed", "size", size, "align", align)
	fmt.Fprintf(h.console, "allocation of %d bytes (align %d) failed\n", size, align)
	h.halt()
}

func haltForever() {
	select {}
}
