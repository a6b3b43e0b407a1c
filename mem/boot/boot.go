// Package boot brings up the kernel memory subsystem from a memory map: it
// places the heap, backs it with host memory, initializes the configured
// heap policy and hands the remaining physical memory to the frame
// allocator.
package boot

import (
	"errors"
	"fmt"
	"io"

	"github.com/joshuapare/kmem/internal/arena"
	"github.com/joshuapare/kmem/internal/console"
	"github.com/joshuapare/kmem/internal/format"
	"github.com/joshuapare/kmem/mem/alloc"
	"github.com/joshuapare/kmem/mem/frame"
	"github.com/joshuapare/kmem/mem/global"
	"github.com/joshuapare/kmem/mem/region"
)

// LowMemoryLimit is the lowest address the heap may start at. The first
// MiB holds real-mode structures, the BIOS and video memory.
const LowMemoryLimit = 1 * format.Mb

// Kernel is a booted memory subsystem.
type Kernel struct {
	Config     Config
	MemoryMap  region.MemoryMap
	HeapRegion region.Region
	Heap       *global.Heap
	Frames     *frame.FrameAllocator
	Console    io.Writer

	freeList *alloc.FreeListAllocator
	bump     *alloc.BumpAllocator
	arena    *arena.Arena
}

// Option configures Boot.
type Option func(*options)

type options struct {
	console io.Writer
	halt    func()
}

// WithConsole sets the boot console. The default is a fresh VGA buffer.
func WithConsole(w io.Writer) Option {
	return func(o *options) {
		o.console = w
	}
}

// WithHalt replaces the heap's halt function for fatal allocation failures.
func WithHalt(fn func()) Option {
	return func(o *options) {
		o.halt = fn
	}
}

// Boot validates cfg and brings up the heap and frame allocator.
func Boot(cfg Config, opts ...Option) (*Kernel, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.console == nil {
		o.console = console.NewVGA()
	}

	mm, err := cfg.Map()
	if err != nil {
		return nil, fmt.Errorf("memory map: %w", err)
	}
	policy, err := cfg.Policy()
	if err != nil {
		return nil, err
	}
	size := cfg.Heap.Size
	if size == 0 {
		size = DefaultHeapSize
	}

	if cfg.Debug {
		printMemoryMap(o.console, mm)
	}

	hr, err := PlaceHeap(mm, size)
	if err != nil {
		return nil, err
	}

	k := &Kernel{
		Config:     cfg,
		MemoryMap:  mm,
		HeapRegion: hr,
		Console:    o.console,
	}

	var allocOpts []alloc.Option
	if cfg.Tracking {
		allocOpts = append(allocOpts, alloc.WithTracking())
	}
	heapOpts := []global.Option{global.WithConsole(o.console)}
	if o.halt != nil {
		heapOpts = append(heapOpts, global.WithHalt(o.halt))
	}

	var initFn func() error
	switch policy {
	case global.PolicyBump:
		k.bump = alloc.NewBump(allocOpts...)
		k.Heap = global.New(k.bump, heapOpts...)
		initFn = func() error { return k.bump.Init(hr) }
	default:
		ar, err := arena.New(hr)
		if err != nil {
			return nil, err
		}
		k.arena = ar
		k.freeList = alloc.NewFreeList(allocOpts...)
		k.Heap = global.New(k.freeList, heapOpts...)
		initFn = func() error { return k.freeList.Init(ar) }
	}
	if err := k.Heap.Init(initFn); err != nil {
		return nil, errors.Join(err, k.Close())
	}

	k.Frames, err = frame.New(mm)
	if err != nil {
		return nil, errors.Join(err, k.Close())
	}
	k.Frames.SkipTo(frame.Containing(hr.End()-1) + 1)

	fmt.Fprintf(o.console, "kmem: heap %s (%s), %d frames free\n", hr, policy, k.Frames.Remaining())
	console.Info("boot complete",
		"heap_start", hr.Start,
		"heap_length", hr.Length,
		"policy", policy.String(),
		"tracking", cfg.Tracking,
		"first_frame", k.Frames.Allocated(),
		"max_frame", uint64(k.Frames.Max()))
	return k, nil
}

// PlaceHeap returns the first page-aligned span of size bytes inside a
// usable area, at or above LowMemoryLimit.
func PlaceHeap(mm region.MemoryMap, size uint64) (region.Region, error) {
	if size == 0 || size%format.PageSize != 0 {
		return region.Region{}, fmt.Errorf("%w: %d", ErrHeapSize, size)
	}
	for _, a := range mm.Usable() {
		start, ok := format.AlignUpChecked(max(a.Start, LowMemoryLimit), format.PageSize)
		if !ok || start >= a.End() || a.End()-start < size {
			continue
		}
		return region.Region{Start: start, Length: size}, nil
	}
	return region.Region{}, fmt.Errorf("%w: %d bytes", ErrNoHeapRegion, size)
}

// Policy returns the heap policy in use.
func (k *Kernel) Policy() global.Policy {
	return k.Heap.Policy()
}

// Stats returns the heap allocator's counters.
func (k *Kernel) Stats() alloc.Stats {
	var s alloc.Stats
	_ = k.Heap.Inspect(func(alloc.Allocator) error {
		if k.bump != nil {
			s = k.bump.Stats()
		} else {
			s = k.freeList.Stats()
		}
		return nil
	})
	return s
}

// FreeBlocks returns the heap free list, or nil under the bump policy.
func (k *Kernel) FreeBlocks() []alloc.Block {
	var blocks []alloc.Block
	_ = k.withFreeList(func(fl *alloc.FreeListAllocator) error {
		blocks = fl.FreeBlocks()
		return nil
	})
	return blocks
}

// Check verifies the heap free list. The bump policy has nothing to check.
func (k *Kernel) Check() error {
	return k.withFreeList(func(fl *alloc.FreeListAllocator) error {
		return fl.Check()
	})
}

// Trim releases the pages of free heap blocks back to the host.
func (k *Kernel) Trim() (uint64, error) {
	var released uint64
	err := k.withFreeList(func(fl *alloc.FreeListAllocator) error {
		var err error
		released, err = fl.Trim()
		return err
	})
	return released, err
}

// withFreeList runs fn under the heap lock. It does nothing under the bump
// policy.
func (k *Kernel) withFreeList(fn func(*alloc.FreeListAllocator) error) error {
	if k.freeList == nil {
		return nil
	}
	return k.Heap.Inspect(func(alloc.Allocator) error {
		return fn(k.freeList)
	})
}

// Memory returns n bytes of heap memory at addr. Under the bump policy the
// heap has no backing memory and Memory returns an error.
func (k *Kernel) Memory(addr, n uint64) ([]byte, error) {
	if k.arena == nil {
		return nil, fmt.Errorf("heap policy %s has no backing memory", k.Policy())
	}
	return k.arena.Slice(addr, n)
}

// Close releases the heap's backing memory. The kernel must not be used
// afterwards.
func (k *Kernel) Close() error {
	if k.arena == nil {
		return nil
	}
	return k.arena.Close()
}

// printMemoryMap writes the memory map the way the boot console shows it.
func printMemoryMap(w io.Writer, mm region.MemoryMap) {
	fmt.Fprintf(w, "[boot] system memory map:\n")
	mm.Visit(func(a region.Area) bool {
		fmt.Fprintf(w, "  [%#010x - %#010x] %10d %s\n", a.Start, a.End(), a.Length, a.Type)
		console.Debug("memory area", "start", a.Start, "end", a.End(), "type", a.Type.String())
		return true
	})
	fmt.Fprintf(w, "[boot] usable: %d KiB\n", mm.TotalUsable()/format.Kb)
}
