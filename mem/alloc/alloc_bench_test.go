package alloc

import (
	"testing"

	"github.com/joshuapare/kmem/mem/region"
)

func BenchmarkFreeList_AllocFree(b *testing.B) {
	fl := newTestHeap(b, 1<<20)
	b.ReportAllocs()
	for b.Loop() {
		p, err := fl.Alloc(64, 16)
		if err != nil {
			b.Fatal(err)
		}
		if err := fl.Free(p, 64, 16); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkFreeList_Fragmented measures first fit walking past many holes.
func BenchmarkFreeList_Fragmented(b *testing.B) {
	fl := newTestHeap(b, 1<<20)
	var ptrs []uint64
	for range 2000 {
		p, err := fl.Alloc(32, 16)
		if err != nil {
			b.Fatal(err)
		}
		ptrs = append(ptrs, p)
	}
	for i := 0; i < len(ptrs); i += 2 {
		if err := fl.Free(ptrs[i], 32, 16); err != nil {
			b.Fatal(err)
		}
	}

	b.ResetTimer()
	for b.Loop() {
		p, err := fl.Alloc(256, 16)
		if err != nil {
			b.Fatal(err)
		}
		if err := fl.Free(p, 256, 16); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkBump_Alloc(b *testing.B) {
	ba := NewBump()
	if err := ba.Init(region.Region{Start: 0x1000, Length: 1 << 40}); err != nil {
		b.Fatal(err)
	}
	b.ReportAllocs()
	for b.Loop() {
		if _, err := ba.Alloc(64, 8); err != nil {
			b.Fatal(err)
		}
	}
}
