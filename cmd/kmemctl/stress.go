package main

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joshuapare/kmem/internal/format"
	"github.com/joshuapare/kmem/mem/alloc"
	"github.com/joshuapare/kmem/mem/boot"
	"github.com/joshuapare/kmem/mem/global"
)

var (
	stressOps      int
	stressSeed     int64
	stressMaxSize  uint64
	stressMaxAlign uint64
	stressTrim     bool
)

func init() {
	cmd := newStressCmd()
	cmd.Flags().IntVar(&stressOps, "ops", 10000, "Number of alloc/free operations")
	cmd.Flags().Int64Var(&stressSeed, "seed", 1, "Random seed")
	cmd.Flags().Uint64Var(&stressMaxSize, "max-size", 4096, "Largest allocation in bytes")
	cmd.Flags().Uint64Var(&stressMaxAlign, "max-align", 256, "Largest alignment (power of two)")
	cmd.Flags().BoolVar(&stressTrim, "trim", false, "Release free heap pages to the host when done")
	rootCmd.AddCommand(cmd)
}

func newStressCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stress",
		Short: "Run a random alloc/free workload against the heap",
		Long: `The stress command boots the machine and drives the heap with a
seeded random mix of allocations and frees. Every allocation is filled with a
pattern that is verified before it is freed, and the free list is checked
after every operation. The run stops at the first corruption.

Example:
  kmemctl stress --ops 50000 --seed 7
  kmemctl stress --max-size 65536 --max-align 4096 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStress()
		},
	}
	return cmd
}

type liveAlloc struct {
	ptr   uint64
	size  uint64
	align uint64
	seed  byte
}

type stressReport struct {
	Seed       int64       `json:"seed"`
	Ops        int         `json:"ops"`
	Policy     string      `json:"policy"`
	Allocs     int         `json:"allocs"`
	Frees      int         `json:"frees"`
	Failed     int         `json:"failed"`
	PeakLive   int         `json:"peak_live"`
	Stats      alloc.Stats `json:"stats"`
	Released   uint64      `json:"released,omitempty"`
	Drained    bool        `json:"drained"`
	HeapMap    string      `json:"heap_map,omitempty"`
	FinalCheck string      `json:"final_check"`
}

func runStress() error {
	if stressOps <= 0 {
		return fmt.Errorf("--ops must be positive")
	}
	if stressMaxSize == 0 || !format.IsPowerOfTwo(stressMaxAlign) {
		return fmt.Errorf("--max-size must be positive and --max-align a power of two")
	}

	k, _, err := bootKernel()
	if err != nil {
		return err
	}
	defer k.Close()

	printVerbose("Heap %s, policy %s, seed %d\n", k.HeapRegion, k.Policy(), stressSeed)

	rng := rand.New(rand.NewSource(stressSeed))
	report := stressReport{Seed: stressSeed, Ops: stressOps, Policy: k.Policy().String()}
	var live []liveAlloc

	for op := range stressOps {
		if len(live) == 0 || rng.Intn(100) < 60 {
			a := liveAlloc{
				size:  1 + uint64(rng.Int63n(int64(stressMaxSize))),
				align: 1 << rng.Intn(alignShift(stressMaxAlign)+1),
				seed:  byte(op),
			}
			a.ptr = k.Heap.Alloc(a.size, a.align)
			if a.ptr == global.Null {
				report.Failed++
				continue
			}
			if a.ptr%a.align != 0 {
				return fmt.Errorf("op %d: %#x not aligned to %d", op, a.ptr, a.align)
			}
			fillPattern(k, a)
			live = append(live, a)
			report.Allocs++
			report.PeakLive = max(report.PeakLive, len(live))
		} else {
			i := rng.Intn(len(live))
			if err := release(k, live[i]); err != nil {
				return fmt.Errorf("op %d: %w", op, err)
			}
			live[i] = live[len(live)-1]
			live = live[:len(live)-1]
			report.Frees++
		}

		if err := k.Check(); err != nil {
			return fmt.Errorf("op %d: %w", op, err)
		}
	}

	report.Stats = k.Stats()
	report.HeapMap = heapMap(k, 64)

	for _, a := range live {
		if err := release(k, a); err != nil {
			return err
		}
	}
	report.Drained = len(k.FreeBlocks()) <= 1
	if stressTrim {
		if report.Released, err = k.Trim(); err != nil {
			return err
		}
	}
	report.FinalCheck = "ok"
	if err := k.Check(); err != nil {
		report.FinalCheck = err.Error()
	}

	return emitStressReport(report)
}

// emitStressReport prints the report and fails the command when the final
// free-list check did not pass, in both output modes.
func emitStressReport(report stressReport) error {
	if jsonOut {
		if err := printJSON(report); err != nil {
			return err
		}
	} else {
		printStressReport(report)
	}
	if report.FinalCheck != "ok" {
		return errors.New(report.FinalCheck)
	}
	return nil
}

// fillPattern writes a recognizable pattern over the payload when the heap
// has backing memory.
func fillPattern(k *boot.Kernel, a liveAlloc) {
	mem, err := k.Memory(a.ptr, a.size)
	if err != nil {
		return
	}
	for i := range mem {
		mem[i] = a.seed + byte(i)
	}
}

// release verifies the payload pattern and frees the allocation.
func release(k *boot.Kernel, a liveAlloc) error {
	if mem, err := k.Memory(a.ptr, a.size); err == nil {
		for i, b := range mem {
			if b != a.seed+byte(i) {
				return fmt.Errorf("payload at %#x corrupted at offset %d", a.ptr, i)
			}
		}
	}
	return k.Heap.Dealloc(a.ptr, a.size, a.align)
}

func alignShift(align uint64) int {
	n := 0
	for align > 1 {
		align >>= 1
		n++
	}
	return n
}

// heapMap draws the heap as width cells: '#' where a cell is entirely
// allocated, '.' where it is entirely free and '+' where it is mixed.
func heapMap(k *boot.Kernel, width int) string {
	blocks := k.FreeBlocks()
	if blocks == nil && k.Policy() != global.PolicyFreeList {
		return ""
	}
	r := k.HeapRegion
	cell := r.Length / uint64(width)
	if cell == 0 {
		return ""
	}

	var sb strings.Builder
	for i := range width {
		lo := r.Start + uint64(i)*cell
		hi := lo + cell
		var free uint64
		for _, b := range blocks {
			s, e := max(b.Addr, lo), min(b.End(), hi)
			if s < e {
				free += e - s
			}
		}
		switch {
		case free == 0:
			sb.WriteByte('#')
		case free == cell:
			sb.WriteByte('.')
		default:
			sb.WriteByte('+')
		}
	}
	return sb.String()
}

func colorMap(m string) string {
	if noColor {
		return m
	}
	var sb strings.Builder
	for _, c := range m {
		switch c {
		case '#':
			sb.WriteString(usedCell.Render("█"))
		case '.':
			sb.WriteString(freeCell.Render("░"))
		default:
			sb.WriteString(warnStyle.Render("▒"))
		}
	}
	return sb.String()
}

func printStressReport(r stressReport) {
	s := r.Stats
	printInfo("%s\n", render(headerStyle, fmt.Sprintf("Stress run: %d ops, seed %d, %s heap", r.Ops, r.Seed, r.Policy)))
	printInfo("  allocs: %d  frees: %d  failed: %d  peak live: %d\n", r.Allocs, r.Frees, r.Failed, r.PeakLive)
	printInfo("  splits: %d  merges: %d back / %d forward\n", s.SplitCount, s.CoalesceBackward, s.CoalesceForward)
	printInfo("  in use: %s in %d allocations, headers %s\n",
		formatBytes(s.BytesInUse), s.LiveAllocations, formatBytes(s.HeaderBytes))
	printInfo("  free:   %s in %d blocks, largest %s\n",
		formatBytes(s.FreeBytes), s.FreeBlocks, formatBytes(s.LargestFree))
	if r.HeapMap != "" {
		printInfo("  map:    %s\n", colorMap(r.HeapMap))
	}
	if r.Released > 0 {
		printInfo("  trimmed %s\n", formatBytes(r.Released))
	}
	if r.FinalCheck == "ok" {
		printInfo("  %s\n", render(okStyle, "free list consistent"))
	} else {
		printInfo("  %s\n", render(errStyle, r.FinalCheck))
	}
}
