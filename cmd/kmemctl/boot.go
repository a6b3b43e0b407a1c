package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joshuapare/kmem/mem/boot"
	"github.com/joshuapare/kmem/mem/frame"
)

func init() {
	rootCmd.AddCommand(newBootCmd())
}

func newBootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "boot",
		Short: "Boot the machine and show the memory layout",
		Long: `The boot command brings up the heap and frame allocator from the
memory map and shows the boot console, the memory map, the heap placement
and the frames left for the rest of the kernel.

Example:
  kmemctl boot
  kmemctl boot --config qemu.yaml
  kmemctl boot --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBoot()
		},
	}
	return cmd
}

type areaReport struct {
	Start  uint64 `json:"start"`
	End    uint64 `json:"end"`
	Length uint64 `json:"length"`
	Type   string `json:"type"`
}

type bootReport struct {
	MemoryMap   []areaReport `json:"memory_map"`
	TotalUsable uint64       `json:"total_usable"`
	Heap        struct {
		Start    uint64 `json:"start"`
		End      uint64 `json:"end"`
		Length   uint64 `json:"length"`
		Policy   string `json:"policy"`
		Tracking bool   `json:"tracking"`
	} `json:"heap"`
	Frames struct {
		First     uint64 `json:"first"`
		Max       uint64 `json:"max"`
		Remaining uint64 `json:"remaining"`
	} `json:"frames"`
	Console []string `json:"console"`
}

func newBootReport(k *boot.Kernel, lines []string) bootReport {
	var r bootReport
	for _, a := range k.MemoryMap {
		r.MemoryMap = append(r.MemoryMap, areaReport{
			Start:  a.Start,
			End:    a.End(),
			Length: a.Length,
			Type:   a.Type.String(),
		})
	}
	r.TotalUsable = k.MemoryMap.TotalUsable()
	r.Heap.Start = k.HeapRegion.Start
	r.Heap.End = k.HeapRegion.End()
	r.Heap.Length = k.HeapRegion.Length
	r.Heap.Policy = k.Policy().String()
	r.Heap.Tracking = k.Config.Tracking
	r.Frames.First = k.Frames.Allocated()
	r.Frames.Max = uint64(k.Frames.Max())
	r.Frames.Remaining = k.Frames.Remaining()
	r.Console = lines
	return r
}

func runBoot() error {
	k, vga, err := bootKernel()
	if err != nil {
		return err
	}
	defer k.Close()

	report := newBootReport(k, vga.Lines())
	if jsonOut {
		return printJSON(report)
	}

	printInfo("%s\n", render(headerStyle, "Boot console"))
	printInfo("%s\n", renderScreen(report.Console))

	printInfo("%s\n", render(headerStyle, "Memory map"))
	for _, a := range report.MemoryMap {
		typ := a.Type
		if a.Type == "available" {
			typ = render(okStyle, typ)
		} else {
			typ = render(mutedStyle, typ)
		}
		printInfo("  %#012x - %#012x  %10s  %s\n", a.Start, a.End, formatBytes(a.Length), typ)
	}
	printInfo("  usable: %s\n\n", formatBytes(report.TotalUsable))

	printInfo("%s\n", render(headerStyle, "Heap"))
	printInfo("  region:   %#x - %#x (%s)\n", report.Heap.Start, report.Heap.End, formatBytes(report.Heap.Length))
	printInfo("  policy:   %s\n", report.Heap.Policy)
	printInfo("  tracking: %v\n\n", report.Heap.Tracking)

	printInfo("%s\n", render(headerStyle, "Frames"))
	printInfo("  first free: %d (%#x)\n", report.Frames.First, frame.Frame(report.Frames.First).Address())
	printInfo("  max:        %d\n", report.Frames.Max)
	printInfo("  remaining:  %d\n", report.Frames.Remaining)
	return nil
}

// formatBytes formats a byte count with a binary unit.
func formatBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
