package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/joshuapare/kmem/mem/frame"
)

var framesCount int

func init() {
	cmd := newFramesCmd()
	cmd.Flags().IntVarP(&framesCount, "count", "n", 0, "Frames to allocate (0 = until exhausted)")
	rootCmd.AddCommand(cmd)
}

func newFramesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "frames",
		Short: "Allocate physical frames after boot",
		Long: `The frames command boots the machine and allocates 2 MiB frames
from the frame allocator, printing each frame's index and address. Frames
that hold the heap are never returned.

Example:
  kmemctl frames --count 4
  kmemctl frames --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFrames()
		},
	}
	return cmd
}

type frameEntry struct {
	Index   uint64 `json:"index"`
	Address uint64 `json:"address"`
}

type framesReport struct {
	Frames    []frameEntry `json:"frames"`
	Exhausted bool         `json:"exhausted"`
	Remaining uint64       `json:"remaining"`
}

func runFrames() error {
	k, _, err := bootKernel()
	if err != nil {
		return err
	}
	defer k.Close()

	printVerbose("Heap %s ends in frame %d\n", k.HeapRegion, uint64(frame.Containing(k.HeapRegion.End()-1)))

	var report framesReport
	for framesCount == 0 || len(report.Frames) < framesCount {
		f, err := k.Frames.Allocate()
		if errors.Is(err, frame.ErrExhausted) {
			report.Exhausted = true
			break
		}
		if err != nil {
			return err
		}
		report.Frames = append(report.Frames, frameEntry{Index: uint64(f), Address: f.Address()})
	}
	report.Remaining = k.Frames.Remaining()

	if jsonOut {
		return printJSON(report)
	}

	printInfo("%s\n", render(headerStyle, "Frames"))
	for _, f := range report.Frames {
		printInfo("  %4d  %#012x\n", f.Index, f.Address)
	}
	printInfo("  allocated %d, remaining %d\n", len(report.Frames), report.Remaining)
	if report.Exhausted {
		printInfo("  %s\n", render(warnStyle, "frame allocator exhausted"))
	}
	return nil
}
