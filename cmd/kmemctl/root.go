package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/joshuapare/kmem/internal/console"
	"github.com/joshuapare/kmem/mem/boot"
)

var (
	// Global flags
	verbose    bool
	quiet      bool
	jsonOut    bool
	noColor    bool
	configPath string
	logFile    string

	closeLog = func() error { return nil }
)

var rootCmd = &cobra.Command{
	Use:   "kmemctl",
	Short: "Boot and exercise the kernel memory allocators",
	Long: `kmemctl boots the kernel memory subsystem on a simulated machine
described by a memory map, then inspects or stresses the heap and frame
allocators. The machine defaults to a 128 MiB QEMU guest; use --config to
load a YAML boot config instead.`,
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		closer, err := console.Init(console.Options{
			Enabled: verbose || logFile != "",
			Path:    logFile,
			Level:   level,
			JSON:    jsonOut,
		})
		if err != nil {
			return fmt.Errorf("init logging: %w", err)
		}
		closeLog = closer
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return closeLog()
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().
		BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except errors")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().
		StringVarP(&configPath, "config", "c", "", "YAML boot config (default: built-in QEMU map)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Write structured logs to this file")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig returns the --config file, or the default machine.
func loadConfig() (boot.Config, error) {
	if configPath == "" {
		return boot.DefaultConfig(), nil
	}
	printVerbose("Loading config: %s\n", configPath)
	return boot.LoadConfig(configPath)
}

// bootKernel boots the configured machine onto a VGA console buffer.
func bootKernel(opts ...boot.Option) (*boot.Kernel, *console.VGA, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	vga := console.NewVGA()
	k, err := boot.Boot(cfg, append([]boot.Option{boot.WithConsole(vga)}, opts...)...)
	if err != nil {
		return nil, nil, fmt.Errorf("boot failed: %w", err)
	}
	return k, vga, nil
}

// Helper functions for output

// printInfo prints an info message if not in quiet mode
func printInfo(format string, args ...any) {
	if !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printVerbose prints a verbose message if verbose mode is enabled
func printVerbose(format string, args ...any) {
	if verbose && !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printJSON outputs data as JSON
func printJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
