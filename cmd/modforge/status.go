package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/X-Niter/ModForge-sub004/internal/patterns"
	"github.com/X-Niter/ModForge-sub004/internal/pressure"
	"github.com/X-Niter/ModForge-sub004/internal/types"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration, pattern store, and memory status",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
		yellow := color.New(color.FgYellow).SprintFunc()
		green := color.New(color.FgGreen).SprintFunc()
		red := color.New(color.FgRed).SprintFunc()

		fmt.Printf("\n%s\n\n", cyan("=== ModForge Status ==="))

		fmt.Printf("%s\n", yellow("Configuration:"))
		fmt.Printf("  Build command:        %v\n", cfg.Build.Command)
		fmt.Printf("  Max attempts/file:    %d\n", cfg.Repair.MaxAttemptsPerFile)
		fmt.Printf("  Similarity threshold: %.2f\n", cfg.Patterns.SimilarityThreshold)
		fmt.Printf("  Learning:             %v\n", cfg.Patterns.LearningEnabled)
		fmt.Printf("  Scan interval:        %v (normal pressure)\n", cfg.Scheduler.NormalInterval.Std())
		fmt.Println()

		fmt.Printf("%s\n", yellow("Pattern store:"))
		store, err := patterns.New(patterns.Config{Path: cfg.Patterns.Path, Capacity: cfg.Patterns.Capacity})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to open pattern store: %v\n", err)
			os.Exit(1)
		}
		defer store.Close()

		count, err := store.Count(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("  Patterns learned: %d (capacity %d)\n", count, cfg.Patterns.Capacity)

		top, err := store.List(ctx, 3)
		if err == nil && len(top) > 0 {
			fmt.Println("  Most successful:")
			for _, p := range top {
				fmt.Printf("    [%s] %dx: %.60s\n", p.Type, p.SuccessCount, p.NormalizedMessage)
			}
		}
		fmt.Println()

		fmt.Printf("%s\n", yellow("Memory:"))
		sampler := pressure.NewRuntimeSampler(cfg.Memory.MaxBytes)
		snap := sampler.Sample()
		level := pressure.Thresholds{
			WarningPercent:   cfg.Memory.WarningPercent,
			CriticalPercent:  cfg.Memory.CriticalPercent,
			EmergencyPercent: cfg.Memory.EmergencyPercent,
		}.Classify(snap.UsedPercent)

		paint := green
		if level >= types.PressureCritical {
			paint = red
		} else if level >= types.PressureWarning {
			paint = yellow
		}
		fmt.Printf("  Usage: %d MiB of %d MiB (%.1f%%) %s\n\n",
			snap.UsedBytes>>20, snap.MaxBytes>>20, snap.UsedPercent, paint(level.String()))
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
