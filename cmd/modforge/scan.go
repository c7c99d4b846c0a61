package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run a single repair cycle and exit",
	Long: `Run the build once, resolve whatever errors it reports, and print a
summary. Useful for CI hooks and for trying ModForge without leaving
the daemon running.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := buildDaemon(cfg)
		if err != nil {
			return err
		}
		defer d.close()

		fmt.Printf("Scanning (build: %v)...\n", cfg.Build.Command)
		d.scheduler.RunCycle(context.Background())

		snap := d.stats.Snapshot()
		fmt.Printf("Scan complete: %d problems, %d fixed by pattern, %d by fallback, %d failed.\n",
			snap.Processed, snap.ResolvedByPattern, snap.ResolvedByFallback, snap.Failed)

		if exhausted := d.governor.Exhausted(); len(exhausted) > 0 {
			fmt.Println("Gave up on (attempt budget spent):")
			for _, file := range exhausted {
				fmt.Printf("  %s\n", file)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scanCmd)
}
