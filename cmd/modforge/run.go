package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the continuous repair daemon",
	Long: `Start the repair loop: scan the build on an adaptive interval,
resolve errors through the pattern store and AI fallback, and keep
running until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := buildDaemon(cfg)
		if err != nil {
			return err
		}
		defer d.close()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		d.monitor.Start()
		d.scheduler.Start(ctx)

		fmt.Printf("ModForge running (build: %v, interval: %v). Press Ctrl+C to stop.\n",
			cfg.Build.Command, cfg.Scheduler.NormalInterval.Std())

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		<-sigCh

		fmt.Println("\nShutting down...")
		d.scheduler.Stop()
		d.monitor.Stop()

		snap := d.stats.Snapshot()
		fmt.Printf("Done. %d problems processed, %d fixed by pattern, %d by fallback, %d failed.\n",
			snap.Processed, snap.ResolvedByPattern, snap.ResolvedByFallback, snap.Failed)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
