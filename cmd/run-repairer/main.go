// Command run-repairer is a minimal headless entry point for the repair
// daemon: load config, wire the stack, run until signaled. Deployment
// scripts use this; humans use the modforge CLI.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/X-Niter/ModForge-sub004/internal/collect"
	"github.com/X-Niter/ModForge-sub004/internal/config"
	"github.com/X-Niter/ModForge-sub004/internal/fixgen"
	"github.com/X-Niter/ModForge-sub004/internal/governor"
	"github.com/X-Niter/ModForge-sub004/internal/notify"
	"github.com/X-Niter/ModForge-sub004/internal/patterns"
	"github.com/X-Niter/ModForge-sub004/internal/pressure"
	"github.com/X-Niter/ModForge-sub004/internal/resolver"
	"github.com/X-Niter/ModForge-sub004/internal/scheduler"
	"github.com/X-Niter/ModForge-sub004/internal/stats"
)

func main() {
	cfgPath := config.DefaultPath
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	fmt.Printf("Using config: %s\n", cfgPath)

	store, err := patterns.New(patterns.Config{Path: cfg.Patterns.Path, Capacity: cfg.Patterns.Capacity})
	if err != nil {
		log.Fatalf("Failed to open pattern store: %v", err)
	}
	defer store.Close()

	gen, err := fixgen.NewAnthropic(fixgen.AnthropicConfig{})
	if err != nil {
		log.Fatalf("Failed to create fix generator: %v", err)
	}

	tracker := stats.New(0)
	console := notify.NewConsole()
	files := &resolver.OSFiles{Root: cfg.Build.Dir}

	res, err := resolver.New(resolver.Config{
		Store:               store,
		Generator:           gen,
		Stats:               tracker,
		Notifier:            console,
		Reader:              files,
		Writer:              files,
		SimilarityThreshold: cfg.Patterns.SimilarityThreshold,
		FallbackTimeout:     cfg.Repair.FallbackTimeout.Std(),
		LearningEnabled:     cfg.Patterns.LearningEnabled,
		ScopeTags:           cfg.Patterns.ScopeTags,
		Language:            cfg.Repair.Language,
	})
	if err != nil {
		log.Fatalf("Failed to create resolver: %v", err)
	}

	mitigator := pressure.NewMitigator(cfg.Memory.TempDir)
	monitor := pressure.NewMonitor(&pressure.Config{
		SampleInterval: cfg.Memory.SampleInterval.Std(),
		Thresholds: pressure.Thresholds{
			WarningPercent:   cfg.Memory.WarningPercent,
			CriticalPercent:  cfg.Memory.CriticalPercent,
			EmergencyPercent: cfg.Memory.EmergencyPercent,
		},
		Sampler:   pressure.NewRuntimeSampler(cfg.Memory.MaxBytes),
		Notifier:  console,
		Mitigator: mitigator,
	})

	source, err := collect.NewCommandSource(cfg.Build.Command, cfg.Build.Dir)
	if err != nil {
		log.Fatalf("Failed to create problem source: %v", err)
	}

	sched, err := scheduler.New(scheduler.Config{
		Source:   source,
		Resolver: res,
		Governor: governor.New(cfg.Repair.MaxAttemptsPerFile),
		Stats:    tracker,
		Pressure: monitor,
		Intervals: scheduler.Intervals{
			Normal:    cfg.Scheduler.NormalInterval.Std(),
			Warning:   cfg.Scheduler.WarningInterval.Std(),
			Critical:  cfg.Scheduler.CriticalInterval.Std(),
			Emergency: cfg.Scheduler.EmergencyInterval.Std(),
		},
		Workers: cfg.Repair.Workers,
	})
	if err != nil {
		log.Fatalf("Failed to create scheduler: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fmt.Println("Starting repairer...")
	monitor.Start()
	sched.Start(ctx)

	if cfg.Build.Watch {
		watcher, err := collect.NewWatcher(cfg.Build.Dir, cfg.Build.WatchExtensions, 0, sched.Kick)
		if err != nil {
			log.Fatalf("Failed to start filesystem watcher: %v", err)
		}
		defer watcher.Close()
		// Non-essential service: emergency mitigation may shut it down
		// before regular shutdown does.
		mitigator.RegisterStopper("fs-watcher", func() { watcher.Close() })
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	fmt.Println("Repairer running. Press Ctrl+C to stop.")
	<-sigCh
	fmt.Println("\nShutting down repairer...")

	sched.Stop()
	monitor.Stop()

	snap := tracker.Snapshot()
	fmt.Printf("Repairer stopped. %d cycles, %d problems processed, success rate %.0f%%.\n",
		snap.CyclesRun, snap.Processed, snap.SuccessRate()*100)
}
