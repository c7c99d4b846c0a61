package main

import (
	"fmt"

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

// daemon bundles the wired repair stack.
type daemon struct {
	store     *patterns.Store
	stats     *stats.Tracker
	governor  *governor.Governor
	monitor   *pressure.Monitor
	scheduler *scheduler.Scheduler
	watcher   *collect.Watcher
}

// buildDaemon wires the full stack from configuration. The returned
// daemon is not started; callers own the lifecycle.
func buildDaemon(cfg *config.Config) (*daemon, error) {
	store, err := patterns.New(patterns.Config{
		Path:     cfg.Patterns.Path,
		Capacity: cfg.Patterns.Capacity,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open pattern store: %w", err)
	}

	gen, err := fixgen.NewAnthropic(fixgen.AnthropicConfig{})
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to create fix generator: %w", err)
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
		store.Close()
		return nil, err
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
		store.Close()
		return nil, err
	}

	gov := governor.New(cfg.Repair.MaxAttemptsPerFile)

	sched, err := scheduler.New(scheduler.Config{
		Source:   source,
		Resolver: res,
		Governor: gov,
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
		store.Close()
		return nil, err
	}

	d := &daemon{
		store:     store,
		stats:     tracker,
		governor:  gov,
		monitor:   monitor,
		scheduler: sched,
	}

	if cfg.Build.Watch {
		watcher, err := collect.NewWatcher(cfg.Build.Dir, cfg.Build.WatchExtensions, 0, sched.Kick)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("failed to start filesystem watcher: %w", err)
		}
		d.watcher = watcher
		// The watcher is non-essential; emergency mitigation shuts it
		// down to stop change-triggered scans under memory pressure.
		mitigator.RegisterStopper("fs-watcher", func() { watcher.Close() })
	}

	return d, nil
}

// close releases everything buildDaemon opened. Safe after a partial
// shutdown.
func (d *daemon) close() {
	if d.watcher != nil {
		d.watcher.Close()
	}
	d.store.Close()
}
