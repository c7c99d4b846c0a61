// Package scheduler drives the continuous repair loop. Scans run on a
// timer whose interval adapts to memory pressure, with a compare-and-swap
// guard ensuring at most one cycle is ever in flight.
package scheduler

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/X-Niter/ModForge-sub004/internal/collect"
	"github.com/X-Niter/ModForge-sub004/internal/governor"
	"github.com/X-Niter/ModForge-sub004/internal/pressure"
	"github.com/X-Niter/ModForge-sub004/internal/resolver"
	"github.com/X-Niter/ModForge-sub004/internal/stats"
	"github.com/X-Niter/ModForge-sub004/internal/types"
)

// State is the scheduler lifecycle state.
type State int32

const (
	StateStopped State = iota
	StateScheduled
	StateCycleRunning
)

func (s State) String() string {
	switch s {
	case StateScheduled:
		return "SCHEDULED"
	case StateCycleRunning:
		return "CYCLE_RUNNING"
	default:
		return "STOPPED"
	}
}

// Intervals maps pressure levels to scan intervals. Higher pressure
// means longer intervals; the loop backs off instead of piling on.
type Intervals struct {
	Normal    time.Duration
	Warning   time.Duration
	Critical  time.Duration
	Emergency time.Duration
}

// DefaultIntervals returns the standard 1m/2m/5m/10m cadence.
func DefaultIntervals() Intervals {
	return Intervals{
		Normal:    1 * time.Minute,
		Warning:   2 * time.Minute,
		Critical:  5 * time.Minute,
		Emergency: 10 * time.Minute,
	}
}

// For returns the interval for a pressure level.
func (iv Intervals) For(level types.PressureLevel) time.Duration {
	switch level {
	case types.PressureEmergency:
		return iv.Emergency
	case types.PressureCritical:
		return iv.Critical
	case types.PressureWarning:
		return iv.Warning
	default:
		return iv.Normal
	}
}

// PressureSource supplies the current pressure level and level-change
// callbacks. Satisfied by pressure.Monitor.
type PressureSource interface {
	Level() types.PressureLevel
	AddListener(fn pressure.Listener) int
	RemoveListener(id int)
}

// Config holds scheduler configuration.
type Config struct {
	Source   collect.Source
	Resolver *resolver.Resolver
	Governor *governor.Governor
	Stats    *stats.Tracker
	// Pressure gates cycles and adapts the interval (nil = always normal)
	Pressure PressureSource
	// Intervals per pressure level (zero value = DefaultIntervals)
	Intervals Intervals
	// Workers bounds concurrent per-file resolutions (default 4)
	Workers int
}

// Scheduler owns the repair loop.
type Scheduler struct {
	cfg Config

	state atomic.Int32
	// cycleFlag is the cycle guard: swapped true for the duration of one
	// cycle, dropped requests while held
	cycleFlag atomic.Bool

	// prevFiles are files that had problems in the last scan; files that
	// go clean get their attempt budget back
	prevMu    sync.Mutex
	prevFiles map[string]bool

	started  atomic.Bool
	stopOnce sync.Once
	kickCh   chan struct{}
	rearmCh  chan struct{}
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// New creates a scheduler. Source, Resolver, Governor, and Stats are
// required.
func New(cfg Config) (*Scheduler, error) {
	if cfg.Source == nil {
		return nil, fmt.Errorf("problem source is required")
	}
	if cfg.Resolver == nil {
		return nil, fmt.Errorf("resolver is required")
	}
	if cfg.Governor == nil {
		return nil, fmt.Errorf("governor is required")
	}
	if cfg.Stats == nil {
		return nil, fmt.Errorf("stats tracker is required")
	}
	if cfg.Intervals == (Intervals{}) {
		cfg.Intervals = DefaultIntervals()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}

	return &Scheduler{
		cfg:       cfg,
		prevFiles: make(map[string]bool),
		kickCh:    make(chan struct{}, 1),
		rearmCh:   make(chan struct{}, 1),
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}, nil
}

// State returns the current lifecycle state.
func (s *Scheduler) State() State {
	return State(s.state.Load())
}

// interval returns the scan interval for the current pressure level.
func (s *Scheduler) interval() time.Duration {
	level := types.PressureNormal
	if s.cfg.Pressure != nil {
		level = s.cfg.Pressure.Level()
	}
	return s.cfg.Intervals.For(level)
}

// Start launches the loop. The timer re-arms immediately when the
// pressure level changes so a recovery from high pressure shortens the
// wait instead of serving out the long interval. Calling Start more
// than once is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	if !s.started.CompareAndSwap(false, true) {
		return
	}
	s.state.Store(int32(StateScheduled))

	var listenerID int
	if s.cfg.Pressure != nil {
		listenerID = s.cfg.Pressure.AddListener(func(_, _ types.PressureLevel, _ pressure.Snapshot) {
			select {
			case s.rearmCh <- struct{}{}:
			default:
			}
		})
	}

	go func() {
		defer close(s.doneCh)
		defer s.state.Store(int32(StateStopped))
		if s.cfg.Pressure != nil {
			defer s.cfg.Pressure.RemoveListener(listenerID)
		}

		timer := time.NewTimer(s.interval())
		defer timer.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopCh:
				return
			case <-timer.C:
				s.RunCycle(ctx)
				timer.Reset(s.interval())
			case <-s.kickCh:
				s.RunCycle(ctx)
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(s.interval())
			case <-s.rearmCh:
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(s.interval())
			}
		}
	}()
}

// Stop halts the loop and waits for it to exit. An in-flight cycle runs
// to completion. Stop before Start, and repeated Stops, are no-ops.
func (s *Scheduler) Stop() {
	if !s.started.Load() {
		return
	}
	s.stopOnce.Do(func() { close(s.stopCh) })
	<-s.doneCh
}

// Kick requests an immediate scan, used by the filesystem watcher. The
// request is dropped if a scan is already queued or running.
func (s *Scheduler) Kick() {
	select {
	case s.kickCh <- struct{}{}:
	default:
	}
}

// RunCycle runs one repair cycle. Returns false when the cycle was
// dropped because another one is in flight. The guard is released on
// every path, including panics in resolution code.
func (s *Scheduler) RunCycle(ctx context.Context) bool {
	if !s.cycleFlag.CompareAndSwap(false, true) {
		s.cfg.Stats.RecordCycleSkipped("cycle already running")
		return false
	}

	s.state.Store(int32(StateCycleRunning))
	defer func() {
		s.state.Store(int32(StateScheduled))
		s.cycleFlag.Store(false)
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Error: repair cycle panicked: %v\n", r)
			s.cfg.Stats.RecordCycleSkipped(fmt.Sprintf("panic: %v", r))
		}
	}()

	s.cycle(ctx)
	return true
}

// cycle is one pass: gate on pressure, collect, group, filter through
// the governor, resolve concurrently, reset budgets for files that went
// clean.
func (s *Scheduler) cycle(ctx context.Context) {
	if s.cfg.Pressure != nil && s.cfg.Pressure.Level() >= types.PressureEmergency {
		s.cfg.Stats.RecordCycleSkipped("emergency memory pressure")
		return
	}

	problems, err := s.cfg.Source.Problems(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: problem collection failed: %v\n", err)
		s.cfg.Stats.RecordCycleSkipped("collection failed")
		return
	}

	byFile := groupByFile(problems)
	s.resetCleanFiles(byFile)

	if len(byFile) == 0 {
		s.cfg.Stats.RecordCycle(0)
		return
	}

	// Stable ordering keeps logs and tests deterministic.
	files := make([]string, 0, len(byFile))
	for file := range byFile {
		files = append(files, file)
	}
	sort.Strings(files)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)

	for _, file := range files {
		if !s.cfg.Governor.ShouldAttempt(file) {
			continue
		}

		file := file
		g.Go(func() error {
			// Per-file failures and panics never abort the cycle.
			defer func() {
				if r := recover(); r != nil {
					fmt.Fprintf(os.Stderr, "Error: resolution panicked for %s: %v\n", file, r)
					s.cfg.Stats.RecordFailure(file, fmt.Sprintf("panic: %v", r))
				}
			}()
			_, err := s.cfg.Resolver.Resolve(gctx, file, byFile[file])
			if err != nil && err != resolver.ErrInFlight {
				fmt.Fprintf(os.Stderr, "Error: resolution failed for %s: %v\n", file, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	s.cfg.Stats.RecordCycle(len(problems))
}

// resetCleanFiles returns attempt budgets to files that had problems in
// the previous scan but are clean now, then records the current set.
func (s *Scheduler) resetCleanFiles(current map[string][]types.Problem) {
	s.prevMu.Lock()
	defer s.prevMu.Unlock()

	for file := range s.prevFiles {
		if _, stillBroken := current[file]; !stillBroken {
			s.cfg.Governor.ResetOnSuccess(file)
		}
	}

	s.prevFiles = make(map[string]bool, len(current))
	for file := range current {
		s.prevFiles[file] = true
	}
}

// groupByFile buckets problems by file, keeping only error severity.
// Warnings and notes are visible in build output but never drive repair.
func groupByFile(problems []types.Problem) map[string][]types.Problem {
	byFile := make(map[string][]types.Problem)
	for _, p := range problems {
		if p.Severity != types.SeverityError {
			continue
		}
		byFile[p.File] = append(byFile[p.File], p)
	}
	return byFile
}
