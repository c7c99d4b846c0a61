// Package stats tracks running counters for the repair loop and keeps a
// bounded rolling log of recent actions for the status surface.
package stats

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/X-Niter/ModForge-sub004/internal/types"
)

// DefaultLogSize is the number of recent actions kept when none is
// configured.
const DefaultLogSize = 100

// Action is one entry in the rolling action log.
type Action struct {
	// Time is when the action was recorded
	Time time.Time
	// File is the file the action concerned (may be empty for cycle-level entries)
	File string
	// Message describes what happened
	Message string
}

// Tracker holds the repair loop's running counters. Counters are
// independent atomics; the action log has its own lock.
type Tracker struct {
	processed          atomic.Int64
	resolvedByPattern  atomic.Int64
	resolvedByFallback atomic.Int64
	failed             atomic.Int64
	cyclesRun          atomic.Int64
	cyclesSkipped      atomic.Int64

	mu       sync.Mutex
	log      []Action
	logSize  int
	typeFreq map[types.ErrorType]int
}

// Snapshot is a point-in-time copy of the tracker's state.
type Snapshot struct {
	Processed          int64
	ResolvedByPattern  int64
	ResolvedByFallback int64
	Failed             int64
	CyclesRun          int64
	CyclesSkipped      int64
	ErrorTypeFrequency map[types.ErrorType]int
	RecentActions      []Action
}

// New creates a tracker with a rolling log of logSize entries.
// logSize <= 0 falls back to DefaultLogSize.
func New(logSize int) *Tracker {
	if logSize <= 0 {
		logSize = DefaultLogSize
	}
	return &Tracker{
		log:      make([]Action, 0, logSize),
		logSize:  logSize,
		typeFreq: make(map[types.ErrorType]int),
	}
}

// RecordProcessed counts one problem entering the pipeline and tracks its
// classified type frequency.
func (t *Tracker) RecordProcessed(errType types.ErrorType) {
	t.processed.Add(1)
	t.mu.Lock()
	t.typeFreq[errType]++
	t.mu.Unlock()
}

// RecordPatternHit counts a resolution served from the pattern store.
func (t *Tracker) RecordPatternHit(file string) {
	t.resolvedByPattern.Add(1)
	t.append(file, "resolved by pattern")
}

// RecordFallbackHit counts a resolution served by the external generator.
func (t *Tracker) RecordFallbackHit(file string) {
	t.resolvedByFallback.Add(1)
	t.append(file, "resolved by fallback")
}

// RecordFailure counts a failed resolution attempt.
func (t *Tracker) RecordFailure(file, reason string) {
	t.failed.Add(1)
	t.append(file, "failed: "+reason)
}

// RecordCycle counts one completed repair cycle.
func (t *Tracker) RecordCycle(problems int) {
	t.cyclesRun.Add(1)
	t.append("", fmt.Sprintf("cycle completed, %d problems", problems))
}

// RecordCycleSkipped counts a cycle that was gated off (memory pressure,
// collection failure, or a cycle already in flight).
func (t *Tracker) RecordCycleSkipped(reason string) {
	t.cyclesSkipped.Add(1)
	t.append("", "cycle skipped: "+reason)
}

// append adds an action to the rolling log, evicting the oldest entry
// once the log is full.
func (t *Tracker) append(file, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.log = append(t.log, Action{Time: time.Now(), File: file, Message: message})
	if len(t.log) > t.logSize {
		copy(t.log, t.log[len(t.log)-t.logSize:])
		t.log = t.log[:t.logSize]
	}
}

// Snapshot returns a copy of all counters and the action log, safe for
// the caller to retain.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	freq := make(map[types.ErrorType]int, len(t.typeFreq))
	for k, v := range t.typeFreq {
		freq[k] = v
	}
	actions := make([]Action, len(t.log))
	copy(actions, t.log)

	return Snapshot{
		Processed:          t.processed.Load(),
		ResolvedByPattern:  t.resolvedByPattern.Load(),
		ResolvedByFallback: t.resolvedByFallback.Load(),
		Failed:             t.failed.Load(),
		CyclesRun:          t.cyclesRun.Load(),
		CyclesSkipped:      t.cyclesSkipped.Load(),
		ErrorTypeFrequency: freq,
		RecentActions:      actions,
	}
}

// SuccessRate returns the fraction of processed problems that were
// resolved by either path. Returns 0 when nothing has been processed.
func (s Snapshot) SuccessRate() float64 {
	if s.Processed == 0 {
		return 0
	}
	return float64(s.ResolvedByPattern+s.ResolvedByFallback) / float64(s.Processed)
}
