package pressure

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/X-Niter/ModForge-sub004/internal/types"
)

// Tier is one rung of the mitigation ladder. Each tier includes every
// action of the tiers below it.
type Tier int

const (
	// TierLight flushes ephemeral caches only
	TierLight Tier = iota
	// TierNormal adds larger caches and one GC pass
	TierNormal
	// TierAggressive adds temp-file purging and a second GC pass
	TierAggressive
	// TierEmergency adds stopping non-essential services and a third GC pass
	TierEmergency
)

func (t Tier) String() string {
	switch t {
	case TierNormal:
		return "NORMAL"
	case TierAggressive:
		return "AGGRESSIVE"
	case TierEmergency:
		return "EMERGENCY"
	default:
		return "LIGHT"
	}
}

// tierFor maps a pressure level to the ladder rung it triggers.
func tierFor(level types.PressureLevel) Tier {
	switch level {
	case types.PressureEmergency:
		return TierEmergency
	case types.PressureCritical:
		return TierAggressive
	default:
		return TierLight
	}
}

// Mitigator runs the escalating cleanup ladder when memory climbs. Only
// one mitigation runs at a time; requests arriving while one is in
// progress are dropped, not queued.
type Mitigator struct {
	mu sync.RWMutex

	// ephemeralFlushers release small short-lived caches (light tier)
	ephemeralFlushers map[string]func()

	// cacheFlushers release larger application caches (normal tier)
	cacheFlushers map[string]func()

	// stoppers shut down non-essential services (emergency tier only)
	stoppers map[string]func()

	// tempDir is purged at the aggressive tier and above ("" disables)
	tempDir string

	// inProgress guards against overlapping mitigation runs
	inProgress atomic.Bool

	// runs counts completed mitigations per triggering level
	runs map[types.PressureLevel]int
}

// NewMitigator builds a mitigator purging tempDir at high pressure.
func NewMitigator(tempDir string) *Mitigator {
	return &Mitigator{
		ephemeralFlushers: make(map[string]func()),
		cacheFlushers:     make(map[string]func()),
		stoppers:          make(map[string]func()),
		tempDir:           tempDir,
		runs:              make(map[types.PressureLevel]int),
	}
}

// RegisterEphemeralFlusher adds a named light-tier cache-release hook.
// Re-registering a name replaces the previous hook.
func (m *Mitigator) RegisterEphemeralFlusher(name string, fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ephemeralFlushers[name] = fn
}

// RegisterCacheFlusher adds a named normal-tier hook releasing larger
// caches.
func (m *Mitigator) RegisterCacheFlusher(name string, fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cacheFlushers[name] = fn
}

// RegisterStopper adds a named hook shutting down a non-essential
// service. Stoppers run only at the emergency tier; whatever they stop
// stays stopped until something outside the mitigator restarts it.
func (m *Mitigator) RegisterStopper(name string, fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stoppers[name] = fn
}

// Mitigate runs the ladder rung for the given pressure level. Returns
// false when another mitigation is already in progress and this request
// was dropped. PressureNormal is a no-op that reports true.
func (m *Mitigator) Mitigate(level types.PressureLevel) bool {
	if level <= types.PressureNormal {
		return true
	}

	if !m.inProgress.CompareAndSwap(false, true) {
		return false
	}
	defer m.inProgress.Store(false)

	m.runTier(tierFor(level))

	m.mu.Lock()
	m.runs[level]++
	m.mu.Unlock()
	return true
}

// runTier executes the ladder cumulatively up to and including tier.
func (m *Mitigator) runTier(tier Tier) {
	m.runHooks(m.ephemeralFlushers)

	gcPasses := 0
	if tier >= TierNormal {
		m.runHooks(m.cacheFlushers)
		gcPasses = 1
	}
	if tier >= TierAggressive {
		m.purgeTemp()
		gcPasses = 2
	}
	if tier >= TierEmergency {
		m.runHooks(m.stoppers)
		gcPasses = 3
	}

	for i := 0; i < gcPasses; i++ {
		runtime.GC()
	}
}

// runHooks invokes registered hooks in name order, outside the lock.
// Name order keeps runs deterministic.
func (m *Mitigator) runHooks(hooks map[string]func()) {
	m.mu.RLock()
	names := make([]string, 0, len(hooks))
	for name := range hooks {
		names = append(names, name)
	}
	sort.Strings(names)
	fns := make([]func(), 0, len(names))
	for _, name := range names {
		fns = append(fns, hooks[name])
	}
	m.mu.RUnlock()

	for _, fn := range fns {
		fn()
	}
}

// Runs returns how many mitigations completed for the given level.
func (m *Mitigator) Runs(level types.PressureLevel) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.runs[level]
}

// purgeTemp empties the temp directory without removing the directory
// itself. Failures are reported to stderr and otherwise ignored;
// mitigation must not fail because a temp file is locked.
func (m *Mitigator) purgeTemp() {
	if m.tempDir == "" {
		return
	}

	entries, err := os.ReadDir(m.tempDir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(m.tempDir, entry.Name())); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to purge temp entry %s: %v\n", entry.Name(), err)
		}
	}
}
