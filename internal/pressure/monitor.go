package pressure

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/X-Niter/ModForge-sub004/internal/notify"
	"github.com/X-Niter/ModForge-sub004/internal/types"
)

// DefaultHistorySize bounds the retained snapshot history.
const DefaultHistorySize = 10

// DefaultSampleInterval is how often memory is sampled.
const DefaultSampleInterval = 60 * time.Second

// Emergency alerts are expensive to receive; cap them hard.
const emergencyAlertInterval = 5 * time.Minute

// Critical alerts repeat while the condition is sustained.
const criticalRepeatInterval = 10 * time.Minute

// Warning alerts fire on transition only, and never more often than this.
const warningMinInterval = 15 * time.Minute

// sustainedHighSamples is how many consecutive samples at critical or
// above count as sustained pressure worth flagging.
const sustainedHighSamples = 3

// Listener is notified when the pressure level changes. Callbacks run on
// the monitor's sampling goroutine and must return quickly.
type Listener func(old, new types.PressureLevel, snap Snapshot)

// Config holds monitor configuration.
type Config struct {
	// SampleInterval is how often memory is sampled (default 60s)
	SampleInterval time.Duration
	// Thresholds are the level boundaries (default 70/85/95)
	Thresholds Thresholds
	// HistorySize bounds retained snapshots (default 10)
	HistorySize int
	// Sampler produces snapshots (default: runtime sampler)
	Sampler Sampler
	// Notifier receives pressure alerts (default: silent)
	Notifier notify.Notifier
	// Mitigator runs the cleanup ladder (nil disables mitigation)
	Mitigator *Mitigator
}

// DefaultConfig returns default monitor configuration.
func DefaultConfig() *Config {
	return &Config{
		SampleInterval: DefaultSampleInterval,
		Thresholds:     DefaultThresholds(),
		HistorySize:    DefaultHistorySize,
	}
}

// Monitor samples memory on a ticker, tracks the current pressure level,
// and drives alerts and mitigation. Level transitions are delivered to
// listeners exactly once per change.
type Monitor struct {
	mu sync.RWMutex

	cfg       *Config
	sampler   Sampler
	notifier  notify.Notifier
	mitigator *Mitigator

	level   types.PressureLevel
	history []Snapshot

	listeners  map[int]Listener
	nextListID int

	// consecutiveHigh counts back-to-back samples at critical or above
	consecutiveHigh int
	sustainedSent   bool

	emergencyLimiter *rate.Limiter
	lastCriticalAt   time.Time
	lastWarningAt    time.Time

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewMonitor creates a pressure monitor. Call Start to begin sampling.
func NewMonitor(cfg *Config) *Monitor {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.SampleInterval <= 0 {
		cfg.SampleInterval = DefaultSampleInterval
	}
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = DefaultHistorySize
	}
	if cfg.Thresholds == (Thresholds{}) {
		cfg.Thresholds = DefaultThresholds()
	}

	sampler := cfg.Sampler
	if sampler == nil {
		sampler = NewRuntimeSampler(0)
	}

	return &Monitor{
		cfg:              cfg,
		sampler:          sampler,
		notifier:         cfg.Notifier,
		mitigator:        cfg.Mitigator,
		level:            types.PressureNormal,
		history:          make([]Snapshot, 0, cfg.HistorySize),
		listeners:        make(map[int]Listener),
		emergencyLimiter: rate.NewLimiter(rate.Every(emergencyAlertInterval), 1),
		stopCh:           make(chan struct{}),
		doneCh:           make(chan struct{}),
	}
}

// Start launches the sampling loop. An immediate sample is taken before
// the first tick so the level is accurate from startup.
func (m *Monitor) Start() {
	go func() {
		defer close(m.doneCh)

		m.sampleOnce()

		ticker := time.NewTicker(m.cfg.SampleInterval)
		defer ticker.Stop()

		for {
			select {
			case <-m.stopCh:
				return
			case <-ticker.C:
				m.sampleOnce()
			}
		}
	}()
}

// Stop halts sampling and waits for the loop to exit.
func (m *Monitor) Stop() {
	close(m.stopCh)
	<-m.doneCh
}

// Level returns the current pressure level.
func (m *Monitor) Level() types.PressureLevel {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.level
}

// History returns a copy of the retained snapshots, oldest first.
func (m *Monitor) History() []Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Snapshot, len(m.history))
	copy(out, m.history)
	return out
}

// AddListener registers a level-change callback and returns its id.
func (m *Monitor) AddListener(fn Listener) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextListID
	m.nextListID++
	m.listeners[id] = fn
	return id
}

// RemoveListener unregisters a callback by id.
func (m *Monitor) RemoveListener(id int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.listeners, id)
}

// Check takes an immediate sample outside the ticker cadence. Useful
// before starting expensive work.
func (m *Monitor) Check() Snapshot {
	return m.sampleOnce()
}

// sampleOnce takes one sample and runs the full transition machinery:
// history, level change, listeners, alerts, sustained-pressure tracking,
// and mitigation.
func (m *Monitor) sampleOnce() Snapshot {
	snap := m.sampler.Sample()
	newLevel := m.cfg.Thresholds.Classify(snap.UsedPercent)

	m.mu.Lock()

	m.history = append(m.history, snap)
	if len(m.history) > m.cfg.HistorySize {
		copy(m.history, m.history[len(m.history)-m.cfg.HistorySize:])
		m.history = m.history[:m.cfg.HistorySize]
	}

	oldLevel := m.level
	changed := newLevel != oldLevel
	m.level = newLevel

	if newLevel >= types.PressureCritical {
		m.consecutiveHigh++
	} else {
		m.consecutiveHigh = 0
		m.sustainedSent = false
	}
	sustained := m.consecutiveHigh >= sustainedHighSamples && !m.sustainedSent
	if sustained {
		m.sustainedSent = true
	}

	var fns []Listener
	if changed {
		fns = make([]Listener, 0, len(m.listeners))
		for _, fn := range m.listeners {
			fns = append(fns, fn)
		}
	}
	m.mu.Unlock()

	for _, fn := range fns {
		fn(oldLevel, newLevel, snap)
	}

	m.alert(oldLevel, newLevel, changed, snap)

	if sustained && m.notifier != nil {
		m.notifier.Notify(notify.LevelWarning, "Sustained memory pressure",
			fmt.Sprintf("memory above %s for %d consecutive samples (%.1f%% used)",
				types.PressureCritical, sustainedHighSamples, snap.UsedPercent))
	}

	if m.mitigator != nil && newLevel > types.PressureNormal {
		m.mitigator.Mitigate(newLevel)
	}

	return snap
}

// alert applies the per-level rate-limiting policy. Emergency alerts are
// capped at one per five minutes regardless of transitions. Critical
// alerts fire on transition and repeat every ten minutes while
// sustained. Warning alerts fire on transition only, at most every
// fifteen minutes.
func (m *Monitor) alert(old, new types.PressureLevel, changed bool, snap Snapshot) {
	if m.notifier == nil {
		return
	}

	msg := fmt.Sprintf("memory at %.1f%% of %d MiB ceiling", snap.UsedPercent, snap.MaxBytes>>20)

	switch new {
	case types.PressureEmergency:
		if m.emergencyLimiter.Allow() {
			m.notifier.Notify(notify.LevelError, "Memory pressure: EMERGENCY", msg)
		}

	case types.PressureCritical:
		m.mu.Lock()
		due := changed || time.Since(m.lastCriticalAt) >= criticalRepeatInterval
		if due {
			m.lastCriticalAt = time.Now()
		}
		m.mu.Unlock()
		if due {
			m.notifier.Notify(notify.LevelError, "Memory pressure: CRITICAL", msg)
		}

	case types.PressureWarning:
		m.mu.Lock()
		due := changed && time.Since(m.lastWarningAt) >= warningMinInterval
		if due {
			m.lastWarningAt = time.Now()
		}
		m.mu.Unlock()
		if due {
			m.notifier.Notify(notify.LevelWarning, "Memory pressure: WARNING", msg)
		}

	case types.PressureNormal:
		if changed && old > types.PressureNormal {
			m.notifier.Notify(notify.LevelInfo, "Memory pressure resolved", msg)
		}
	}
}
