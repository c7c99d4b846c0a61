// Package pressure watches process memory usage, classifies it into
// pressure levels, and runs an escalating mitigation ladder when usage
// climbs. The scheduler consults the current level to slow down or skip
// repair cycles instead of making a bad memory situation worse.
package pressure

import (
	"runtime"
	"runtime/debug"
	"time"

	"github.com/X-Niter/ModForge-sub004/internal/types"
)

// DefaultMaxBytes is the ceiling used when neither configuration nor
// GOMEMLIMIT provides one.
const DefaultMaxBytes = 4 << 30 // 4 GiB

// Snapshot is one memory observation.
type Snapshot struct {
	// UsedBytes is heap memory currently in use
	UsedBytes uint64
	// MaxBytes is the ceiling usage is measured against
	MaxBytes uint64
	// UsedPercent is UsedBytes as a percentage of MaxBytes
	UsedPercent float64
	// Taken is when the sample was captured
	Taken time.Time
}

// Sampler produces memory snapshots. The runtime implementation reads
// live process stats; tests substitute scripted values.
type Sampler interface {
	Sample() Snapshot
}

// RuntimeSampler reads memory usage from the Go runtime.
type RuntimeSampler struct {
	maxBytes uint64
}

// NewRuntimeSampler builds a sampler measuring against maxBytes.
// Zero maxBytes falls back to GOMEMLIMIT when one is set, then to
// DefaultMaxBytes.
func NewRuntimeSampler(maxBytes uint64) *RuntimeSampler {
	if maxBytes == 0 {
		if limit := debug.SetMemoryLimit(-1); limit > 0 && limit < int64(DefaultMaxBytes)*4 {
			maxBytes = uint64(limit)
		} else {
			maxBytes = DefaultMaxBytes
		}
	}
	return &RuntimeSampler{maxBytes: maxBytes}
}

// Sample captures current heap usage.
func (r *RuntimeSampler) Sample() Snapshot {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	used := ms.HeapAlloc
	return Snapshot{
		UsedBytes:   used,
		MaxBytes:    r.maxBytes,
		UsedPercent: float64(used) / float64(r.maxBytes) * 100,
		Taken:       time.Now(),
	}
}

// Thresholds holds the percentage boundaries between pressure levels.
type Thresholds struct {
	WarningPercent   float64
	CriticalPercent  float64
	EmergencyPercent float64
}

// DefaultThresholds returns the standard 70/85/95 boundaries.
func DefaultThresholds() Thresholds {
	return Thresholds{
		WarningPercent:   70,
		CriticalPercent:  85,
		EmergencyPercent: 95,
	}
}

// Classify maps a usage percentage to its pressure level. Boundaries are
// inclusive: usage exactly at a threshold belongs to the higher level.
func (t Thresholds) Classify(usedPercent float64) types.PressureLevel {
	switch {
	case usedPercent >= t.EmergencyPercent:
		return types.PressureEmergency
	case usedPercent >= t.CriticalPercent:
		return types.PressureCritical
	case usedPercent >= t.WarningPercent:
		return types.PressureWarning
	default:
		return types.PressureNormal
	}
}
