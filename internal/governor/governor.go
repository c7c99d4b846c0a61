// Package governor bounds repair effort per file. Every file gets a small
// number of automatic fix attempts; once exhausted, the file is left alone
// until a clean scan resets its counter. This is what prevents the daemon
// from burning external calls on a file it cannot fix.
package governor

import "sync"

// DefaultMaxAttempts is the per-file attempt budget used when none is
// configured.
const DefaultMaxAttempts = 3

// Governor tracks per-file fix attempt counts. All methods are safe for
// concurrent use from multiple in-flight resolutions.
type Governor struct {
	mu       sync.Mutex
	attempts map[string]int
	max      int
}

// New creates a governor allowing max attempts per file. max <= 0 falls
// back to DefaultMaxAttempts.
func New(max int) *Governor {
	if max <= 0 {
		max = DefaultMaxAttempts
	}
	return &Governor{
		attempts: make(map[string]int),
		max:      max,
	}
}

// ShouldAttempt atomically increments the attempt count for file and
// reports whether the pre-increment count was below the maximum. The
// boundary is inclusive: with max=3, the 1st through 3rd attempts are
// allowed and the 4th is refused.
func (g *Governor) ShouldAttempt(file string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	prev := g.attempts[file]
	g.attempts[file] = prev + 1
	return prev < g.max
}

// ResetOnSuccess clears the counter for a file that a subsequent scan
// showed to compile cleanly. Called by the scheduler after a clean scan,
// not by the pipeline.
func (g *Governor) ResetOnSuccess(file string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.attempts, file)
}

// Attempts returns the current attempt count for a file.
func (g *Governor) Attempts(file string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.attempts[file]
}

// Max returns the configured per-file attempt budget.
func (g *Governor) Max() int {
	return g.max
}

// Exhausted returns the files whose attempt budget is spent. Used by the
// status surface to show which files the daemon has given up on.
func (g *Governor) Exhausted() []string {
	g.mu.Lock()
	defer g.mu.Unlock()

	var out []string
	for file, n := range g.attempts {
		if n >= g.max {
			out = append(out, file)
		}
	}
	return out
}
