// Package resolver runs the per-file resolution pipeline: classify the
// problem, try the pattern store, fall back to the external generator,
// apply the winning fix, and learn from fallback successes.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/X-Niter/ModForge-sub004/internal/classify"
	"github.com/X-Niter/ModForge-sub004/internal/fixgen"
	"github.com/X-Niter/ModForge-sub004/internal/notify"
	"github.com/X-Niter/ModForge-sub004/internal/patterns"
	"github.com/X-Niter/ModForge-sub004/internal/stats"
	"github.com/X-Niter/ModForge-sub004/internal/types"
)

// ErrInFlight is returned when a resolution is already running for the
// same file. Callers treat it as a skip, not a failure.
var ErrInFlight = errors.New("resolution already in progress for file")

// DefaultFallbackTimeout bounds one external fix-generation call.
const DefaultFallbackTimeout = 30 * time.Second

// FileReader loads source file content.
type FileReader interface {
	ReadFile(ctx context.Context, file string) (string, error)
}

// FileWriter applies a fix and persists it. In the daemon this writes to
// disk; tests substitute an in-memory implementation.
type FileWriter interface {
	WriteAndSave(ctx context.Context, file, content string) error
}

// OSFiles reads and writes files on disk, paths resolved against Root.
type OSFiles struct {
	Root string
}

func (f *OSFiles) path(file string) string {
	if filepath.IsAbs(file) || f.Root == "" {
		return file
	}
	return filepath.Join(f.Root, file)
}

func (f *OSFiles) ReadFile(_ context.Context, file string) (string, error) {
	data, err := os.ReadFile(f.path(file))
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", file, err)
	}
	return string(data), nil
}

func (f *OSFiles) WriteAndSave(_ context.Context, file, content string) error {
	if err := os.WriteFile(f.path(file), []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", file, err)
	}
	return nil
}

// Config holds resolver configuration.
type Config struct {
	Store     *patterns.Store
	Generator fixgen.Generator
	Stats     *stats.Tracker
	Notifier  notify.Notifier
	Reader    FileReader
	Writer    FileWriter

	// SimilarityThreshold is the minimum pattern match score (default 0.7)
	SimilarityThreshold float64
	// FallbackTimeout bounds one generator call (default 30s)
	FallbackTimeout time.Duration
	// LearningEnabled stores fallback successes as new patterns
	LearningEnabled bool
	// IncludeAdvanced exposes advanced-tier patterns to matching
	IncludeAdvanced bool
	// ScopeTags are attached to newly learned patterns
	ScopeTags []string
	// Language is passed to the generator (default "java")
	Language string
}

// Outcome describes how one file's problem was resolved.
type Outcome struct {
	File   string
	Source types.FixSource
	// PatternID is set when a stored pattern served the fix
	PatternID string
	// Score is the pattern match score (pattern path only)
	Score float64
}

// Resolver resolves one file's problems at a time. A per-file
// single-flight guard drops overlapping requests for the same file.
type Resolver struct {
	cfg Config

	mu       sync.Mutex
	inFlight map[string]bool
}

// New creates a resolver. Store, Generator, Stats, Reader, and Writer
// are required.
func New(cfg Config) (*Resolver, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("pattern store is required")
	}
	if cfg.Generator == nil {
		return nil, fmt.Errorf("fix generator is required")
	}
	if cfg.Stats == nil {
		return nil, fmt.Errorf("stats tracker is required")
	}
	if cfg.Reader == nil || cfg.Writer == nil {
		return nil, fmt.Errorf("file reader and writer are required")
	}
	if cfg.SimilarityThreshold == 0 {
		cfg.SimilarityThreshold = 0.7
	}
	if cfg.FallbackTimeout <= 0 {
		cfg.FallbackTimeout = DefaultFallbackTimeout
	}
	if cfg.Language == "" {
		cfg.Language = "java"
	}

	return &Resolver{
		cfg:      cfg,
		inFlight: make(map[string]bool),
	}, nil
}

// Resolve runs the pipeline for one file. The first problem drives
// classification and matching; the remainder ride along as context for
// the fallback prompt. The file is only written on success; a timed-out
// or empty fallback leaves it untouched and counts one failure.
func (r *Resolver) Resolve(ctx context.Context, file string, problems []types.Problem) (*Outcome, error) {
	if len(problems) == 0 {
		return nil, fmt.Errorf("no problems for %s", file)
	}

	r.mu.Lock()
	if r.inFlight[file] {
		r.mu.Unlock()
		return nil, ErrInFlight
	}
	r.inFlight[file] = true
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		delete(r.inFlight, file)
		r.mu.Unlock()
	}()

	primary := problems[0]
	sig := classify.NewSignature(primary)
	r.cfg.Stats.RecordProcessed(sig.Type)

	// Pattern store first. A hit never consults the fallback generator.
	match, err := r.cfg.Store.FindMatch(ctx, sig, patterns.MatchOptions{
		Threshold:       r.cfg.SimilarityThreshold,
		IncludeAdvanced: r.cfg.IncludeAdvanced,
	})
	if err != nil {
		return nil, fmt.Errorf("pattern lookup failed: %w", err)
	}
	if match != nil {
		return r.applyPattern(ctx, file, primary, match)
	}

	return r.applyFallback(ctx, file, primary, problems)
}

// applyPattern writes a stored fix and records the hit.
func (r *Resolver) applyPattern(ctx context.Context, file string, p types.Problem, match *patterns.Match) (*Outcome, error) {
	content := patterns.Render(match.Pattern.FixText, map[string]string{
		"file":    file,
		"message": p.Message,
	})

	if err := r.cfg.Writer.WriteAndSave(ctx, file, content); err != nil {
		r.cfg.Stats.RecordFailure(file, "pattern fix apply failed")
		return nil, err
	}

	if err := r.cfg.Store.RecordHit(ctx, match.Pattern.ID); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to record pattern hit: %v\n", err)
	}
	r.cfg.Stats.RecordPatternHit(file)
	r.notify(notify.LevelInfo, "Fixed from pattern",
		fmt.Sprintf("%s: %s (score %.2f)", file, p.Message, match.Score))

	return &Outcome{
		File:      file,
		Source:    types.FixSourcePattern,
		PatternID: match.Pattern.ID,
		Score:     match.Score,
	}, nil
}

// applyFallback asks the external generator, applies the result, and
// learns it as a pattern when learning is enabled.
func (r *Resolver) applyFallback(ctx context.Context, file string, primary types.Problem, problems []types.Problem) (*Outcome, error) {
	code, err := r.cfg.Reader.ReadFile(ctx, file)
	if err != nil {
		r.cfg.Stats.RecordFailure(file, "read failed")
		return nil, err
	}

	genCtx, cancel := context.WithTimeout(ctx, r.cfg.FallbackTimeout)
	defer cancel()

	result, err := r.cfg.Generator.GenerateFix(genCtx, fixgen.Request{
		File:         file,
		Code:         code,
		ErrorMessage: primary.Message,
		Context:      extraContext(problems),
		Language:     r.cfg.Language,
	})
	if err != nil {
		r.cfg.Stats.RecordFailure(file, "fallback: "+err.Error())
		return nil, fmt.Errorf("fallback generation failed for %s: %w", file, err)
	}
	if result == nil || result.FixedCode == "" || result.FixedCode == code {
		r.cfg.Stats.RecordFailure(file, "fallback produced no change")
		return nil, fmt.Errorf("%s: %w", file, fixgen.ErrNoFix)
	}

	if err := r.cfg.Writer.WriteAndSave(ctx, file, result.FixedCode); err != nil {
		r.cfg.Stats.RecordFailure(file, "fallback fix apply failed")
		return nil, err
	}

	if r.cfg.LearningEnabled {
		sig := classify.NewSignature(primary)
		if _, err := r.cfg.Store.Learn(ctx, sig, result.FixedCode, r.cfg.ScopeTags); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to learn pattern: %v\n", err)
		}
	}

	r.cfg.Stats.RecordFallbackHit(file)
	r.notify(notify.LevelInfo, "Fixed via fallback",
		fmt.Sprintf("%s: %s", file, primary.Message))

	return &Outcome{File: file, Source: types.FixSourceFallback}, nil
}

// extraContext lists the secondary problems for the fallback prompt.
func extraContext(problems []types.Problem) string {
	if len(problems) <= 1 {
		return ""
	}
	ctx := "Other errors in the same file:\n"
	for _, p := range problems[1:] {
		ctx += fmt.Sprintf("- line %d: %s\n", p.Line, p.Message)
	}
	return ctx
}

func (r *Resolver) notify(level notify.Level, title, message string) {
	if r.cfg.Notifier != nil {
		r.cfg.Notifier.Notify(level, title, message)
	}
}
