package resolver

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/X-Niter/ModForge-sub004/internal/classify"
	"github.com/X-Niter/ModForge-sub004/internal/fixgen"
	"github.com/X-Niter/ModForge-sub004/internal/patterns"
	"github.com/X-Niter/ModForge-sub004/internal/stats"
	"github.com/X-Niter/ModForge-sub004/internal/types"
)

// memFiles is an in-memory FileReader/FileWriter.
type memFiles struct {
	mu    sync.Mutex
	files map[string]string
}

func newMemFiles() *memFiles {
	return &memFiles{files: make(map[string]string)}
}

func (m *memFiles) ReadFile(_ context.Context, file string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	content, ok := m.files[file]
	if !ok {
		return "", errors.New("not found: " + file)
	}
	return content, nil
}

func (m *memFiles) WriteAndSave(_ context.Context, file, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[file] = content
	return nil
}

func (m *memFiles) get(file string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.files[file]
}

func newTestStore(t *testing.T) *patterns.Store {
	t.Helper()
	s, err := patterns.New(patterns.Config{Path: ":memory:", Capacity: -1})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func symbolProblem(file, symbol string) types.Problem {
	return types.Problem{
		File:     file,
		Line:     10,
		Message:  "cannot resolve symbol '" + symbol + "'",
		Severity: types.SeverityError,
	}
}

func newTestResolver(t *testing.T, store *patterns.Store, gen fixgen.Generator, files *memFiles) (*Resolver, *stats.Tracker) {
	t.Helper()
	tracker := stats.New(0)
	r, err := New(Config{
		Store:           store,
		Generator:       gen,
		Stats:           tracker,
		Reader:          files,
		Writer:          files,
		LearningEnabled: true,
	})
	require.NoError(t, err)
	return r, tracker
}

// A pattern hit must never consult the fallback generator.
func TestResolvePatternHitSkipsFallback(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	files := newMemFiles()
	files.files["src/A.java"] = "broken"

	gen := &fixgen.Stub{Err: errors.New("fallback must not be called")}
	r, tracker := newTestResolver(t, store, gen, files)

	// Seed a pattern from an equivalent error in another file.
	seedSig := classify.NewSignature(symbolProblem("src/Other.java", "getName"))
	_, err := store.Learn(ctx, seedSig, "patched content", nil)
	require.NoError(t, err)

	outcome, err := r.Resolve(ctx, "src/A.java", []types.Problem{symbolProblem("src/A.java", "getHealth")})
	require.NoError(t, err)

	assert.Equal(t, types.FixSourcePattern, outcome.Source)
	assert.Equal(t, 0, gen.Calls, "fallback generator must not be called on a pattern hit")
	assert.Equal(t, "patched content", files.get("src/A.java"))

	snap := tracker.Snapshot()
	assert.Equal(t, int64(1), snap.ResolvedByPattern)
	assert.Equal(t, int64(0), snap.ResolvedByFallback)
}

// A fallback success is learned, so the next equivalent error resolves
// from the pattern store without another generator call.
func TestResolveFallbackLearnsPattern(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	files := newMemFiles()
	files.files["src/A.java"] = "broken A"
	files.files["src/B.java"] = "broken B"

	gen := &fixgen.Stub{Result: &fixgen.Result{FixedCode: "fixed content", Explanation: "added getter"}}
	r, tracker := newTestResolver(t, store, gen, files)

	outcome, err := r.Resolve(ctx, "src/A.java", []types.Problem{symbolProblem("src/A.java", "getName")})
	require.NoError(t, err)
	assert.Equal(t, types.FixSourceFallback, outcome.Source)
	assert.Equal(t, 1, gen.Calls)
	assert.Equal(t, "fixed content", files.get("src/A.java"))

	// Second, equivalent error in another file resolves from the store.
	outcome, err = r.Resolve(ctx, "src/B.java", []types.Problem{symbolProblem("src/B.java", "getHealth")})
	require.NoError(t, err)
	assert.Equal(t, types.FixSourcePattern, outcome.Source)
	assert.Equal(t, 1, gen.Calls, "second resolution must not call the generator")

	snap := tracker.Snapshot()
	assert.Equal(t, int64(1), snap.ResolvedByPattern)
	assert.Equal(t, int64(1), snap.ResolvedByFallback)
}

// A timed-out fallback leaves the file untouched and counts one failure.
func TestResolveFallbackTimeout(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	files := newMemFiles()
	files.files["src/A.java"] = "original content"

	gen := &fixgen.Stub{Delay: time.Second, Result: &fixgen.Result{FixedCode: "too late"}}
	tracker := stats.New(0)
	r, err := New(Config{
		Store:           store,
		Generator:       gen,
		Stats:           tracker,
		Reader:          files,
		Writer:          files,
		FallbackTimeout: 20 * time.Millisecond,
	})
	require.NoError(t, err)

	_, err = r.Resolve(ctx, "src/A.java", []types.Problem{symbolProblem("src/A.java", "getName")})
	require.Error(t, err)

	assert.Equal(t, "original content", files.get("src/A.java"), "failed resolution must not modify the file")
	snap := tracker.Snapshot()
	assert.Equal(t, int64(1), snap.Failed, "exactly one failure counted")
	assert.Equal(t, int64(0), snap.ResolvedByFallback)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count, "nothing learned from a failed fallback")
}

func TestResolveUnchangedFallbackIsFailure(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	files := newMemFiles()
	files.files["src/A.java"] = "same content"

	gen := &fixgen.Stub{Result: &fixgen.Result{FixedCode: "same content"}}
	r, tracker := newTestResolver(t, store, gen, files)

	_, err := r.Resolve(ctx, "src/A.java", []types.Problem{symbolProblem("src/A.java", "getName")})
	require.ErrorIs(t, err, fixgen.ErrNoFix)
	assert.Equal(t, int64(1), tracker.Snapshot().Failed)
}

func TestResolveSingleFlightPerFile(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	files := newMemFiles()
	files.files["src/A.java"] = "broken"

	started := make(chan struct{})
	block := make(chan struct{})
	gen := &fixgen.Stub{Fn: func(fixgen.Request) (*fixgen.Result, error) {
		close(started)
		<-block
		return &fixgen.Result{FixedCode: "fixed"}, nil
	}}
	r, _ := newTestResolver(t, store, gen, files)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := r.Resolve(ctx, "src/A.java", []types.Problem{symbolProblem("src/A.java", "x")})
		assert.NoError(t, err)
	}()

	<-started
	_, err := r.Resolve(ctx, "src/A.java", []types.Problem{symbolProblem("src/A.java", "x")})
	assert.ErrorIs(t, err, ErrInFlight)

	close(block)
	wg.Wait()

	// The guard is released after completion.
	_, err = r.Resolve(ctx, "src/A.java", []types.Problem{symbolProblem("src/A.java", "y")})
	assert.NoError(t, err)
}

func TestResolveNoProblems(t *testing.T) {
	store := newTestStore(t)
	files := newMemFiles()
	r, _ := newTestResolver(t, store, &fixgen.Stub{}, files)

	_, err := r.Resolve(context.Background(), "src/A.java", nil)
	assert.Error(t, err)
}
