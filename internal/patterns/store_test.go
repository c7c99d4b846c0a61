package patterns

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/X-Niter/ModForge-sub004/internal/classify"
	"github.com/X-Niter/ModForge-sub004/internal/types"
)

func newTestStore(t *testing.T, capacity int) *Store {
	t.Helper()
	s, err := New(Config{Path: ":memory:", Capacity: capacity})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sigFor(msg string) types.Signature {
	return classify.NewSignature(types.Problem{
		File:     "src/Player.java",
		Line:     42,
		Message:  msg,
		Severity: types.SeverityError,
	})
}

func TestLearnAndFindMatch(t *testing.T) {
	s := newTestStore(t, -1)
	ctx := context.Background()

	sig := sigFor("cannot resolve symbol 'getName'")
	learned, err := s.Learn(ctx, sig, "add getter getName to the class", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, learned.SuccessCount)

	// Same error shape in a different file should match.
	query := sigFor("cannot resolve symbol 'getHealth'")
	m, err := s.FindMatch(ctx, query, MatchOptions{Threshold: 0.7})
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, learned.ID, m.Pattern.ID)
	assert.GreaterOrEqual(t, m.Score, 0.7)
}

func TestFindMatchRespectsThreshold(t *testing.T) {
	s := newTestStore(t, -1)
	ctx := context.Background()

	_, err := s.Learn(ctx, sigFor("cannot resolve symbol 'x'"), "fix", nil)
	require.NoError(t, err)

	// Same error type, lexically distant message: must not clear a high
	// threshold.
	query := sigFor("cannot find symbol method getWidget(int,String) location class Widget")
	require.Equal(t, sigFor("cannot resolve symbol 'x'").Type, query.Type)
	m, err := s.FindMatch(ctx, query, MatchOptions{Threshold: 0.95})
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestFindMatchIgnoresOtherTypes(t *testing.T) {
	s := newTestStore(t, -1)
	ctx := context.Background()

	symbolSig := sigFor("cannot resolve symbol 'x'")
	_, err := s.Learn(ctx, symbolSig, "symbol fix", nil)
	require.NoError(t, err)

	mismatchSig := sigFor("incompatible types: String cannot be converted to int")
	require.NotEqual(t, symbolSig.Type, mismatchSig.Type)

	m, err := s.FindMatch(ctx, mismatchSig, MatchOptions{Threshold: 0})
	require.NoError(t, err)
	assert.Nil(t, m, "patterns of a different error type must not match")
}

func TestFindMatchPrefersHighestScore(t *testing.T) {
	s := newTestStore(t, -1)
	ctx := context.Background()

	_, err := s.Learn(ctx, sigFor("cannot resolve symbol 'x' in unrelated deeply nested context"), "weak fix", nil)
	require.NoError(t, err)
	strong, err := s.Learn(ctx, sigFor("cannot resolve symbol 'y'"), "strong fix", nil)
	require.NoError(t, err)

	m, err := s.FindMatch(ctx, sigFor("cannot resolve symbol 'z'"), MatchOptions{Threshold: 0.1})
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, strong.ID, m.Pattern.ID)
}

func TestAdvancedPatternsGated(t *testing.T) {
	s := newTestStore(t, -1)
	ctx := context.Background()

	p, err := s.Learn(ctx, sigFor("cannot resolve symbol 'x'"), "advanced fix", nil)
	require.NoError(t, err)
	require.NoError(t, s.SetAdvanced(ctx, p.ID, true))

	query := sigFor("cannot resolve symbol 'y'")

	m, err := s.FindMatch(ctx, query, MatchOptions{Threshold: 0.5})
	require.NoError(t, err)
	assert.Nil(t, m, "advanced pattern must be hidden by default")

	m, err = s.FindMatch(ctx, query, MatchOptions{Threshold: 0.5, IncludeAdvanced: true})
	require.NoError(t, err)
	assert.NotNil(t, m)
}

func TestRecordHit(t *testing.T) {
	s := newTestStore(t, -1)
	ctx := context.Background()

	p, err := s.Learn(ctx, sigFor("cannot resolve symbol 'x'"), "fix", nil)
	require.NoError(t, err)

	require.NoError(t, s.RecordHit(ctx, p.ID))
	require.NoError(t, s.RecordHit(ctx, p.ID))

	list, err := s.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 3, list[0].SuccessCount)

	assert.Error(t, s.RecordHit(ctx, "no-such-id"))
}

func TestCapacityEvictsLowestSuccess(t *testing.T) {
	s := newTestStore(t, 3)
	ctx := context.Background()

	keeper, err := s.Learn(ctx, sigFor("cannot resolve symbol 'keeper'"), "keeper fix", nil)
	require.NoError(t, err)
	// Hits protect the keeper from eviction.
	require.NoError(t, s.RecordHit(ctx, keeper.ID))
	require.NoError(t, s.RecordHit(ctx, keeper.ID))

	for i := 0; i < 4; i++ {
		_, err := s.Learn(ctx, sigFor(fmt.Sprintf("cannot resolve symbol 'filler%d'", i)), "filler fix", nil)
		require.NoError(t, err)
	}

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	list, err := s.List(ctx, 0)
	require.NoError(t, err)
	found := false
	for _, p := range list {
		if p.ID == keeper.ID {
			found = true
		}
	}
	assert.True(t, found, "frequently hit pattern must survive eviction")
}

func TestScopeTagsRoundTrip(t *testing.T) {
	s := newTestStore(t, -1)
	ctx := context.Background()

	_, err := s.Learn(ctx, sigFor("cannot resolve symbol 'x'"), "fix", []string{"gradle", "forge-1.20"})
	require.NoError(t, err)

	list, err := s.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, []string{"gradle", "forge-1.20"}, list[0].ScopeTags)
}

func TestPersistenceAcrossReopen(t *testing.T) {
	path := t.TempDir() + "/patterns.db"
	ctx := context.Background()

	s, err := New(Config{Path: path})
	require.NoError(t, err)
	_, err = s.Learn(ctx, sigFor("cannot resolve symbol 'x'"), "fix", nil)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s2, err := New(Config{Path: path})
	require.NoError(t, err)
	defer s2.Close()

	count, err := s2.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
