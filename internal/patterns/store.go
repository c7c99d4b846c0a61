// Package patterns is the learned-fix knowledge base: a SQLite-backed
// store of error-to-fix associations with similarity-based retrieval.
// A pattern hit is the cheap, local substitute for an external
// fix-generation call.
package patterns

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/X-Niter/ModForge-sub004/internal/classify"
	"github.com/X-Niter/ModForge-sub004/internal/types"
)

// DefaultCapacity bounds stored patterns when none is configured.
// Growth beyond the cap evicts the lowest success count, oldest first.
const DefaultCapacity = 2000

// Pattern is one learned error-to-fix association.
type Pattern struct {
	ID                string
	Type              types.ErrorType
	NormalizedMessage string
	FixText           string
	// Advanced marks patterns excluded from matching for restricted
	// caller tiers. Policy knob only; matching is otherwise identical.
	Advanced     bool
	SuccessCount int
	ScopeTags    []string
	CreatedAt    time.Time
	LastUsedAt   time.Time
}

// Match is a retrieval result: the pattern plus its similarity score.
type Match struct {
	Pattern Pattern
	Score   float64
}

// MatchOptions control retrieval.
type MatchOptions struct {
	// Threshold is the minimum Jaccard score for a match
	Threshold float64
	// IncludeAdvanced includes advanced-tier patterns in matching
	IncludeAdvanced bool
}

// Store holds learned patterns in SQLite. Safe for concurrent use; the
// underlying *sql.DB serializes access.
type Store struct {
	db       *sql.DB
	capacity int
}

// Config holds store configuration.
type Config struct {
	// Path is the SQLite database file (":memory:" for tests)
	Path string
	// Capacity caps stored patterns (0 = DefaultCapacity, negative = unbounded)
	Capacity int
}

// New opens (creating if needed) the pattern store at cfg.Path.
func New(cfg Config) (*Store, error) {
	path := cfg.Path
	if path == "" {
		path = ".modforge/patterns.db"
	}

	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=ON")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	capacity := cfg.Capacity
	if capacity == 0 {
		capacity = DefaultCapacity
	}

	return &Store{db: db, capacity: capacity}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// FindMatch retrieves the best-scoring pattern for a signature: patterns
// of the same error type are scored by Jaccard similarity between their
// normalized messages, and the highest scorer at or above the threshold
// wins. Returns nil when nothing clears the threshold.
func (s *Store) FindMatch(ctx context.Context, sig types.Signature, opts MatchOptions) (*Match, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, error_type, normalized_message, fix_text, advanced,
		       success_count, scope_tags, created_at, last_used_at
		FROM patterns
		WHERE error_type = ?`, sig.Type.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query patterns: %w", err)
	}
	defer rows.Close()

	queryTokens := classify.Tokens(sig.Normalized)

	var best *Match
	for rows.Next() {
		p, err := scanPattern(rows)
		if err != nil {
			return nil, err
		}

		if p.Advanced && !opts.IncludeAdvanced {
			continue
		}

		score := Jaccard(queryTokens, classify.Tokens(p.NormalizedMessage))
		if score < opts.Threshold {
			continue
		}
		if best == nil || score > best.Score {
			best = &Match{Pattern: p, Score: score}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate patterns: %w", err)
	}

	return best, nil
}

// Learn appends a new pattern with success count 1. Near-identical
// patterns are not deduplicated; repeats compete at query time and the
// highest scorer wins.
func (s *Store) Learn(ctx context.Context, sig types.Signature, fixText string, tags []string) (*Pattern, error) {
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal scope tags: %w", err)
	}

	p := Pattern{
		ID:                uuid.New().String(),
		Type:              sig.Type,
		NormalizedMessage: sig.Normalized,
		FixText:           fixText,
		SuccessCount:      1,
		ScopeTags:         tags,
		CreatedAt:         time.Now().UTC(),
		LastUsedAt:        time.Now().UTC(),
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO patterns (id, error_type, normalized_message, fix_text,
		                      advanced, success_count, scope_tags, created_at, last_used_at)
		VALUES (?, ?, ?, ?, 0, 1, ?, ?, ?)`,
		p.ID, p.Type.String(), p.NormalizedMessage, p.FixText,
		string(tagsJSON), p.CreatedAt, p.LastUsedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert pattern: %w", err)
	}

	if err := s.enforceCapacity(ctx); err != nil {
		return nil, err
	}

	return &p, nil
}

// RecordHit increments a pattern's success count after a successful reuse.
func (s *Store) RecordHit(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE patterns
		SET success_count = success_count + 1, last_used_at = ?
		WHERE id = ?`, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to record pattern hit: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check pattern hit: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("pattern %s not found", id)
	}
	return nil
}

// Count returns the number of stored patterns.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM patterns`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count patterns: %w", err)
	}
	return n, nil
}

// List returns up to limit patterns ordered by success count descending.
// limit <= 0 returns everything.
func (s *Store) List(ctx context.Context, limit int) ([]Pattern, error) {
	query := `
		SELECT id, error_type, normalized_message, fix_text, advanced,
		       success_count, scope_tags, created_at, last_used_at
		FROM patterns
		ORDER BY success_count DESC, created_at ASC`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list patterns: %w", err)
	}
	defer rows.Close()

	var out []Pattern
	for rows.Next() {
		p, err := scanPattern(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate patterns: %w", err)
	}
	return out, nil
}

// SetAdvanced flips the advanced-tier flag on a pattern.
func (s *Store) SetAdvanced(ctx context.Context, id string, advanced bool) error {
	flag := 0
	if advanced {
		flag = 1
	}
	_, err := s.db.ExecContext(ctx, `UPDATE patterns SET advanced = ? WHERE id = ?`, flag, id)
	if err != nil {
		return fmt.Errorf("failed to set advanced flag: %w", err)
	}
	return nil
}

// enforceCapacity deletes the least successful, oldest patterns once the
// store exceeds its configured cap. Patterns that keep earning hits
// survive; one-off learnings get evicted first.
func (s *Store) enforceCapacity(ctx context.Context) error {
	if s.capacity < 0 {
		return nil
	}

	count, err := s.Count(ctx)
	if err != nil {
		return err
	}
	if count <= s.capacity {
		return nil
	}

	_, err = s.db.ExecContext(ctx, `
		DELETE FROM patterns WHERE id IN (
			SELECT id FROM patterns
			ORDER BY success_count ASC, created_at ASC
			LIMIT ?
		)`, count-s.capacity)
	if err != nil {
		return fmt.Errorf("failed to enforce pattern capacity: %w", err)
	}
	return nil
}

// scanPattern reads one pattern row.
func scanPattern(rows *sql.Rows) (Pattern, error) {
	var p Pattern
	var errType, tagsJSON string
	var advanced int
	if err := rows.Scan(&p.ID, &errType, &p.NormalizedMessage, &p.FixText,
		&advanced, &p.SuccessCount, &tagsJSON, &p.CreatedAt, &p.LastUsedAt); err != nil {
		return Pattern{}, fmt.Errorf("failed to scan pattern: %w", err)
	}
	p.Type = types.ParseErrorType(errType)
	p.Advanced = advanced != 0
	if err := json.Unmarshal([]byte(tagsJSON), &p.ScopeTags); err != nil {
		// Tolerate legacy rows with malformed tags rather than failing retrieval.
		p.ScopeTags = nil
	}
	return p, nil
}
