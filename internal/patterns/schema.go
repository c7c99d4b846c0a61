package patterns

// schema defines the pattern store tables. Applied on every open; all
// statements are idempotent.
const schema = `
CREATE TABLE IF NOT EXISTS patterns (
	id TEXT PRIMARY KEY,
	error_type TEXT NOT NULL,
	normalized_message TEXT NOT NULL,
	fix_text TEXT NOT NULL,
	advanced INTEGER NOT NULL DEFAULT 0,
	success_count INTEGER NOT NULL DEFAULT 1,
	scope_tags TEXT NOT NULL DEFAULT '[]',
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	last_used_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_patterns_error_type ON patterns(error_type);
CREATE INDEX IF NOT EXISTS idx_patterns_success ON patterns(success_count, created_at);
`
