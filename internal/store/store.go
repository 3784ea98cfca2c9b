// Package store is the durable relational layer: a database/sql schema
// over modernc.org/sqlite (pure Go, no CGO) holding files, tokens,
// postings, the block forest, co-occurrence cells, neighbors, block
// centroids, and feedback. One writer at a time; transactions are scoped
// per file so a single file's reindex is atomic.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"

	cserrors "github.com/codescope/codescope/internal/errors"
)

// Store wraps a single-writer SQLite connection pool.
type Store struct {
	mu     sync.Mutex
	db     *sql.DB
	path   string
	closed bool
}

// Open creates the parent directory if needed, opens (or creates) the
// database in WAL mode with a single writer connection, and migrates the
// schema. path == "" opens an in-memory database (for tests).
func Open(path string) (*Store, error) {
	dsn := ":memory:"
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, cserrors.Store("failed to create store directory", err)
		}
		dsn = path + "?_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, cserrors.Store("failed to open database", err)
	}

	// Single writer: one connection serializes all access and avoids
	// SQLITE_BUSY from the driver's own pool fighting itself.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA cache_size = -65536",
		"PRAGMA temp_store = MEMORY",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, cserrors.Store(fmt.Sprintf("failed to set pragma %q", p), err)
		}
	}

	s := &Store{db: db, path: path}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY);

CREATE TABLE IF NOT EXISTS files (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	path         TEXT UNIQUE NOT NULL,
	mtime        INTEGER NOT NULL,
	size         INTEGER NOT NULL,
	line_count   INTEGER NOT NULL,
	content_hash TEXT NOT NULL,
	indexed_at   INTEGER NOT NULL,
	file_type    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS tokens (
	id   INTEGER PRIMARY KEY AUTOINCREMENT,
	text TEXT UNIQUE NOT NULL,
	kind TEXT NOT NULL,
	df   INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS postings (
	token_id INTEGER NOT NULL REFERENCES tokens(id) ON DELETE CASCADE,
	file_id  INTEGER NOT NULL REFERENCES files(id) ON DELETE CASCADE,
	tf       INTEGER NOT NULL,
	lines    BLOB NOT NULL,
	PRIMARY KEY (token_id, file_id)
);
CREATE INDEX IF NOT EXISTS idx_postings_file ON postings(file_id);

CREATE TABLE IF NOT EXISTS blocks (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	file_id        INTEGER NOT NULL REFERENCES files(id) ON DELETE CASCADE,
	kind           TEXT NOT NULL,
	level          INTEGER NOT NULL,
	line_start     INTEGER NOT NULL,
	line_end       INTEGER NOT NULL,
	parent_id      INTEGER NOT NULL DEFAULT 0,
	eligible_count INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_blocks_file ON blocks(file_id);
CREATE INDEX IF NOT EXISTS idx_blocks_parent ON blocks(parent_id);

CREATE TABLE IF NOT EXISTS block_line_map (
	file_id INTEGER PRIMARY KEY REFERENCES files(id) ON DELETE CASCADE,
	data    BLOB NOT NULL
);

CREATE TABLE IF NOT EXISTS line_cache (
	file_id INTEGER NOT NULL REFERENCES files(id) ON DELETE CASCADE,
	line_no INTEGER NOT NULL,
	text    TEXT NOT NULL,
	PRIMARY KEY (file_id, line_no)
);

CREATE TABLE IF NOT EXISTS cooc_cells (
	model_id   INTEGER NOT NULL,
	token_id   INTEGER NOT NULL REFERENCES tokens(id) ON DELETE CASCADE,
	context_id INTEGER NOT NULL REFERENCES tokens(id) ON DELETE CASCADE,
	count      INTEGER NOT NULL,
	PRIMARY KEY (model_id, token_id, context_id)
);
CREATE INDEX IF NOT EXISTS idx_cooc_context ON cooc_cells(model_id, context_id);

CREATE TABLE IF NOT EXISTS norms (
	model_id INTEGER NOT NULL,
	token_id INTEGER NOT NULL REFERENCES tokens(id) ON DELETE CASCADE,
	norm     REAL NOT NULL,
	PRIMARY KEY (model_id, token_id)
);

CREATE TABLE IF NOT EXISTS neighbors (
	model_id    INTEGER NOT NULL,
	token_id    INTEGER NOT NULL REFERENCES tokens(id) ON DELETE CASCADE,
	neighbor_id INTEGER NOT NULL REFERENCES tokens(id) ON DELETE CASCADE,
	similarity  INTEGER NOT NULL,
	PRIMARY KEY (model_id, token_id, neighbor_id)
);

CREATE TABLE IF NOT EXISTS block_centroids (
	block_id INTEGER NOT NULL REFERENCES blocks(id) ON DELETE CASCADE,
	model_id INTEGER NOT NULL,
	vector   BLOB NOT NULL,
	PRIMARY KEY (block_id, model_id)
);

CREATE TABLE IF NOT EXISTS feedback_events (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	result_id  TEXT NOT NULL,
	kind       TEXT NOT NULL,
	note       TEXT,
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS feedback_stats (
	kind  TEXT PRIMARY KEY,
	count INTEGER NOT NULL DEFAULT 0
);

INSERT OR IGNORE INTO schema_version (version) VALUES (1);
`

func (s *Store) migrate() error {
	_, err := s.db.Exec(schema)
	if err != nil {
		return cserrors.Store("failed to migrate schema", err)
	}
	return nil
}

// Close checkpoints the WAL and closes the connection. Idempotent.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return s.db.Close()
}

// DB exposes the underlying *sql.DB for callers that need to compose
// their own transactions (the indexer's per-file reindex, the trainer's
// per-model rewrite).
func (s *Store) DB() *sql.DB { return s.db }
