// Package store owns the single SQLite database file backing the engine:
// connection setup, schema, migrations, the embedding-model pin, and the
// query layer chunks and blocks are read and written through.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/factengine/factengine/internal/engineerr"
	"github.com/factengine/factengine/internal/logging"
	_ "github.com/mattn/go-sqlite3"
)

var log = logging.GetLogger("store")

// Store wraps the single SQLite connection the engine writes through.
// Reads use RLock, writes use Lock, mirroring the single-writer discipline
// SQLite itself enforces; the mutex exists so the Go-level call sequence
// (e.g. reinforce-then-refresh) is never interleaved across goroutines.
type Store struct {
	db   *sql.DB
	path string
	mu   sync.RWMutex
}

// Open opens (and if necessary creates) the database file at path, sets
// WAL journaling and a 5-second busy timeout, and idempotently creates the
// schema.
func Open(path string) (*Store, error) {
	log.Info("opening store", "path", path)

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, engineerr.Wrap(engineerr.Fatal, "failed to create database directory", err)
		}
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, engineerr.Wrap(engineerr.Fatal, "failed to open database", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, engineerr.Wrap(engineerr.Fatal, "failed to ping database", err)
	}

	s := &Store{db: db, path: path}

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, err
	}

	log.Info("store ready", "path", path)
	return s, nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// DB returns the underlying *sql.DB for components (e.g. the conversation
// FTS adapter) that need raw access to a table the store does not own.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) exec(query string, args ...interface{}) (sql.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Exec(query, args...)
}

func (s *Store) query(query string, args ...interface{}) (*sql.Rows, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.db.Query(query, args...)
}

func (s *Store) queryRow(query string, args ...interface{}) *sql.Row {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.db.QueryRow(query, args...)
}

// begin starts a transaction. Callers must not perform any external
// (embedding/LLM) call while the transaction is open.
func (s *Store) begin() (*sql.Tx, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Begin()
}

// VerifyEmbeddingModel records model on first call and fails with
// engineerr.ModelMismatch on any later call with a different value.
func (s *Store) VerifyEmbeddingModel(model string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var existing string
	err := s.db.QueryRow(`SELECT value FROM engine_meta WHERE key = 'embedding_model'`).Scan(&existing)
	if err == sql.ErrNoRows {
		_, err := s.db.Exec(`INSERT INTO engine_meta (key, value) VALUES ('embedding_model', ?)`, model)
		if err != nil {
			return engineerr.Wrap(engineerr.Fatal, "failed to record embedding model pin", err)
		}
		return nil
	}
	if err != nil {
		return engineerr.Wrap(engineerr.Fatal, "failed to read embedding model pin", err)
	}
	if existing != model {
		return engineerr.New(engineerr.ModelMismatch,
			fmt.Sprintf("database is pinned to embedding model %q, got %q", existing, model)).
			WithDetails(map[string]any{"pinned_model": existing, "requested_model": model})
	}
	return nil
}

// Stats summarizes the database for CLI/API inspection.
type Stats struct {
	Path           string
	SchemaVersion  int
	FactCount      int
	MemoryCount    int
	SupersededCount int
	BlockCount     int
	FileSizeBytes  int64
}

func (s *Store) GetStats() (*Stats, error) {
	stats := &Stats{Path: s.path}

	version, err := s.schemaVersion()
	if err == nil {
		stats.SchemaVersion = version
	}

	s.queryRow(`SELECT COUNT(*) FROM chunks WHERE kind = 'fact' AND superseded_by IS NULL`).Scan(&stats.FactCount)
	s.queryRow(`SELECT COUNT(*) FROM chunks WHERE kind = 'memory' AND superseded_by IS NULL`).Scan(&stats.MemoryCount)
	s.queryRow(`SELECT COUNT(*) FROM chunks WHERE superseded_by IS NOT NULL`).Scan(&stats.SupersededCount)
	s.queryRow(`SELECT COUNT(*) FROM memory_blocks`).Scan(&stats.BlockCount)

	if info, err := os.Stat(s.path); err == nil {
		stats.FileSizeBytes = info.Size()
	}
	return stats, nil
}

// Agents lists distinct agent ids that currently own at least one chunk.
func (s *Store) Agents() ([]string, error) {
	rows, err := s.query(`SELECT DISTINCT agent_id FROM chunks ORDER BY agent_id`)
	if err != nil {
		return nil, engineerr.Wrap(engineerr.Fatal, "failed to list agents", err)
	}
	defer rows.Close()

	var agents []string
	for rows.Next() {
		var a string
		if err := rows.Scan(&a); err != nil {
			return nil, err
		}
		agents = append(agents, a)
	}
	return agents, rows.Err()
}
