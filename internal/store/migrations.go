package store

import (
	"database/sql"
	"strings"

	"github.com/factengine/factengine/internal/engineerr"
)

// runMigrations upgrades a database created by an older build that
// predates the scope column. It is always safe to run: each step is
// tolerant of "already applied" (duplicate column/index) errors, and the
// whole migration is wrapped in a single transaction so it is atomic.
func (s *Store) runMigrations() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	hasScope, err := s.columnExists("chunks", "scope")
	if err != nil {
		return engineerr.Wrap(engineerr.Fatal, "failed to inspect chunks schema", err)
	}
	if hasScope {
		return nil
	}

	log.Info("migrating database to scope-aware schema")

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := addColumnTolerant(tx, "chunks", "scope", "TEXT NOT NULL DEFAULT ''"); err != nil {
		return engineerr.Wrap(engineerr.Fatal, "failed to add scope column to chunks", err)
	}
	if err := addColumnTolerant(tx, "memory_blocks", "scope", "TEXT NOT NULL DEFAULT ''"); err != nil {
		return engineerr.Wrap(engineerr.Fatal, "failed to add scope column to memory_blocks", err)
	}

	// memory_blocks' primary key must include scope; SQLite cannot alter a
	// primary key in place, so rebuild the table.
	if _, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS memory_blocks_v2 (
			agent_id   TEXT NOT NULL,
			scope      TEXT NOT NULL DEFAULT '',
			key        TEXT NOT NULL,
			value      TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			PRIMARY KEY (agent_id, scope, key)
		)
	`); err != nil {
		return err
	}
	if _, err := tx.Exec(`INSERT OR IGNORE INTO memory_blocks_v2 (agent_id, scope, key, value, updated_at)
		SELECT agent_id, scope, key, value, updated_at FROM memory_blocks`); err != nil {
		return err
	}
	if _, err := tx.Exec(`DROP TABLE memory_blocks`); err != nil {
		return err
	}
	if _, err := tx.Exec(`ALTER TABLE memory_blocks_v2 RENAME TO memory_blocks`); err != nil {
		return err
	}

	// The memory dedup index must key on (agent_id, scope, content_hash).
	if _, err := tx.Exec(`DROP INDEX IF EXISTS idx_chunks_memory_dedup`); err != nil {
		return err
	}
	if _, err := tx.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_chunks_memory_dedup
			ON chunks (agent_id, scope, content_hash)
			WHERE kind = 'memory'
	`); err != nil {
		return err
	}
	if _, err := tx.Exec(`CREATE INDEX IF NOT EXISTS idx_chunks_agent_scope ON chunks (agent_id, scope)`); err != nil {
		return err
	}

	if _, err := tx.Exec(`INSERT OR REPLACE INTO schema_version (version, applied_at) VALUES (?, datetime('now'))`, SchemaVersion); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *Store) columnExists(table, column string) (bool, error) {
	rows, err := s.db.Query("PRAGMA table_info(" + table + ")")
	if err != nil {
		return false, err
	}
	defer rows.Close()

	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}

// addColumnTolerant runs ALTER TABLE ... ADD COLUMN and swallows the
// "duplicate column name" error SQLite returns when it is already there.
func addColumnTolerant(tx *sql.Tx, table, column, definition string) error {
	_, err := tx.Exec("ALTER TABLE " + table + " ADD COLUMN " + column + " " + definition)
	if err != nil && !strings.Contains(strings.ToLower(err.Error()), "duplicate column") {
		return err
	}
	return nil
}
