package store

import (
	"database/sql"
	"time"

	"github.com/factengine/factengine/internal/engineerr"
)

// Block is a named mutable text buffer keyed by (agent_id, scope, key).
type Block struct {
	AgentID   string
	Scope     string
	Key       string
	Value     string
	UpdatedAt time.Time
}

// GetBlockByKey returns the block, or nil if it does not exist. Missing is
// not an error.
func (s *Store) GetBlockByKey(agentID, scope, key string) (*Block, error) {
	var b Block
	var updatedAt string
	err := s.queryRow(`
		SELECT agent_id, scope, key, value, updated_at FROM memory_blocks
		WHERE agent_id = ? AND scope = ? AND key = ?
	`, agentID, scope, key).Scan(&b.AgentID, &b.Scope, &b.Key, &b.Value, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, engineerr.Wrap(engineerr.Fatal, "failed to get block", err)
	}
	b.UpdatedAt, err = time.Parse(timeLayout, updatedAt)
	if err != nil {
		return nil, engineerr.Wrap(engineerr.Fatal, "failed to parse block timestamp", err)
	}
	return &b, nil
}

// UpsertBlock writes value for (agent, scope, key), updating it if it
// already exists. Mirrors the teacher's update-then-fallback-insert
// idiom (EnsureSession) since SQLite's UPSERT syntax covers the same
// primary-key conflict directly.
func (s *Store) UpsertBlock(agentID, scope, key, value string, now time.Time) error {
	_, err := s.exec(`
		INSERT INTO memory_blocks (agent_id, scope, key, value, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (agent_id, scope, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, agentID, scope, key, value, now.Format(timeLayout))
	if err != nil {
		return engineerr.Wrap(engineerr.Fatal, "failed to upsert block", err)
	}
	return nil
}

// UpsertBlockIgnore writes value for (agent, scope, key) only if no block
// already exists there, reporting whether a row was inserted. Used by the
// administrative import command's insert-or-ignore semantics.
func (s *Store) UpsertBlockIgnore(agentID, scope, key, value string, now time.Time) (bool, error) {
	res, err := s.exec(`
		INSERT OR IGNORE INTO memory_blocks (agent_id, scope, key, value, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, agentID, scope, key, value, now.Format(timeLayout))
	if err != nil {
		return false, engineerr.Wrap(engineerr.Fatal, "failed to insert block", err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// ListBlocks returns every block for an agent, across all scopes.
func (s *Store) ListBlocks(agentID string) ([]*Block, error) {
	rows, err := s.query(`
		SELECT agent_id, scope, key, value, updated_at FROM memory_blocks
		WHERE agent_id = ? ORDER BY scope, key
	`, agentID)
	if err != nil {
		return nil, engineerr.Wrap(engineerr.Fatal, "failed to list blocks", err)
	}
	defer rows.Close()

	var out []*Block
	for rows.Next() {
		var b Block
		var updatedAt string
		if err := rows.Scan(&b.AgentID, &b.Scope, &b.Key, &b.Value, &updatedAt); err != nil {
			return nil, err
		}
		b.UpdatedAt, err = time.Parse(timeLayout, updatedAt)
		if err != nil {
			return nil, err
		}
		out = append(out, &b)
	}
	return out, rows.Err()
}
