package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/factengine/factengine/internal/engineerr"
)

// Kind discriminates a chunk as an extracted fact or a raw stored memory.
type Kind string

const (
	KindFact   Kind = "fact"
	KindMemory Kind = "memory"
)

// Chunk is an immutable snapshot of a fact-or-memory row.
type Chunk struct {
	ID               string
	AgentID          string
	Scope            string
	Content          string
	ContentHash      *string
	Embedding        []byte
	Metadata         *string
	Kind             Kind
	RunningIntensity float64
	EncounterCount   int
	AccessCount      int
	LastAccessedAt   time.Time
	CreatedAt        time.Time
	SupersededBy     *string
}

const timeLayout = time.RFC3339Nano

// NormalizeScope trims whitespace and maps a missing/nil scope to "".
func NormalizeScope(scope *string) string {
	if scope == nil {
		return ""
	}
	return strings.TrimSpace(*scope)
}

// NormalizeScopes trims and de-duplicates a list of scopes.
func NormalizeScopes(scopes []string) []string {
	seen := make(map[string]struct{}, len(scopes))
	out := make([]string, 0, len(scopes))
	for _, sc := range scopes {
		t := strings.TrimSpace(sc)
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// InsertChunk inserts a new chunk row as given, unmodified except for what
// the caller already populated.
func (s *Store) InsertChunk(c *Chunk) error {
	_, err := s.exec(`
		INSERT INTO chunks (
			id, agent_id, scope, content, content_hash, embedding, metadata, kind,
			running_intensity, encounter_count, access_count, last_accessed_at,
			superseded_by, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		c.ID, c.AgentID, c.Scope, c.Content, c.ContentHash, c.Embedding, c.Metadata, string(c.Kind),
		c.RunningIntensity, c.EncounterCount, c.AccessCount, c.LastAccessedAt.Format(timeLayout),
		c.SupersededBy, c.CreatedAt.Format(timeLayout),
	)
	if err != nil {
		return engineerr.Wrap(engineerr.Fatal, "failed to insert chunk", err)
	}
	return nil
}

// InsertChunkIgnore inserts c, silently skipping it if a row with the
// same primary key already exists. Used by the administrative import
// command, whose insert-or-ignore semantics treat re-importing an
// already-present chunk as a no-op rather than a conflict.
func (s *Store) InsertChunkIgnore(c *Chunk) (bool, error) {
	res, err := s.exec(`
		INSERT OR IGNORE INTO chunks (
			id, agent_id, scope, content, content_hash, embedding, metadata, kind,
			running_intensity, encounter_count, access_count, last_accessed_at,
			superseded_by, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		c.ID, c.AgentID, c.Scope, c.Content, c.ContentHash, c.Embedding, c.Metadata, string(c.Kind),
		c.RunningIntensity, c.EncounterCount, c.AccessCount, c.LastAccessedAt.Format(timeLayout),
		c.SupersededBy, c.CreatedAt.Format(timeLayout),
	)
	if err != nil {
		return false, engineerr.Wrap(engineerr.Fatal, "failed to insert chunk", err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// DeleteChunksBefore deletes every chunk created strictly before cutoff,
// optionally restricted to a single agent (empty agentID means every
// agent), and reports how many rows were removed. Used by the
// administrative purge command.
func (s *Store) DeleteChunksBefore(agentID string, cutoff time.Time) (int64, error) {
	query := `DELETE FROM chunks WHERE created_at < ?`
	args := []interface{}{cutoff.Format(timeLayout)}
	if agentID != "" {
		query += ` AND agent_id = ?`
		args = append(args, agentID)
	}
	res, err := s.exec(query, args...)
	if err != nil {
		return 0, engineerr.Wrap(engineerr.Fatal, "failed to purge chunks", err)
	}
	return res.RowsAffected()
}

// InsertChunkTx is InsertChunk against an open transaction, used by the
// supersession path which must commit the insert and the supersede mark
// atomically.
func InsertChunkTx(tx *sql.Tx, c *Chunk) error {
	_, err := tx.Exec(`
		INSERT INTO chunks (
			id, agent_id, scope, content, content_hash, embedding, metadata, kind,
			running_intensity, encounter_count, access_count, last_accessed_at,
			superseded_by, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		c.ID, c.AgentID, c.Scope, c.Content, c.ContentHash, c.Embedding, c.Metadata, string(c.Kind),
		c.RunningIntensity, c.EncounterCount, c.AccessCount, c.LastAccessedAt.Format(timeLayout),
		c.SupersededBy, c.CreatedAt.Format(timeLayout),
	)
	return err
}

// ReinforceChunk updates intensity, increments encounter_count and
// access_count, and refreshes last_accessed_at.
func (s *Store) ReinforceChunk(id string, newIntensity float64, now time.Time) error {
	_, err := s.exec(`
		UPDATE chunks
		SET running_intensity = ?, encounter_count = encounter_count + 1,
		    access_count = access_count + 1, last_accessed_at = ?
		WHERE id = ?
	`, newIntensity, now.Format(timeLayout), id)
	if err != nil {
		return engineerr.Wrap(engineerr.Fatal, "failed to reinforce chunk", err)
	}
	return nil
}

// TouchChunk applies a retrieval boost: increments access_count, refreshes
// last_accessed_at, and sets running_intensity to boostedIntensity.
func (s *Store) TouchChunk(id string, boostedIntensity float64, now time.Time) error {
	_, err := s.exec(`
		UPDATE chunks
		SET running_intensity = ?, access_count = access_count + 1, last_accessed_at = ?
		WHERE id = ?
	`, boostedIntensity, now.Format(timeLayout), id)
	if err != nil {
		return engineerr.Wrap(engineerr.Fatal, "failed to touch chunk", err)
	}
	return nil
}

// UpdateChunkTx replaces a chunk's content, content_hash, embedding,
// created_at, and last_accessed_at within tx, used by the administrative
// mutation API's update_chunk operation.
func UpdateChunkTx(tx *sql.Tx, id, content string, contentHash *string, embedding []byte, now time.Time) error {
	_, err := tx.Exec(`
		UPDATE chunks
		SET content = ?, content_hash = ?, embedding = ?, created_at = ?, last_accessed_at = ?
		WHERE id = ?
	`, content, contentHash, embedding, now.Format(timeLayout), now.Format(timeLayout), id)
	return err
}

// SupersedeChunkTx marks oldID superseded by newID within tx.
func SupersedeChunkTx(tx *sql.Tx, newID, oldID string) error {
	_, err := tx.Exec(`UPDATE chunks SET superseded_by = ? WHERE id = ?`, newID, oldID)
	return err
}

// ClearSupersededByScoped clears superseded_by references that point at
// target, restricted to the given agent and scope. Used only by forget.
func ClearSupersededByScoped(tx *sql.Tx, target, agentID, scope string) error {
	_, err := tx.Exec(`
		UPDATE chunks SET superseded_by = NULL
		WHERE superseded_by = ? AND agent_id = ? AND scope = ?
	`, target, agentID, scope)
	return err
}

// DeleteChunkTx deletes a chunk row by id within tx and reports whether a
// row was deleted.
func DeleteChunkTx(tx *sql.Tx, id string) (bool, error) {
	res, err := tx.Exec(`DELETE FROM chunks WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// Begin exposes a transaction to callers that need atomic multi-statement
// mutations (supersession, forget, chunk mutation). External calls
// (embedding/LLM) must never happen while the returned transaction is
// open.
func (s *Store) Begin() (*sql.Tx, error) {
	return s.begin()
}

// GetChunk loads a single chunk by id regardless of agent/scope/active
// status, used by the administrative mutation API.
func (s *Store) GetChunk(id string) (*Chunk, error) {
	row := s.queryRow(chunkSelectCols+` FROM chunks WHERE id = ?`, id)
	c, err := scanChunk(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, engineerr.Wrap(engineerr.Fatal, "failed to get chunk", err)
	}
	return c, nil
}

const chunkSelectCols = `SELECT id, agent_id, scope, content, content_hash, embedding, metadata, kind,
	running_intensity, encounter_count, access_count, last_accessed_at, superseded_by, created_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanChunk(row rowScanner) (*Chunk, error) {
	var c Chunk
	var kind string
	var lastAccessed, createdAt string
	var contentHash, metadata, supersededBy sql.NullString

	err := row.Scan(
		&c.ID, &c.AgentID, &c.Scope, &c.Content, &contentHash, &c.Embedding, &metadata, &kind,
		&c.RunningIntensity, &c.EncounterCount, &c.AccessCount, &lastAccessed, &supersededBy, &createdAt,
	)
	if err != nil {
		return nil, err
	}

	c.Kind = Kind(kind)
	if contentHash.Valid {
		c.ContentHash = &contentHash.String
	}
	if metadata.Valid {
		c.Metadata = &metadata.String
	}
	if supersededBy.Valid {
		c.SupersededBy = &supersededBy.String
	}
	c.LastAccessedAt, err = time.Parse(timeLayout, lastAccessed)
	if err != nil {
		return nil, err
	}
	c.CreatedAt, err = time.Parse(timeLayout, createdAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func scanChunks(rows *sql.Rows) ([]*Chunk, error) {
	var out []*Chunk
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetActiveChunks returns active chunks of the given kind for agent,
// ordered by last_accessed_at DESC, clamped by limit (-1 = unlimited).
// An empty (non-nil) scopes list yields zero rows; a nil scopes list
// means "no scope filter".
func (s *Store) GetActiveChunks(agentID string, kind Kind, limit int, scopes []string) ([]*Chunk, error) {
	return s.getActiveChunks(agentID, []Kind{kind}, limit, scopes)
}

// GetAllActiveChunks returns active chunks of both kinds.
func (s *Store) GetAllActiveChunks(agentID string, limit int, scopes []string) ([]*Chunk, error) {
	return s.getActiveChunks(agentID, []Kind{KindFact, KindMemory}, limit, scopes)
}

func (s *Store) getActiveChunks(agentID string, kinds []Kind, limit int, scopes []string) ([]*Chunk, error) {
	if scopes != nil && len(scopes) == 0 {
		return nil, nil
	}

	var sb strings.Builder
	sb.WriteString(chunkSelectCols)
	sb.WriteString(` FROM chunks WHERE agent_id = ? AND superseded_by IS NULL AND kind IN (`)
	args := []interface{}{agentID}
	for i, k := range kinds {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("?")
		args = append(args, string(k))
	}
	sb.WriteString(")")

	if scopes != nil {
		sb.WriteString(" AND scope IN (")
		for i, sc := range scopes {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString("?")
			args = append(args, sc)
		}
		sb.WriteString(")")
	}

	sb.WriteString(" ORDER BY last_accessed_at DESC")
	if limit >= 0 {
		sb.WriteString(fmt.Sprintf(" LIMIT %d", limit))
	}

	rows, err := s.query(sb.String(), args...)
	if err != nil {
		return nil, engineerr.Wrap(engineerr.Fatal, "failed to query active chunks", err)
	}
	defer rows.Close()
	return scanChunks(rows)
}

// ListChunks returns every chunk of agentID, optionally restricted to a
// single kind, ordered by created_at DESC and clamped by limit (-1 =
// unlimited). Unlike GetActiveChunks, it includes superseded chunks
// unless includeSuperseded is false. Used by the administrative CLI's
// chunks listing, which needs visibility into superseded history that
// the engine's own recall/remember paths never query for.
func (s *Store) ListChunks(agentID string, kind *Kind, includeSuperseded bool, limit int) ([]*Chunk, error) {
	var sb strings.Builder
	sb.WriteString(chunkSelectCols)
	sb.WriteString(` FROM chunks WHERE agent_id = ?`)
	args := []interface{}{agentID}

	if kind != nil {
		sb.WriteString(" AND kind = ?")
		args = append(args, string(*kind))
	}
	if !includeSuperseded {
		sb.WriteString(" AND superseded_by IS NULL")
	}
	sb.WriteString(" ORDER BY created_at DESC")
	if limit >= 0 {
		sb.WriteString(fmt.Sprintf(" LIMIT %d", limit))
	}

	rows, err := s.query(sb.String(), args...)
	if err != nil {
		return nil, engineerr.Wrap(engineerr.Fatal, "failed to list chunks", err)
	}
	defer rows.Close()
	return scanChunks(rows)
}

// AllChunks returns every chunk of agentID regardless of kind or
// supersession state, for export.
func (s *Store) AllChunks(agentID string) ([]*Chunk, error) {
	return s.ListChunks(agentID, nil, true, -1)
}

// GetMemoryByHash returns at most one active memory chunk matching the
// content hash within the given scope.
func (s *Store) GetMemoryByHash(agentID, scope, hash string) (*Chunk, error) {
	row := s.queryRow(chunkSelectCols+`
		FROM chunks
		WHERE agent_id = ? AND scope = ? AND content_hash = ? AND kind = 'memory' AND superseded_by IS NULL
	`, agentID, scope, hash)
	c, err := scanChunk(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, engineerr.Wrap(engineerr.Fatal, "failed to get memory by hash", err)
	}
	return c, nil
}
