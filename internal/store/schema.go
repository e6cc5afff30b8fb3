package store

// SchemaVersion is the current schema revision recorded in schema_version.
const SchemaVersion = 2

// CoreSchema creates the chunk store, memory blocks, engine metadata, and
// every index the query layer depends on. It is idempotent: CREATE TABLE
// and CREATE INDEX both use IF NOT EXISTS so re-running it on an
// already-initialized database is a no-op.
const CoreSchema = `
CREATE TABLE IF NOT EXISTS chunks (
	id                 TEXT PRIMARY KEY,
	agent_id           TEXT NOT NULL,
	scope              TEXT NOT NULL DEFAULT '',
	content            TEXT NOT NULL,
	content_hash       TEXT,
	embedding          BLOB NOT NULL,
	metadata           TEXT,
	kind               TEXT NOT NULL CHECK (kind IN ('fact', 'memory')),
	running_intensity  REAL NOT NULL DEFAULT 0.5,
	encounter_count    INTEGER NOT NULL DEFAULT 1,
	access_count       INTEGER NOT NULL DEFAULT 0,
	last_accessed_at   TEXT NOT NULL,
	superseded_by      TEXT,
	created_at         TEXT NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_chunks_memory_dedup
	ON chunks (agent_id, scope, content_hash)
	WHERE kind = 'memory';

CREATE INDEX IF NOT EXISTS idx_chunks_agent_kind ON chunks (agent_id, kind);
CREATE INDEX IF NOT EXISTS idx_chunks_agent_last_accessed ON chunks (agent_id, last_accessed_at);
CREATE INDEX IF NOT EXISTS idx_chunks_superseded_by ON chunks (superseded_by) WHERE superseded_by IS NOT NULL;
CREATE INDEX IF NOT EXISTS idx_chunks_agent_created ON chunks (agent_id, created_at);
CREATE INDEX IF NOT EXISTS idx_chunks_agent_scope ON chunks (agent_id, scope);

CREATE TABLE IF NOT EXISTS memory_blocks (
	agent_id   TEXT NOT NULL,
	scope      TEXT NOT NULL DEFAULT '',
	key        TEXT NOT NULL,
	value      TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	PRIMARY KEY (agent_id, scope, key)
);

CREATE TABLE IF NOT EXISTS engine_meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS schema_version (
	version    INTEGER PRIMARY KEY,
	applied_at TEXT NOT NULL
);
`

func (s *Store) initSchema() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(CoreSchema); err != nil {
		return err
	}

	if _, err := tx.Exec(`INSERT OR IGNORE INTO schema_version (version, applied_at) VALUES (?, datetime('now'))`, SchemaVersion); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *Store) schemaVersion() (int, error) {
	var v int
	err := s.queryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&v)
	return v, err
}
