package convfts

import (
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dir := t.TempDir()
	db, err := sql.Open("sqlite3", filepath.Join(dir, "conv.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func setupConversationTable(t *testing.T, db *sql.DB) {
	t.Helper()
	stmts := []string{
		`CREATE TABLE conversation (id INTEGER PRIMARY KEY, role TEXT, content TEXT, created_at TEXT)`,
		`CREATE VIRTUAL TABLE conversation_fts USING fts5(content, content='conversation', content_rowid='id')`,
		`INSERT INTO conversation (role, content, created_at) VALUES ('user', 'I like hiking in the mountains', '2026-01-01')`,
		`INSERT INTO conversation (role, content, created_at) VALUES ('assistant', 'Sounds like a fun weekend plan', '2026-01-01')`,
		`INSERT INTO conversation_fts (rowid, content) SELECT id, content FROM conversation`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			t.Fatalf("setup %q: %v", s, err)
		}
	}
}

func TestNewRejectsUnsafeTableName(t *testing.T) {
	db := newTestDB(t)
	_, err := New(db, "conversation; DROP TABLE x")
	if err == nil {
		t.Fatalf("expected an error for an unsafe table name")
	}
}

func TestNewAcceptsSafeTableName(t *testing.T) {
	db := newTestDB(t)
	if _, err := New(db, "conversation"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSearchFindsMatchingRows(t *testing.T) {
	db := newTestDB(t)
	setupConversationTable(t, db)
	a, err := New(db, "conversation")
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	res, err := a.Search("hiking", 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if res.Status != SearchOK || len(res.Messages) != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.Messages[0].Role != "user" {
		t.Fatalf("unexpected role: %+v", res.Messages[0])
	}
}

func TestSearchMissingTableReportsUnavailable(t *testing.T) {
	db := newTestDB(t)
	a, err := New(db, "conversation")
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	res, err := a.Search("hiking", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != SearchFTSUnavailable {
		t.Fatalf("expected fts_unavailable, got %+v", res)
	}
}
