package store

import (
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")

	s1, err := Open(path)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	s1.Close()

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("second open on existing db: %v", err)
	}
	defer s2.Close()
}

func TestVerifyEmbeddingModelPin(t *testing.T) {
	s := newTestStore(t)

	if err := s.VerifyEmbeddingModel("nomic-embed-text"); err != nil {
		t.Fatalf("first pin should succeed: %v", err)
	}
	if err := s.VerifyEmbeddingModel("nomic-embed-text"); err != nil {
		t.Fatalf("repeat pin with same model should succeed: %v", err)
	}
	if err := s.VerifyEmbeddingModel("other-model"); err == nil {
		t.Fatalf("expected ModelMismatch error")
	}
}

func TestInsertAndGetActiveChunks(t *testing.T) {
	s := newTestStore(t)
	now := time.Now().UTC()

	c := &Chunk{
		ID: "01AAAAAAAAAAAAAAAAAAAAAAAA", AgentID: "agent1", Scope: "",
		Content: "hello", Kind: KindFact, Embedding: []byte{1, 2, 3, 4},
		RunningIntensity: 0.5, EncounterCount: 1, AccessCount: 0,
		LastAccessedAt: now, CreatedAt: now,
	}
	if err := s.InsertChunk(c); err != nil {
		t.Fatalf("insert: %v", err)
	}

	chunks, err := s.GetActiveChunks("agent1", KindFact, -1, nil)
	if err != nil {
		t.Fatalf("get active: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Content != "hello" {
		t.Fatalf("unexpected content %q", chunks[0].Content)
	}
}

func TestEmptyScopeListReturnsZeroRows(t *testing.T) {
	s := newTestStore(t)
	now := time.Now().UTC()
	c := &Chunk{
		ID: "01BBBBBBBBBBBBBBBBBBBBBBBB", AgentID: "agent1", Scope: "work",
		Content: "x", Kind: KindFact, Embedding: []byte{1, 2, 3, 4},
		RunningIntensity: 0.5, EncounterCount: 1, LastAccessedAt: now, CreatedAt: now,
	}
	if err := s.InsertChunk(c); err != nil {
		t.Fatalf("insert: %v", err)
	}

	chunks, err := s.GetActiveChunks("agent1", KindFact, -1, []string{})
	if err != nil {
		t.Fatalf("get active: %v", err)
	}
	if len(chunks) != 0 {
		t.Fatalf("expected zero rows for empty scope list, got %d", len(chunks))
	}
}

func TestReinforceChunk(t *testing.T) {
	s := newTestStore(t)
	now := time.Now().UTC()
	c := &Chunk{
		ID: "01CCCCCCCCCCCCCCCCCCCCCCCC", AgentID: "agent1",
		Content: "x", Kind: KindMemory, Embedding: []byte{1, 2, 3, 4},
		RunningIntensity: 0.5, EncounterCount: 1, LastAccessedAt: now, CreatedAt: now,
	}
	if err := s.InsertChunk(c); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := s.ReinforceChunk(c.ID, 0.6, now.Add(time.Minute)); err != nil {
		t.Fatalf("reinforce: %v", err)
	}

	got, err := s.GetChunk(c.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.EncounterCount != 2 {
		t.Fatalf("expected encounter_count=2, got %d", got.EncounterCount)
	}
	if got.RunningIntensity != 0.6 {
		t.Fatalf("expected running_intensity=0.6, got %f", got.RunningIntensity)
	}
}

func TestUpsertAndGetBlock(t *testing.T) {
	s := newTestStore(t)
	now := time.Now().UTC()

	if err := s.UpsertBlock("agent1", "", "notes", "first", now); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	b, err := s.GetBlockByKey("agent1", "", "notes")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if b == nil || b.Value != "first" {
		t.Fatalf("expected value 'first', got %+v", b)
	}

	if err := s.UpsertBlock("agent1", "", "notes", "second", now.Add(time.Minute)); err != nil {
		t.Fatalf("upsert update: %v", err)
	}
	b, err = s.GetBlockByKey("agent1", "", "notes")
	if err != nil {
		t.Fatalf("get after update: %v", err)
	}
	if b.Value != "second" {
		t.Fatalf("expected value 'second', got %q", b.Value)
	}
}

func TestGetBlockMissingReturnsNilNotError(t *testing.T) {
	s := newTestStore(t)
	b, err := s.GetBlockByKey("agent1", "", "missing")
	if err != nil {
		t.Fatalf("expected no error for missing block, got %v", err)
	}
	if b != nil {
		t.Fatalf("expected nil block, got %+v", b)
	}
}

func TestNormalizeScope(t *testing.T) {
	if got := NormalizeScope(nil); got != "" {
		t.Fatalf("expected empty scope for nil, got %q", got)
	}
	s := "  work  "
	if got := NormalizeScope(&s); got != "work" {
		t.Fatalf("expected trimmed scope, got %q", got)
	}
}

func TestNormalizeScopesDedup(t *testing.T) {
	got := NormalizeScopes([]string{" a", "a ", "b"})
	if len(got) != 2 {
		t.Fatalf("expected 2 deduped scopes, got %v", got)
	}
}
