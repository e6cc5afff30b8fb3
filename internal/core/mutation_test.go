package core

import (
	"context"
	"testing"
)

func TestUpdateChunkReplacesContent(t *testing.T) {
	e, _, llm := newTestEngine(t)
	llm.Responses = []string{`[{"fact": "likes tea", "intensity": 0.5}]`}
	actions, err := e.RememberFacts(context.Background(), "agent1", nil, "first")
	if err != nil || len(actions) != 1 {
		t.Fatalf("remember: %v / %+v", err, actions)
	}

	chunks, err := e.Store.GetActiveChunks("agent1", "fact", -1, nil)
	if err != nil || len(chunks) != 1 {
		t.Fatalf("get active: %v / %+v", err, chunks)
	}
	id := chunks[0].ID

	res, err := e.UpdateChunk(context.Background(), id, "loves tea")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if res.Status != MutationOK {
		t.Fatalf("expected ok status, got %+v", res)
	}
	if res.Chunk == nil || res.Chunk.Content != "loves tea" {
		t.Fatalf("unexpected returned chunk: %+v", res.Chunk)
	}

	got, err := e.Store.GetChunk(id)
	if err != nil {
		t.Fatalf("get chunk: %v", err)
	}
	if got.Content != "loves tea" {
		t.Fatalf("unexpected chunk after update: %+v", got)
	}
	if got.ContentHash != nil {
		t.Fatalf("expected nil content_hash for a fact chunk, got %v", *got.ContentHash)
	}
}

func TestUpdateChunkMissingReportsNotFound(t *testing.T) {
	e, _, _ := newTestEngine(t)
	res, err := e.UpdateChunk(context.Background(), "nonexistent", "new content")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != MutationChunkNotFound {
		t.Fatalf("expected chunk_not_found, got %+v", res)
	}
}

func TestDeleteChunkRemovesRow(t *testing.T) {
	e, _, llm := newTestEngine(t)
	llm.Responses = []string{`[{"fact": "likes tea", "intensity": 0.5}]`}
	if _, err := e.RememberFacts(context.Background(), "agent1", nil, "first"); err != nil {
		t.Fatalf("remember: %v", err)
	}

	chunks, err := e.Store.GetActiveChunks("agent1", "fact", -1, nil)
	if err != nil || len(chunks) != 1 {
		t.Fatalf("get active: %v / %+v", err, chunks)
	}
	id := chunks[0].ID

	res, err := e.DeleteChunk(id)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if res.Status != MutationOK {
		t.Fatalf("expected ok status, got %+v", res)
	}

	got, err := e.Store.GetChunk(id)
	if err != nil {
		t.Fatalf("get chunk: %v", err)
	}
	if got != nil {
		t.Fatalf("expected chunk to be gone, got %+v", got)
	}
}

func TestDeleteChunkMissingReportsNotFound(t *testing.T) {
	e, _, _ := newTestEngine(t)
	res, err := e.DeleteChunk("nonexistent")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != MutationChunkNotFound {
		t.Fatalf("expected chunk_not_found, got %+v", res)
	}
}
