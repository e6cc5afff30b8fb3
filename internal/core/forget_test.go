package core

import (
	"context"
	"testing"
)

func TestForgetDeletesMatchingChunks(t *testing.T) {
	e, emb, llm := newTestEngine(t)
	emb.Set("likes tea", []float32{1, 0, 0, 0})
	llm.Responses = []string{`[{"fact": "likes tea", "intensity": 0.5}]`}
	if _, err := e.RememberFacts(context.Background(), "agent1", nil, "first"); err != nil {
		t.Fatalf("remember: %v", err)
	}

	emb.Set("everything about tea", []float32{1, 0, 0, 0})
	res, err := e.Forget(context.Background(), "agent1", nil, "everything about tea", 0.9)
	if err != nil {
		t.Fatalf("forget: %v", err)
	}
	if len(res.DeletedChunkIDs) != 1 {
		t.Fatalf("expected one deleted chunk, got %+v", res)
	}
}

func TestForgetNoMatchesReturnsEmptyResult(t *testing.T) {
	e, emb, llm := newTestEngine(t)
	emb.Set("likes tea", []float32{1, 0, 0, 0})
	llm.Responses = []string{`[{"fact": "likes tea", "intensity": 0.5}]`}
	if _, err := e.RememberFacts(context.Background(), "agent1", nil, "first"); err != nil {
		t.Fatalf("remember: %v", err)
	}

	emb.Set("totally unrelated", []float32{0, 1, 0, 0})
	res, err := e.Forget(context.Background(), "agent1", nil, "totally unrelated", 0.9)
	if err != nil {
		t.Fatalf("forget: %v", err)
	}
	if len(res.DeletedChunkIDs) != 0 {
		t.Fatalf("expected no deletions, got %+v", res)
	}
}
