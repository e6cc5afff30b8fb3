package core

import (
	"context"
	"testing"
)

func TestStoreMemoryInsertsNewContent(t *testing.T) {
	e, _, _ := newTestEngine(t)
	res, err := e.StoreMemory(context.Background(), "agent1", nil, "the sky is blue", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Reinforced {
		t.Fatalf("expected a fresh insert, got reinforced: %+v", res)
	}
	if res.NewIntensity != verbatimStrengthenReading {
		t.Fatalf("expected initial intensity %.2f, got %.2f", verbatimStrengthenReading, res.NewIntensity)
	}
}

func TestStoreMemoryReinforcesIdenticalContent(t *testing.T) {
	e, _, _ := newTestEngine(t)
	first, err := e.StoreMemory(context.Background(), "agent1", nil, "the sky is blue", nil)
	if err != nil {
		t.Fatalf("first store: %v", err)
	}

	second, err := e.StoreMemory(context.Background(), "agent1", nil, "the sky is blue", nil)
	if err != nil {
		t.Fatalf("second store: %v", err)
	}
	if !second.Reinforced {
		t.Fatalf("expected reinforcement on exact-content repeat, got %+v", second)
	}
	if second.ChunkID != first.ChunkID {
		t.Fatalf("expected same chunk id, got %q vs %q", second.ChunkID, first.ChunkID)
	}
}

func TestStoreMemoryRejectsOverlongContent(t *testing.T) {
	e, _, _ := newTestEngine(t)
	huge := make([]byte, MaxTextLength+1)
	for i := range huge {
		huge[i] = 'a'
	}
	_, err := e.StoreMemory(context.Background(), "agent1", nil, string(huge), nil)
	if err == nil {
		t.Fatalf("expected an error for content exceeding max_text_length")
	}
}

func TestStoreMemoryDistinctScopesDoNotDedup(t *testing.T) {
	e, _, _ := newTestEngine(t)
	workScope := "work"
	first, err := e.StoreMemory(context.Background(), "agent1", &workScope, "note", nil)
	if err != nil {
		t.Fatalf("first store: %v", err)
	}
	second, err := e.StoreMemory(context.Background(), "agent1", nil, "note", nil)
	if err != nil {
		t.Fatalf("second store: %v", err)
	}
	if second.Reinforced {
		t.Fatalf("expected distinct chunk in a distinct scope, got reinforced: %+v", second)
	}
	if first.ChunkID == second.ChunkID {
		t.Fatalf("expected different chunk ids across scopes")
	}
}

func TestStoreMemoryAcceptsValidMetadata(t *testing.T) {
	e, _, _ := newTestEngine(t)
	metadata := `{"source":"cli"}`
	res, err := e.StoreMemory(context.Background(), "agent1", nil, "met someone new", &metadata)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	chunks, err := e.Store.AllChunks("agent1")
	if err != nil {
		t.Fatalf("all chunks: %v", err)
	}
	var found bool
	for _, c := range chunks {
		if c.ID == res.ChunkID {
			found = true
			if c.Metadata == nil || *c.Metadata != metadata {
				t.Fatalf("expected metadata %q stored on chunk, got %+v", metadata, c.Metadata)
			}
		}
	}
	if !found {
		t.Fatalf("expected to find inserted chunk %s", res.ChunkID)
	}
}

func TestStoreMemoryRejectsInvalidMetadata(t *testing.T) {
	e, _, _ := newTestEngine(t)
	metadata := `not json`
	_, err := e.StoreMemory(context.Background(), "agent1", nil, "another note", &metadata)
	if err == nil {
		t.Fatalf("expected an error for invalid JSON metadata")
	}
}

func TestStoreMemoryReinforcesWithFixedReadingRegardlessOfEncounterCount(t *testing.T) {
	e, _, _ := newTestEngine(t)
	for i := 0; i < 3; i++ {
		if _, err := e.StoreMemory(context.Background(), "agent1", nil, "repeated note", nil); err != nil {
			t.Fatalf("store %d: %v", i, err)
		}
	}
	chunks, err := e.Store.AllChunks("agent1")
	if err != nil {
		t.Fatalf("all chunks: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected exactly one chunk, got %d", len(chunks))
	}
	// updated_intensity(0.5, 1, 0.5) == 0.5, then updated_intensity(0.5, 2, 0.5) == 0.5:
	// reinforcing with the same fixed reading never moves the average off 0.5.
	if chunks[0].RunningIntensity != verbatimStrengthenReading {
		t.Fatalf("expected running_intensity to stay at %.2f, got %.2f", verbatimStrengthenReading, chunks[0].RunningIntensity)
	}
}
