package core

import (
	"context"
	"testing"

	"github.com/factengine/factengine/internal/testutil"
)

func TestRememberFactsInsertsFirstFact(t *testing.T) {
	e, _, llm := newTestEngine(t)
	llm.Responses = []string{`[{"fact": "likes tea", "intensity": 0.5}]`}

	actions, err := e.RememberFacts(context.Background(), "agent1", nil, "I like tea")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(actions) != 1 || actions[0].Kind != ActionInserted {
		t.Fatalf("expected one insert action, got %+v", actions)
	}
}

func TestRememberFactsReinforcesIdenticalFact(t *testing.T) {
	e, emb, llm := newTestEngine(t)
	emb.Set("likes tea", []float32{1, 0, 0, 0})
	llm.Responses = []string{`[{"fact": "likes tea", "intensity": 0.5}]`}
	if _, err := e.RememberFacts(context.Background(), "agent1", nil, "first"); err != nil {
		t.Fatalf("first remember: %v", err)
	}

	emb.Set("likes tea a lot", []float32{1, 0, 0, 0})
	e.LLM = testutil.NewFakeLLMClient(`[{"fact": "likes tea a lot", "intensity": 0.6}]`)
	actions, err := e.RememberFacts(context.Background(), "agent1", nil, "second")
	if err != nil {
		t.Fatalf("second remember: %v", err)
	}
	if len(actions) != 1 || actions[0].Kind != ActionReinforced {
		t.Fatalf("expected a reinforce action, got %+v", actions)
	}
	if actions[0].NewIntensity <= actions[0].OldIntensity {
		t.Fatalf("expected intensity to move toward new reading: %+v", actions[0])
	}
}

func TestRememberFactsSupersedesAmbiguousConflict(t *testing.T) {
	e, emb, llm := newTestEngine(t)
	emb.Set("likes tea", []float32{1, 0, 0, 0})
	llm.Responses = []string{`[{"fact": "likes tea", "intensity": 0.5}]`}
	if _, err := e.RememberFacts(context.Background(), "agent1", nil, "first"); err != nil {
		t.Fatalf("first remember: %v", err)
	}

	emb.Set("dislikes tea now", []float32{0.8, 0.6, 0, 0})
	e.LLM = testutil.NewFakeLLMClient(
		`[{"fact": "dislikes tea now", "intensity": 0.6}]`,
		"SUPERSEDES",
	)
	actions, err := e.RememberFacts(context.Background(), "agent1", nil, "second")
	if err != nil {
		t.Fatalf("second remember: %v", err)
	}
	if len(actions) != 1 || actions[0].Kind != ActionSuperseded {
		t.Fatalf("expected a supersede action, got %+v", actions)
	}
	if actions[0].OldContent != "likes tea" || actions[0].NewContent != "dislikes tea now" {
		t.Fatalf("unexpected supersede content: %+v", actions[0])
	}
}

func TestRememberFactsDistinctWhenDissimilar(t *testing.T) {
	e, emb, llm := newTestEngine(t)
	emb.Set("likes tea", []float32{1, 0, 0, 0})
	llm.Responses = []string{`[{"fact": "likes tea", "intensity": 0.5}]`}
	if _, err := e.RememberFacts(context.Background(), "agent1", nil, "first"); err != nil {
		t.Fatalf("first remember: %v", err)
	}

	emb.Set("owns a car", []float32{0, 1, 0, 0})
	e.LLM = testutil.NewFakeLLMClient(`[{"fact": "owns a car", "intensity": 0.4}]`)
	actions, err := e.RememberFacts(context.Background(), "agent1", nil, "second")
	if err != nil {
		t.Fatalf("second remember: %v", err)
	}
	if len(actions) != 1 || actions[0].Kind != ActionInserted {
		t.Fatalf("expected a distinct insert action, got %+v", actions)
	}
}

func TestRememberFactsEmptyExtractionYieldsNoActions(t *testing.T) {
	e, _, llm := newTestEngine(t)
	llm.Responses = []string{`[]`}

	actions, err := e.RememberFacts(context.Background(), "agent1", nil, "nothing to see")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(actions) != 0 {
		t.Fatalf("expected zero actions, got %+v", actions)
	}
}

func TestRememberFactsRejectsOverlongText(t *testing.T) {
	e, _, _ := newTestEngine(t)
	huge := make([]byte, MaxTextLength+1)
	for i := range huge {
		huge[i] = 'a'
	}
	_, err := e.RememberFacts(context.Background(), "agent1", nil, string(huge))
	if err == nil {
		t.Fatalf("expected an error for text exceeding max_text_length")
	}
}
