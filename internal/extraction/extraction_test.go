package extraction

import (
	"context"
	"testing"

	"github.com/factengine/factengine/internal/testutil"
)

func TestExtractFactsPlainJSON(t *testing.T) {
	llm := testutil.NewFakeLLMClient(`[{"fact": "User likes TypeScript", "intensity": 0.7}]`)
	facts, err := ExtractFacts(context.Background(), llm, "I really like TypeScript")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(facts) != 1 || facts[0].Text != "User likes TypeScript" || facts[0].Intensity != 0.7 {
		t.Fatalf("unexpected facts: %+v", facts)
	}
}

func TestExtractFactsStripsMarkdownFence(t *testing.T) {
	llm := testutil.NewFakeLLMClient("```json\n[{\"fact\": \"x\", \"intensity\": 0.5}]\n```")
	facts, err := ExtractFacts(context.Background(), llm, "text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(facts) != 1 || facts[0].Text != "x" {
		t.Fatalf("unexpected facts: %+v", facts)
	}
}

func TestExtractFactsNonJSONYieldsEmpty(t *testing.T) {
	llm := testutil.NewFakeLLMClient("I don't see any facts here.")
	facts, err := ExtractFacts(context.Background(), llm, "text")
	if err != nil {
		t.Fatalf("expected no error for non-JSON response, got %v", err)
	}
	if len(facts) != 0 {
		t.Fatalf("expected zero facts, got %d", len(facts))
	}
}

func TestExtractFactsObjectWrapped(t *testing.T) {
	llm := testutil.NewFakeLLMClient(`{"facts": [{"fact": "wrapped", "intensity": 0.4}]}`)
	facts, err := ExtractFacts(context.Background(), llm, "text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(facts) != 0 {
		t.Fatalf("expected zero facts for an object-wrapped array, got %+v", facts)
	}
}

func TestExtractFactsDiscardsEmptyFact(t *testing.T) {
	llm := testutil.NewFakeLLMClient(`[{"fact": "   ", "intensity": 0.5}, {"fact": "real", "intensity": 0.9}]`)
	facts, err := ExtractFacts(context.Background(), llm, "text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(facts) != 1 || facts[0].Text != "real" {
		t.Fatalf("expected only the non-empty fact, got %+v", facts)
	}
}

func TestExtractFactsClampsIntensity(t *testing.T) {
	llm := testutil.NewFakeLLMClient(`[{"fact": "x", "intensity": 5}]`)
	facts, err := ExtractFacts(context.Background(), llm, "text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if facts[0].Intensity != 1.0 {
		t.Fatalf("expected intensity clamped to 1.0, got %f", facts[0].Intensity)
	}
}

func TestClassifyConflictRecognizesVerdicts(t *testing.T) {
	cases := []struct {
		response string
		want     Verdict
	}{
		{"DUPLICATE", Duplicate},
		{"**SUPERSEDES**", Supersedes},
		{"`distinct`", Distinct},
		{"", Distinct},
		{"   ", Distinct},
		{"I think this is unrelated.", Distinct},
		{"\"DUPLICATE\" because they match", Duplicate},
	}
	for _, c := range cases {
		llm := testutil.NewFakeLLMClient(c.response)
		got, err := ClassifyConflict(context.Background(), llm, "new", "old")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != c.want {
			t.Errorf("response %q: expected %s, got %s", c.response, c.want, got)
		}
	}
}
