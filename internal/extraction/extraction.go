// Package extraction makes the two prompted LLM capability calls the
// remember-facts pipeline depends on: extracting discrete facts from free
// text, and classifying the relationship between a new fact and its
// closest existing candidate. Both parsers are deliberately tolerant of
// the loose, occasionally markdown-wrapped text real LLM backends return,
// following the reference stack's parseSummaryResponse/
// parseRelationshipResponse line-by-line, prefix-matching idiom.
package extraction

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/factengine/factengine/internal/capability"
)

// Fact is one extracted factual claim with its reported intensity.
type Fact struct {
	Text      string
	Intensity float64
}

// Verdict is the classifier's tagged-variant outcome.
type Verdict string

const (
	Duplicate Verdict = "DUPLICATE"
	Supersedes Verdict = "SUPERSEDES"
	Distinct  Verdict = "DISTINCT"
)

const extractionSystemPrompt = `You extract discrete factual claims from the user's text.
Respond with a JSON array only, no other text. Each element is an object
with a "fact" string field (a single atomic claim) and an "intensity"
number field in [0, 1] describing how strongly stated the claim is.
If there are no facts, respond with an empty array: []`

const classificationSystemPrompt = `Compare a new fact against an existing fact about the same agent.
Respond with exactly one word: DUPLICATE if they say the same thing,
SUPERSEDES if the new fact replaces/contradicts the old one, or DISTINCT
if they are unrelated or compatible facts. Respond with nothing else.`

// ExtractFacts calls the LLM capability with text and parses its response
// as a JSON array of facts. Any response that does not parse to a JSON
// array (after stripping markdown code fences) — including a non-array,
// an object-wrapped array, or malformed JSON — yields zero facts, not an
// error. Entries missing a non-empty "fact" string or a numeric
// "intensity" are discarded; intensity is clamped to [0, 1].
func ExtractFacts(ctx context.Context, llm capability.LLMClient, text string) ([]Fact, error) {
	resp, err := llm.Complete(ctx, []capability.Message{{Role: "user", Content: text}}, extractionSystemPrompt)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	return parseExtractedFacts(resp), nil
}

func parseExtractedFacts(resp string) []Fact {
	cleaned := stripCodeFences(resp)

	var raw []map[string]any
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return nil
	}
	if raw == nil {
		return nil
	}

	var facts []Fact
	for _, entry := range raw {
		factText, ok := entry["fact"].(string)
		if !ok {
			continue
		}
		factText = strings.TrimSpace(factText)
		if factText == "" {
			continue
		}
		intensityRaw, ok := entry["intensity"].(float64)
		if !ok {
			continue
		}
		facts = append(facts, Fact{Text: factText, Intensity: clamp01(intensityRaw)})
	}
	return facts
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.Index(s, "\n"); idx >= 0 {
		firstLine := s[:idx]
		if !strings.Contains(firstLine, "[") && !strings.Contains(firstLine, "{") {
			s = s[idx+1:]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// ClassifyConflict calls the LLM capability and parses its response into
// a Verdict. The first whitespace-delimited token is stripped of
// non-letters, upper-cased, and matched; anything unrecognized — empty
// responses included — defaults to Distinct.
func ClassifyConflict(ctx context.Context, llm capability.LLMClient, newFact, existingFact string) (Verdict, error) {
	prompt := "New fact: " + newFact + "\nExisting fact: " + existingFact
	resp, err := llm.Complete(ctx, []capability.Message{{Role: "user", Content: prompt}}, classificationSystemPrompt)
	if err != nil {
		if ctx.Err() != nil {
			return Distinct, ctx.Err()
		}
		return Distinct, err
	}
	return parseVerdict(resp), nil
}

func parseVerdict(resp string) Verdict {
	fields := strings.Fields(resp)
	if len(fields) == 0 {
		return Distinct
	}
	token := stripNonLetters(fields[0])
	token = strings.ToUpper(token)

	switch token {
	case string(Duplicate):
		return Duplicate
	case string(Supersedes):
		return Supersedes
	default:
		return Distinct
	}
}

func stripNonLetters(s string) string {
	var b strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
