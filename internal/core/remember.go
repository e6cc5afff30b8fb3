package core

import (
	"context"

	"github.com/factengine/factengine/internal/engineerr"
	"github.com/factengine/factengine/internal/extraction"
	"github.com/factengine/factengine/internal/ids"
	"github.com/factengine/factengine/internal/store"
	"github.com/factengine/factengine/internal/strength"
	"github.com/factengine/factengine/internal/vectorcodec"
)

// ActionKind tags what RememberFacts did with one extracted fact.
type ActionKind string

const (
	ActionInserted   ActionKind = "inserted"
	ActionReinforced ActionKind = "reinforced"
	ActionSuperseded ActionKind = "superseded"
)

// Action is one entry in the ordered action log RememberFacts returns.
type Action struct {
	Kind ActionKind

	// Content is the fact text for Inserted, the winning chunk's content
	// for Reinforced, and the new (superseding) content for Superseded.
	Content string

	OldContent string
	NewContent string

	Intensity    float64
	OldIntensity float64
	NewIntensity float64
}

// RememberFacts extracts discrete facts from text via the LLM capability
// and, for each, resolves it against the agent's active facts in scope:
// insert it as new, reinforce an existing duplicate, or mark an existing
// fact superseded. See SPEC_FULL.md §4.7 for the full algorithm and its
// rationale.
//
// No outer transaction wraps the batch: each fact is independently
// meaningful, so a failure partway through still returns the actions
// already committed via the returned (possibly partial) log alongside the
// error.
func (e *Engine) RememberFacts(ctx context.Context, agentID string, scope *string, text string) ([]Action, error) {
	if len(text) > MaxTextLength {
		return nil, engineerr.New(engineerr.InputTooLong, "remember_facts input exceeds max_text_length").
			WithDetails(map[string]any{"length": len(text), "max_text_length": MaxTextLength})
	}

	facts, err := extraction.ExtractFacts(ctx, e.LLM, text)
	if err != nil {
		return nil, wrapCancelled(ctx, err)
	}
	if len(facts) == 0 {
		return nil, nil
	}

	sc := normalizeScopePtr(scope)
	workingSet, err := e.Store.GetActiveChunks(agentID, store.KindFact, MaxSearchFacts, []string{sc})
	if err != nil {
		return nil, err
	}

	var actions []Action
	for _, f := range facts {
		if ctx.Err() != nil {
			return actions, engineerr.Wrap(engineerr.Cancelled, "remember_facts cancelled", ctx.Err())
		}

		embedding, err := e.Embedder.Embed(ctx, f.Text)
		if err != nil {
			return actions, wrapCancelled(ctx, err)
		}

		best, bestSim, err := bestMatch(workingSet, embedding)
		if err != nil {
			return actions, err
		}

		if best == nil || bestSim < Ambiguous {
			chunk := e.composeFactChunk(agentID, sc, f.Text, f.Intensity, embedding)
			if err := e.Store.InsertChunk(chunk); err != nil {
				return actions, err
			}
			workingSet = append(workingSet, chunk)
			actions = append(actions, Action{Kind: ActionInserted, Content: f.Text, Intensity: chunk.RunningIntensity})
			continue
		}

		var verdict extraction.Verdict
		if bestSim > DuplicateBand {
			verdict = extraction.Duplicate
		} else {
			verdict, err = extraction.ClassifyConflict(ctx, e.LLM, f.Text, best.Content)
			if err != nil {
				return actions, wrapCancelled(ctx, err)
			}
		}

		switch verdict {
		case extraction.Duplicate:
			now := e.now()
			newIntensity := strength.Clamp01(strength.UpdatedIntensity(best.RunningIntensity, best.EncounterCount, f.Intensity))
			if err := e.Store.ReinforceChunk(best.ID, newIntensity, now); err != nil {
				return actions, err
			}
			oldIntensity := best.RunningIntensity
			best.RunningIntensity = newIntensity
			best.EncounterCount++
			best.AccessCount++
			best.LastAccessedAt = now
			actions = append(actions, Action{
				Kind: ActionReinforced, Content: best.Content,
				OldIntensity: oldIntensity, NewIntensity: newIntensity,
			})

		case extraction.Supersedes:
			newChunk := e.composeFactChunk(agentID, sc, f.Text, f.Intensity, embedding)
			if err := e.supersedeAtomically(newChunk, best.ID); err != nil {
				return actions, err
			}
			workingSet = removeChunk(workingSet, best.ID)
			workingSet = append(workingSet, newChunk)
			actions = append(actions, Action{
				Kind: ActionSuperseded, Content: newChunk.Content, OldContent: best.Content, NewContent: newChunk.Content,
			})

		default: // Distinct
			chunk := e.composeFactChunk(agentID, sc, f.Text, f.Intensity, embedding)
			if err := e.Store.InsertChunk(chunk); err != nil {
				return actions, err
			}
			workingSet = append(workingSet, chunk)
			actions = append(actions, Action{Kind: ActionInserted, Content: f.Text, Intensity: chunk.RunningIntensity})
		}
	}

	return actions, nil
}

func (e *Engine) composeFactChunk(agentID, scope, content string, intensity float64, embedding []float32) *store.Chunk {
	now := e.now()
	return &store.Chunk{
		ID:               ids.New(),
		AgentID:          agentID,
		Scope:            scope,
		Content:          content,
		Embedding:        vectorcodec.ToBlob(embedding),
		Kind:             store.KindFact,
		RunningIntensity: strength.Clamp01(intensity),
		EncounterCount:   1,
		AccessCount:      0,
		LastAccessedAt:   now,
		CreatedAt:        now,
	}
}

// supersedeAtomically inserts newChunk and marks oldID superseded by it
// within a single transaction, so no dangling superseded_by reference can
// ever be observed.
func (e *Engine) supersedeAtomically(newChunk *store.Chunk, oldID string) error {
	tx, err := e.Store.Begin()
	if err != nil {
		return engineerr.Wrap(engineerr.Fatal, "failed to begin supersession transaction", err)
	}
	defer tx.Rollback()

	if err := store.InsertChunkTx(tx, newChunk); err != nil {
		return engineerr.Wrap(engineerr.Fatal, "failed to insert superseding chunk", err)
	}
	if err := store.SupersedeChunkTx(tx, newChunk.ID, oldID); err != nil {
		return engineerr.Wrap(engineerr.Fatal, "failed to mark chunk superseded", err)
	}
	if err := tx.Commit(); err != nil {
		return engineerr.Wrap(engineerr.Fatal, "failed to commit supersession", err)
	}
	return nil
}

// bestMatch returns the working-set chunk with highest cosine similarity
// to embedding, conceptually the top of a TopK-ranked shortlist — only
// the top candidate ever participates in classification, so the shortlist
// itself is not materialized.
func bestMatch(workingSet []*store.Chunk, embedding []float32) (*store.Chunk, float64, error) {
	var best *store.Chunk
	bestSim := -2.0
	for _, c := range workingSet {
		sim, err := vectorcodec.CosineSimilarity(embedding, vectorcodec.FromBlob(c.Embedding))
		if err != nil {
			return nil, 0, err
		}
		if sim > bestSim {
			bestSim = sim
			best = c
		}
	}
	if best == nil {
		return nil, 0, nil
	}
	return best, bestSim, nil
}

func removeChunk(chunks []*store.Chunk, id string) []*store.Chunk {
	out := chunks[:0]
	for _, c := range chunks {
		if c.ID != id {
			out = append(out, c)
		}
	}
	return out
}

func wrapCancelled(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return engineerr.Wrap(engineerr.Cancelled, "operation cancelled", ctx.Err())
	}
	return err
}
