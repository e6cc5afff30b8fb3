package core

import (
	"context"
	"encoding/json"

	"github.com/factengine/factengine/internal/engineerr"
	"github.com/factengine/factengine/internal/ids"
	"github.com/factengine/factengine/internal/store"
	"github.com/factengine/factengine/internal/strength"
	"github.com/factengine/factengine/internal/vectorcodec"
)

// verbatimStrengthenReading is the fixed intensity reading applied every
// time an existing memory chunk is reinforced by store_memory. Unlike
// remember_facts's DUPLICATE reinforcement, which folds in the new
// fact's own intensity, the verbatim strengthen path always reinforces
// with this same reading regardless of how many times the identical
// content has been seen. This asymmetry is intentional; see
// SPEC_FULL.md §9's open questions.
const verbatimStrengthenReading = 0.5

// StoreMemoryResult reports what StoreMemory did: whether an existing
// memory chunk with the same content hash was reinforced in place, or a
// new chunk was inserted.
type StoreMemoryResult struct {
	ChunkID      string
	Reinforced   bool
	NewIntensity float64
}

// StoreMemory records a raw piece of experiential content, deduplicating
// on exact content hash within the agent+scope. Unlike RememberFacts, no
// extraction or embedding-similarity classification happens here: the
// text is stored (or reinforced) verbatim. If metadata is supplied it
// must parse as JSON, else the call fails with InvalidMetadata before
// any side effect. See SPEC_FULL.md §4.8.
func (e *Engine) StoreMemory(ctx context.Context, agentID string, scope *string, content string, metadata *string) (*StoreMemoryResult, error) {
	if len(content) > MaxTextLength {
		return nil, engineerr.New(engineerr.InputTooLong, "store_memory content exceeds max_text_length").
			WithDetails(map[string]any{"length": len(content), "max_text_length": MaxTextLength})
	}
	if metadata != nil && !json.Valid([]byte(*metadata)) {
		return nil, engineerr.New(engineerr.InvalidMetadata, "store_memory metadata is not valid JSON")
	}

	sc := normalizeScopePtr(scope)
	hash := ids.ContentHash(content)

	existing, err := e.Store.GetMemoryByHash(agentID, sc, hash)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		now := e.now()
		newIntensity := strength.Clamp01(strength.UpdatedIntensity(existing.RunningIntensity, existing.EncounterCount, verbatimStrengthenReading))
		if err := e.Store.ReinforceChunk(existing.ID, newIntensity, now); err != nil {
			return nil, err
		}
		return &StoreMemoryResult{ChunkID: existing.ID, Reinforced: true, NewIntensity: newIntensity}, nil
	}

	embedding, err := e.Embedder.Embed(ctx, content)
	if err != nil {
		return nil, wrapCancelled(ctx, err)
	}

	now := e.now()
	chunk := &store.Chunk{
		ID:               ids.New(),
		AgentID:          agentID,
		Scope:            sc,
		Content:          content,
		ContentHash:      &hash,
		Embedding:        vectorcodec.ToBlob(embedding),
		Metadata:         metadata,
		Kind:             store.KindMemory,
		RunningIntensity: verbatimStrengthenReading,
		EncounterCount:   1,
		AccessCount:      0,
		LastAccessedAt:   now,
		CreatedAt:        now,
	}

	if err := e.Store.InsertChunk(chunk); err != nil {
		// TOCTOU: another writer inserted the same hash between our
		// lookup and this insert. Fall back to reinforcing it instead
		// of surfacing a spurious unique-constraint failure.
		if existing, lookupErr := e.Store.GetMemoryByHash(agentID, sc, hash); lookupErr == nil && existing != nil {
			now := e.now()
			newIntensity := strength.Clamp01(strength.UpdatedIntensity(existing.RunningIntensity, existing.EncounterCount, verbatimStrengthenReading))
			if rErr := e.Store.ReinforceChunk(existing.ID, newIntensity, now); rErr != nil {
				return nil, rErr
			}
			return &StoreMemoryResult{ChunkID: existing.ID, Reinforced: true, NewIntensity: newIntensity}, nil
		}
		return nil, err
	}

	return &StoreMemoryResult{ChunkID: chunk.ID, Reinforced: false, NewIntensity: chunk.RunningIntensity}, nil
}
