package core

import (
	"context"
	"sort"

	"github.com/factengine/factengine/internal/engineerr"
	"github.com/factengine/factengine/internal/store"
	"github.com/factengine/factengine/internal/strength"
	"github.com/factengine/factengine/internal/vectorcodec"
)

// RecallHit is one ranked recall result.
type RecallHit struct {
	Chunk      *store.Chunk
	Similarity float64
	Score      float64
}

// Recall embeds query, scores every active chunk of the agent (optionally
// restricted to scopes and/or a single kind) by composite
// similarity/strength/recency, and returns the top `limit` hits above
// MinSimilarity and the strength floor. A best-effort retrieval boost is
// applied to every returned hit; a busy database on the boost write is
// swallowed, since the boost is an optimization, not part of recall's
// contract. See SPEC_FULL.md §4.9.
func (e *Engine) Recall(ctx context.Context, agentID string, scopes []string, query string, kind *store.Kind, limit int) ([]RecallHit, error) {
	limit = clampRecallLimit(limit)

	queryEmbedding, err := e.Embedder.Embed(ctx, query)
	if err != nil {
		return nil, wrapCancelled(ctx, err)
	}

	var chunks []*store.Chunk
	if kind != nil {
		chunks, err = e.Store.GetActiveChunks(agentID, *kind, MaxSearchChunks, scopes)
	} else {
		chunks, err = e.Store.GetAllActiveChunks(agentID, MaxSearchChunks, scopes)
	}
	if err != nil {
		return nil, err
	}

	now := e.now()
	hits := make([]RecallHit, 0, len(chunks))
	for _, c := range chunks {
		if ctx.Err() != nil {
			return nil, engineerr.Wrap(engineerr.Cancelled, "recall cancelled", ctx.Err())
		}

		sim, err := vectorcodec.CosineSimilarity(queryEmbedding, vectorcodec.FromBlob(c.Embedding))
		if err != nil {
			return nil, err
		}
		if sim < MinSimilarity {
			continue
		}

		hours := now.Sub(c.LastAccessedAt).Hours()
		eff := strength.EffectiveStrength(c.RunningIntensity, c.AccessCount, hours)
		if eff < strength.StrengthFloor {
			continue
		}

		days := now.Sub(c.CreatedAt).Hours() / 24
		recency := strength.RecencyScore(days)
		score := strength.SearchScore(sim, eff, recency)

		hits = append(hits, RecallHit{Chunk: c, Similarity: sim, Score: score})
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > limit {
		hits = hits[:limit]
	}

	for _, h := range hits {
		boosted := strength.Boost(h.Chunk.RunningIntensity)
		if err := e.Store.TouchChunk(h.Chunk.ID, boosted, now); err != nil {
			if !engineerr.IsBusy(err) {
				return nil, err
			}
		}
	}

	return hits, nil
}
