package core

import (
	"context"

	"github.com/factengine/factengine/internal/engineerr"
	"github.com/factengine/factengine/internal/store"
	"github.com/factengine/factengine/internal/vectorcodec"
)

// ForgetResult reports what Forget removed: the deleted chunks' content
// (the contract SPEC_FULL.md §4.10 step 4 names) alongside their ids,
// since callers that only need a count or an id list shouldn't have to
// re-fetch content that was already in hand at delete time.
type ForgetResult struct {
	DeletedChunkIDs []string
	DeletedContents []string
}

// Forget embeds description, scans the agent's active chunks in scope for
// matches above threshold (defaulting to DefaultForgetThreshold), and
// deletes them. Deletion happens inside a single transaction per scope
// that first clears any superseded_by reference pointing at a deleted
// chunk, so forgetting a superseding fact never leaves a dangling
// reference on the fact it superseded. See SPEC_FULL.md §4.10.
func (e *Engine) Forget(ctx context.Context, agentID string, scope *string, description string, threshold float64) (*ForgetResult, error) {
	if threshold <= 0 {
		threshold = DefaultForgetThreshold
	}
	sc := normalizeScopePtr(scope)

	descEmbedding, err := e.Embedder.Embed(ctx, description)
	if err != nil {
		return nil, wrapCancelled(ctx, err)
	}

	chunks, err := e.Store.GetAllActiveChunks(agentID, MaxSearchChunks, []string{sc})
	if err != nil {
		return nil, err
	}

	var toDelete []*store.Chunk
	for _, c := range chunks {
		if ctx.Err() != nil {
			return nil, engineerr.Wrap(engineerr.Cancelled, "forget cancelled", ctx.Err())
		}
		sim, err := vectorcodec.CosineSimilarity(descEmbedding, vectorcodec.FromBlob(c.Embedding))
		if err != nil {
			return nil, err
		}
		if sim >= threshold {
			toDelete = append(toDelete, c)
		}
	}
	if len(toDelete) == 0 {
		return &ForgetResult{}, nil
	}

	tx, err := e.Store.Begin()
	if err != nil {
		return nil, engineerr.Wrap(engineerr.Fatal, "failed to begin forget transaction", err)
	}
	defer tx.Rollback()

	var deletedIDs, deletedContents []string
	for _, c := range toDelete {
		if err := store.ClearSupersededByScoped(tx, c.ID, agentID, sc); err != nil {
			return nil, engineerr.Wrap(engineerr.Fatal, "failed to clear superseded_by references", err)
		}
		ok, err := store.DeleteChunkTx(tx, c.ID)
		if err != nil {
			return nil, engineerr.Wrap(engineerr.Fatal, "failed to delete chunk", err)
		}
		if ok {
			deletedIDs = append(deletedIDs, c.ID)
			deletedContents = append(deletedContents, c.Content)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, engineerr.Wrap(engineerr.Fatal, "failed to commit forget", err)
	}

	return &ForgetResult{DeletedChunkIDs: deletedIDs, DeletedContents: deletedContents}, nil
}
