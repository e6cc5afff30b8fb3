package core

import (
	"context"

	"github.com/factengine/factengine/internal/engineerr"
	"github.com/factengine/factengine/internal/ids"
	"github.com/factengine/factengine/internal/store"
	"github.com/factengine/factengine/internal/vectorcodec"
)

// MutationStatus discriminates structured, non-exception outcomes of the
// administrative mutation API.
type MutationStatus string

const (
	MutationOK            MutationStatus = "ok"
	MutationChunkNotFound MutationStatus = "chunk_not_found"
)

// MutationResult is the outcome of an administrative chunk mutation.
type MutationResult struct {
	Status MutationStatus
	Chunk  *store.Chunk
}

// UpdateChunk replaces a chunk's content wholesale: it fails
// MutationChunkNotFound if the chunk does not exist, embeds the new
// content, and in one transaction replaces content, content_hash (a
// fresh hash for a memory chunk, nil for a fact), embedding, created_at,
// and last_accessed_at. The read, embed, and write all happen before the
// transaction commits so the update is atomic even under a concurrent
// unique-constraint violation on content_hash. See SPEC_FULL.md §4.13.
func (e *Engine) UpdateChunk(ctx context.Context, id string, newContent string) (*MutationResult, error) {
	existing, err := e.Store.GetChunk(id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return &MutationResult{Status: MutationChunkNotFound}, nil
	}

	vec, err := e.Embedder.Embed(ctx, newContent)
	if err != nil {
		return nil, wrapCancelled(ctx, err)
	}
	embedding := vectorcodec.ToBlob(vec)

	var hash *string
	if existing.Kind == store.KindMemory {
		h := ids.ContentHash(newContent)
		hash = &h
	}

	now := e.now()

	tx, err := e.Store.Begin()
	if err != nil {
		return nil, engineerr.Wrap(engineerr.Fatal, "failed to begin update transaction", err)
	}
	defer tx.Rollback()

	if err := store.UpdateChunkTx(tx, id, newContent, hash, embedding, now); err != nil {
		return nil, engineerr.Wrap(engineerr.Fatal, "failed to update chunk", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, engineerr.Wrap(engineerr.Fatal, "failed to commit update", err)
	}

	updated, err := e.Store.GetChunk(id)
	if err != nil {
		return nil, err
	}
	return &MutationResult{Status: MutationOK, Chunk: updated}, nil
}

// DeleteChunk removes a chunk by id, clearing any superseded_by
// reference that points at it first so the chunk it superseded
// re-activates rather than being left permanently shadowed. Reports
// whether anything was actually deleted.
func (e *Engine) DeleteChunk(id string) (*MutationResult, error) {
	existing, err := e.Store.GetChunk(id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return &MutationResult{Status: MutationChunkNotFound}, nil
	}

	tx, err := e.Store.Begin()
	if err != nil {
		return nil, engineerr.Wrap(engineerr.Fatal, "failed to begin delete transaction", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`UPDATE chunks SET superseded_by = NULL WHERE superseded_by = ?`, id); err != nil {
		return nil, engineerr.Wrap(engineerr.Fatal, "failed to clear superseded_by references", err)
	}
	ok, err := store.DeleteChunkTx(tx, id)
	if err != nil {
		return nil, engineerr.Wrap(engineerr.Fatal, "failed to delete chunk", err)
	}
	if !ok {
		return &MutationResult{Status: MutationChunkNotFound}, nil
	}
	if err := tx.Commit(); err != nil {
		return nil, engineerr.Wrap(engineerr.Fatal, "failed to commit delete", err)
	}

	return &MutationResult{Status: MutationOK}, nil
}
