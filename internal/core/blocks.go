package core

import (
	"strings"

	"github.com/factengine/factengine/internal/store"
)

// BlockStatus discriminates structured, non-exception outcomes of block
// operations, matching the spec's distinction between surfaced errors and
// results returned as data.
type BlockStatus string

const (
	BlockOK           BlockStatus = "ok"
	BlockNotFound     BlockStatus = "block_not_found"
	BlockEmptyOldText BlockStatus = "empty_old_text"
	BlockTextNotFound BlockStatus = "text_not_found"
)

// BlockResult is the outcome of a memory-block operation.
type BlockResult struct {
	Status       BlockStatus
	Value        string
	Replacements int
	Truncated    bool
}

// RecallMemoryBlock returns the named block's current value, or
// BlockNotFound (not an error) if it does not exist.
func (e *Engine) RecallMemoryBlock(agentID string, scope *string, key string) (*BlockResult, error) {
	sc := normalizeScopePtr(scope)
	b, err := e.Store.GetBlockByKey(agentID, sc, key)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return &BlockResult{Status: BlockNotFound}, nil
	}
	return &BlockResult{Status: BlockOK, Value: b.Value}, nil
}

// ReplaceMemoryBlock replaces every non-overlapping, left-to-right
// occurrence of oldText in the block's value with newText and upserts
// the result, reporting the number of replacements made. Fails
// (structured, non-exception) with BlockNotFound if the block does not
// exist, BlockEmptyOldText if oldText is empty, or BlockTextNotFound if
// oldText is not present.
func (e *Engine) ReplaceMemoryBlock(agentID string, scope *string, key, oldText, newText string) (*BlockResult, error) {
	if oldText == "" {
		return &BlockResult{Status: BlockEmptyOldText}, nil
	}

	sc := normalizeScopePtr(scope)
	b, err := e.Store.GetBlockByKey(agentID, sc, key)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return &BlockResult{Status: BlockNotFound}, nil
	}

	count := strings.Count(b.Value, oldText)
	if count == 0 {
		return &BlockResult{Status: BlockTextNotFound}, nil
	}

	newValue := strings.ReplaceAll(b.Value, oldText, newText)
	if err := e.Store.UpsertBlock(agentID, sc, key, newValue, e.now()); err != nil {
		return nil, err
	}
	return &BlockResult{Status: BlockOK, Value: newValue, Replacements: count}, nil
}

// AppendMemoryBlock upserts text onto the block's value, creating the
// block if it does not exist. If the block already had content, the old
// and new content are separated by a newline. The warning threshold is
// reported in Truncated for the caller's human-readable text only; the
// value itself is never truncated.
func (e *Engine) AppendMemoryBlock(agentID string, scope *string, key, text string) (*BlockResult, error) {
	sc := normalizeScopePtr(scope)
	b, err := e.Store.GetBlockByKey(agentID, sc, key)
	if err != nil {
		return nil, err
	}

	newValue := text
	if b != nil && b.Value != "" {
		newValue = b.Value + "\n" + text
	}

	overThreshold := len(newValue) > MaxBlockWarnBytes
	if overThreshold {
		log.Warn("memory block exceeds warn threshold", "agent_id", agentID, "key", key, "bytes", len(newValue))
	}

	if err := e.Store.UpsertBlock(agentID, sc, key, newValue, e.now()); err != nil {
		return nil, err
	}
	return &BlockResult{Status: BlockOK, Value: newValue, Truncated: overThreshold}, nil
}

// ListBlocks returns every block belonging to agentID.
func (e *Engine) ListBlocks(agentID string) ([]*store.Block, error) {
	return e.Store.ListBlocks(agentID)
}
