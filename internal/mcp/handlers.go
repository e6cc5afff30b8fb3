package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/factengine/factengine/internal/core"
	"github.com/factengine/factengine/internal/store"
)

func decodeParams[T any](argsJSON []byte) (T, error) {
	var v T
	if err := json.Unmarshal(argsJSON, &v); err != nil {
		var zero T
		return zero, fmt.Errorf("invalid arguments: %w", err)
	}
	return v, nil
}

func (s *Server) handleRememberFacts(ctx context.Context, argsJSON []byte) (string, error) {
	p, err := decodeParams[RememberFactsParams](argsJSON)
	if err != nil {
		return "", err
	}
	if p.AgentID == "" || p.Text == "" {
		return "", fmt.Errorf("agent_id and text are required")
	}

	actions, err := s.engine.RememberFacts(ctx, p.AgentID, p.Scope, p.Text)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString(s.formatter.header("remember_facts"))
	if len(actions) == 0 {
		sb.WriteString("no facts extracted\n")
		return sb.String(), nil
	}
	for _, a := range actions {
		switch a.Kind {
		case "inserted":
			sb.WriteString(fmt.Sprintf("inserted: %q (intensity %.2f)\n", a.Content, a.Intensity))
		case "reinforced":
			sb.WriteString(fmt.Sprintf("reinforced: %q (%.2f -> %.2f)\n", a.Content, a.OldIntensity, a.NewIntensity))
		case "superseded":
			sb.WriteString(fmt.Sprintf("superseded: %q -> %q\n", a.OldContent, a.NewContent))
		}
	}
	return sb.String(), nil
}

func (s *Server) handleStoreMemory(ctx context.Context, argsJSON []byte) (string, error) {
	p, err := decodeParams[StoreMemoryParams](argsJSON)
	if err != nil {
		return "", err
	}
	if p.AgentID == "" || p.Content == "" {
		return "", fmt.Errorf("agent_id and content are required")
	}

	res, err := s.engine.StoreMemory(ctx, p.AgentID, p.Scope, p.Content, p.Metadata)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString(s.formatter.header("store_memory"))
	if res.Reinforced {
		sb.WriteString(fmt.Sprintf("reinforced existing chunk %s (intensity now %.2f)\n", res.ChunkID, res.NewIntensity))
	} else {
		sb.WriteString(fmt.Sprintf("stored new chunk %s (intensity %.2f)\n", res.ChunkID, res.NewIntensity))
	}
	return sb.String(), nil
}

func (s *Server) handleRecallMemories(ctx context.Context, argsJSON []byte) (string, error) {
	p, err := decodeParams[RecallMemoriesParams](argsJSON)
	if err != nil {
		return "", err
	}
	if p.AgentID == "" || p.Query == "" {
		return "", fmt.Errorf("agent_id and query are required")
	}
	var kind *store.Kind
	if p.Kind != nil {
		switch *p.Kind {
		case "f":
			k := store.KindFact
			kind = &k
		case "m":
			k := store.KindMemory
			kind = &k
		default:
			return "", fmt.Errorf("invalid kind %q, want f or m", *p.Kind)
		}
	}

	hits, err := s.engine.Recall(ctx, p.AgentID, p.Scopes, p.Query, kind, p.Limit)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString(s.formatter.header("recall_memories"))
	if len(hits) == 0 {
		sb.WriteString("no matching memories\n")
		return sb.String(), nil
	}
	for i, h := range hits {
		sb.WriteString(fmt.Sprintf("%d. [%s] %q (score %.3f, similarity %.3f)\n", i+1, h.Chunk.Kind, h.Chunk.Content, h.Score, h.Similarity))
	}
	return sb.String(), nil
}

func (s *Server) handleForgetMemory(ctx context.Context, argsJSON []byte) (string, error) {
	p, err := decodeParams[ForgetMemoryParams](argsJSON)
	if err != nil {
		return "", err
	}
	if p.AgentID == "" || p.Description == "" {
		return "", fmt.Errorf("agent_id and description are required")
	}

	res, err := s.engine.Forget(ctx, p.AgentID, p.Scope, p.Description, p.Threshold)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString(s.formatter.header("forget_memory"))
	if len(res.DeletedContents) == 0 {
		sb.WriteString("deleted 0 chunk(s)\n")
		return sb.String(), nil
	}
	sb.WriteString(fmt.Sprintf("deleted %d chunk(s):\n", len(res.DeletedContents)))
	for _, content := range res.DeletedContents {
		sb.WriteString(fmt.Sprintf("  - %q\n", content))
	}
	return sb.String(), nil
}

func (s *Server) handleRecallMemoryBlock(argsJSON []byte) (string, error) {
	p, err := decodeParams[RecallMemoryBlockParams](argsJSON)
	if err != nil {
		return "", err
	}
	if p.AgentID == "" || p.Key == "" {
		return "", fmt.Errorf("agent_id and key are required")
	}

	res, err := s.engine.RecallMemoryBlock(p.AgentID, p.Scope, p.Key)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString(s.formatter.header("recall_memory_block"))
	if res.Status != core.BlockOK {
		sb.WriteString("block not found\n")
		return sb.String(), nil
	}
	sb.WriteString(res.Value)
	sb.WriteString("\n")
	return sb.String(), nil
}

func (s *Server) handleReplaceMemoryBlock(argsJSON []byte) (string, error) {
	p, err := decodeParams[ReplaceMemoryBlockParams](argsJSON)
	if err != nil {
		return "", err
	}
	if p.AgentID == "" || p.Key == "" {
		return "", fmt.Errorf("agent_id and key are required")
	}

	res, err := s.engine.ReplaceMemoryBlock(p.AgentID, p.Scope, p.Key, p.OldText, p.NewText)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString(s.formatter.header("replace_memory_block"))
	switch res.Status {
	case core.BlockOK:
		sb.WriteString(fmt.Sprintf("replaced %d occurrence(s)\n", res.Replacements))
	case core.BlockNotFound:
		sb.WriteString("block not found\n")
	case core.BlockEmptyOldText:
		sb.WriteString("old_text must not be empty\n")
	case core.BlockTextNotFound:
		sb.WriteString("old_text not found in block\n")
	}
	return sb.String(), nil
}

func (s *Server) handleAppendMemoryBlock(argsJSON []byte) (string, error) {
	p, err := decodeParams[AppendMemoryBlockParams](argsJSON)
	if err != nil {
		return "", err
	}
	if p.AgentID == "" || p.Key == "" {
		return "", fmt.Errorf("agent_id and key are required")
	}

	res, err := s.engine.AppendMemoryBlock(p.AgentID, p.Scope, p.Key, p.Text)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString(s.formatter.header("append_memory_block"))
	if res.Truncated {
		sb.WriteString("warning: block exceeds the recommended size\n")
	}
	sb.WriteString(fmt.Sprintf("block %s is now %d bytes\n", p.Key, len(res.Value)))
	return sb.String(), nil
}
