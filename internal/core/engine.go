// Package core implements the conflict-resolution and recall engine: the
// remember-facts pipeline, the store-memory path, recall, forget, the
// memory-block tools, and the administrative chunk mutation API. It is
// the orchestration layer over internal/store (schema + query layer),
// internal/strength (pure scoring math), and internal/extraction (the
// LLM capability calls), matching the teacher's internal/memory/service.go
// role as the service layer sitting above the database package.
package core

import (
	"time"

	"github.com/factengine/factengine/internal/capability"
	"github.com/factengine/factengine/internal/logging"
	"github.com/factengine/factengine/internal/store"
)

var log = logging.GetLogger("core")

// Tunable thresholds and caps. Named after the specification's constants
// in Go case (DuplicateBand is its DUPLICATE threshold) so the grounding
// between prose and code stays legible.
const (
	MaxTextLength   = 10000
	Ambiguous       = 0.78
	DuplicateBand   = 0.93
	TopK            = 5
	MaxSearchFacts  = 10000
	MaxSearchChunks = 10000
	MinSimilarity   = 0.1

	DefaultRecallLimit = 10
	MinRecallLimit     = 1
	MaxRecallLimit     = 50

	DefaultForgetThreshold = 0.7

	MaxBlockWarnBytes = 100 * 1024
)

// Engine is the no-implicit-global-state context every core operation is
// a method of: the store handle and the borrowed capability objects, with
// explicit lifetime owned by the caller.
type Engine struct {
	Store    *store.Store
	Embedder capability.Embedder
	LLM      capability.LLMClient
	Now      func() time.Time
}

// New constructs an Engine. embedder and llm are borrowed: the engine
// does not outlive them.
func New(st *store.Store, embedder capability.Embedder, llm capability.LLMClient) *Engine {
	return &Engine{
		Store:    st,
		Embedder: embedder,
		LLM:      llm,
		Now:      func() time.Time { return time.Now().UTC() },
	}
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now().UTC()
}

func normalizeScopePtr(scope *string) string {
	return store.NormalizeScope(scope)
}

func clampRecallLimit(limit int) int {
	if limit <= 0 {
		return DefaultRecallLimit
	}
	if limit < MinRecallLimit {
		return MinRecallLimit
	}
	if limit > MaxRecallLimit {
		return MaxRecallLimit
	}
	return limit
}
