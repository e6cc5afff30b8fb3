// Package testutil provides shared test fixtures for factengine: fake
// embedding/LLM capabilities with deterministic, scriptable behavior, so
// engine tests never depend on a live model endpoint.
package testutil

import (
	"context"
	"sync"

	"github.com/factengine/factengine/internal/capability"
)

// FakeEmbedder returns a caller-configured vector for each input text, or
// falls back to a simple deterministic hash-based vector if none was
// configured for that exact text.
type FakeEmbedder struct {
	mu       sync.Mutex
	Dim      int
	Vectors  map[string][]float32
	CallLog  []string
}

// NewFakeEmbedder creates a FakeEmbedder producing vectors of dimension
// dim when no explicit vector has been registered for a text.
func NewFakeEmbedder(dim int) *FakeEmbedder {
	return &FakeEmbedder{Dim: dim, Vectors: make(map[string][]float32)}
}

// Set registers the exact vector to return for text.
func (f *FakeEmbedder) Set(text string, vec []float32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Vectors[text] = vec
}

func (f *FakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.CallLog = append(f.CallLog, text)

	if v, ok := f.Vectors[text]; ok {
		return v, nil
	}
	return hashVector(text, f.Dim), nil
}

func hashVector(text string, dim int) []float32 {
	v := make([]float32, dim)
	var h uint32 = 2166136261
	for i := 0; i < len(text); i++ {
		h ^= uint32(text[i])
		h *= 16777619
	}
	for i := range v {
		h ^= uint32(i) * 2654435761
		h *= 16777619
		v[i] = float32(h%1000) / 1000.0
	}
	return v
}

var _ capability.Embedder = (*FakeEmbedder)(nil)

// FakeLLMClient returns a caller-configured queue of responses, one per
// call, so tests can script extraction/classification outcomes exactly.
type FakeLLMClient struct {
	mu        sync.Mutex
	Responses []string
	CallCount int
	LastSystem string
	LastMessages []capability.Message
}

func NewFakeLLMClient(responses ...string) *FakeLLMClient {
	return &FakeLLMClient{Responses: responses}
}

func (f *FakeLLMClient) Complete(ctx context.Context, messages []capability.Message, systemPrompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	f.LastSystem = systemPrompt
	f.LastMessages = messages

	if f.CallCount >= len(f.Responses) {
		f.CallCount++
		return "", nil
	}
	resp := f.Responses[f.CallCount]
	f.CallCount++
	return resp, nil
}

var _ capability.LLMClient = (*FakeLLMClient)(nil)
