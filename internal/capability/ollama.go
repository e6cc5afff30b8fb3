package capability

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/factengine/factengine/internal/engineerr"
	"github.com/factengine/factengine/internal/logging"
)

var log = logging.GetLogger("capability")

// OllamaEmbedder implements Embedder against an Ollama-compatible
// /api/embeddings endpoint.
type OllamaEmbedder struct {
	BaseURL string
	Model   string
	APIKey  string

	httpClient *http.Client
}

// NewOllamaEmbedder constructs an embedder bound to baseURL/model.
func NewOllamaEmbedder(baseURL, model, apiKey string) *OllamaEmbedder {
	return &OllamaEmbedder{
		BaseURL: baseURL,
		Model:   model,
		APIKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type embedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embedResponse struct {
	Embedding []float64 `json:"embedding"`
}

// Embed calls the embeddings endpoint, propagating ctx cancellation.
func (o *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(embedRequest{Model: o.Model, Prompt: text})
	if err != nil {
		return nil, engineerr.Wrap(engineerr.Fatal, "failed to marshal embed request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.BaseURL+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, engineerr.Wrap(engineerr.Fatal, "failed to build embed request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if o.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+o.APIKey)
	}

	resp, err := o.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, engineerr.Wrap(engineerr.Cancelled, "embed call cancelled", ctx.Err())
		}
		return nil, engineerr.Wrap(engineerr.Fatal, "embed request failed", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, engineerr.Wrap(engineerr.Fatal, "failed to read embed response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, engineerr.New(engineerr.Fatal, fmt.Sprintf("embed endpoint returned %d: %s", resp.StatusCode, string(data)))
	}

	var parsed embedResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, engineerr.Wrap(engineerr.Fatal, "failed to parse embed response", err)
	}

	out := make([]float32, len(parsed.Embedding))
	for i, v := range parsed.Embedding {
		out[i] = float32(v)
	}
	return out, nil
}

// OllamaChatClient implements LLMClient against an Ollama-compatible
// /api/chat endpoint.
type OllamaChatClient struct {
	BaseURL string
	Model   string
	APIKey  string

	httpClient *http.Client
}

// NewOllamaChatClient constructs an LLM client bound to baseURL/model.
func NewOllamaChatClient(baseURL, model, apiKey string) *OllamaChatClient {
	return &OllamaChatClient{
		BaseURL: baseURL,
		Model:   model,
		APIKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chatResponse struct {
	Message chatMessage `json:"message"`
}

// Complete sends messages (with systemPrompt prepended as a system
// message, if non-empty) and returns the assistant's text.
func (o *OllamaChatClient) Complete(ctx context.Context, messages []Message, systemPrompt string) (string, error) {
	var wire []chatMessage
	if systemPrompt != "" {
		wire = append(wire, chatMessage{Role: "system", Content: systemPrompt})
	}
	for _, m := range messages {
		wire = append(wire, chatMessage{Role: m.Role, Content: m.Content})
	}

	body, err := json.Marshal(chatRequest{Model: o.Model, Messages: wire, Stream: false})
	if err != nil {
		return "", engineerr.Wrap(engineerr.Fatal, "failed to marshal chat request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.BaseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", engineerr.Wrap(engineerr.Fatal, "failed to build chat request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if o.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+o.APIKey)
	}

	resp, err := o.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", engineerr.Wrap(engineerr.Cancelled, "chat call cancelled", ctx.Err())
		}
		return "", engineerr.Wrap(engineerr.Fatal, "chat request failed", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", engineerr.Wrap(engineerr.Fatal, "failed to read chat response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", engineerr.New(engineerr.Fatal, fmt.Sprintf("chat endpoint returned %d: %s", resp.StatusCode, string(data)))
	}

	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		log.Error("failed to parse chat response", "error", err)
		return "", engineerr.Wrap(engineerr.Fatal, "failed to parse chat response", err)
	}
	return parsed.Message.Content, nil
}
