package plan

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultOllamaURL = "http://localhost:11434/api/embeddings"
	embedTimeout     = 60 * time.Second
)

// OllamaEmbedder calls an Ollama-compatible embedding API.
type OllamaEmbedder struct {
	Model  string
	url    string
	client *http.Client
}

// NewOllamaEmbedder creates an embedder. An empty baseURL uses the
// local Ollama default.
func NewOllamaEmbedder(baseURL, model string) *OllamaEmbedder {
	url := defaultOllamaURL
	if baseURL != "" {
		url = strings.TrimSuffix(baseURL, "/") + "/api/embeddings"
	}
	return &OllamaEmbedder{
		Model:  model,
		url:    url,
		client: &http.Client{Timeout: embedTimeout},
	}
}

// ollamaRequest is the request body for the embeddings API.
type ollamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

// ollamaResponse is the response body from the embeddings API.
type ollamaResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Embed returns the embedding vector for a single text input. The
// caller checks the vector length; a mismatch is a per-row skip.
func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	reqBody := ollamaRequest{
		Model:  e.Model,
		Prompt: text,
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling embeddings API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("embeddings API returned %d: %s", resp.StatusCode, string(body))
	}

	var parsed ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decoding embeddings response: %w", err)
	}
	return parsed.Embedding, nil
}
