// Package plan implements the AI collaborator clients: a Gemini-style
// chart planner / row ranker and an Ollama-compatible embedder. The
// clients only shape requests and parse responses; every fallback
// decision lives in the pipeline.
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

	"github.com/gaurav-prasanna/tablepipe/core"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	planTimeout    = 60 * time.Second

	defaultPlanSystem = "You design charts for tabular data. Respond with a JSON array of " +
		`chart specs: {"title","type":"bar|line|pie","x","y","agg":"count|sum|mean","groupBy","filter","note"}. ` +
		"Respond with JSON only."
)

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL overrides the API base URL (used by tests).
func WithBaseURL(u string) ClientOption {
	return func(c *Client) { c.baseURL = strings.TrimSuffix(u, "/") }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.client = hc }
}

// Client calls a Gemini-style generateContent API for chart planning
// and row-importance ranking.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

// NewClient creates a planner client.
func NewClient(apiKey, model string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: defaultBaseURL,
		apiKey:  apiKey,
		model:   model,
		client:  &http.Client{Timeout: planTimeout},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Plan asks the model for chart specs over the column set and sample.
// A malformed response is an error; the caller falls back.
func (c *Client) Plan(ctx context.Context, columns []string, sample []core.Row, system string) ([]core.ChartSpec, error) {
	if system == "" {
		system = defaultPlanSystem
	}
	prompt, err := planPrompt(columns, sample)
	if err != nil {
		return nil, err
	}
	text, err := c.generate(ctx, system, prompt)
	if err != nil {
		return nil, err
	}
	var specs []core.ChartSpec
	if err := json.Unmarshal([]byte(stripFences(text)), &specs); err != nil {
		return nil, fmt.Errorf("decoding chart specs: %w", err)
	}
	valid := specs[:0]
	for _, s := range specs {
		if s.Type == "bar" || s.Type == "line" || s.Type == "pie" {
			valid = append(valid, s)
		}
	}
	if len(valid) == 0 {
		return nil, fmt.Errorf("no usable chart specs in response")
	}
	return valid, nil
}

// Rank asks the model for up to 200 row indices worth embedding.
func (c *Client) Rank(ctx context.Context, columns []string, rows []core.Row) ([]int, error) {
	prompt, err := rankPrompt(columns, rows)
	if err != nil {
		return nil, err
	}
	system := "You pick a diverse, informative subset of table rows. Respond with a JSON array " +
		"of at most 200 zero-based row indices. Respond with JSON only."
	text, err := c.generate(ctx, system, prompt)
	if err != nil {
		return nil, err
	}
	var indices []int
	if err := json.Unmarshal([]byte(stripFences(text)), &indices); err != nil {
		return nil, fmt.Errorf("decoding row indices: %w", err)
	}
	if len(indices) > core.MaxEmbedRows {
		indices = indices[:core.MaxEmbedRows]
	}
	return indices, nil
}

// --- Request plumbing ---

type generateRequest struct {
	Contents          []content `json:"contents"`
	SystemInstruction *content  `json:"systemInstruction,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

func (c *Client) generate(ctx context.Context, system, prompt string) (string, error) {
	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)

	body := generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}},
	}
	if system != "" {
		body.SystemInstruction = &content{Parts: []part{{Text: system}}}
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling planner API: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading planner response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("planner API returned %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed generateResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("decoding planner response: %w", err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty planner response")
	}
	return parsed.Candidates[0].Content.Parts[0].Text, nil
}

// planPrompt bounds the sample it ships to keep requests small.
func planPrompt(columns []string, sample []core.Row) (string, error) {
	if len(sample) > core.SnapshotSampleRows {
		sample = sample[:core.SnapshotSampleRows]
	}
	cols, err := json.Marshal(columns)
	if err != nil {
		return "", err
	}
	rows, err := json.Marshal(sample)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Columns: %s\nSample rows: %s\nPropose up to 3 charts.", cols, rows), nil
}

func rankPrompt(columns []string, rows []core.Row) (string, error) {
	const promptRowCap = 500
	if len(rows) > promptRowCap {
		rows = rows[:promptRowCap]
	}
	cols, err := json.Marshal(columns)
	if err != nil {
		return "", err
	}
	data, err := json.Marshal(rows)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Columns: %s\nRows: %s\nPick the most informative row indices.", cols, data), nil
}

// stripFences removes a markdown code fence around a JSON response.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.Index(s, "\n"); i != -1 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
