// Package openaicompat provides docrag.Provider and
// docrag.EmbeddingProvider implementations for any OpenAI-compatible API.
//
// Works with OpenAI, OpenRouter, Groq, Together, DeepSeek, Mistral, Ollama,
// vLLM, LM Studio, and any other backend implementing the OpenAI chat
// completions and embeddings endpoints.
package openaicompat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// ProviderOption configures a Provider or Embedding.
type ProviderOption func(*common)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(c *http.Client) ProviderOption {
	return func(p *common) { p.client = c }
}

// WithName overrides the provider name reported by Name() (default "openai").
func WithName(name string) ProviderOption {
	return func(p *common) { p.name = name }
}

// WithLogger sets a structured logger for request timing.
func WithLogger(l *slog.Logger) ProviderOption {
	return func(p *common) { p.logger = l }
}

type common struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
	name    string
	logger  *slog.Logger
}

func newCommon(apiKey, model, baseURL string, opts []ProviderOption) common {
	c := common{
		apiKey:  apiKey,
		model:   model,
		baseURL: baseURL,
		client:  &http.Client{},
		name:    "openai",
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, o := range opts {
		o(&c)
	}
	return c
}

// post sends a JSON body to baseURL+path and decodes the JSON response into out.
func (c *common) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%s: encode request: %w", c.name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%s: build request: %w", c.name, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", c.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%s: http %d: %s", c.name, resp.StatusCode, msg)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", c.name, err)
	}

	c.logger.Debug("request ok", "provider", c.name, "path", path, "duration", time.Since(start))
	return nil
}

// Provider implements docrag.Provider over the chat completions endpoint.
type Provider struct {
	common
}

// NewProvider creates an OpenAI-compatible completion provider. baseURL is
// the API base (e.g. "https://api.openai.com/v1"); the /chat/completions
// path is appended automatically.
func NewProvider(apiKey, model, baseURL string, opts ...ProviderOption) *Provider {
	return &Provider{common: newCommon(apiKey, model, baseURL, opts)}
}

// Name returns the provider name.
func (p *Provider) Name() string { return p.name }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Complete sends prompt as a single user message and returns the model's text.
func (p *Provider) Complete(ctx context.Context, prompt string) (string, error) {
	body := chatRequest{
		Model:    p.model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
	}
	var resp chatResponse
	if err := p.post(ctx, "/chat/completions", body, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s: empty response", p.name)
	}
	return resp.Choices[0].Message.Content, nil
}
