package openaicompat

import (
	"context"
	"fmt"
	"sort"
)

// Embedding implements docrag.EmbeddingProvider over the embeddings endpoint.
type Embedding struct {
	common
	dimensions int
}

// NewEmbedding creates an OpenAI-compatible embedding provider.
func NewEmbedding(apiKey, model, baseURL string, dimensions int, opts ...ProviderOption) *Embedding {
	return &Embedding{
		common:     newCommon(apiKey, model, baseURL, opts),
		dimensions: dimensions,
	}
}

// Name returns the provider name.
func (e *Embedding) Name() string { return e.name }

// Dimensions returns the embedding vector size.
func (e *Embedding) Dimensions() int { return e.dimensions }

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Embed returns one vector per input text, in input order.
func (e *Embedding) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	var resp embedResponse
	if err := e.post(ctx, "/embeddings", embedRequest{Model: e.model, Input: texts}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("%s: got %d embeddings for %d texts", e.name, len(resp.Data), len(texts))
	}

	sort.Slice(resp.Data, func(i, j int) bool { return resp.Data[i].Index < resp.Data[j].Index })
	out := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		out[i] = d.Embedding
	}
	return out, nil
}
