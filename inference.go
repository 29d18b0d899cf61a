package docrag

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
)

const answerPromptTemplate = `You are a helpful assistant that answers user questions using ONLY the information in the Documents.

RULES (read carefully):
1. You MUST NOT use any information that is not explicitly present in the Documents.
2. If the answer is not supported by the Documents, respond with EXACTLY:
   "I don't have enough information to answer that question."
3. Do NOT use prior knowledge.

Documents:
%s

User question:
%s

Answer:
`

// AnswererOption configures an Answerer.
type AnswererOption func(*Answerer)

// WithAnswerTopK sets how many chunks ground an answer (default 3).
func WithAnswerTopK(k int) AnswererOption {
	return func(a *Answerer) { a.topK = k }
}

// WithAnswerThreshold sets the minimum similarity score for grounding
// chunks (default 0.6).
func WithAnswerThreshold(t float32) AnswererOption {
	return func(a *Answerer) { a.threshold = t }
}

// WithAnswerLogger sets a structured logger. If not set, no logs are emitted.
func WithAnswerLogger(l *slog.Logger) AnswererOption {
	return func(a *Answerer) { a.logger = l }
}

// Answerer generates grounded answers: it fetches the most similar chunks
// from the vector index and asks the Provider to answer strictly from them.
type Answerer struct {
	index     VectorIndex
	provider  Provider
	topK      int
	threshold float32
	logger    *slog.Logger
}

// NewAnswerer creates an Answerer over the given index and provider.
func NewAnswerer(index VectorIndex, provider Provider, opts ...AnswererOption) *Answerer {
	a := &Answerer{
		index:     index,
		provider:  provider,
		topK:      3,
		threshold: 0.6,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Search returns the chunks that would ground an answer to query, with
// their similarity scores.
func (a *Answerer) Search(ctx context.Context, query string) ([]ScoredDocument, error) {
	start := time.Now()
	docs, err := a.index.SimilaritySearch(ctx, SearchRequest{
		Query:     query,
		TopK:      a.topK,
		Threshold: a.threshold,
	})
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}
	for _, doc := range docs {
		a.logger.Debug("retrieved chunk", "score", doc.Score, "metadata", doc.Metadata)
	}
	a.logger.Info("inference search", "query", query, "docs", len(docs), "took", time.Since(start))
	return docs, nil
}

// Answer searches for grounding chunks and asks the provider for an answer
// supported only by them.
func (a *Answerer) Answer(ctx context.Context, query string) (string, error) {
	docs, err := a.Search(ctx, query)
	if err != nil {
		return "", err
	}

	texts := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = doc.Text
	}
	prompt := fmt.Sprintf(answerPromptTemplate, strings.Join(texts, "\n\n"), query)

	answer, err := a.provider.Complete(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("complete: %w", err)
	}
	return strings.TrimSpace(answer), nil
}
