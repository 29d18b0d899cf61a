package docrag

import (
	"context"
	"fmt"
	"io"
	"log/slog"
)

// RetrieverOption configures a ParentChildRetriever.
type RetrieverOption func(*ParentChildRetriever)

// WithRetrieverTopK sets how many child chunks the similarity search
// returns before parent resolution (default 5).
func WithRetrieverTopK(k int) RetrieverOption {
	return func(r *ParentChildRetriever) { r.topK = k }
}

// WithRetrieverLogger sets a structured logger. If not set, no logs are
// emitted.
func WithRetrieverLogger(l *slog.Logger) RetrieverOption {
	return func(r *ParentChildRetriever) { r.logger = l }
}

// ParentChildRetriever answers a query with the distinct parent documents
// referenced by the best-matching child chunks: it searches the vector index
// at child granularity, collapses the children's parent_id metadata to a set,
// and fetches those parents from the ParentStore.
//
// The returned slice follows set-iteration order over the distinct parent
// ids, NOT the similarity ranking of the children. Callers that need
// relevance-ordered parents must rank on their side.
type ParentChildRetriever struct {
	index   VectorIndex
	parents ParentStore
	topK    int
	logger  *slog.Logger
}

// NewParentChildRetriever creates a retriever over the given index and
// parent store.
func NewParentChildRetriever(index VectorIndex, parents ParentStore, opts ...RetrieverOption) *ParentChildRetriever {
	r := &ParentChildRetriever{
		index:   index,
		parents: parents,
		topK:    5,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Retrieve returns the distinct parent documents relevant to query.
// Children without a parent_id are skipped; parent ids with no stored
// parent are dropped silently.
func (r *ParentChildRetriever) Retrieve(ctx context.Context, query string) ([]Document, error) {
	children, err := r.index.SimilaritySearch(ctx, SearchRequest{Query: query, TopK: r.topK})
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}

	parentIDs := make(map[string]struct{})
	for _, child := range children {
		id := child.Metadata.String(MetaParentID)
		if id == "" {
			continue
		}
		parentIDs[id] = struct{}{}
	}

	docs := make([]Document, 0, len(parentIDs))
	for id := range parentIDs {
		doc, ok := r.parents.Get(id)
		if !ok {
			r.logger.Debug("parent not in store, dropping", "parent_id", id)
			continue
		}
		docs = append(docs, doc)
	}

	r.logger.Info("retrieved parents",
		"children", len(children),
		"distinct_parents", len(parentIDs),
		"returned", len(docs))
	return docs, nil
}
