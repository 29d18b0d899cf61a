package docrag

import "context"

// VectorIndex abstracts the external vector similarity search engine.
// Implementations are expected to tolerate concurrent Add calls from
// multiple ingestion batches; the pipeline issues no locking of its own.
type VectorIndex interface {
	// Add stores one batch of chunks. The whole batch fails or succeeds
	// as the implementation sees fit; partial writes are not rolled back
	// by the caller.
	Add(ctx context.Context, docs []Document) error

	// SimilaritySearch returns up to req.TopK chunks ranked by similarity
	// to req.Query, each with its score.
	SimilaritySearch(ctx context.Context, req SearchRequest) ([]ScoredDocument, error)
}
