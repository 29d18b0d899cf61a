package ingest

import "log/slog"

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithChunker replaces the hierarchical chunker used for both ingestion
// shapes.
func WithChunker(c *HierarchicalChunker) PipelineOption {
	return func(p *Pipeline) { p.chunker = c }
}

// WithExtractor registers a PageExtractor for a file extension (without the
// dot, e.g. "pdf").
func WithExtractor(ext string, e PageExtractor) PipelineOption {
	return func(p *Pipeline) { p.extractors[ext] = e }
}

// WithFallbackExtractor sets the extractor used when no registered extension
// matches (default: plain text).
func WithFallbackExtractor(e PageExtractor) PipelineOption {
	return func(p *Pipeline) { p.fallback = e }
}

// WithBatchSize sets the number of chunks per vector index write (default 50).
func WithBatchSize(n int) PipelineOption {
	return func(p *Pipeline) { p.batchSize = n }
}

// WithParallelism sets the bounded worker count for batch writes (default 10).
func WithParallelism(n int) PipelineOption {
	return func(p *Pipeline) { p.workers = n }
}

// WithKnowledgeBases sets the knowledge_bases tags stamped on flat-ingested
// chunks (default: general, pdfs).
func WithKnowledgeBases(tags ...string) PipelineOption {
	return func(p *Pipeline) { p.knowledgeBases = tags }
}

// WithLogger sets a structured logger for ingestion progress and timing.
// If not set, no logs are emitted.
func WithLogger(l *slog.Logger) PipelineOption {
	return func(p *Pipeline) { p.logger = l }
}
