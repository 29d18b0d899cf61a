// Package docrag provides building blocks for retrieval-augmented generation
// over long-form documents: token-budget chunking with overlap, a parent/child
// document model, a concurrent batch-ingestion pipeline, and retrieval that
// reassembles matched child chunks into their parent documents.
//
// The root package holds the domain model and the interfaces that external
// collaborators implement: VectorIndex (vector similarity search engine),
// Provider (LLM completion), EmbeddingProvider (text embedding), and
// ParentStore (keyed parent document storage).
//
// Functionality lives in subpackages:
//
//   - ingest:               chunkers, extractors, topic detection, pipeline
//   - ingest/pdf:           PDF page extraction
//   - ingest/html:          web page extraction
//   - ingest/markdown:      markdown section extraction
//   - store/sqlite:         VectorIndex on pure-Go SQLite
//   - store/postgres:       VectorIndex on PostgreSQL + pgvector
//   - provider/openaicompat: Provider/EmbeddingProvider over OpenAI-style APIs
//   - observer:             OpenTelemetry instrumentation
package docrag
