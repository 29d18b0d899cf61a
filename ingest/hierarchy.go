package ingest

import "github.com/nevindra/docrag"

// HierarchyOption configures a HierarchicalChunker.
type HierarchyOption func(*HierarchicalChunker)

// WithParentChunker replaces the parent-granularity chunker
// (default: 1200 tokens, 240 chars overlap).
func WithParentChunker(c Chunker) HierarchyOption {
	return func(h *HierarchicalChunker) { h.parent = c }
}

// WithChildChunker replaces the child-granularity chunker
// (default: 400 tokens, 60 chars overlap).
func WithChildChunker(c Chunker) HierarchyOption {
	return func(h *HierarchicalChunker) { h.child = c }
}

// HierarchicalChunker composes two independently configured chunkers into a
// two-level decomposition: coarse parent chunks, each split again into fine
// child chunks. Output is deterministic for fixed input and parameters.
type HierarchicalChunker struct {
	parent Chunker
	child  Chunker
}

// NewHierarchicalChunker creates a HierarchicalChunker with the default
// parent/child budgets.
func NewHierarchicalChunker(opts ...HierarchyOption) *HierarchicalChunker {
	h := &HierarchicalChunker{
		parent: NewTokenChunker(WithChunkSize(1200), WithChunkOverlap(240)),
		child:  NewTokenChunker(WithChunkSize(400), WithChunkOverlap(60)),
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

// ChunkFlat splits doc directly to child granularity, ignoring the parent
// level. Used when parent/child retrieval is not needed.
func (h *HierarchicalChunker) ChunkFlat(doc docrag.Document) []docrag.Document {
	return h.child.Chunk(doc)
}

// ChunkChildren splits doc into parent chunks, splits each parent chunk into
// child chunks, and returns the flattened children. Persisting the parents
// is the ingestion orchestration's job, not this component's.
func (h *HierarchicalChunker) ChunkChildren(doc docrag.Document) []docrag.Document {
	var children []docrag.Document
	for _, p := range h.parent.Chunk(doc) {
		children = append(children, h.child.Chunk(p)...)
	}
	return children
}
