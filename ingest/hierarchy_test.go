package ingest

import (
	"strings"
	"testing"

	"github.com/nevindra/docrag"
)

func testHierarchy() *HierarchicalChunker {
	return NewHierarchicalChunker(
		WithParentChunker(NewTokenChunker(WithChunkSize(10), WithChunkOverlap(8))),
		WithChildChunker(NewTokenChunker(WithChunkSize(4), WithChunkOverlap(4))),
	)
}

func TestHierarchicalChunkerFlat(t *testing.T) {
	h := testHierarchy()
	text := strings.Repeat("flat mode goes straight to child size. ", 10)

	flat := h.ChunkFlat(docrag.Document{Text: text})
	direct := NewTokenChunker(WithChunkSize(4), WithChunkOverlap(4)).Chunk(docrag.Document{Text: text})
	if len(flat) != len(direct) {
		t.Fatalf("flat mode produced %d chunks, child chunker alone %d", len(flat), len(direct))
	}
	for i := range flat {
		if flat[i].Text != direct[i].Text {
			t.Errorf("chunk %d differs from direct child chunking", i)
		}
	}
}

func TestHierarchicalChunkerChildren(t *testing.T) {
	h := testHierarchy()
	text := strings.Repeat("two level decomposition splits twice over. ", 12)
	doc := docrag.Document{Text: text, Metadata: docrag.Metadata{docrag.MetaTopic: "testing"}}

	// Recompute the two-level decomposition with standalone chunkers to
	// check the flattened child count.
	parents := NewTokenChunker(WithChunkSize(10), WithChunkOverlap(8)).Chunk(doc)
	if len(parents) < 2 {
		t.Fatalf("expected multiple parent chunks, got %d", len(parents))
	}

	children := h.ChunkChildren(doc)
	var want int
	for _, p := range parents {
		want += len(h.ChunkFlat(p))
	}
	if len(children) != want {
		t.Errorf("ChunkChildren returned %d chunks, want %d (sum over parents)", len(children), want)
	}
	for i, c := range children {
		if c.Metadata.String(docrag.MetaTopic) != "testing" {
			t.Fatalf("child %d lost source metadata", i)
		}
	}
}

func TestHierarchicalChunkerDeterministic(t *testing.T) {
	h := testHierarchy()
	doc := docrag.Document{Text: strings.Repeat("same input, same output, every time. ", 15)}

	a := h.ChunkChildren(doc)
	b := h.ChunkChildren(doc)
	if len(a) != len(b) {
		t.Fatalf("child counts differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].Text != b[i].Text {
			t.Errorf("child %d differs between runs", i)
		}
	}
}
