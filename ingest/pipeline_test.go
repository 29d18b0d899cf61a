package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/nevindra/docrag"
)

// mockIndex records every batch it receives and can be told to fail a
// specific call.
type mockIndex struct {
	mu      sync.Mutex
	batches [][]docrag.Document
	calls   int
	failOn  int // 1-based call number to fail; 0 = never
}

func (m *mockIndex) Add(ctx context.Context, docs []docrag.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.failOn > 0 && m.calls == m.failOn {
		return errors.New("index unavailable")
	}
	batch := make([]docrag.Document, len(docs))
	copy(batch, docs)
	m.batches = append(m.batches, batch)
	return nil
}

func (m *mockIndex) SimilaritySearch(ctx context.Context, req docrag.SearchRequest) ([]docrag.ScoredDocument, error) {
	return nil, nil
}

// mockProvider answers every completion with a fixed string.
type mockProvider struct {
	answer string
	err    error
}

func (m *mockProvider) Complete(ctx context.Context, prompt string) (string, error) {
	return m.answer, m.err
}

func (m *mockProvider) Name() string { return "mock" }

// staticExtractor returns canned pages for any source.
type staticExtractor struct {
	pages []Page
	err   error
}

func (s staticExtractor) ExtractPages(ctx context.Context, source string) ([]Page, error) {
	return s.pages, s.err
}

// countChunker emits a fixed number of one-word chunks regardless of input,
// so batch partitioning can be tested with exact counts.
type countChunker struct{ n int }

func (c countChunker) Chunk(doc docrag.Document) []docrag.Document {
	out := make([]docrag.Document, c.n)
	for i := range out {
		out[i] = docrag.NewDocument(fmt.Sprintf("chunk-%03d", i), doc.Metadata)
	}
	return out
}

func testPipeline(idx docrag.VectorIndex, parents docrag.ParentStore, opts ...PipelineOption) *Pipeline {
	topics := NewTopicClassifier(&mockProvider{answer: " Bitcoin\n"})
	base := []PipelineOption{
		WithFallbackExtractor(staticExtractor{pages: []Page{{Number: 1, Text: "page one text"}}}),
	}
	return NewPipeline(idx, parents, topics, append(base, opts...)...)
}

func TestPipelineIngestBatchPartition(t *testing.T) {
	idx := &mockIndex{}
	p := testPipeline(idx, docrag.NewMemoryParentStore(),
		WithChunker(NewHierarchicalChunker(WithChildChunker(countChunker{n: 237}))),
		WithBatchSize(50),
		WithParallelism(4),
	)

	res, err := p.Ingest(context.Background(), "doc.txt")
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if res.ChunkCount != 237 {
		t.Errorf("ChunkCount = %d, want 237", res.ChunkCount)
	}
	if res.Topic != "bitcoin" {
		t.Errorf("Topic = %q, want %q", res.Topic, "bitcoin")
	}
	if res.Timing.Batches != 5 {
		t.Errorf("Batches = %d, want 5", res.Timing.Batches)
	}

	// Batches may complete in any order, but together they must cover every
	// chunk exactly once.
	if len(idx.batches) != 5 {
		t.Fatalf("index received %d batches, want 5", len(idx.batches))
	}
	seen := make(map[string]int)
	sizes := make(map[int]int)
	for _, batch := range idx.batches {
		if len(batch) > 50 {
			t.Errorf("batch of %d chunks exceeds batch size 50", len(batch))
		}
		sizes[len(batch)]++
		for _, d := range batch {
			seen[d.Text]++
		}
	}
	if sizes[50] != 4 || sizes[37] != 1 {
		t.Errorf("batch sizes = %v, want four of 50 and one of 37", sizes)
	}
	for i := 0; i < 237; i++ {
		key := fmt.Sprintf("chunk-%03d", i)
		if seen[key] != 1 {
			t.Errorf("chunk %s written %d times, want exactly once", key, seen[key])
		}
	}
}

func TestPipelineIngestFailFast(t *testing.T) {
	idx := &mockIndex{failOn: 3}
	p := testPipeline(idx, docrag.NewMemoryParentStore(),
		WithChunker(NewHierarchicalChunker(WithChildChunker(countChunker{n: 237}))),
		WithBatchSize(50),
		WithParallelism(2),
	)

	_, err := p.Ingest(context.Background(), "doc.txt")
	if err == nil {
		t.Fatal("expected batch failure to fail the run")
	}
	var bwe *docrag.BatchWriteError
	if !errors.As(err, &bwe) {
		t.Fatalf("error %v is not a BatchWriteError", err)
	}
	if bwe.End-bwe.Start != 50 && bwe.End-bwe.Start != 37 {
		t.Errorf("failed batch spans [%d,%d), not a dispatch-sized range", bwe.Start, bwe.End)
	}

	// Fail-fast, not abort: every dispatched batch ran exactly once, nothing
	// was retried, and already-written batches stay written.
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.calls != 5 {
		t.Errorf("index received %d calls, want 5 (no retries, no cancellation)", idx.calls)
	}
	if len(idx.batches) != 4 {
		t.Errorf("%d batches persisted, want 4 (failed batch not rolled back elsewhere)", len(idx.batches))
	}
}

func TestPipelineIngestFlatMetadata(t *testing.T) {
	idx := &mockIndex{}
	p := testPipeline(idx, docrag.NewMemoryParentStore(),
		WithKnowledgeBases("manuals"),
	)

	if _, err := p.Ingest(context.Background(), "doc.txt"); err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if len(idx.batches) == 0 || len(idx.batches[0]) == 0 {
		t.Fatal("no chunks written")
	}
	meta := idx.batches[0][0].Metadata
	if meta.String(docrag.MetaTopic) != "bitcoin" {
		t.Errorf("topic = %q, want bitcoin", meta.String(docrag.MetaTopic))
	}
	if meta.String(docrag.MetaPath) != "doc.txt" {
		t.Errorf("path = %q, want doc.txt", meta.String(docrag.MetaPath))
	}
	kbs, ok := meta[docrag.MetaKnowledgeBases].([]string)
	if !ok || len(kbs) != 1 || kbs[0] != "manuals" {
		t.Errorf("knowledge_bases = %v, want [manuals]", meta[docrag.MetaKnowledgeBases])
	}
	if _, present := meta[docrag.MetaParentID]; present {
		t.Error("flat ingestion must not stamp parent_id")
	}
}

func TestPipelineIngestHierarchical(t *testing.T) {
	idx := &mockIndex{}
	parents := docrag.NewMemoryParentStore()
	pages := []Page{
		{Number: 1, Text: "first page talks about wallets and keys at some length."},
		{Number: 2, Text: "second page covers mining difficulty and block rewards."},
	}
	p := testPipeline(idx, parents,
		WithFallbackExtractor(staticExtractor{pages: pages}),
		WithChunker(NewHierarchicalChunker(
			WithParentChunker(NewTokenChunker(WithChunkSize(8))),
			WithChildChunker(NewTokenChunker(WithChunkSize(3))),
		)),
	)

	res, err := p.IngestHierarchical(context.Background(), "doc.pdf")
	if err != nil {
		t.Fatalf("IngestHierarchical: %v", err)
	}
	if parents.Size() != len(pages) {
		t.Fatalf("parent store holds %d documents, want one per page (%d)", parents.Size(), len(pages))
	}
	for _, parent := range parents.GetAll() {
		if parent.Text != pages[0].Text && parent.Text != pages[1].Text {
			t.Error("stored parent is not a whole page")
		}
	}

	var written int
	for _, batch := range idx.batches {
		for _, child := range batch {
			written++
			parentID := child.Metadata.String(docrag.MetaParentID)
			if parentID == "" {
				t.Fatal("child chunk missing parent_id")
			}
			parent, ok := parents.Get(parentID)
			if !ok {
				t.Fatalf("child references unknown parent %s", parentID)
			}
			if parent.Metadata.String(docrag.MetaTopic) != "bitcoin" {
				t.Errorf("parent topic = %q, want bitcoin", parent.Metadata.String(docrag.MetaTopic))
			}
			if child.Metadata.String(docrag.MetaPage) != parent.Metadata.String(docrag.MetaPage) {
				t.Error("child page metadata differs from its parent's")
			}
		}
	}
	if written != res.ChunkCount {
		t.Errorf("ChunkCount = %d but %d chunks written", res.ChunkCount, written)
	}
}

func TestPipelineIngestAllIsolatesFailures(t *testing.T) {
	idx := &mockIndex{}
	broken := staticExtractor{err: &docrag.SourceError{Source: "bad.txt", Err: errors.New("unreadable")}}
	p := testPipeline(idx, docrag.NewMemoryParentStore(),
		WithExtractor("bad", broken),
	)

	results, err := p.IngestAll(context.Background(), []string{"ok-one.txt", "broken.bad", "ok-two.txt"})
	if err == nil {
		t.Fatal("expected the broken source to surface an error")
	}
	var se *docrag.SourceError
	if !errors.As(err, &se) {
		t.Fatalf("error %v is not a SourceError", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d successful results, want 2", len(results))
	}
	for _, r := range results {
		if r.Source == "broken.bad" {
			t.Error("failed source reported as a success")
		}
	}
}

func TestPipelineEmptySourceFails(t *testing.T) {
	p := testPipeline(&mockIndex{}, docrag.NewMemoryParentStore(),
		WithFallbackExtractor(staticExtractor{}),
	)

	_, err := p.Ingest(context.Background(), "empty.txt")
	var se *docrag.SourceError
	if !errors.As(err, &se) {
		t.Fatalf("expected SourceError for a source with no text, got %v", err)
	}
}

func TestSourceExtension(t *testing.T) {
	cases := map[string]string{
		"report.PDF":                        "pdf",
		"notes.md":                          "md",
		"plain":                             "",
		"https://example.com/paper.pdf?x=1": "pdf",
		"https://example.com/page":          "",
	}
	for in, want := range cases {
		if got := sourceExtension(in); got != want {
			t.Errorf("sourceExtension(%q) = %q, want %q", in, got, want)
		}
	}
}
