package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"path"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nevindra/docrag"
)

// Result summarizes one source's ingestion.
type Result struct {
	Source     string
	Topic      string
	ChunkCount int
	Timing     Timing
}

// Timing records wall-clock phase durations and batch-write stats.
// Operational visibility only; not part of the correctness contract.
type Timing struct {
	Extract       time.Duration
	Chunk         time.Duration
	Write         time.Duration
	Batches       int
	AvgBatchWrite time.Duration
}

// Pipeline performs end-to-end ingestion: extract per-page text, detect a
// topic, chunk, persist parents (hierarchical mode), and write chunks to the
// vector index in parallel batches.
//
// Batch writes are at-least-once with fail-fast semantics: the first failed
// batch fails the whole run, already-written batches are not rolled back,
// and nothing is retried. In-flight sibling batches run to completion; their
// results are discarded once the run is marked failed.
type Pipeline struct {
	index      docrag.VectorIndex
	parents    docrag.ParentStore
	topics     *TopicClassifier
	chunker    *HierarchicalChunker
	extractors map[string]PageExtractor
	fallback   PageExtractor

	batchSize      int
	workers        int
	knowledgeBases []string
	logger         *slog.Logger
}

// NewPipeline creates a Pipeline writing to index and parents. Defaults:
// batch size 50, 10 workers, plain-text extraction for unknown extensions.
func NewPipeline(index docrag.VectorIndex, parents docrag.ParentStore, topics *TopicClassifier, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		index:          index,
		parents:        parents,
		topics:         topics,
		chunker:        NewHierarchicalChunker(),
		extractors:     make(map[string]PageExtractor),
		fallback:       PlainTextExtractor{},
		batchSize:      50,
		workers:        10,
		knowledgeBases: []string{"general", "pdfs"},
		logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Ingest performs flat ingestion of one source: all pages are concatenated
// into a single document, chunked at child granularity, and written to the
// vector index. No parent documents are persisted.
func (p *Pipeline) Ingest(ctx context.Context, source string) (Result, error) {
	res := Result{Source: source}
	p.logger.Info("starting ingestion", "source", source)

	pages, topic, err := p.extractAndClassify(ctx, source, &res)
	if err != nil {
		return res, err
	}

	start := time.Now()
	var full strings.Builder
	for _, page := range pages {
		full.WriteString(page.Text)
		full.WriteByte(' ')
	}
	meta := docrag.Metadata{
		docrag.MetaTopic:          topic,
		docrag.MetaPath:           source,
		docrag.MetaKnowledgeBases: append([]string(nil), p.knowledgeBases...),
	}
	chunks := p.chunker.ChunkFlat(docrag.Document{
		Text:     strings.TrimSpace(full.String()),
		Metadata: meta,
	})
	res.Timing.Chunk = time.Since(start)
	res.ChunkCount = len(chunks)
	p.logger.Info("chunks created", "source", source, "chunks", len(chunks), "took", res.Timing.Chunk)

	if err := p.writeBatches(ctx, chunks, &res.Timing); err != nil {
		return res, err
	}

	p.logger.Info("ingestion complete",
		"source", source,
		"topic", topic,
		"chunks", res.ChunkCount,
		"batches", res.Timing.Batches,
		"avg_batch_write", res.Timing.AvgBatchWrite,
		"took", res.Timing.Write)
	return res, nil
}

// IngestHierarchical performs parent/child ingestion of one source. Each
// page is one parent unit: it gets a fresh id and is persisted whole to the
// parent store, then decomposed to child chunks that carry the parent_id,
// page, and topic metadata into the vector index. ChunkCount aggregates
// children across all pages.
func (p *Pipeline) IngestHierarchical(ctx context.Context, source string) (Result, error) {
	res := Result{Source: source}
	p.logger.Info("starting hierarchical ingestion", "source", source)

	pages, topic, err := p.extractAndClassify(ctx, source, &res)
	if err != nil {
		return res, err
	}

	start := time.Now()
	var children []docrag.Document
	for _, page := range pages {
		parentID := docrag.NewID()
		parent := docrag.Document{
			Text: page.Text,
			Metadata: docrag.Metadata{
				docrag.MetaPage:     strconv.Itoa(page.Number),
				docrag.MetaParentID: parentID,
				docrag.MetaTopic:    topic,
			},
		}
		p.parents.Save(parentID, parent)

		// Children inherit the parent's metadata (parent_id, page, topic)
		// via the chunker's metadata copy.
		children = append(children, p.chunker.ChunkChildren(parent)...)
	}
	res.Timing.Chunk = time.Since(start)
	res.ChunkCount = len(children)
	p.logger.Info("children created",
		"source", source, "pages", len(pages), "children", len(children), "took", res.Timing.Chunk)

	if err := p.writeBatches(ctx, children, &res.Timing); err != nil {
		return res, err
	}

	p.logger.Info("hierarchical ingestion complete",
		"source", source,
		"topic", topic,
		"chunks", res.ChunkCount,
		"batches", res.Timing.Batches,
		"avg_batch_write", res.Timing.AvgBatchWrite)
	return res, nil
}

// IngestAll runs one independent flat ingestion per source. Runs execute
// concurrently with no relative ordering; one source's failure is recorded
// and reported but never interrupts the others.
func (p *Pipeline) IngestAll(ctx context.Context, sources []string) ([]Result, error) {
	return p.ingestAll(ctx, sources, p.Ingest)
}

// IngestAllHierarchical is IngestAll with hierarchical ingestion per source.
func (p *Pipeline) IngestAllHierarchical(ctx context.Context, sources []string) ([]Result, error) {
	return p.ingestAll(ctx, sources, p.IngestHierarchical)
}

func (p *Pipeline) ingestAll(ctx context.Context, sources []string, run func(context.Context, string) (Result, error)) ([]Result, error) {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		out  []Result
		errs []error
	)
	for _, source := range sources {
		source := source
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := run(ctx, source)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", source, err))
				return
			}
			out = append(out, res)
		}()
	}
	wg.Wait()
	return out, errors.Join(errs...)
}

// extractAndClassify runs the extraction and topic-detection phases shared
// by both ingestion shapes.
func (p *Pipeline) extractAndClassify(ctx context.Context, source string, res *Result) ([]Page, string, error) {
	start := time.Now()
	pages, err := p.extractPages(ctx, source)
	if err != nil {
		return nil, "", err
	}
	res.Timing.Extract = time.Since(start)
	p.logger.Info("pages extracted", "source", source, "pages", len(pages), "took", res.Timing.Extract)

	start = time.Now()
	topic, err := p.topics.DetectTopic(ctx, pages)
	if err != nil {
		return nil, "", err
	}
	res.Topic = topic
	p.logger.Info("topic detected", "source", source, "topic", topic, "took", time.Since(start))
	return pages, topic, nil
}

// extractPages selects an extractor by the source's file extension and runs
// it. Sources yielding no text fail with a SourceError.
func (p *Pipeline) extractPages(ctx context.Context, source string) ([]Page, error) {
	e, ok := p.extractors[sourceExtension(source)]
	if !ok {
		e = p.fallback
	}

	pages, err := e.ExtractPages(ctx, source)
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, &docrag.SourceError{Source: source, Err: errors.New("no extractable text")}
	}
	return pages, nil
}

// writeBatches writes chunks to the vector index in fixed-size batches
// dispatched across a bounded worker group. Batch i holds chunks
// [i*batchSize, min((i+1)*batchSize, total)) in original order. The call
// blocks until every dispatched batch completes, then reports the first
// batch failure, if any.
func (p *Pipeline) writeBatches(ctx context.Context, chunks []docrag.Document, timing *Timing) error {
	if len(chunks) == 0 {
		return nil
	}

	start := time.Now()
	var writeNanos, completed atomic.Int64

	var g errgroup.Group
	g.SetLimit(p.workers)

	for i := 0; i < len(chunks); i += p.batchSize {
		lo, hi := i, min(i+p.batchSize, len(chunks))
		batch := chunks[lo:hi]
		g.Go(func() error {
			t := time.Now()
			if err := p.index.Add(ctx, batch); err != nil {
				p.logger.Error("batch write failed", "start", lo, "end", hi, "error", err)
				return &docrag.BatchWriteError{Start: lo, End: hi, Err: err}
			}
			writeNanos.Add(int64(time.Since(t)))
			completed.Add(1)
			return nil
		})
	}

	err := g.Wait()
	timing.Write = time.Since(start)
	timing.Batches = int(completed.Load())
	if n := completed.Load(); n > 0 {
		timing.AvgBatchWrite = time.Duration(writeNanos.Load() / n)
	}
	return err
}

// sourceExtension returns the lowercase file extension of a path or URL,
// without the dot.
func sourceExtension(source string) string {
	ref := source
	if IsURL(source) {
		if u, err := url.Parse(source); err == nil {
			ref = u.Path
		}
	}
	return strings.ToLower(strings.TrimPrefix(path.Ext(ref), "."))
}
