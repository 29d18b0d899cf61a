package observer

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/nevindra/docrag"
)

// ObservedIndex wraps a docrag.VectorIndex with OTEL instrumentation.
type ObservedIndex struct {
	inner docrag.VectorIndex
	inst  *Instruments
	name  string
}

var _ docrag.VectorIndex = (*ObservedIndex)(nil)

// WrapIndex returns an instrumented vector index. name identifies the
// backing index in traces and metrics (e.g. "sqlite", "postgres").
func WrapIndex(inner docrag.VectorIndex, name string, inst *Instruments) *ObservedIndex {
	return &ObservedIndex{inner: inner, inst: inst, name: name}
}

func (o *ObservedIndex) Add(ctx context.Context, docs []docrag.Document) error {
	ctx, span := o.inst.Tracer.Start(ctx, "index.add", trace.WithAttributes(
		attribute.String("index.name", o.name),
		attribute.Int("index.batch_size", len(docs)),
	))
	defer span.End()
	start := time.Now()

	err := o.inner.Add(ctx, docs)

	status := "ok"
	if err != nil {
		status = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	attrs := metric.WithAttributes(
		attribute.String("index.name", o.name),
		attribute.String("status", status),
	)
	o.inst.IndexWrites.Add(ctx, 1, attrs)
	if err == nil {
		o.inst.ChunksWritten.Add(ctx, int64(len(docs)), attrs)
	}
	o.inst.WriteDuration.Record(ctx, float64(time.Since(start).Milliseconds()), attrs)
	return err
}

func (o *ObservedIndex) SimilaritySearch(ctx context.Context, req docrag.SearchRequest) ([]docrag.ScoredDocument, error) {
	ctx, span := o.inst.Tracer.Start(ctx, "index.search", trace.WithAttributes(
		attribute.String("index.name", o.name),
		attribute.Int("index.top_k", req.TopK),
	))
	defer span.End()
	start := time.Now()

	results, err := o.inner.SimilaritySearch(ctx, req)

	status := "ok"
	if err != nil {
		status = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	attrs := metric.WithAttributes(
		attribute.String("index.name", o.name),
		attribute.String("status", status),
	)
	o.inst.IndexSearches.Add(ctx, 1, attrs)
	o.inst.SearchDuration.Record(ctx, float64(time.Since(start).Milliseconds()), attrs)
	return results, err
}
