// Package pdf provides a per-page PDF text extractor for the ingest
// pipeline.
//
// It uses ledongthuc/pdf (BSD-3, pure Go, no CGO). This is a separate
// subpackage so the dependency is only pulled in by users who need PDF
// support.
package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/ledongthuc/pdf"

	"github.com/nevindra/docrag"
	"github.com/nevindra/docrag/ingest"
)

// Extractor implements ingest.PageExtractor for PDF documents, loaded from
// a local path or an http(s) URL.
type Extractor struct{}

var _ ingest.PageExtractor = (*Extractor)(nil)

// NewExtractor creates a PDF extractor.
func NewExtractor() *Extractor { return &Extractor{} }

// ExtractPages extracts cleaned text page by page. Unreadable or empty
// pages are skipped; their page numbers do not reappear.
func (e *Extractor) ExtractPages(ctx context.Context, source string) ([]ingest.Page, error) {
	data, err := ingest.ReadSource(ctx, source)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, &docrag.SourceError{Source: source, Err: errors.New("empty pdf")}
	}

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, &docrag.SourceError{Source: source, Err: fmt.Errorf("open pdf: %w", err)}
	}

	var pages []ingest.Page
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		raw, err := page.GetPlainText(nil)
		if err != nil {
			continue // skip unreadable pages
		}
		text := ingest.CleanText(raw)
		if text == "" {
			continue
		}
		pages = append(pages, ingest.Page{Number: i, Text: text})
	}
	return pages, nil
}
