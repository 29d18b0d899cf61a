// Package html provides a web page extractor for the ingest pipeline,
// using go-readability to isolate the main article content.
package html

import (
	"bytes"
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/go-shiori/go-readability"

	"github.com/nevindra/docrag"
	"github.com/nevindra/docrag/ingest"
)

// Extractor implements ingest.PageExtractor for HTML sources. The whole
// article becomes a single page.
type Extractor struct{}

var _ ingest.PageExtractor = (*Extractor)(nil)

// NewExtractor creates an HTML extractor.
func NewExtractor() *Extractor { return &Extractor{} }

func (e *Extractor) ExtractPages(ctx context.Context, source string) ([]ingest.Page, error) {
	data, err := ingest.ReadSource(ctx, source)
	if err != nil {
		return nil, err
	}

	pageURL := &url.URL{Path: source}
	if ingest.IsURL(source) {
		if u, err := url.Parse(source); err == nil {
			pageURL = u
		}
	}

	article, err := readability.FromReader(bytes.NewReader(data), pageURL)
	if err != nil {
		return nil, &docrag.SourceError{Source: source, Err: err}
	}

	text := strings.TrimSpace(article.TextContent)
	if text == "" {
		return nil, &docrag.SourceError{Source: source, Err: errors.New("no readable content")}
	}
	return []ingest.Page{{Number: 1, Text: text}}, nil
}
