package ingest

import (
	"context"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Page is one extracted page of a source document: the page number
// (1-based) and its text.
type Page struct {
	Number int
	Text   string
}

// PageExtractor turns a source reference (local path or remote URL) into an
// ordered sequence of per-page text. Extraction failures surface as
// *docrag.SourceError.
type PageExtractor interface {
	ExtractPages(ctx context.Context, source string) ([]Page, error)
}

// PlainTextExtractor treats the whole source as a single page of UTF-8
// text. Paragraph structure is preserved for the chunker.
type PlainTextExtractor struct{}

var _ PageExtractor = PlainTextExtractor{}

func (PlainTextExtractor) ExtractPages(ctx context.Context, source string) ([]Page, error) {
	data, err := ReadSource(ctx, source)
	if err != nil {
		return nil, err
	}
	text := strings.TrimSpace(norm.NFC.String(string(data)))
	if text == "" {
		return nil, nil
	}
	return []Page{{Number: 1, Text: text}}, nil
}
