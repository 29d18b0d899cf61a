// Package markdown provides a markdown extractor for the ingest pipeline.
// Sections delimited by top-level headings become pages, so hierarchical
// ingestion can treat each section as a parent unit.
package markdown

import (
	"context"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/nevindra/docrag/ingest"
)

// Extractor implements ingest.PageExtractor for markdown sources. A new
// page starts at every heading of level maxLevel or above.
type Extractor struct {
	md       goldmark.Markdown
	maxLevel int
}

var _ ingest.PageExtractor = (*Extractor)(nil)

// NewExtractor creates a markdown extractor splitting on H1/H2 headings.
func NewExtractor() *Extractor {
	return &Extractor{md: goldmark.New(), maxLevel: 2}
}

func (e *Extractor) ExtractPages(ctx context.Context, source string) ([]ingest.Page, error) {
	data, err := ingest.ReadSource(ctx, source)
	if err != nil {
		return nil, err
	}

	doc := e.md.Parser().Parse(text.NewReader(data))

	var pages []ingest.Page
	var section strings.Builder
	flush := func() {
		if s := strings.TrimSpace(section.String()); s != "" {
			pages = append(pages, ingest.Page{Number: len(pages) + 1, Text: s})
		}
		section.Reset()
	}

	for node := doc.FirstChild(); node != nil; node = node.NextSibling() {
		if h, ok := node.(*ast.Heading); ok && h.Level <= e.maxLevel {
			flush()
		}
		writePlainText(&section, node, data)
		section.WriteString("\n\n")
	}
	flush()

	return pages, nil
}

// writePlainText renders the node's text content without markdown syntax.
func writePlainText(sb *strings.Builder, n ast.Node, source []byte) {
	_ = ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := node.(type) {
		case *ast.Text:
			sb.Write(t.Segment.Value(source))
			if t.SoftLineBreak() || t.HardLineBreak() {
				sb.WriteByte('\n')
			}
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			lines := node.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				sb.Write(seg.Value(source))
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
}
