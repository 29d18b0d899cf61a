package ingest

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	dotRun        = regexp.MustCompile(`\.{3,}`)
	// A trailing number after a final dot is almost always a page number
	// leaked from a footer or table of contents.
	trailingPageNum = regexp.MustCompile(`\.\s*\d+\s*$`)
)

// CleanText normalizes extracted page text: NFC normalization, whitespace
// runs collapsed to a single space, leader-dot runs (".....") removed, and
// trailing page numbers stripped.
func CleanText(text string) string {
	text = norm.NFC.String(text)
	text = whitespaceRun.ReplaceAllString(text, " ")
	text = dotRun.ReplaceAllString(text, "")
	text = trailingPageNum.ReplaceAllString(text, ".")
	return strings.TrimSpace(text)
}
