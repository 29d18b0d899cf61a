package ingest

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/nevindra/docrag"
)

// Chunker splits a document into an ordered sequence of chunks.
type Chunker interface {
	Chunk(doc docrag.Document) []docrag.Document
}

// ChunkerOption configures a TokenChunker.
type ChunkerOption func(*TokenChunker)

// WithChunkSize sets the maximum chunk budget in tokens, approximated as
// tokens*4 characters (default 400).
func WithChunkSize(tokens int) ChunkerOption {
	return func(c *TokenChunker) { c.maxChars = tokens * 4 }
}

// WithChunkOverlap sets the maximum characters of trailing context carried
// from each chunk into the next (default 0, no overlap).
func WithChunkOverlap(chars int) ChunkerOption {
	return func(c *TokenChunker) { c.overlapChars = chars }
}

// WithMinTailChars sets the minimum length of the final chunk; a shorter
// tail is folded into its predecessor (default 5).
func WithMinTailChars(n int) ChunkerOption {
	return func(c *TokenChunker) { c.minTailChars = n }
}

// TokenChunker splits text at a token-like budget, cutting at paragraph,
// sentence, or word boundaries where possible, then stitches adjacent chunks
// together with a directional overlap: chunk i (i > 0) is prefixed with up to
// overlapChars trailing characters of base chunk i-1. Chunk 0 carries no
// prefix. With overlap 0, concatenating the chunks reproduces the input
// exactly.
//
// Splitting is deterministic: same text and parameters, same output.
type TokenChunker struct {
	maxChars     int
	overlapChars int
	minTailChars int
}

var _ Chunker = (*TokenChunker)(nil)

// NewTokenChunker creates a TokenChunker with the given options.
func NewTokenChunker(opts ...ChunkerOption) *TokenChunker {
	c := &TokenChunker{
		maxChars:     400 * 4,
		overlapChars: 0,
		minTailChars: 5,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Chunk splits doc.Text into ordered chunks. Every chunk carries its own
// deep copy of doc.Metadata; overlap prefixes never pull metadata from the
// previous chunk.
func (c *TokenChunker) Chunk(doc docrag.Document) []docrag.Document {
	base := c.splitBase(doc.Text)
	if len(base) == 0 {
		return nil
	}

	out := make([]docrag.Document, len(base))
	out[0] = docrag.NewDocument(base[0], doc.Metadata)
	for i := 1; i < len(base); i++ {
		text := base[i]
		if c.overlapChars > 0 {
			text = overlapTail(base[i-1], c.overlapChars) + text
		}
		out[i] = docrag.NewDocument(text, doc.Metadata)
	}
	return out
}

// splitBase partitions text into non-overlapping pieces of at most maxChars.
// The pieces concatenate back to the original text with no loss.
func (c *TokenChunker) splitBase(text string) []string {
	if text == "" {
		return nil
	}

	var base []string
	for start := 0; start < len(text); {
		if len(text)-start <= c.maxChars {
			base = append(base, text[start:])
			break
		}
		cut := cutPoint(text, start, start+c.maxChars)
		base = append(base, text[start:cut])
		start = cut
	}

	// Fold a pathological tail (shorter than the floor) into its predecessor.
	if n := len(base); n > 1 && len(base[n-1]) < c.minTailChars {
		base[n-2] += base[n-1]
		base = base[:n-1]
	}
	return base
}

// cutPoint picks a split position in (start, limit], preferring a paragraph
// break, then a sentence end, then any whitespace. A raw cut at a rune
// boundary is the last resort when the window holds a single unbroken token.
func cutPoint(text string, start, limit int) int {
	window := text[start:limit]

	if i := strings.LastIndex(window, "\n\n"); i > 0 {
		return start + i + 2
	}
	if i := lastSentenceEnd(window); i > 0 {
		return start + i
	}
	if i := lastWhitespace(window); i > 0 {
		return start + i + 1
	}

	for limit > start+1 && !utf8.RuneStart(text[limit]) {
		limit--
	}
	return limit
}

// lastSentenceEnd returns the position just after the whitespace following
// the last sentence-ending punctuation in s, or -1. Dots that belong to
// abbreviations (Mr., Dr., e.g.) or decimal numbers (3.14) do not count.
func lastSentenceEnd(s string) int {
	for i := len(s) - 1; i > 0; i-- {
		if s[i] != ' ' && s[i] != '\n' {
			continue
		}
		p := s[i-1]
		if p != '.' && p != '!' && p != '?' {
			continue
		}
		if p == '.' && (isDecimalDot(s, i-1) || isAbbreviation(s, i-1)) {
			continue
		}
		return i + 1
	}
	return -1
}

func lastWhitespace(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == ' ' || s[i] == '\t' || s[i] == '\n' || s[i] == '\r' {
			return i
		}
	}
	return -1
}

// abbreviations that should NOT be treated as sentence boundaries.
var abbreviations = map[string]bool{
	"mr": true, "mrs": true, "ms": true, "dr": true,
	"prof": true, "sr": true, "jr": true,
	"vs": true, "etc": true, "inc": true, "ltd": true,
	"e.g": true, "i.e": true, "viz": true, "al": true,
	"approx": true, "dept": true, "est": true,
	"fig": true, "no": true, "vol": true,
}

// isAbbreviation checks if the text ending at dotPos (the '.') is a common
// abbreviation.
func isAbbreviation(text string, dotPos int) bool {
	start := dotPos
	for start > 0 {
		r, size := utf8.DecodeLastRuneInString(text[:start])
		if !unicode.IsLetter(r) && r != '.' {
			break
		}
		start -= size
	}
	word := strings.ToLower(text[start:dotPos])
	return abbreviations[word]
}

// isDecimalDot checks if the dot at dotPos is part of a number (e.g. 3.14).
func isDecimalDot(text string, dotPos int) bool {
	if dotPos == 0 || dotPos+1 >= len(text) {
		return false
	}
	prev := text[dotPos-1]
	next := text[dotPos+1]
	return prev >= '0' && prev <= '9' && next >= '0' && next <= '9'
}

// overlapTail returns the trailing portion of text carried into the next
// chunk. It takes the last maxChars characters, then advances past the first
// whitespace in that window (space before newline) so a word is never cut in
// half; with no boundary in the window it falls back to the raw cut. Text
// shorter than maxChars is returned whole.
func overlapTail(text string, maxChars int) string {
	if len(text) <= maxChars {
		return text
	}

	start := len(text) - maxChars
	for start < len(text) && !utf8.RuneStart(text[start]) {
		start++
	}
	window := text[start:]

	if i := strings.IndexByte(window, ' '); i >= 0 && start+i < len(text)-1 {
		return window[i+1:]
	}
	if i := strings.IndexByte(window, '\n'); i >= 0 && start+i < len(text)-1 {
		return window[i+1:]
	}
	return window
}
