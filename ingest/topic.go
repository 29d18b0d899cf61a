package ingest

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/nevindra/docrag"
)

const topicPromptTemplate = `Analyze the following document and decide its topic:
%s

Return a single word such as "bitcoin", "ethereum", or "crypto".
`

const (
	topicSamplePages = 3
	topicSampleChars = 4000
)

// TopicClassifier asks the LLM for a single-word topic describing a
// document, sampled from its first pages.
type TopicClassifier struct {
	provider docrag.Provider
}

// NewTopicClassifier creates a TopicClassifier backed by provider.
func NewTopicClassifier(provider docrag.Provider) *TopicClassifier {
	return &TopicClassifier{provider: provider}
}

// DetectTopic joins the first pages (up to 3, clamped to 4000 chars) and
// returns the provider's answer as a lowercase token.
func (t *TopicClassifier) DetectTopic(ctx context.Context, pages []Page) (string, error) {
	var parts []string
	for i, p := range pages {
		if i >= topicSamplePages {
			break
		}
		parts = append(parts, p.Text)
	}
	sample := strings.Join(parts, "\n\n")
	sample = clampString(sample, topicSampleChars)

	answer, err := t.provider.Complete(ctx, fmt.Sprintf(topicPromptTemplate, sample))
	if err != nil {
		return "", fmt.Errorf("detect topic: %w", err)
	}
	return strings.ToLower(strings.TrimSpace(answer)), nil
}

// clampString truncates s to at most n bytes without splitting a rune.
func clampString(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
