package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/nevindra/docrag"
)

// IsURL reports whether ref is an http(s) URL rather than a local path.
func IsURL(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}

// ReadSource loads the raw bytes of a source reference. An http(s) URL is
// fetched over the network; anything else is read as a local file path.
// Failures are reported as *docrag.SourceError.
func ReadSource(ctx context.Context, ref string) ([]byte, error) {
	if IsURL(ref) {
		return fetchURL(ctx, ref)
	}

	data, err := os.ReadFile(ref)
	if err != nil {
		return nil, &docrag.SourceError{Source: ref, Err: err}
	}
	return data, nil
}

func fetchURL(ctx context.Context, ref string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, &docrag.SourceError{Source: ref, Err: err}
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, &docrag.SourceError{Source: ref, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &docrag.SourceError{Source: ref, Err: fmt.Errorf("http %d", resp.StatusCode)}
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &docrag.SourceError{Source: ref, Err: err}
	}
	return data, nil
}
