package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// maxContentBytes caps how much of an article page is read for snapshots and
// chat context.
const maxContentBytes = 2 << 20

// FetchArticleContent retrieves the raw page behind an article link. Callers
// decide how to degrade when it fails (starring keeps going without content,
// chat falls back to the stored summary).
func (f *Fetcher) FetchArticleContent(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching article content: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("HTTP error: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxContentBytes))
	if err != nil {
		return "", fmt.Errorf("reading article content: %w", err)
	}
	return string(body), nil
}

// FetchArticleContent is the package-level variant with a default client, for
// callers that have no configured Fetcher at hand.
func FetchArticleContent(ctx context.Context, url string) (string, error) {
	f := &Fetcher{
		client:    &http.Client{Timeout: 30 * time.Second},
		userAgent: "drift/1.0 (https://github.com/driftrss/drift)",
	}
	return f.FetchArticleContent(ctx, url)
}
