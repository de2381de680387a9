package feed

import (
	"fmt"
	"net/http"
	"time"

	"github.com/driftrss/drift/internal/config"
	"github.com/driftrss/drift/internal/storage"
)

type Fetcher struct {
	client      *http.Client
	userAgent   string
	ignoreCache bool
}

func NewFetcher(cfg *config.Config) *Fetcher {
	timeout := cfg.Feed.HTTPTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Fetcher{
		client:    &http.Client{Timeout: timeout},
		userAgent: cfg.Feed.UserAgent,
	}
}

// SetIgnoreCache disables conditional requests so the next fetch always
// returns a full response.
func (f *Fetcher) SetIgnoreCache(ignore bool) {
	f.ignoreCache = ignore
}

// Fetch performs a conditional GET for the feed. The second return value is
// false when the server reports the feed unmodified.
func (f *Fetcher) Fetch(feed *storage.Feed) (*http.Response, bool, error) {
	req, err := http.NewRequest(http.MethodGet, feed.URL, nil)
	if err != nil {
		return nil, false, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml, text/xml")

	if !f.ignoreCache {
		if feed.ETag != "" {
			req.Header.Set("If-None-Match", feed.ETag)
		}
		if feed.LastModified != "" {
			req.Header.Set("If-Modified-Since", feed.LastModified)
		}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("fetching feed: %w", err)
	}

	if resp.StatusCode == http.StatusNotModified {
		resp.Body.Close()
		return nil, false, nil
	}

	if resp.StatusCode >= 400 {
		resp.Body.Close()
		return nil, false, fmt.Errorf("HTTP error: %d", resp.StatusCode)
	}

	return resp, true, nil
}

// UpdateFeedMetadata records the response's cache validators on the feed.
func (f *Fetcher) UpdateFeedMetadata(feed *storage.Feed, resp *http.Response) {
	if etag := resp.Header.Get("ETag"); etag != "" {
		feed.ETag = etag
	}
	if lastMod := resp.Header.Get("Last-Modified"); lastMod != "" {
		feed.LastModified = lastMod
	}
	feed.LastFetched = time.Now()
}
