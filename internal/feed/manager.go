package feed

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/driftrss/drift/internal/config"
	"github.com/driftrss/drift/internal/debuglog"
	"github.com/driftrss/drift/internal/storage"
	"github.com/driftrss/drift/internal/validation"
)

// FilterItem is the per-article payload handed to an AI filter rule.
type FilterItem struct {
	ID          string
	Title       string
	Description string
}

// FilterFunc evaluates a feed's filter rule against fetched articles and
// returns the set of matching article IDs.
type FilterFunc func(ctx context.Context, items []FilterItem, rule string) (map[string]bool, error)

type Manager struct {
	store        *storage.Store
	fetcher      *Fetcher
	parser       *Parser
	config       *config.Config
	urlValidator *validation.FeedURLValidator
	filter       FilterFunc
	mu           sync.Mutex
}

func NewManager(store *storage.Store, cfg *config.Config) *Manager {
	return &Manager{
		store:        store,
		fetcher:      NewFetcher(cfg),
		parser:       NewParser(),
		config:       cfg,
		urlValidator: validation.NewFeedURLValidator(),
	}
}

// SetForceRefresh configures the manager to ignore ETag/Last-Modified headers
func (m *Manager) SetForceRefresh(force bool) {
	m.fetcher.SetIgnoreCache(force)
}

// SetPermissiveValidation enables permissive URL validation for development/testing
func (m *Manager) SetPermissiveValidation(permissive bool) {
	if permissive {
		m.urlValidator = validation.NewPermissiveFeedURLValidator()
	} else {
		m.urlValidator = validation.NewFeedURLValidator()
	}
}

// SetFilter installs the AI filter evaluator applied after each refresh.
func (m *Manager) SetFilter(f FilterFunc) {
	m.filter = f
}

// Fetcher exposes the manager's HTTP fetcher for article content retrieval.
func (m *Manager) Fetcher() *Fetcher {
	return m.fetcher
}

// AddFeed subscribes to a feed URL. Adding a URL that is already subscribed is
// not an error: the existing feed is returned unchanged. For a new URL the feed
// is fetched once, and its articles cached.
func (m *Manager) AddFeed(rawURL, category, aiFilter string) (*storage.Feed, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	normalizedURL, err := m.urlValidator.ValidateAndNormalize(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid feed URL: %w", err)
	}

	if existing, err := m.store.GetFeedByURL(normalizedURL); err == nil {
		return existing, nil
	}

	feed := &storage.Feed{
		ID:        uuid.NewString(),
		URL:       normalizedURL,
		Category:  category,
		AIFilter:  aiFilter,
		CreatedAt: time.Now(),
	}

	parsed, err := m.fetchAndParse(feed)
	if err != nil {
		return nil, err
	}

	applyChannelMetadata(feed, parsed)

	// EnsureFeed re-checks the URL inside the write transaction, so a racing
	// add of the same URL converges on one row.
	stored, created, err := m.store.EnsureFeed(feed)
	if err != nil {
		return nil, fmt.Errorf("saving feed: %w", err)
	}
	if !created {
		return stored, nil
	}

	if err := m.store.SaveArticles(parsed.Articles); err != nil {
		return nil, fmt.Errorf("saving articles: %w", err)
	}

	m.applyFilter(feed, parsed.Articles)

	return stored, nil
}

// RefreshFeed refetches one feed and upserts its articles. Articles the store
// already has keep their read/starred state and expiry clock.
func (m *Manager) RefreshFeed(feedID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refreshFeedLocked(feedID)
}

func (m *Manager) refreshFeedLocked(feedID string) error {
	feed, err := m.store.GetFeed(feedID)
	if err != nil {
		return fmt.Errorf("getting feed: %w", err)
	}

	if time.Since(feed.LastFetched) < m.config.Feed.RefreshInterval {
		return nil
	}

	parsed, err := m.fetchAndParse(feed)
	if err != nil {
		return err
	}
	if parsed == nil {
		// Not modified; only bump the fetch timestamp.
		feed.LastFetched = time.Now()
		if saveErr := m.store.SaveFeed(feed); saveErr != nil {
			return fmt.Errorf("saving feed metadata: %w", saveErr)
		}
		return nil
	}

	applyChannelMetadata(feed, parsed)

	if err := m.store.SaveFeed(feed); err != nil {
		return fmt.Errorf("saving feed: %w", err)
	}
	if err := m.store.SaveArticles(parsed.Articles); err != nil {
		return fmt.Errorf("saving articles: %w", err)
	}

	m.applyFilter(feed, parsed.Articles)

	return nil
}

// fetchAndParse returns nil without error when the server reports the feed
// unmodified.
func (m *Manager) fetchAndParse(feed *storage.Feed) (*ParsedFeed, error) {
	resp, updated, err := m.fetcher.Fetch(feed)
	if err != nil {
		return nil, fmt.Errorf("fetching feed: %w", err)
	}
	if !updated || resp == nil {
		return nil, nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	parsed, err := m.parser.Parse(strings.NewReader(string(body)), feed.ID)
	if err != nil {
		return nil, fmt.Errorf("parsing feed: %w", err)
	}

	m.fetcher.UpdateFeedMetadata(feed, resp)
	return parsed, nil
}

func applyChannelMetadata(feed *storage.Feed, parsed *ParsedFeed) {
	if parsed.Title != "" {
		feed.Title = parsed.Title
	}
	if parsed.SiteURL != "" {
		feed.SiteURL = parsed.SiteURL
	}
	if parsed.Description != "" {
		feed.Description = parsed.Description
	}
	if parsed.Favicon != "" {
		feed.Favicon = parsed.Favicon
	}
}

// applyFilter marks articles rejected by the feed's AI filter rule as read so
// they stay out of the unread view. Filter failures degrade to keeping
// everything unread.
func (m *Manager) applyFilter(feed *storage.Feed, articles []*storage.Article) {
	if m.filter == nil || feed.AIFilter == "" || len(articles) == 0 {
		return
	}

	items := make([]FilterItem, 0, len(articles))
	for _, a := range articles {
		items = append(items, FilterItem{ID: a.ID, Title: a.Title, Description: a.Description})
	}

	ctx, cancel := context.WithTimeout(context.Background(), m.config.Feed.HTTPTimeout)
	defer cancel()

	matches, err := m.filter(ctx, items, feed.AIFilter)
	if err != nil {
		debuglog.Warnf("ai filter for feed %s failed: %v", feed.ID, err)
		return
	}

	for _, a := range articles {
		if matches[a.ID] {
			continue
		}
		if err := m.store.MarkArticleRead(a.ID, true); err != nil {
			debuglog.Warnf("marking filtered article %s read: %v", a.ID, err)
		}
	}
}

// RefreshAllFeeds refreshes every subscribed feed through a bounded worker
// pool.
func (m *Manager) RefreshAllFeeds() error {
	feeds, err := m.store.GetAllFeeds()
	if err != nil {
		return fmt.Errorf("getting feeds: %w", err)
	}

	if len(feeds) == 0 {
		return nil
	}

	const maxConcurrentRefresh = 5
	feedChan := make(chan *storage.Feed, len(feeds))
	errChan := make(chan error, len(feeds))

	var wg sync.WaitGroup
	for i := 0; i < maxConcurrentRefresh && i < len(feeds); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for feed := range feedChan {
				if refreshErr := m.RefreshFeed(feed.ID); refreshErr != nil {
					errChan <- fmt.Errorf("%s: %w", feed.URL, refreshErr)
				}
			}
		}()
	}

	for _, feed := range feeds {
		feedChan <- feed
	}
	close(feedChan)

	wg.Wait()
	close(errChan)

	var errs []error
	for err := range errChan {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("refresh errors: %v", errs)
	}

	return nil
}

// DeleteFeed removes the feed and cascades to its cached articles.
func (m *Manager) DeleteFeed(feedID string) error {
	return m.store.DeleteFeed(feedID)
}

// MarkRead flags a single article as read. No expiry change.
func (m *Manager) MarkRead(articleID string) error {
	return m.store.MarkArticleRead(articleID, true)
}

// UpdateAISummary stores a generated summary on the article, which also
// extends its expiry window.
func (m *Manager) UpdateAISummary(articleID, summary string) error {
	return m.store.SetArticleSummary(articleID, summary)
}
