package feed

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftrss/drift/internal/config"
	"github.com/driftrss/drift/internal/storage"
)

func newTestManager(t *testing.T) (*Manager, *storage.Store) {
	t.Helper()
	store, err := storage.NewStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	cfg := config.TestConfig()
	cfg.Feed.RefreshInterval = 0 // no refresh debounce in tests

	manager := NewManager(store, cfg)
	manager.SetPermissiveValidation(true)
	return manager, store
}

func rssDocument(items ...string) string {
	doc := `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel>
<title>Mock Feed</title>
<link>http://example.com</link>
<description>Mock feed for tests</description>`
	for _, item := range items {
		doc += item
	}
	return doc + `</channel></rss>`
}

func rssItem(guid, title string) string {
	return fmt.Sprintf(`<item><guid>%s</guid><title>%s</title><link>http://example.com/%s</link><description>desc</description><pubDate>Wed, 01 Jan 2025 12:00:00 GMT</pubDate></item>`, guid, title, guid)
}

func TestNewManager(t *testing.T) {
	manager, store := newTestManager(t)

	assert.NotNil(t, manager)
	assert.NotNil(t, manager.fetcher)
	assert.Equal(t, store, manager.store)
}

func TestAddFeed_InvalidURL(t *testing.T) {
	manager, _ := newTestManager(t)
	manager.SetPermissiveValidation(false)

	feed, err := manager.AddFeed("not a url at all<>", "", "")
	assert.Error(t, err)
	assert.Nil(t, feed)
}

func TestAddFeed_DedupByURL(t *testing.T) {
	manager, store := newTestManager(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, rssDocument(rssItem("g1", "One"), rssItem("g2", "Two")))
	}))
	defer server.Close()

	first, err := manager.AddFeed(server.URL, "tech", "")
	require.NoError(t, err)
	assert.Equal(t, "Mock Feed", first.Title)
	assert.Equal(t, "tech", first.Category)

	second, err := manager.AddFeed(server.URL, "other", "")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "same URL must resolve to the same feed identity")

	feeds, err := store.GetAllFeeds()
	require.NoError(t, err)
	assert.Len(t, feeds, 1)

	articles, err := store.GetArticles(first.ID, 0)
	require.NoError(t, err)
	assert.Len(t, articles, 2)
}

func TestRefreshFeed_UpsertIdempotent(t *testing.T) {
	manager, store := newTestManager(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, rssDocument(rssItem("g1", "One")))
	}))
	defer server.Close()

	feed, err := manager.AddFeed(server.URL, "", "")
	require.NoError(t, err)

	articles, err := store.GetArticles(feed.ID, 0)
	require.NoError(t, err)
	require.Len(t, articles, 1)

	require.NoError(t, store.MarkArticleRead(articles[0].ID, true))
	firstExpiry := articles[0].ExpiresAt

	require.NoError(t, manager.RefreshFeed(feed.ID))

	articles, err = store.GetArticles(feed.ID, 0)
	require.NoError(t, err)
	require.Len(t, articles, 1, "re-fetching the same item must not duplicate it")
	assert.True(t, articles[0].Read, "read state must survive refresh")
	assert.True(t, articles[0].ExpiresAt.Equal(firstExpiry) || articles[0].ExpiresAt.After(firstExpiry),
		"expiry must not move earlier on refresh")
}

func TestRefreshFeed_NotModified(t *testing.T) {
	manager, store := newTestManager(t)

	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		fmt.Fprint(w, rssDocument(rssItem("g1", "One")))
	}))
	defer server.Close()

	feed, err := manager.AddFeed(server.URL, "", "")
	require.NoError(t, err)

	require.NoError(t, manager.RefreshFeed(feed.ID))
	assert.Equal(t, 2, calls)

	stored, err := store.GetFeed(feed.ID)
	require.NoError(t, err)
	assert.False(t, stored.LastFetched.IsZero())
}

func TestRefreshFeed_AppliesAIFilter(t *testing.T) {
	manager, store := newTestManager(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, rssDocument(rssItem("keep", "Interesting"), rssItem("drop", "Boring")))
	}))
	defer server.Close()

	manager.SetFilter(func(ctx context.Context, items []FilterItem, rule string) (map[string]bool, error) {
		assert.Equal(t, "only interesting things", rule)
		matches := make(map[string]bool)
		for _, item := range items {
			if item.Title == "Interesting" {
				matches[item.ID] = true
			}
		}
		return matches, nil
	})

	feed, err := manager.AddFeed(server.URL, "", "only interesting things")
	require.NoError(t, err)

	articles, err := store.GetArticles(feed.ID, 0)
	require.NoError(t, err)
	require.Len(t, articles, 2)

	byID := map[string]*storage.Article{}
	for _, a := range articles {
		byID[a.ID] = a
	}
	assert.False(t, byID[feed.ID+":keep"].Read, "matching article stays unread")
	assert.True(t, byID[feed.ID+":drop"].Read, "filtered article is marked read")
}

func TestRefreshFeed_FilterFailureDegrades(t *testing.T) {
	manager, store := newTestManager(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, rssDocument(rssItem("g1", "One")))
	}))
	defer server.Close()

	manager.SetFilter(func(ctx context.Context, items []FilterItem, rule string) (map[string]bool, error) {
		return nil, fmt.Errorf("model unavailable")
	})

	feed, err := manager.AddFeed(server.URL, "", "some rule")
	require.NoError(t, err)

	articles, err := store.GetArticles(feed.ID, 0)
	require.NoError(t, err)
	require.Len(t, articles, 1)
	assert.False(t, articles[0].Read, "filter failure must leave articles unread")
}

func TestDeleteFeed_Cascades(t *testing.T) {
	manager, store := newTestManager(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, rssDocument(rssItem("g1", "One")))
	}))
	defer server.Close()

	feed, err := manager.AddFeed(server.URL, "", "")
	require.NoError(t, err)

	require.NoError(t, manager.DeleteFeed(feed.ID))

	articles, err := store.GetArticles("", 0)
	require.NoError(t, err)
	assert.Empty(t, articles)
}

func TestRefreshAllFeeds_Empty(t *testing.T) {
	manager, _ := newTestManager(t)
	assert.NoError(t, manager.RefreshAllFeeds())
}

func TestMarkReadAndUpdateAISummary(t *testing.T) {
	manager, store := newTestManager(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, rssDocument(rssItem("g1", "One")))
	}))
	defer server.Close()

	feed, err := manager.AddFeed(server.URL, "", "")
	require.NoError(t, err)

	articles, err := store.GetArticles(feed.ID, 0)
	require.NoError(t, err)
	require.Len(t, articles, 1)
	originalExpiry := articles[0].ExpiresAt

	require.NoError(t, manager.MarkRead(articles[0].ID))
	require.NoError(t, manager.UpdateAISummary(articles[0].ID, "a short summary"))

	updated, err := store.GetArticle(articles[0].ID)
	require.NoError(t, err)
	assert.True(t, updated.Read)
	assert.Equal(t, "a short summary", updated.AISummary)
	require.NotNil(t, updated.SummaryGeneratedAt)
	assert.True(t, !updated.ExpiresAt.Before(originalExpiry),
		"summary generation must push expiry forward, never back")
}

func TestFetchArticleContent(t *testing.T) {
	manager, _ := newTestManager(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><body>article body</body></html>")
	}))
	defer server.Close()

	content, err := manager.Fetcher().FetchArticleContent(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Contains(t, content, "article body")

	statusServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer statusServer.Close()

	_, err = manager.Fetcher().FetchArticleContent(context.Background(), statusServer.URL)
	assert.Error(t, err)
}
