package search

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftrss/drift/internal/storage"
)

func setupIndex(t *testing.T) (*Index, *storage.Store) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewStore(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	index, err := Open(store, filepath.Join(dir, "index.bleve"))
	require.NoError(t, err)
	t.Cleanup(func() { index.Close() })
	return index, store
}

func TestOpen_IndexesExistingData(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewStore(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	feed := &storage.Feed{ID: "f1", Title: "Feed", URL: "https://example.com/feed"}
	require.NoError(t, store.SaveFeed(feed))
	require.NoError(t, store.SaveArticles([]*storage.Article{
		{ID: "a1", FeedID: "f1", Title: "Kubernetes networking deep dive", PubDate: time.Now()},
	}))

	index, err := Open(store, filepath.Join(dir, "index.bleve"))
	require.NoError(t, err)
	t.Cleanup(func() { index.Close() })

	res, err := index.Search("kubernetes", 10)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "a1", res[0].Article.ID)
	assert.False(t, res[0].IsNote())
}

func TestSearch_FindsArticlesAndNotes(t *testing.T) {
	index, store := setupIndex(t)

	require.NoError(t, store.SaveArticles([]*storage.Article{
		{ID: "a1", FeedID: "f1", Title: "Postgres vacuum tuning", Description: "autovacuum thresholds", PubDate: time.Now()},
	}))
	require.NoError(t, index.IndexArticles([]*storage.Article{
		{ID: "a1", FeedID: "f1", Title: "Postgres vacuum tuning", Description: "autovacuum thresholds"},
	}))

	note := &storage.Note{ID: "n1", Title: "Postgres follow-ups", Content: "check fillfactor"}
	require.NoError(t, store.SaveNote(note))
	require.NoError(t, index.IndexNote(note))

	res, err := index.Search("postgres", 10)
	require.NoError(t, err)
	require.Len(t, res, 2)

	var notes, articles int
	for _, r := range res {
		if r.IsNote() {
			notes++
		} else {
			articles++
		}
	}
	assert.Equal(t, 1, notes)
	assert.Equal(t, 1, articles)
}

func TestSearch_ShortQueryReturnsNothing(t *testing.T) {
	index, _ := setupIndex(t)

	res, err := index.Search("a", 10)
	require.NoError(t, err)
	assert.Empty(t, res)
}

func TestRemoveFeed_DropsItsArticles(t *testing.T) {
	index, _ := setupIndex(t)

	require.NoError(t, index.IndexArticles([]*storage.Article{
		{ID: "a1", FeedID: "f1", Title: "Rust borrow checker"},
		{ID: "a2", FeedID: "f2", Title: "Rust async runtimes"},
	}))

	index.RemoveFeed("f1")

	res, err := index.Search("rust", 10)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "a2", res[0].Article.ID)
}

func TestRemoveNote(t *testing.T) {
	index, store := setupIndex(t)

	note := &storage.Note{ID: "n1", Title: "Zig allocators"}
	require.NoError(t, store.SaveNote(note))
	require.NoError(t, index.IndexNote(note))
	require.NoError(t, index.RemoveNote("n1"))

	res, err := index.Search("zig", 10)
	require.NoError(t, err)
	assert.Empty(t, res)

	count, err := index.DocCount()
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
