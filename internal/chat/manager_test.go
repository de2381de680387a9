package chat

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftrss/drift/internal/ai"
	"github.com/driftrss/drift/internal/config"
	"github.com/driftrss/drift/internal/storage"
)

func setupStore(t *testing.T) *storage.Store {
	t.Helper()
	store, err := storage.NewStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func seedArticle(t *testing.T, store *storage.Store, id string) *storage.Article {
	t.Helper()
	article := &storage.Article{
		ID:          id,
		FeedID:      "feed-1",
		Title:       "Go 1.25 released",
		Link:        "http://example.com/go-1.25",
		Description: "Release notes for Go 1.25.",
		PubDate:     time.Now(),
	}
	require.NoError(t, store.SaveArticles([]*storage.Article{article}))
	return article
}

// sseHandler answers every completion with the given chunks.
func sseHandler(chunks ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, chunk := range chunks {
			fmt.Fprintf(w, `data: {"type":"content_block_delta","delta":{"type":"text_delta","text":%q}}`+"\n\n", chunk)
		}
		fmt.Fprint(w, `data: {"type":"message_stop"}`+"\n\n")
	}
}

func newTestManager(t *testing.T, store *storage.Store, handler http.Handler) *Manager {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	svc, err := ai.New(config.AIConfig{Provider: "claude", APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)

	m := NewManager(store, svc)
	m.SetContentFetcher(func(ctx context.Context, url string) (string, error) {
		return "full page text", nil
	})
	return m
}

func drain(t *testing.T, reply *Reply) (string, *storage.ChatSession) {
	t.Helper()
	var text string
	for chunk := range reply.Chunks() {
		text += chunk
	}
	session, err := reply.Wait()
	require.NoError(t, err)
	return text, session
}

func TestSend_CreatesSessionAndStreams(t *testing.T) {
	store := setupStore(t)
	seedArticle(t, store, "art-1")
	m := newTestManager(t, store, sseHandler("It adds ", "generics tweaks."))

	reply, err := m.Send(context.Background(), "art-1", "what changed?")
	require.NoError(t, err)

	text, session := drain(t, reply)
	assert.Equal(t, "It adds generics tweaks.", text)

	require.Len(t, session.Messages, 2)
	assert.Equal(t, "user", session.Messages[0].Role)
	assert.Equal(t, "what changed?", session.Messages[0].Content)
	assert.Equal(t, "assistant", session.Messages[1].Role)
	assert.Equal(t, "It adds generics tweaks.", session.Messages[1].Content)
	assert.Equal(t, storage.MessageOK, session.Messages[1].State)
	assert.False(t, session.ExpiresAt.IsZero())
}

func TestSend_ReusesSessionAcrossTurns(t *testing.T) {
	store := setupStore(t)
	seedArticle(t, store, "art-1")
	m := newTestManager(t, store, sseHandler("answer"))

	reply, err := m.Send(context.Background(), "art-1", "first question")
	require.NoError(t, err)
	_, first := drain(t, reply)

	reply, err = m.Send(context.Background(), "art-1", "second question")
	require.NoError(t, err)
	_, second := drain(t, reply)

	assert.Equal(t, first.ID, second.ID, "one session per article")
	assert.Len(t, second.Messages, 4)

	stored, err := store.GetChatSessionForArticle("art-1")
	require.NoError(t, err)
	assert.Len(t, stored.Messages, 4)
}

func TestSend_MissingArticle(t *testing.T) {
	store := setupStore(t)
	m := newTestManager(t, store, sseHandler("unused"))

	_, err := m.Send(context.Background(), "no-such-article", "hello?")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSend_InterruptedTurnIsPersisted(t *testing.T) {
	store := setupStore(t)
	seedArticle(t, store, "art-1")

	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	m := newTestManager(t, store, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, `data: {"type":"content_block_delta","delta":{"type":"text_delta","text":"partial"}}`+"\n\n")
		w.(http.Flusher).Flush()
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))

	ctx, cancel := context.WithCancel(context.Background())
	reply, err := m.Send(ctx, "art-1", "tell me everything")
	require.NoError(t, err)

	first := <-reply.Chunks()
	assert.Equal(t, "partial", first)
	cancel()

	text, session := drain(t, reply)
	assert.Empty(t, text, "no chunks after cancellation")

	last := session.Messages[len(session.Messages)-1]
	assert.Equal(t, "assistant", last.Role)
	assert.Equal(t, storage.MessageInterrupted, last.State)
	assert.Equal(t, "partial", last.Content)

	stored, err := store.GetChatSessionForArticle("art-1")
	require.NoError(t, err)
	assert.Equal(t, storage.MessageInterrupted, stored.Messages[len(stored.Messages)-1].State)
}

func TestClear_KeepsSessionRow(t *testing.T) {
	store := setupStore(t)
	seedArticle(t, store, "art-1")
	m := newTestManager(t, store, sseHandler("answer"))

	reply, err := m.Send(context.Background(), "art-1", "question")
	require.NoError(t, err)
	_, before := drain(t, reply)

	require.NoError(t, m.Clear("art-1"))

	after, err := store.GetChatSessionForArticle("art-1")
	require.NoError(t, err)
	assert.Equal(t, before.ID, after.ID)
	assert.Empty(t, after.Messages)
	assert.False(t, after.ExpiresAt.IsZero())
}

func TestContextText_FallsBackToSummary(t *testing.T) {
	store := setupStore(t)
	m := newTestManager(t, store, sseHandler("unused"))
	m.SetContentFetcher(func(ctx context.Context, url string) (string, error) {
		return "", fmt.Errorf("connection refused")
	})

	article := &storage.Article{Link: "http://example.com/x", AISummary: "stored summary", Description: "desc"}
	assert.Equal(t, "Summary: stored summary", m.contextText(context.Background(), article))

	article.AISummary = ""
	assert.Equal(t, "desc", m.contextText(context.Background(), article))
}
