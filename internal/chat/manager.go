// Package chat runs per-article conversations against the configured AI
// provider. Every article has at most one session; turns stream back to the
// caller chunk by chunk and the full exchange is persisted when the stream
// reaches a terminal state.
package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/driftrss/drift/internal/ai"
	"github.com/driftrss/drift/internal/debuglog"
	"github.com/driftrss/drift/internal/feed"
	"github.com/driftrss/drift/internal/storage"
)

const systemPrompt = `You are a reading assistant. The user is asking about the
article below. Answer from the article where possible and say so when the
article does not cover the question.

Article: %s

%s`

// ContentFetcher retrieves the page text used as conversation context.
type ContentFetcher func(ctx context.Context, url string) (string, error)

type Manager struct {
	store   *storage.Store
	svc     ai.Service
	content ContentFetcher
}

func NewManager(store *storage.Store, svc ai.Service) *Manager {
	return &Manager{
		store:   store,
		svc:     svc,
		content: feed.FetchArticleContent,
	}
}

// SetContentFetcher overrides the page fetcher. Used in tests.
func (m *Manager) SetContentFetcher(fn ContentFetcher) {
	m.content = fn
}

// Reply is one in-flight assistant turn. Consume Chunks to completion (or
// cancel the context), then Wait for the persisted session.
type Reply struct {
	chunks chan string
	done   chan struct{}

	session *storage.ChatSession
	err     error
}

// Chunks yields the assistant text as it streams in. The channel closes when
// the turn reaches a terminal state.
func (r *Reply) Chunks() <-chan string {
	return r.chunks
}

// Wait blocks until the turn is persisted and returns the updated session.
// The session is saved even when the stream was interrupted or failed; the
// assistant message's State records which.
func (r *Reply) Wait() (*storage.ChatSession, error) {
	<-r.done
	return r.session, r.err
}

// Send appends a user turn to the article's session and streams the
// assistant's answer. The article must exist; the session is created on first
// use and its expiry is pushed out on every save.
func (m *Manager) Send(ctx context.Context, articleID, text string) (*Reply, error) {
	article, err := m.store.GetArticle(articleID)
	if err != nil {
		return nil, fmt.Errorf("loading article: %w", err)
	}

	session, err := m.store.GetChatSessionForArticle(articleID)
	if errors.Is(err, storage.ErrNotFound) {
		session = &storage.ChatSession{
			ID:        uuid.New().String(),
			ArticleID: articleID,
			Model:     m.svc.Model(),
		}
	} else if err != nil {
		return nil, err
	}

	now := time.Now()
	session.Messages = append(session.Messages, storage.ChatMessage{
		Role:      "user",
		Content:   text,
		State:     storage.MessageOK,
		CreatedAt: now,
	})

	req := ai.ChatRequest{
		System:   fmt.Sprintf(systemPrompt, article.Title, m.contextText(ctx, article)),
		Messages: make([]ai.Message, 0, len(session.Messages)),
	}
	for _, msg := range session.Messages {
		// Interrupted and failed turns stay in history for the user but
		// are not replayed to the model.
		if msg.Role == "assistant" && msg.State != storage.MessageOK {
			continue
		}
		req.Messages = append(req.Messages, ai.Message{Role: msg.Role, Content: msg.Content})
	}

	stream, err := m.svc.ChatStream(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("starting chat stream: %w", err)
	}

	reply := &Reply{
		chunks: make(chan string),
		done:   make(chan struct{}),
	}
	go m.consume(session, stream, reply)
	return reply, nil
}

func (m *Manager) consume(session *storage.ChatSession, stream *ai.Stream, reply *Reply) {
	defer close(reply.done)

	for chunk := range stream.Chunks() {
		reply.chunks <- chunk
	}
	close(reply.chunks)

	session.Messages = append(session.Messages, storage.ChatMessage{
		Role:      "assistant",
		Content:   stream.Text(),
		State:     messageState(stream.State()),
		CreatedAt: time.Now(),
	})

	if err := stream.Err(); err != nil {
		debuglog.Warnf("chat: stream for article %s ended %s: %v", session.ArticleID, stream.State(), err)
	}

	if err := m.store.SaveChatSession(session); err != nil {
		reply.err = fmt.Errorf("saving chat session: %w", err)
		return
	}
	reply.session = session
}

// Session returns the article's conversation, or storage.ErrNotFound when
// none has been started.
func (m *Manager) Session(articleID string) (*storage.ChatSession, error) {
	return m.store.GetChatSessionForArticle(articleID)
}

// Clear empties the article's conversation. The session row survives with a
// refreshed expiry, so a cleared chat is a fresh start rather than a deletion.
func (m *Manager) Clear(articleID string) error {
	session, err := m.store.GetChatSessionForArticle(articleID)
	if err != nil {
		return err
	}
	session.Messages = nil
	return m.store.SaveChatSession(session)
}

// contextText fetches the article page for grounding, degrading to the stored
// summary (or the feed description) when the fetch fails.
func (m *Manager) contextText(ctx context.Context, article *storage.Article) string {
	if article.Link != "" {
		text, err := m.content(ctx, article.Link)
		if err == nil && text != "" {
			return text
		}
		if err != nil {
			debuglog.Warnf("chat: fetching %s for context: %v", article.Link, err)
		}
	}
	if article.AISummary != "" {
		return "Summary: " + article.AISummary
	}
	return article.Description
}

func messageState(state ai.StreamState) storage.MessageState {
	switch state {
	case ai.StreamInterrupted:
		return storage.MessageInterrupted
	case ai.StreamFailed:
		return storage.MessageFailed
	default:
		return storage.MessageOK
	}
}
