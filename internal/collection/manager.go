// Package collection manages starred content. Starring snapshots the source
// record so the copy outlives the 24h cache: starred rows are never swept and
// survive the original expiring or its feed being deleted.
package collection

import (
	"context"
	"errors"
	"sort"
	"time"
	"unicode/utf8"

	"github.com/driftrss/drift/internal/debuglog"
	"github.com/driftrss/drift/internal/feed"
	"github.com/driftrss/drift/internal/storage"
)

const previewRunes = 200

// ContentFetcher retrieves the page text snapshotted into a starred article.
type ContentFetcher func(ctx context.Context, url string) (string, error)

type Manager struct {
	store   *storage.Store
	content ContentFetcher
}

func NewManager(store *storage.Store) *Manager {
	return &Manager{store: store, content: feed.FetchArticleContent}
}

// SetContentFetcher overrides the page fetcher. Used in tests.
func (m *Manager) SetContentFetcher(fn ContentFetcher) {
	m.content = fn
}

// StarArticle snapshots the article together with its fetched page content.
// The fetch is best-effort: a network failure still stars the article, just
// without the full text. Starring a missing article is a no-op.
func (m *Manager) StarArticle(ctx context.Context, articleID string) (*storage.StarredArticle, error) {
	article, err := m.store.GetArticle(articleID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var content string
	if article.Link != "" {
		content, err = m.content(ctx, article.Link)
		if err != nil {
			debuglog.Warnf("collection: fetching %s for star snapshot: %v", article.Link, err)
			content = ""
		}
	}

	return m.store.StarArticle(articleID, content, time.Now())
}

// UnstarArticle removes the snapshot and clears the flag on the source
// article. The source having already expired is fine.
func (m *Manager) UnstarArticle(articleID string) error {
	return m.store.UnstarArticle(articleID)
}

// StarChatSession snapshots the session. The related article's title is
// captured best-effort; if the article has already expired the snapshot simply
// omits it. Starring a missing session is a no-op.
func (m *Manager) StarChatSession(sessionID, customTitle string) (*storage.StarredChatSession, error) {
	session, err := m.store.GetChatSession(sessionID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	snapshot := &storage.StarredChatSession{
		ChatSession: *session,
		Title:       customTitle,
		StarredAt:   time.Now(),
	}
	if article, err := m.store.GetArticle(session.ArticleID); err == nil {
		snapshot.ArticleTitle = article.Title
	}

	if err := m.store.SaveStarredChatSession(snapshot); err != nil {
		return nil, err
	}
	return snapshot, nil
}

func (m *Manager) UnstarChatSession(sessionID string) error {
	return m.store.DeleteStarredChatSession(sessionID)
}

// Items merges both starred collections into one view, newest star first.
func (m *Manager) Items() ([]*storage.CollectionItem, error) {
	articles, err := m.store.GetAllStarredArticles()
	if err != nil {
		return nil, err
	}
	sessions, err := m.store.GetAllStarredChatSessions()
	if err != nil {
		return nil, err
	}

	items := make([]*storage.CollectionItem, 0, len(articles)+len(sessions))
	for _, sa := range articles {
		items = append(items, articleItem(sa))
	}
	for _, sc := range sessions {
		items = append(items, chatItem(sc))
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].StarredAt.After(items[j].StarredAt)
	})
	return items, nil
}

func articleItem(sa *storage.StarredArticle) *storage.CollectionItem {
	preview := sa.AISummary
	if preview == "" {
		preview = truncate(sa.Content, previewRunes)
	}
	if preview == "" {
		preview = truncate(sa.Description, previewRunes)
	}
	return &storage.CollectionItem{
		ID:        sa.ID,
		Type:      storage.ItemArticle,
		Title:     sa.Title,
		Preview:   preview,
		StarredAt: sa.StarredAt,
	}
}

func chatItem(sc *storage.StarredChatSession) *storage.CollectionItem {
	title := sc.Title
	if title == "" {
		title = sc.ArticleTitle
	}
	if title == "" {
		title = "Chat"
	}
	var preview string
	if len(sc.Messages) > 0 {
		preview = truncate(sc.Messages[0].Content, previewRunes)
	}
	return &storage.CollectionItem{
		ID:               sc.ID,
		Type:             storage.ItemChat,
		Title:            title,
		Preview:          preview,
		StarredAt:        sc.StarredAt,
		RelatedArticleID: sc.ArticleID,
	}
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max]) + "…"
}
