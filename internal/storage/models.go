package storage

import (
	"time"
)

// DefaultTTL is how long cached articles and chat sessions live before the
// cleanup sweep may remove them. Starring exempts a record from the sweep.
const DefaultTTL = 24 * time.Hour

type Feed struct {
	ID           string    `json:"id"`
	URL          string    `json:"url"`
	Title        string    `json:"title"`
	SiteURL      string    `json:"site_url,omitempty"`
	Category     string    `json:"category,omitempty"`
	Description  string    `json:"description,omitempty"`
	Favicon      string    `json:"favicon,omitempty"`
	AIFilter     string    `json:"ai_filter,omitempty"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	LastFetched  time.Time `json:"last_fetched"`
	CreatedAt    time.Time `json:"created_at"`
}

type Article struct {
	ID                 string     `json:"id"`
	FeedID             string     `json:"feed_id"`
	Title              string     `json:"title"`
	Link               string     `json:"link"`
	PubDate            time.Time  `json:"pub_date"`
	Author             string     `json:"author,omitempty"`
	Description        string     `json:"description,omitempty"`
	Read               bool       `json:"read"`
	Starred            bool       `json:"starred"`
	AISummary          string     `json:"ai_summary,omitempty"`
	SummaryGeneratedAt *time.Time `json:"summary_generated_at,omitempty"`
	ExpiresAt          time.Time  `json:"expires_at"`
}

// StarredArticle is a snapshot of an Article taken at star time, with the full
// fetched page content attached. It shares its ID with the source Article but
// its lifetime is user-controlled: the sweep never touches it, and it survives
// the source Article expiring.
type StarredArticle struct {
	Article
	Content   string    `json:"content"`
	StarredAt time.Time `json:"starred_at"`
}

// MessageState is the terminal state of a single chat turn. An interrupted
// turn (stream cancelled mid-flight) is distinct from a failed one.
type MessageState string

const (
	MessageOK          MessageState = "ok"
	MessageInterrupted MessageState = "interrupted"
	MessageFailed      MessageState = "failed"
)

type ChatMessage struct {
	Role      string       `json:"role"`
	Content   string       `json:"content"`
	State     MessageState `json:"state,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
}

type ChatSession struct {
	ID            string        `json:"id"`
	ArticleID     string        `json:"article_id"`
	Messages      []ChatMessage `json:"messages"`
	Model         string        `json:"model,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	LastUpdatedAt time.Time     `json:"last_updated_at"`
	ExpiresAt     time.Time     `json:"expires_at"`
}

type StarredChatSession struct {
	ChatSession
	Title        string    `json:"title,omitempty"`
	ArticleTitle string    `json:"article_title,omitempty"`
	StarredAt    time.Time `json:"starred_at"`
}

type ItemType string

const (
	ItemArticle ItemType = "article"
	ItemChat    ItemType = "chat"
)

// CollectionItem is a derived read-only view unifying starred articles and
// starred chat sessions. It is never persisted.
type CollectionItem struct {
	ID               string    `json:"id"`
	Type             ItemType  `json:"type"`
	Title            string    `json:"title"`
	Preview          string    `json:"preview"`
	StarredAt        time.Time `json:"starred_at"`
	RelatedArticleID string    `json:"related_article_id,omitempty"`
}

type NoteReference struct {
	Type    ItemType  `json:"type"`
	ID      string    `json:"id"`
	Title   string    `json:"title"`
	Snippet string    `json:"snippet,omitempty"`
	URL     string    `json:"url,omitempty"`
	AddedAt time.Time `json:"added_at"`
}

type Note struct {
	ID         string          `json:"id"`
	Title      string          `json:"title"`
	Content    string          `json:"content"`
	Tags       []string        `json:"tags,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
	References []NoteReference `json:"references,omitempty"`
}
