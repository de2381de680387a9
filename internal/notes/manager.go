// Package notes manages free-form markdown notes. Notes never expire and may
// reference articles or chat sessions; references are snapshots, so they stay
// meaningful after the referenced record has been swept.
package notes

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/driftrss/drift/internal/storage"
)

type Manager struct {
	store *storage.Store
}

func NewManager(store *storage.Store) *Manager {
	return &Manager{store: store}
}

// Draft holds the user-supplied fields for a new or updated note. Nil fields
// in an update are left unchanged.
type Draft struct {
	Title   *string
	Content *string
	Tags    *[]string
}

func (m *Manager) Create(title, content string, tags []string) (*storage.Note, error) {
	now := time.Now()
	note := &storage.Note{
		ID:        uuid.New().String(),
		Title:     title,
		Content:   content,
		Tags:      tags,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := m.store.SaveNote(note); err != nil {
		return nil, err
	}
	return note, nil
}

// Update merges the draft's non-nil fields into the note and bumps UpdatedAt.
// Returns storage.ErrNotFound when the note does not exist.
func (m *Manager) Update(id string, draft Draft) (*storage.Note, error) {
	return m.store.UpdateNote(id, func(note *storage.Note) {
		if draft.Title != nil {
			note.Title = *draft.Title
		}
		if draft.Content != nil {
			note.Content = *draft.Content
		}
		if draft.Tags != nil {
			note.Tags = *draft.Tags
		}
		note.UpdatedAt = time.Now()
	})
}

func (m *Manager) Get(id string) (*storage.Note, error) {
	return m.store.GetNote(id)
}

// All returns every note, most recently updated first.
func (m *Manager) All() ([]*storage.Note, error) {
	return m.store.GetAllNotes()
}

func (m *Manager) Delete(id string) error {
	return m.store.DeleteNote(id)
}

// AddReference appends a reference to the note. Unlike other note operations
// this fails loudly on a missing note: the caller has a specific note in mind
// and a silent no-op would lose the reference.
func (m *Manager) AddReference(noteID string, ref storage.NoteReference) (*storage.Note, error) {
	if ref.AddedAt.IsZero() {
		ref.AddedAt = time.Now()
	}
	note, err := m.store.UpdateNote(noteID, func(note *storage.Note) {
		note.References = append(note.References, ref)
		note.UpdatedAt = time.Now()
	})
	if err != nil {
		return nil, fmt.Errorf("adding reference to note %s: %w", noteID, err)
	}
	return note, nil
}

// ReferenceForArticle builds a snapshot reference from a stored article.
func ReferenceForArticle(article *storage.Article) storage.NoteReference {
	return storage.NoteReference{
		Type:    storage.ItemArticle,
		ID:      article.ID,
		Title:   article.Title,
		Snippet: article.Description,
		URL:     article.Link,
		AddedAt: time.Now(),
	}
}

// ReferenceForChat builds a snapshot reference from a chat session, quoting
// the first user message as the snippet.
func ReferenceForChat(session *storage.ChatSession, title string) storage.NoteReference {
	var snippet string
	for _, msg := range session.Messages {
		if msg.Role == "user" {
			snippet = msg.Content
			break
		}
	}
	return storage.NoteReference{
		Type:    storage.ItemChat,
		ID:      session.ID,
		Title:   title,
		Snippet: snippet,
		AddedAt: time.Now(),
	}
}
