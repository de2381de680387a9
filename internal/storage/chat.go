package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

// SaveChatSession upserts a chat session. There is at most one live session
// per article: if the article already has one, the incoming session adopts its
// ID and replaces it in place. Every save resets the expiry clock. Saving with
// an empty message list clears the conversation without deleting the row.
func (s *Store) SaveChatSession(session *ChatSession) error {
	now := time.Now()
	return s.db.Update(func(tx *bolt.Tx) error {
		chats := tx.Bucket(chatsBucket)
		index := tx.Bucket(chatByArticleBucket)

		if existing := index.Get([]byte(session.ArticleID)); existing != nil {
			session.ID = string(existing)
			var prev ChatSession
			if err := getJSON(chats, session.ID, &prev); err == nil {
				session.CreatedAt = prev.CreatedAt
			}
		}
		if session.CreatedAt.IsZero() {
			session.CreatedAt = now
		}
		session.LastUpdatedAt = now
		session.ExpiresAt = now.Add(s.ttl)

		if err := putJSON(chats, session.ID, session); err != nil {
			return err
		}
		return index.Put([]byte(session.ArticleID), []byte(session.ID))
	})
}

func (s *Store) GetChatSession(id string) (*ChatSession, error) {
	var session ChatSession
	err := s.db.View(func(tx *bolt.Tx) error {
		return getJSON(tx.Bucket(chatsBucket), id, &session)
	})
	if err != nil {
		return nil, fmt.Errorf("chat session %s: %w", id, err)
	}
	return &session, nil
}

func (s *Store) GetChatSessionForArticle(articleID string) (*ChatSession, error) {
	var session ChatSession
	err := s.db.View(func(tx *bolt.Tx) error {
		id := tx.Bucket(chatByArticleBucket).Get([]byte(articleID))
		if id == nil {
			return ErrNotFound
		}
		return getJSON(tx.Bucket(chatsBucket), string(id), &session)
	})
	if err != nil {
		return nil, fmt.Errorf("chat session for article %s: %w", articleID, err)
	}
	return &session, nil
}

// DeleteChatSession removes the session and its article index entry.
func (s *Store) DeleteChatSession(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return deleteChatSessionTx(tx, id)
	})
}

func deleteChatSessionTx(tx *bolt.Tx, id string) error {
	chats := tx.Bucket(chatsBucket)
	var session ChatSession
	if err := getJSON(chats, id, &session); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}
	if err := chats.Delete([]byte(id)); err != nil {
		return err
	}
	index := tx.Bucket(chatByArticleBucket)
	if string(index.Get([]byte(session.ArticleID))) == id {
		return index.Delete([]byte(session.ArticleID))
	}
	return nil
}

// DeleteExpiredChatSessions removes every chat session whose expiry has
// passed. Starred chat snapshots live in their own bucket and are untouched.
func (s *Store) DeleteExpiredChatSessions(now time.Time) (int, error) {
	deleted := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		var expired []string
		if err := tx.Bucket(chatsBucket).ForEach(func(k, v []byte) error {
			var session ChatSession
			if err := json.Unmarshal(v, &session); err != nil {
				return nil
			}
			if !session.ExpiresAt.IsZero() && session.ExpiresAt.Before(now) {
				expired = append(expired, string(k))
			}
			return nil
		}); err != nil {
			return err
		}
		for _, id := range expired {
			if err := deleteChatSessionTx(tx, id); err != nil {
				return err
			}
			deleted++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}
