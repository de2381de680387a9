package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	bolt "go.etcd.io/bbolt"
)

// StarArticle flips the article's starred flag and writes its snapshot row in
// one transaction, so the flag and the snapshot can never be observed out of
// step. Starring an article that no longer exists is a no-op.
func (s *Store) StarArticle(id, content string, starredAt time.Time) (*StarredArticle, error) {
	var snapshot *StarredArticle
	err := s.db.Update(func(tx *bolt.Tx) error {
		articles := tx.Bucket(articlesBucket)
		var article Article
		if err := getJSON(articles, id, &article); err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil
			}
			return err
		}

		article.Starred = true
		if err := putJSON(articles, id, &article); err != nil {
			return err
		}

		snapshot = &StarredArticle{
			Article:   article,
			Content:   content,
			StarredAt: starredAt,
		}
		return putJSON(tx.Bucket(starredBucket), id, snapshot)
	})
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

// UnstarArticle deletes the snapshot row and clears the flag on the source
// article. The source having already expired is fine; only the snapshot goes.
func (s *Store) UnstarArticle(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		articles := tx.Bucket(articlesBucket)
		var article Article
		if err := getJSON(articles, id, &article); err == nil {
			article.Starred = false
			if err := putJSON(articles, id, &article); err != nil {
				return err
			}
		}
		return tx.Bucket(starredBucket).Delete([]byte(id))
	})
}

func (s *Store) GetStarredArticle(id string) (*StarredArticle, error) {
	var starred StarredArticle
	err := s.db.View(func(tx *bolt.Tx) error {
		return getJSON(tx.Bucket(starredBucket), id, &starred)
	})
	if err != nil {
		return nil, fmt.Errorf("starred article %s: %w", id, err)
	}
	return &starred, nil
}

func (s *Store) GetAllStarredArticles() ([]*StarredArticle, error) {
	var starred []*StarredArticle
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(starredBucket).ForEach(func(_ []byte, v []byte) error {
			var sa StarredArticle
			if err := json.Unmarshal(v, &sa); err != nil {
				return nil
			}
			starred = append(starred, &sa)
			return nil
		})
	})
	sort.Slice(starred, func(i, j int) bool {
		return starred[i].StarredAt.After(starred[j].StarredAt)
	})
	return starred, err
}

// SaveStarredChatSession writes a starred chat snapshot keyed by the source
// session's ID.
func (s *Store) SaveStarredChatSession(snapshot *StarredChatSession) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return putJSON(tx.Bucket(starredChatsBucket), snapshot.ID, snapshot)
	})
}

func (s *Store) DeleteStarredChatSession(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(starredChatsBucket).Delete([]byte(id))
	})
}

func (s *Store) GetStarredChatSession(id string) (*StarredChatSession, error) {
	var starred StarredChatSession
	err := s.db.View(func(tx *bolt.Tx) error {
		return getJSON(tx.Bucket(starredChatsBucket), id, &starred)
	})
	if err != nil {
		return nil, fmt.Errorf("starred chat session %s: %w", id, err)
	}
	return &starred, nil
}

func (s *Store) GetAllStarredChatSessions() ([]*StarredChatSession, error) {
	var starred []*StarredChatSession
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(starredChatsBucket).ForEach(func(_ []byte, v []byte) error {
			var sc StarredChatSession
			if err := json.Unmarshal(v, &sc); err != nil {
				return nil
			}
			starred = append(starred, &sc)
			return nil
		})
	})
	sort.Slice(starred, func(i, j int) bool {
		return starred[i].StarredAt.After(starred[j].StarredAt)
	})
	return starred, err
}
