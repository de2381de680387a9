package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

// ErrNotFound is returned by lookups for records that do not exist.
var ErrNotFound = errors.New("not found")

var (
	feedsBucket         = []byte("feeds")
	articlesBucket      = []byte("articles")
	starredBucket       = []byte("starred_articles")
	chatsBucket         = []byte("chat_sessions")
	chatByArticleBucket = []byte("chat_by_article")
	starredChatsBucket  = []byte("starred_chat_sessions")
	notesBucket         = []byte("notes")
	settingsBucket      = []byte("settings")
	metaBucket          = []byte("metadata")
)

type Store struct {
	db  *bolt.DB
	ttl time.Duration
}

// Option configures a Store at open time.
type Option func(*Store)

// WithTTL overrides the default article/chat expiration window.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func NewStore(dbPath string, opts ...Option) (*Store, error) {
	db, err := bolt.Open(dbPath, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, ttl: DefaultTTL}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}

	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// TTL reports the expiration window applied to articles and chat sessions.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

func putJSON(b *bolt.Bucket, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return b.Put([]byte(key), data)
}

func getJSON(b *bolt.Bucket, key string, v any) error {
	data := b.Get([]byte(key))
	if data == nil {
		return ErrNotFound
	}
	return json.Unmarshal(data, v)
}

// SetSetting persists a small configuration value under key.
func (s *Store) SetSetting(key string, value any) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return putJSON(tx.Bucket(settingsBucket), key, value)
	})
}

// GetSetting loads the value stored under key into out.
func (s *Store) GetSetting(key string, out any) error {
	return s.db.View(func(tx *bolt.Tx) error {
		if err := getJSON(tx.Bucket(settingsBucket), key, out); err != nil {
			if errors.Is(err, ErrNotFound) {
				return fmt.Errorf("setting %q: %w", key, ErrNotFound)
			}
			return err
		}
		return nil
	})
}

// DeleteSetting removes the value stored under key. Missing keys are ignored.
func (s *Store) DeleteSetting(key string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(settingsBucket).Delete([]byte(key))
	})
}
