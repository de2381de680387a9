package storage

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

var schemaVersionKey = []byte("schema_version")

// A migration evolves the database from version-1 to version. Each apply
// function must be idempotent: re-running it against an already migrated
// database is harmless.
type migration struct {
	version uint64
	apply   func(tx *bolt.Tx, ttl time.Duration) error
}

var migrations = []migration{
	{1, migrateBaseBuckets},
	{2, migrateStarredAndChats},
	{3, migrateNotes},
	{4, migrateBackfillExpiry},
}

func (s *Store) migrate() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		meta, err := tx.CreateBucketIfNotExists(metaBucket)
		if err != nil {
			return err
		}

		current := uint64(0)
		if raw := meta.Get(schemaVersionKey); len(raw) == 8 {
			current = binary.BigEndian.Uint64(raw)
		}

		for _, m := range migrations {
			if m.version <= current {
				continue
			}
			if err := m.apply(tx, s.ttl); err != nil {
				return fmt.Errorf("schema v%d: %w", m.version, err)
			}
			var buf [8]byte
			binary.BigEndian.PutUint64(buf[:], m.version)
			if err := meta.Put(schemaVersionKey, buf[:]); err != nil {
				return err
			}
		}
		return nil
	})
}

func createBuckets(tx *bolt.Tx, names ...[]byte) error {
	for _, name := range names {
		if _, err := tx.CreateBucketIfNotExists(name); err != nil {
			return err
		}
	}
	return nil
}

func migrateBaseBuckets(tx *bolt.Tx, _ time.Duration) error {
	return createBuckets(tx, feedsBucket, articlesBucket, settingsBucket)
}

func migrateStarredAndChats(tx *bolt.Tx, _ time.Duration) error {
	return createBuckets(tx, starredBucket, chatsBucket, chatByArticleBucket, starredChatsBucket)
}

func migrateNotes(tx *bolt.Tx, _ time.Duration) error {
	return createBuckets(tx, notesBucket)
}

// migrateBackfillExpiry introduced the expiration window. Rows written before
// it exists carry a zero ExpiresAt, which must not be read as already expired,
// so every such row gets now+ttl.
func migrateBackfillExpiry(tx *bolt.Tx, ttl time.Duration) error {
	expiry := time.Now().Add(ttl)

	if err := backfillBucket(tx.Bucket(articlesBucket), func(v []byte) ([]byte, error) {
		var a Article
		if err := json.Unmarshal(v, &a); err != nil || !a.ExpiresAt.IsZero() {
			return nil, nil
		}
		a.ExpiresAt = expiry
		return json.Marshal(&a)
	}); err != nil {
		return err
	}

	return backfillBucket(tx.Bucket(chatsBucket), func(v []byte) ([]byte, error) {
		var c ChatSession
		if err := json.Unmarshal(v, &c); err != nil || !c.ExpiresAt.IsZero() {
			return nil, nil
		}
		c.ExpiresAt = expiry
		return json.Marshal(&c)
	})
}

// backfillBucket rewrites every row for which rewrite returns a non-nil value.
// Collects first, writes after: a bucket must not be mutated mid-iteration.
func backfillBucket(b *bolt.Bucket, rewrite func(v []byte) ([]byte, error)) error {
	pending := make(map[string][]byte)
	if err := b.ForEach(func(k, v []byte) error {
		out, err := rewrite(v)
		if err != nil {
			return err
		}
		if out != nil {
			pending[string(k)] = out
		}
		return nil
	}); err != nil {
		return err
	}
	for k, v := range pending {
		if err := b.Put([]byte(k), v); err != nil {
			return err
		}
	}
	return nil
}
