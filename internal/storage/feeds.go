package storage

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"
)

// EnsureFeed inserts feed unless a feed with the same URL already exists, in
// which case the existing record is returned untouched. Adding a duplicate URL
// is not an error; both callers converge on the same identity. The check and
// the insert run in one write transaction, so concurrent adds of the same URL
// cannot produce two rows.
func (s *Store) EnsureFeed(feed *Feed) (*Feed, bool, error) {
	var (
		existing *Feed
		created  bool
	)
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(feedsBucket)
		if found := findFeedByURL(b, feed.URL); found != nil {
			existing = found
			return nil
		}
		created = true
		return putJSON(b, feed.ID, feed)
	})
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}
	return feed, created, nil
}

func findFeedByURL(b *bolt.Bucket, url string) *Feed {
	var match *Feed
	_ = b.ForEach(func(_ []byte, v []byte) error {
		var f Feed
		if err := json.Unmarshal(v, &f); err != nil {
			return nil
		}
		if f.URL == url {
			match = &f
		}
		return nil
	})
	return match
}

func (s *Store) SaveFeed(feed *Feed) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return putJSON(tx.Bucket(feedsBucket), feed.ID, feed)
	})
}

func (s *Store) GetFeed(id string) (*Feed, error) {
	var feed Feed
	err := s.db.View(func(tx *bolt.Tx) error {
		return getJSON(tx.Bucket(feedsBucket), id, &feed)
	})
	if err != nil {
		return nil, fmt.Errorf("feed %s: %w", id, err)
	}
	return &feed, nil
}

func (s *Store) GetFeedByURL(url string) (*Feed, error) {
	var feed *Feed
	err := s.db.View(func(tx *bolt.Tx) error {
		feed = findFeedByURL(tx.Bucket(feedsBucket), url)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if feed == nil {
		return nil, fmt.Errorf("feed with url %s: %w", url, ErrNotFound)
	}
	return feed, nil
}

func (s *Store) GetAllFeeds() ([]*Feed, error) {
	var feeds []*Feed
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(feedsBucket).ForEach(func(_ []byte, v []byte) error {
			var feed Feed
			if err := json.Unmarshal(v, &feed); err != nil {
				return err
			}
			feeds = append(feeds, &feed)
			return nil
		})
	})
	sort.Slice(feeds, func(i, j int) bool {
		ti := feeds[i].Title
		tj := feeds[j].Title
		if ti == "" {
			ti = feeds[i].URL
		}
		if tj == "" {
			tj = feeds[j].URL
		}
		return strings.ToLower(ti) < strings.ToLower(tj)
	})
	return feeds, err
}

// DeleteFeed removes the feed and every article belonging to it in a single
// transaction: a reader never observes the feed gone with orphans left behind.
// Starred snapshots are not part of the cascade.
func (s *Store) DeleteFeed(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(feedsBucket).Delete([]byte(id)); err != nil {
			return err
		}

		c := tx.Bucket(articlesBucket).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var article Article
			if err := json.Unmarshal(v, &article); err != nil {
				continue
			}
			if article.FeedID == id {
				if err := c.Delete(); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// SaveArticles upserts fetched articles by primary key. The whole batch is
// all-or-nothing. Re-fetching an item the store already has keeps its read and
// starred flags, its AI summary, and its original expiry clock; only brand-new
// rows get a fresh now+TTL window.
func (s *Store) SaveArticles(articles []*Article) error {
	expiry := time.Now().Add(s.ttl)
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(articlesBucket)
		for _, article := range articles {
			var prev Article
			if err := getJSON(b, article.ID, &prev); err == nil {
				article.Read = prev.Read
				article.Starred = prev.Starred
				if article.AISummary == "" {
					article.AISummary = prev.AISummary
					article.SummaryGeneratedAt = prev.SummaryGeneratedAt
				}
				if !prev.ExpiresAt.IsZero() {
					article.ExpiresAt = prev.ExpiresAt
				}
			}
			if article.ExpiresAt.IsZero() {
				article.ExpiresAt = expiry
			}
			if err := putJSON(b, article.ID, article); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) GetArticle(id string) (*Article, error) {
	var article Article
	err := s.db.View(func(tx *bolt.Tx) error {
		return getJSON(tx.Bucket(articlesBucket), id, &article)
	})
	if err != nil {
		return nil, fmt.Errorf("article %s: %w", id, err)
	}
	return &article, nil
}

// GetArticles returns articles sorted by publish date, newest first. An empty
// feedID selects across all feeds; limit <= 0 means no limit.
func (s *Store) GetArticles(feedID string, limit int) ([]*Article, error) {
	var articles []*Article
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(articlesBucket).ForEach(func(_ []byte, v []byte) error {
			var article Article
			if err := json.Unmarshal(v, &article); err != nil {
				return nil
			}
			if feedID == "" || article.FeedID == feedID {
				articles = append(articles, &article)
			}
			return nil
		})
	})
	sort.Slice(articles, func(i, j int) bool {
		return articles[i].PubDate.After(articles[j].PubDate)
	})
	if limit > 0 && len(articles) > limit {
		articles = articles[:limit]
	}
	return articles, err
}

func (s *Store) MarkArticleRead(id string, read bool) error {
	return s.updateArticle(id, func(a *Article) {
		a.Read = read
	})
}

// SetArticleSummary attaches an AI summary and resets the expiry clock:
// generating a summary counts as the user engaging with the article, so it
// must not expire out from under them.
func (s *Store) SetArticleSummary(id, summary string) error {
	now := time.Now()
	return s.updateArticle(id, func(a *Article) {
		a.AISummary = summary
		a.SummaryGeneratedAt = &now
		a.ExpiresAt = now.Add(s.ttl)
	})
}

func (s *Store) updateArticle(id string, mutate func(*Article)) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(articlesBucket)
		var article Article
		if err := getJSON(b, id, &article); err != nil {
			return fmt.Errorf("article %s: %w", id, err)
		}
		mutate(&article)
		return putJSON(b, id, &article)
	})
}

// DeleteExpiredArticles removes every unstarred article whose expiry has
// passed and reports how many were deleted. Starred articles are exempt no
// matter how stale.
func (s *Store) DeleteExpiredArticles(now time.Time) (int, error) {
	deleted := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		c := tx.Bucket(articlesBucket).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var article Article
			if err := json.Unmarshal(v, &article); err != nil {
				continue
			}
			if article.Starred || article.ExpiresAt.IsZero() || !article.ExpiresAt.Before(now) {
				continue
			}
			if err := c.Delete(); err != nil {
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
