// Package cleanup runs the periodic expiry sweep. Articles and chat sessions
// past their expiry are deleted; starred snapshots are outside the TTL model
// and are never touched.
package cleanup

import (
	"context"
	"errors"
	"time"

	"github.com/driftrss/drift/internal/debuglog"
	"github.com/driftrss/drift/internal/storage"
)

type Sweeper struct {
	store *storage.Store
	now   func() time.Time
}

func NewSweeper(store *storage.Store) *Sweeper {
	return &Sweeper{store: store, now: time.Now}
}

// Result reports what a single sweep removed.
type Result struct {
	Articles     int
	ChatSessions int
}

// RunOnce sweeps both collections. The two passes are failure-isolated: an
// error cleaning articles does not stop the chat pass, and vice versa. The
// returned error joins whatever failed; the Result counts what succeeded.
func (s *Sweeper) RunOnce() (Result, error) {
	now := s.now()
	var result Result
	var errs []error

	n, err := s.store.DeleteExpiredArticles(now)
	if err != nil {
		debuglog.Errorf("cleanup: article sweep failed: %v", err)
		errs = append(errs, err)
	} else {
		result.Articles = n
	}

	n, err = s.store.DeleteExpiredChatSessions(now)
	if err != nil {
		debuglog.Errorf("cleanup: chat session sweep failed: %v", err)
		errs = append(errs, err)
	} else {
		result.ChatSessions = n
	}

	if result.Articles > 0 || result.ChatSessions > 0 {
		debuglog.Infof("cleanup: removed %d articles, %d chat sessions", result.Articles, result.ChatSessions)
	}
	return result, errors.Join(errs...)
}

// Start sweeps immediately, then on every interval tick until ctx is
// cancelled. Sweep errors are logged and the loop keeps going.
func (s *Sweeper) Start(ctx context.Context, interval time.Duration) {
	if _, err := s.RunOnce(); err != nil {
		debuglog.Warnf("cleanup: startup sweep: %v", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.RunOnce(); err != nil {
				debuglog.Warnf("cleanup: sweep: %v", err)
			}
		}
	}
}
