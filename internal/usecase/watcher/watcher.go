package watcher

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gdugdh24/mpit2026-roulette/internal/domain"
	"github.com/gdugdh24/mpit2026-roulette/internal/repository"
)

const (
	defaultTick   = time.Second
	detachTimeout = 3 * time.Second
)

// Sessions is what the watcher needs from the session usecase. Get resolves
// a due session as a side effect, which is how watching drives timeouts.
type Sessions interface {
	Get(ctx context.Context, userID int, sessionID string) (domain.SessionView, error)
	Detach(ctx context.Context, userID int, sessionID string) error
}

// SessionWatcher projects a session for one participant. It holds no
// authority over the session: every view is recomputed from the stored
// record, on each change event and on each tick.
type SessionWatcher struct {
	sessions Sessions
	feed     repository.ChangeFeed
	tick     time.Duration
	log      *slog.Logger
}

func NewSessionWatcher(sessions Sessions, feed repository.ChangeFeed, tick time.Duration, log *slog.Logger) *SessionWatcher {
	if tick <= 0 {
		tick = defaultTick
	}
	return &SessionWatcher{sessions: sessions, feed: feed, tick: tick, log: log}
}

// Watch streams userID's view of the session until it is terminal or ctx is
// done. The channel is closed after the terminal view. If ctx ends first,
// one best-effort detach is sent in the background.
func (w *SessionWatcher) Watch(ctx context.Context, userID int, sessionID string) (<-chan domain.SessionView, error) {
	first, err := w.sessions.Get(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}

	out := make(chan domain.SessionView, 1)
	out <- first
	if first.Ended {
		close(out)
		return out, nil
	}

	events, stop, err := w.feed.Subscribe(ctx, domain.SessionTopic(sessionID))
	if err != nil {
		// Ticks alone still converge.
		w.log.Warn("change feed unavailable, watching by ticks only", "session_id", sessionID, "error", err)
		events, stop = nil, func() {}
	}

	go w.run(ctx, userID, sessionID, events, stop, out)
	return out, nil
}

func (w *SessionWatcher) run(ctx context.Context, userID int, sessionID string, events <-chan domain.Event, stop func(), out chan<- domain.SessionView) {
	defer close(out)
	defer stop()

	ticker := time.NewTicker(w.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.detach(ctx, userID, sessionID)
			return
		case _, ok := <-events:
			if !ok {
				events = nil
				continue
			}
		case <-ticker.C:
		}

		view, err := w.sessions.Get(ctx, userID, sessionID)
		if err != nil {
			if ctx.Err() == nil {
				w.log.Warn("failed to refresh session view", "session_id", sessionID, "user_id", userID, "error", err)
			}
			continue
		}

		select {
		case out <- view:
		case <-ctx.Done():
			if !view.Ended {
				w.detach(ctx, userID, sessionID)
			}
			return
		}
		if view.Ended {
			return
		}
	}
}

// detach signals abandonment without blocking the caller. Its outcome is
// only logged. Streams cut by a server shutdown are left alone: the client
// reconnects to another replica.
func (w *SessionWatcher) detach(watchCtx context.Context, userID int, sessionID string) {
	if errors.Is(context.Cause(watchCtx), domain.ErrServerShutdown) {
		w.log.Debug("stream closed by shutdown, not detaching", "session_id", sessionID, "user_id", userID)
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), detachTimeout)
		defer cancel()
		if err := w.sessions.Detach(ctx, userID, sessionID); err != nil {
			w.log.Warn("detach signal failed", "session_id", sessionID, "user_id", userID, "error", err)
			return
		}
		w.log.Debug("detach signal sent", "session_id", sessionID, "user_id", userID)
	}()
}
