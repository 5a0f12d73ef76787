package watcher

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/gdugdh24/mpit2026-roulette/internal/domain"
	"github.com/gdugdh24/mpit2026-roulette/internal/repository/memory"
	"github.com/gdugdh24/mpit2026-roulette/internal/usecase/friendship"
	"github.com/gdugdh24/mpit2026-roulette/internal/usecase/session"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// scripted returns views in order and repeats the last one.
type scripted struct {
	mu       sync.Mutex
	views    []domain.SessionView
	err      error
	calls    int
	detached chan int
}

func newScripted(views ...domain.SessionView) *scripted {
	return &scripted{views: views, detached: make(chan int, 4)}
}

func (s *scripted) Get(ctx context.Context, userID int, sessionID string) (domain.SessionView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return domain.SessionView{}, s.err
	}
	i := s.calls
	if i >= len(s.views) {
		i = len(s.views) - 1
	}
	s.calls++
	return s.views[i], nil
}

func (s *scripted) Detach(ctx context.Context, userID int, sessionID string) error {
	s.detached <- userID
	return nil
}

func active(remaining int) domain.SessionView {
	return domain.SessionView{SessionID: "s1", State: domain.StateActive, RemainingSeconds: remaining, OwesDecision: true}
}

func ended(reason domain.EndedReason) domain.SessionView {
	return domain.SessionView{SessionID: "s1", State: domain.StateEnded, Ended: true, EndedReason: reason}
}

func collect(t *testing.T, ch <-chan domain.SessionView) []domain.SessionView {
	t.Helper()
	var views []domain.SessionView
	timeout := time.After(2 * time.Second)
	for {
		select {
		case v, ok := <-ch:
			if !ok {
				return views
			}
			views = append(views, v)
		case <-timeout:
			t.Fatalf("channel not closed, got %d views", len(views))
		}
	}
}

func TestWatchClosesAfterTerminalView(t *testing.T) {
	stub := newScripted(active(3), active(2), ended(domain.EndedTimeout))
	w := NewSessionWatcher(stub, memory.NewChangeFeed(), 5*time.Millisecond, discard)

	ch, err := w.Watch(context.Background(), 1, "s1")
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	views := collect(t, ch)
	if len(views) != 3 {
		t.Fatalf("views = %d, want 3", len(views))
	}
	if last := views[len(views)-1]; !last.Ended || last.EndedReason != domain.EndedTimeout {
		t.Fatalf("last view = %+v", last)
	}

	select {
	case <-stub.detached:
		t.Fatal("a finished watch must not detach")
	case <-time.After(20 * time.Millisecond):
	}
}

func TestWatchOfEndedSession(t *testing.T) {
	stub := newScripted(ended(domain.EndedBothYes))
	w := NewSessionWatcher(stub, memory.NewChangeFeed(), time.Hour, discard)

	ch, err := w.Watch(context.Background(), 1, "s1")
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	if views := collect(t, ch); len(views) != 1 || views[0].EndedReason != domain.EndedBothYes {
		t.Fatalf("views = %+v", views)
	}
}

func TestWatchRejectsOutsider(t *testing.T) {
	stub := newScripted(active(1))
	stub.err = domain.ErrNotParticipant
	w := NewSessionWatcher(stub, memory.NewChangeFeed(), time.Hour, discard)

	if _, err := w.Watch(context.Background(), 9, "s1"); !errors.Is(err, domain.ErrNotParticipant) {
		t.Fatalf("err = %v", err)
	}
}

func TestWatchRefreshesOnChangeEvent(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	feed := memory.NewChangeFeed()
	stub := newScripted(active(200), ended(domain.EndedOneNo))
	w := NewSessionWatcher(stub, feed, time.Hour, discard)

	ch, err := w.Watch(ctx, 1, "s1")
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	<-ch

	_ = feed.Publish(ctx, domain.SessionTopic("s1"), domain.Event{Type: domain.EventSessionEnded, SessionID: "s1"})
	select {
	case v := <-ch:
		if v.EndedReason != domain.EndedOneNo {
			t.Fatalf("view = %+v", v)
		}
	case <-time.After(time.Second):
		t.Fatal("event did not trigger a refresh")
	}
}

func TestWatchDetachesWhenClientLeaves(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	stub := newScripted(active(200))
	w := NewSessionWatcher(stub, memory.NewChangeFeed(), time.Hour, discard)

	ch, err := w.Watch(ctx, 7, "s1")
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	<-ch
	cancel()
	collect(t, ch)

	select {
	case user := <-stub.detached:
		if user != 7 {
			t.Fatalf("detached user = %d", user)
		}
	case <-time.After(time.Second):
		t.Fatal("no detach signal")
	}
}

func TestWatchDoesNotDetachOnShutdown(t *testing.T) {
	ctx, cancel := context.WithCancelCause(context.Background())
	stub := newScripted(active(200))
	w := NewSessionWatcher(stub, memory.NewChangeFeed(), time.Hour, discard)

	ch, err := w.Watch(ctx, 7, "s1")
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	<-ch
	cancel(domain.ErrServerShutdown)
	collect(t, ch)

	select {
	case <-stub.detached:
		t.Fatal("shutdown must not count as leaving")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestWatchDrivesTimeout(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	tickets := memory.NewTicketRepository(store)
	sessions := memory.NewSessionRepository(store)
	feed := memory.NewChangeFeed()

	now := time.Now().UTC()
	_ = tickets.Create(ctx, &domain.WaitingTicket{ID: "a", UserID: 1, QueuedAt: now, Status: domain.TicketWaiting})
	_ = tickets.Create(ctx, &domain.WaitingTicket{ID: "b", UserID: 2, QueuedAt: now, Status: domain.TicketWaiting})
	if err := tickets.Claim(ctx, "b", "a", domain.NewMatchSession("s1", 1, 2, now, 150*time.Millisecond)); err != nil {
		t.Fatalf("Claim: %v", err)
	}

	finalizer := friendship.NewFriendshipUseCase(sessions, memory.NewFriendshipRepository(store), memory.NewProfileRepository(store), discard)
	uc := session.NewSessionUseCase(sessions, tickets, finalizer, feed, discard)
	if _, err := uc.Submit(ctx, 1, "s1", "yes"); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	w := NewSessionWatcher(uc, feed, 20*time.Millisecond, discard)
	ch, err := w.Watch(ctx, 1, "s1")
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	views := collect(t, ch)
	last := views[len(views)-1]
	if !last.Ended || last.EndedReason != domain.EndedTimeout || last.MyDecision != domain.DecisionYes {
		t.Fatalf("last view = %+v", last)
	}

	s, _ := sessions.GetByID(ctx, "s1")
	if s.DecisionB != domain.DecisionNo {
		t.Fatalf("partner decision = %s, want coerced no", s.DecisionB)
	}
}
