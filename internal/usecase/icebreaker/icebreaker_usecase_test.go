package icebreaker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/gdugdh24/mpit2026-roulette/internal/domain"
	"github.com/gdugdh24/mpit2026-roulette/internal/repository"
	"github.com/gdugdh24/mpit2026-roulette/internal/repository/memory"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type stubGenerator struct {
	mu    sync.Mutex
	calls int
	lines []string
	err   error
	gate  chan struct{}
}

func (g *stubGenerator) GenerateIcebreakers(ctx context.Context, mine, theirs []string) ([]string, error) {
	if g.gate != nil {
		<-g.gate
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	return g.lines, g.err
}

type mapCache struct {
	mu   sync.Mutex
	data map[string][]string
	ttl  time.Duration
}

func (c *mapCache) GetLines(ctx context.Context, key string) ([]string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *mapCache) SetLines(ctx context.Context, key string, lines []string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = lines
	c.ttl = ttl
	return nil
}

func setup(t *testing.T, gen Generator, cache Cache) (*IcebreakerUseCase, repository.SessionRepository) {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	store.PutProfile(domain.ProfileSummary{UserID: 1, DisplayName: "Ann", Interests: []string{"chess"}})
	store.PutProfile(domain.ProfileSummary{UserID: 2, DisplayName: "Bob", Interests: []string{"Chess", "jazz"}})

	tickets := memory.NewTicketRepository(store)
	_ = tickets.Create(ctx, &domain.WaitingTicket{ID: "a", UserID: 1, QueuedAt: t0, Status: domain.TicketWaiting})
	_ = tickets.Create(ctx, &domain.WaitingTicket{ID: "b", UserID: 2, QueuedAt: t0, Status: domain.TicketWaiting})
	if err := tickets.Claim(ctx, "b", "a", domain.NewMatchSession("s1", 1, 2, t0, 240*time.Second)); err != nil {
		t.Fatalf("Claim: %v", err)
	}

	sessions := memory.NewSessionRepository(store)
	uc := NewIcebreakerUseCase(sessions, memory.NewProfileRepository(store), gen, cache, slog.New(slog.NewTextHandler(io.Discard, nil)))
	uc.now = func() time.Time { return t0.Add(40 * time.Second) }
	return uc, sessions
}

func TestSuggestUsesGeneratorAndCaches(t *testing.T) {
	ctx := context.Background()
	gen := &stubGenerator{lines: []string{"hi", "hey", "yo"}}
	cache := &mapCache{data: map[string][]string{}}
	uc, _ := setup(t, gen, cache)

	for i := 0; i < 2; i++ {
		lines, err := uc.Suggest(ctx, 1, "s1")
		if err != nil {
			t.Fatalf("Suggest: %v", err)
		}
		if len(lines) != 3 || lines[0] != "hi" {
			t.Fatalf("lines = %q", lines)
		}
	}
	if gen.calls != 1 {
		t.Fatalf("generator calls = %d, want 1", gen.calls)
	}
	if cache.ttl != 200*time.Second {
		t.Fatalf("cache ttl = %v, want remaining session time", cache.ttl)
	}
}

func TestSuggestConcurrentCallsShareGeneration(t *testing.T) {
	ctx := context.Background()
	gen := &stubGenerator{lines: []string{"hi"}, gate: make(chan struct{})}
	uc, _ := setup(t, gen, nil)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := uc.Suggest(ctx, 1, "s1"); err != nil {
				t.Errorf("Suggest: %v", err)
			}
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(gen.gate)
	wg.Wait()

	if gen.calls > 2 {
		t.Fatalf("generator calls = %d, want calls to be shared", gen.calls)
	}
}

func TestSuggestFallsBack(t *testing.T) {
	ctx := context.Background()

	for name, gen := range map[string]Generator{
		"no generator":     nil,
		"generator failed": &stubGenerator{err: errors.New("quota exceeded")},
	} {
		t.Run(name, func(t *testing.T) {
			uc, _ := setup(t, gen, nil)
			lines, err := uc.Suggest(ctx, 1, "s1")
			if err != nil {
				t.Fatalf("Suggest: %v", err)
			}
			if len(lines) != 3 {
				t.Fatalf("lines = %q", lines)
			}
		})
	}
}

func TestSuggestRequiresOpenSession(t *testing.T) {
	ctx := context.Background()
	uc, sessions := setup(t, nil, nil)

	if _, err := uc.Suggest(ctx, 3, "s1"); !errors.Is(err, domain.ErrNotParticipant) {
		t.Fatalf("outsider err = %v", err)
	}
	if _, err := uc.Suggest(ctx, 1, "missing"); !errors.Is(err, domain.ErrSessionEnded) {
		t.Fatalf("missing err = %v", err)
	}

	_, _ = sessions.End(ctx, "s1", repository.EndParams{
		Reason: domain.EndedTimeout, DecisionA: domain.DecisionNo, DecisionB: domain.DecisionNo,
		ExpectA: domain.DecisionPending, ExpectB: domain.DecisionPending, At: t0,
	})
	if _, err := uc.Suggest(ctx, 1, "s1"); !errors.Is(err, domain.ErrSessionEnded) {
		t.Fatalf("ended err = %v", err)
	}
}
