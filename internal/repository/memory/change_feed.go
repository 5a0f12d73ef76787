package memory

import (
	"context"
	"sync"

	"github.com/gdugdh24/mpit2026-roulette/internal/domain"
	"github.com/gdugdh24/mpit2026-roulette/internal/repository"
)

const subscriberBuffer = 16

type subscriber struct {
	ch     chan domain.Event
	topics []string
}

// ChangeFeed fans events out to subscribers in the same process. A slow
// subscriber loses events rather than blocking publishers.
type ChangeFeed struct {
	mu     sync.RWMutex
	topics map[string]map[*subscriber]struct{}
}

func NewChangeFeed() *ChangeFeed {
	return &ChangeFeed{topics: make(map[string]map[*subscriber]struct{})}
}

var _ repository.ChangeFeed = (*ChangeFeed)(nil)

func (f *ChangeFeed) Publish(ctx context.Context, topic string, event domain.Event) error {
	f.mu.RLock()
	defer f.mu.RUnlock()

	for sub := range f.topics[topic] {
		select {
		case sub.ch <- event:
		default:
		}
	}
	return nil
}

func (f *ChangeFeed) Subscribe(ctx context.Context, topics ...string) (<-chan domain.Event, func(), error) {
	sub := &subscriber{ch: make(chan domain.Event, subscriberBuffer), topics: topics}

	f.mu.Lock()
	for _, topic := range topics {
		if f.topics[topic] == nil {
			f.topics[topic] = make(map[*subscriber]struct{})
		}
		f.topics[topic][sub] = struct{}{}
	}
	f.mu.Unlock()

	done := make(chan struct{})
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			f.mu.Lock()
			for _, topic := range sub.topics {
				delete(f.topics[topic], sub)
				if len(f.topics[topic]) == 0 {
					delete(f.topics, topic)
				}
			}
			f.mu.Unlock()
			close(sub.ch)
		})
	}

	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-done:
		}
	}()

	return sub.ch, cancel, nil
}
