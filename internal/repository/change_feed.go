package repository

import (
	"context"

	"github.com/gdugdh24/mpit2026-roulette/internal/domain"
)

// ChangeFeed delivers change notifications between processes. Delivery is
// at-most-once and unordered across topics; subscribers must re-read state.
type ChangeFeed interface {
	Publish(ctx context.Context, topic string, event domain.Event) error
	// Subscribe returns a channel of events on the given topics. The channel
	// is closed when ctx is done or the returned cancel func is called.
	Subscribe(ctx context.Context, topics ...string) (<-chan domain.Event, func(), error)
}
