package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/gdugdh24/mpit2026-roulette/internal/domain"
	"github.com/gdugdh24/mpit2026-roulette/internal/repository"
	"github.com/redis/go-redis/v9"
)

const channelPrefix = "roulette:"

// RedisFeed is a ChangeFeed over Redis Pub/Sub. It lets every API replica
// see changes written by the others. Redis Pub/Sub does not buffer for
// absent subscribers, which is fine: events are hints and watchers also
// poll.
type RedisFeed struct {
	client *redis.Client
	log    *slog.Logger
}

func NewRedisFeed(client *redis.Client, log *slog.Logger) repository.ChangeFeed {
	return &RedisFeed{client: client, log: log}
}

func (f *RedisFeed) Publish(ctx context.Context, topic string, event domain.Event) error {
	payload, err := encode(event)
	if err != nil {
		return err
	}
	if err := f.client.Publish(ctx, channelName(topic), payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

func (f *RedisFeed) Subscribe(ctx context.Context, topics ...string) (<-chan domain.Event, func(), error) {
	channels := make([]string, len(topics))
	for i, t := range topics {
		channels[i] = channelName(t)
	}

	ps := f.client.Subscribe(ctx, channels...)
	// Wait for the subscription confirmation so no event published after
	// Subscribe returns is missed.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, nil, fmt.Errorf("subscribe: %w", err)
	}

	out := make(chan domain.Event, 16)
	done := make(chan struct{})
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			_ = ps.Close()
		})
	}

	go func() {
		defer close(out)
		msgs := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				cancel()
				return
			case <-done:
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				event, err := decode(msg.Payload)
				if err != nil {
					f.log.Warn("dropping malformed change event", "topic", topicOf(msg.Channel), "error", err)
					continue
				}
				select {
				case out <- event:
				default:
					f.log.Debug("subscriber lagging, dropping change event", "topic", topicOf(msg.Channel))
				}
			}
		}
	}()

	return out, cancel, nil
}

func channelName(topic string) string {
	return channelPrefix + topic
}

func topicOf(channel string) string {
	return strings.TrimPrefix(channel, channelPrefix)
}

func encode(event domain.Event) ([]byte, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("encode event: %w", err)
	}
	return payload, nil
}

func decode(payload string) (domain.Event, error) {
	var event domain.Event
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		return domain.Event{}, err
	}
	if event.Type == "" {
		return domain.Event{}, fmt.Errorf("event without type")
	}
	return event, nil
}
