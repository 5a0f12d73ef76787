package memory

import (
	"context"
	"sort"

	"github.com/gdugdh24/mpit2026-roulette/internal/domain"
	"github.com/gdugdh24/mpit2026-roulette/internal/repository"
)

type friendshipRepository struct {
	s *Store
}

func NewFriendshipRepository(s *Store) repository.FriendshipRepository {
	return &friendshipRepository{s: s}
}

func (r *friendshipRepository) UpsertEdge(ctx context.Context, edge *domain.FriendshipEdge) error {
	if edge.OwnerID == edge.FriendID {
		return domain.ErrInvalidInput
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := edgeKey{owner: edge.OwnerID, friend: edge.FriendID}
	if _, exists := r.s.friendships[key]; exists {
		return nil
	}
	e := *edge
	r.s.friendships[key] = &e
	return nil
}

func (r *friendshipRepository) ListByOwner(ctx context.Context, ownerID int, limit, offset int) ([]*domain.FriendshipEdge, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []*domain.FriendshipEdge
	for key, edge := range r.s.friendships {
		if key.owner == ownerID {
			e := *edge
			out = append(out, &e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].AddedAt.After(out[j].AddedAt)
	})
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *friendshipRepository) AreFriends(ctx context.Context, ownerID, friendID int) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	_, ok := r.s.friendships[edgeKey{owner: ownerID, friend: friendID}]
	return ok, nil
}
