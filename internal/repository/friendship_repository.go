package repository

import (
	"context"

	"github.com/gdugdh24/mpit2026-roulette/internal/domain"
)

type FriendshipRepository interface {
	// UpsertEdge is safe to repeat with identical arguments.
	UpsertEdge(ctx context.Context, edge *domain.FriendshipEdge) error
	ListByOwner(ctx context.Context, ownerID int, limit, offset int) ([]*domain.FriendshipEdge, error)
	AreFriends(ctx context.Context, ownerID, friendID int) (bool, error)
}
