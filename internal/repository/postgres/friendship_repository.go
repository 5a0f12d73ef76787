package postgres

import (
	"context"

	"github.com/gdugdh24/mpit2026-roulette/internal/domain"
	"github.com/gdugdh24/mpit2026-roulette/internal/repository"
	"github.com/jmoiron/sqlx"
)

type friendshipRepository struct {
	db *sqlx.DB
}

func NewFriendshipRepository(db *sqlx.DB) repository.FriendshipRepository {
	return &friendshipRepository{db: db}
}

func (r *friendshipRepository) UpsertEdge(ctx context.Context, edge *domain.FriendshipEdge) error {
	return upsertEdge(ctx, r.db, edge)
}

// upsertEdge keeps the first edge for a pair; repeating it is a no-op.
func upsertEdge(ctx context.Context, exec sqlx.ExecerContext, edge *domain.FriendshipEdge) error {
	query := `
		INSERT INTO friendships (owner_id, friend_id, session_id, added_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (owner_id, friend_id) DO NOTHING
	`
	_, err := exec.ExecContext(ctx, query, edge.OwnerID, edge.FriendID, edge.SessionID, edge.AddedAt)
	return err
}

func (r *friendshipRepository) ListByOwner(ctx context.Context, ownerID int, limit, offset int) ([]*domain.FriendshipEdge, error) {
	var edges []*domain.FriendshipEdge
	query := `
		SELECT owner_id, friend_id, session_id, added_at
		FROM friendships
		WHERE owner_id = $1
		ORDER BY added_at DESC
		LIMIT $2 OFFSET $3
	`
	err := r.db.SelectContext(ctx, &edges, query, ownerID, limit, offset)
	return edges, err
}

func (r *friendshipRepository) AreFriends(ctx context.Context, ownerID, friendID int) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM friendships WHERE owner_id = $1 AND friend_id = $2)`
	err := r.db.GetContext(ctx, &exists, query, ownerID, friendID)
	return exists, err
}
