package repository

import (
	"context"

	"github.com/gdugdh24/mpit2026-roulette/internal/domain"
)

type TicketRepository interface {
	// Create inserts a waiting ticket. It fails with domain.ErrAlreadySearching
	// when the user already holds one.
	Create(ctx context.Context, ticket *domain.WaitingTicket) error
	GetByID(ctx context.Context, id string) (*domain.WaitingTicket, error)
	// ListWaiting returns up to limit waiting tickets, oldest first.
	ListWaiting(ctx context.Context, excludeUserID int, limit int) ([]*domain.WaitingTicket, error)
	// Cancel moves a waiting ticket to cancelled. It reports false when the
	// ticket was not waiting.
	Cancel(ctx context.Context, id string) (bool, error)
	CancelWaitingByUser(ctx context.Context, userID int) (int, error)
	// Claim is the pairing transaction: both tickets must still be waiting;
	// they become matched and stamped with the session id, and the session
	// and its chat channel are created, all in one commit. It fails with
	// domain.ErrStaleTicket when either ticket was claimed or cancelled.
	Claim(ctx context.Context, selfTicketID, candidateTicketID string, session *domain.MatchSession) error
	DeleteBySession(ctx context.Context, sessionID string) error
}
