package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/gdugdh24/mpit2026-roulette/internal/domain"
	"github.com/gdugdh24/mpit2026-roulette/internal/repository"
	"github.com/jmoiron/sqlx"
)

const ticketColumns = `id, user_id, display_name, photo_url, queued_at, status, session_id`

type ticketRepository struct {
	db *sqlx.DB
}

func NewTicketRepository(db *sqlx.DB) repository.TicketRepository {
	return &ticketRepository{db: db}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.WaitingTicket) error {
	query := `
		INSERT INTO waiting_tickets (id, user_id, display_name, photo_url, queued_at, status)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, query,
		ticket.ID, ticket.UserID, ticket.DisplayName, ticket.PhotoURL, ticket.QueuedAt, ticket.Status,
	)
	if isUniqueViolation(err, "waiting_tickets_one_waiting_uq") {
		return domain.ErrAlreadySearching
	}
	return err
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.WaitingTicket, error) {
	var ticket domain.WaitingTicket
	query := `SELECT ` + ticketColumns + ` FROM waiting_tickets WHERE id = $1`
	err := r.db.GetContext(ctx, &ticket, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isInvalidText(err) {
			return nil, domain.ErrTicketNotFound
		}
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) ListWaiting(ctx context.Context, excludeUserID int, limit int) ([]*domain.WaitingTicket, error) {
	var tickets []*domain.WaitingTicket
	query := `
		SELECT ` + ticketColumns + `
		FROM waiting_tickets
		WHERE status = 'waiting' AND user_id <> $1
		ORDER BY queued_at ASC, id ASC
		LIMIT $2
	`
	err := r.db.SelectContext(ctx, &tickets, query, excludeUserID, limit)
	return tickets, err
}

func (r *ticketRepository) Cancel(ctx context.Context, id string) (bool, error) {
	query := `UPDATE waiting_tickets SET status = 'cancelled' WHERE id = $1 AND status = 'waiting'`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		if isInvalidText(err) {
			return false, nil
		}
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

func (r *ticketRepository) CancelWaitingByUser(ctx context.Context, userID int) (int, error) {
	query := `UPDATE waiting_tickets SET status = 'cancelled' WHERE user_id = $1 AND status = 'waiting'`
	result, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		return 0, err
	}
	rows, err := result.RowsAffected()
	return int(rows), err
}

// Claim relies on the status guard of a single UPDATE: a concurrent claim of
// either ticket blocks on the row, re-evaluates the guard after the other
// transaction commits, and sees fewer than two rows.
func (r *ticketRepository) Claim(ctx context.Context, selfTicketID, candidateTicketID string, session *domain.MatchSession) error {
	if selfTicketID == candidateTicketID {
		return domain.ErrCannotMatchSelf
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin claim: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE waiting_tickets
		SET status = 'matched', session_id = $1
		WHERE id IN ($2, $3) AND status = 'waiting'
	`, session.ID, selfTicketID, candidateTicketID)
	if err != nil {
		if isSerializationFailure(err) {
			return domain.ErrStaleTicket
		}
		return fmt.Errorf("claim tickets: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows != 2 {
		return domain.ErrStaleTicket
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO match_sessions (id, participant_a, participant_b, created_at, expires_at, decision_a, decision_b, ended)
		VALUES ($1, $2, $3, $4, $5, $6, $7, FALSE)
	`, session.ID, session.ParticipantA, session.ParticipantB, session.CreatedAt, session.ExpiresAt,
		session.DecisionA, session.DecisionB)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}

	_, err = tx.ExecContext(ctx, `INSERT INTO chat_channels (session_id, created_at) VALUES ($1, $2)`,
		session.ID, session.CreatedAt)
	if err != nil {
		return fmt.Errorf("create chat channel: %w", err)
	}

	if err := tx.Commit(); err != nil {
		if isSerializationFailure(err) {
			return domain.ErrStaleTicket
		}
		return fmt.Errorf("commit claim: %w", err)
	}
	return nil
}

func (r *ticketRepository) DeleteBySession(ctx context.Context, sessionID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM waiting_tickets WHERE session_id = $1`, sessionID)
	if isInvalidText(err) {
		return nil
	}
	return err
}
