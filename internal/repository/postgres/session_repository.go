package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/gdugdh24/mpit2026-roulette/internal/domain"
	"github.com/gdugdh24/mpit2026-roulette/internal/repository"
	"github.com/jmoiron/sqlx"
)

const sessionColumns = `id, participant_a, participant_b, created_at, expires_at,
	decision_a, decision_b, ended, ended_reason, ended_by, ended_at`

type sessionRepository struct {
	db *sqlx.DB
}

func NewSessionRepository(db *sqlx.DB) repository.SessionRepository {
	return &sessionRepository{db: db}
}

func (r *sessionRepository) GetByID(ctx context.Context, id string) (*domain.MatchSession, error) {
	return getSession(ctx, r.db, id)
}

func getSession(ctx context.Context, q sqlx.QueryerContext, id string) (*domain.MatchSession, error) {
	return selectSession(ctx, q, `SELECT `+sessionColumns+` FROM match_sessions WHERE id = $1`, id)
}

// lockSession reads the session and holds its row lock until the
// transaction ends.
func lockSession(ctx context.Context, tx *sqlx.Tx, id string) (*domain.MatchSession, error) {
	return selectSession(ctx, tx, `SELECT `+sessionColumns+` FROM match_sessions WHERE id = $1 FOR UPDATE`, id)
}

func selectSession(ctx context.Context, q sqlx.QueryerContext, query, id string) (*domain.MatchSession, error) {
	var session domain.MatchSession
	err := sqlx.GetContext(ctx, q, &session, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isInvalidText(err) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepository) GetChannel(ctx context.Context, sessionID string) (*domain.ChatChannel, error) {
	var channel domain.ChatChannel
	err := r.db.GetContext(ctx, &channel, `SELECT session_id, created_at FROM chat_channels WHERE session_id = $1`, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isInvalidText(err) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, err
	}
	return &channel, nil
}

func (r *sessionRepository) SetDecision(ctx context.Context, id string, side domain.Side, decision domain.Decision) (bool, error) {
	var query string
	switch side {
	case domain.SideA:
		query = `UPDATE match_sessions SET decision_a = $2 WHERE id = $1 AND ended = FALSE AND decision_a = 'pending'`
	case domain.SideB:
		query = `UPDATE match_sessions SET decision_b = $2 WHERE id = $1 AND ended = FALSE AND decision_b = 'pending'`
	default:
		return false, domain.ErrInvalidInput
	}

	result, err := r.db.ExecContext(ctx, query, id, decision)
	if err != nil {
		return false, fmt.Errorf("set decision: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

func (r *sessionRepository) End(ctx context.Context, id string, params repository.EndParams) (bool, error) {
	if params.Reason == domain.EndedBothYes {
		return false, fmt.Errorf("both_yes must go through Finalize: %w", domain.ErrInvalidInput)
	}
	query := `
		UPDATE match_sessions
		SET ended = TRUE, ended_reason = $2, decision_a = $3, decision_b = $4, ended_by = $5, ended_at = $6
		WHERE id = $1 AND ended = FALSE AND decision_a = $7 AND decision_b = $8
	`
	result, err := r.db.ExecContext(ctx, query, id,
		params.Reason, params.DecisionA, params.DecisionB, params.EndedBy, params.At,
		params.ExpectA, params.ExpectB,
	)
	if err != nil {
		return false, fmt.Errorf("end session: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

func (r *sessionRepository) Finalize(ctx context.Context, id string, at time.Time) (*domain.MatchSession, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin finalize: %w", err)
	}
	defer tx.Rollback()

	var session domain.MatchSession
	err = tx.GetContext(ctx, &session, `
		UPDATE match_sessions
		SET ended = TRUE, ended_reason = 'both_yes', ended_at = $2
		WHERE id = $1 AND ended = FALSE AND decision_a = 'yes' AND decision_b = 'yes'
		RETURNING `+sessionColumns, id, at)
	if errors.Is(err, sql.ErrNoRows) {
		current, getErr := getSession(ctx, tx, id)
		if getErr != nil {
			return nil, getErr
		}
		if current.Ended {
			return nil, domain.ErrSessionEnded
		}
		return nil, domain.ErrConsentConflict
	}
	if err != nil {
		if isInvalidText(err) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("end session: %w", err)
	}

	sessionID := session.ID
	for _, edge := range []domain.FriendshipEdge{
		{OwnerID: session.ParticipantA, FriendID: session.ParticipantB, SessionID: &sessionID, AddedAt: at},
		{OwnerID: session.ParticipantB, FriendID: session.ParticipantA, SessionID: &sessionID, AddedAt: at},
	} {
		if err := upsertEdge(ctx, tx, &edge); err != nil {
			return nil, fmt.Errorf("create friendship: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit finalize: %w", err)
	}
	return &session, nil
}

// Acknowledge serializes on the session row: the second acknowledgement
// always counts the first one's receipt.
func (r *sessionRepository) Acknowledge(ctx context.Context, id string, userID int) (bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin acknowledge: %w", err)
	}
	defer tx.Rollback()

	session, err := lockSession(ctx, tx, id)
	if err != nil {
		return false, err
	}
	if !session.HasUser(userID) {
		return false, domain.ErrNotParticipant
	}
	if !session.Ended {
		return false, fmt.Errorf("session still open: %w", domain.ErrInvalidInput)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO session_receipts (session_id, user_id, acknowledged_at)
		VALUES ($1, $2, CURRENT_TIMESTAMP)
		ON CONFLICT (session_id, user_id) DO NOTHING
	`, id, userID)
	if err != nil {
		return false, fmt.Errorf("record receipt: %w", err)
	}

	var receipts int
	if err := tx.GetContext(ctx, &receipts, `SELECT COUNT(*) FROM session_receipts WHERE session_id = $1`, id); err != nil {
		return false, err
	}

	archived := receipts >= 2
	if archived {
		if _, err := tx.ExecContext(ctx, `DELETE FROM match_sessions WHERE id = $1`, id); err != nil {
			return false, fmt.Errorf("archive session: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit acknowledge: %w", err)
	}
	return archived, nil
}
