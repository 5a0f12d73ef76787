package repository

import (
	"context"
	"time"

	"github.com/gdugdh24/mpit2026-roulette/internal/domain"
)

// EndParams describe a terminal write. ExpectA and ExpectB are the decisions
// the writer observed; the write only applies if they are still current.
type EndParams struct {
	Reason    domain.EndedReason
	DecisionA domain.Decision
	DecisionB domain.Decision
	EndedBy   *int
	ExpectA   domain.Decision
	ExpectB   domain.Decision
	At        time.Time
}

type SessionRepository interface {
	GetByID(ctx context.Context, id string) (*domain.MatchSession, error)
	GetChannel(ctx context.Context, sessionID string) (*domain.ChatChannel, error)
	// SetDecision writes one side's decision if the session is open and that
	// side is still pending. It reports false when the guard did not hold.
	SetDecision(ctx context.Context, id string, side domain.Side, decision domain.Decision) (bool, error)
	// End applies a terminal outcome other than both_yes. It reports false
	// when the session already ended or its decisions moved on.
	End(ctx context.Context, id string, params EndParams) (bool, error)
	// Finalize ends the session as both_yes and upserts both friendship
	// edges in a single commit. It fails with domain.ErrSessionEnded,
	// domain.ErrConsentConflict or domain.ErrSessionNotFound without writing.
	Finalize(ctx context.Context, id string, at time.Time) (*domain.MatchSession, error)
	// Acknowledge records that userID consumed the ended session. Once both
	// participants have, the session and its channel are deleted and true
	// is returned.
	Acknowledge(ctx context.Context, id string, userID int) (bool, error)
}
