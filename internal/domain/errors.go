package domain

import (
	"context"
	"errors"
)

var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrInvalidToken    = errors.New("invalid token")
	ErrProfileNotFound = errors.New("profile not found")

	// Waiting pool
	ErrTicketNotFound   = errors.New("ticket not found")
	ErrAlreadySearching = errors.New("user already has a waiting ticket")
	ErrStaleTicket      = errors.New("ticket already claimed or cancelled")
	ErrNotTicketOwner   = errors.New("ticket belongs to another user")
	ErrCannotMatchSelf  = errors.New("cannot match with yourself")

	// Sessions
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionEnded       = errors.New("session already ended")
	ErrNotParticipant     = errors.New("user is not a session participant")
	ErrInvalidDecision    = errors.New("invalid decision")
	ErrDecisionAlreadySet = errors.New("decision already submitted")
	ErrConsentConflict    = errors.New("decisions are no longer both yes")

	// ErrServerShutdown is the cancel cause of request contexts when the
	// process stops. A stream cut by shutdown is not the user leaving.
	ErrServerShutdown = errors.New("server shutting down")
)

// IsTransient reports whether err is an infrastructure failure rather than
// one of the domain outcomes above. Only transient failures are worth a retry.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	for _, known := range []error{
		ErrInvalidInput, ErrInvalidToken, ErrProfileNotFound,
		ErrTicketNotFound, ErrAlreadySearching, ErrStaleTicket, ErrNotTicketOwner,
		ErrCannotMatchSelf,
		ErrSessionNotFound, ErrSessionEnded, ErrNotParticipant, ErrInvalidDecision,
		ErrDecisionAlreadySet, ErrConsentConflict,
	} {
		if errors.Is(err, known) {
			return false
		}
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}
