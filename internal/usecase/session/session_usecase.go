package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gdugdh24/mpit2026-roulette/internal/domain"
	"github.com/gdugdh24/mpit2026-roulette/internal/repository"
)

// A session only moves forward (decisions are write-once and ended is
// terminal), so a handful of read-resolve-write rounds always converges.
const reconcileAttempts = 4

// Finalizer commits a mutual yes.
type Finalizer interface {
	Finalize(ctx context.Context, sessionID string) (bool, error)
}

type SessionUseCase struct {
	sessionRepo repository.SessionRepository
	ticketRepo  repository.TicketRepository
	finalizer   Finalizer
	feed        repository.ChangeFeed
	log         *slog.Logger

	now func() time.Time
}

func NewSessionUseCase(
	sessionRepo repository.SessionRepository,
	ticketRepo repository.TicketRepository,
	finalizer Finalizer,
	feed repository.ChangeFeed,
	log *slog.Logger,
) *SessionUseCase {
	return &SessionUseCase{
		sessionRepo: sessionRepo,
		ticketRepo:  ticketRepo,
		finalizer:   finalizer,
		feed:        feed,
		log:         log,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Get returns userID's view of the session. Reading a session that is due
// for resolution resolves it first. A session that no longer exists is
// reported as ended.
func (uc *SessionUseCase) Get(ctx context.Context, userID int, sessionID string) (domain.SessionView, error) {
	s, err := uc.sessionRepo.GetByID(ctx, sessionID)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return domain.GoneView(sessionID), nil
	}
	if err != nil {
		return domain.SessionView{}, fmt.Errorf("failed to get session: %w", err)
	}
	if !s.HasUser(userID) {
		return domain.SessionView{}, domain.ErrNotParticipant
	}

	if domain.Resolve(*s, uc.now()).NeedsWrite() {
		s, err = uc.Reconcile(ctx, sessionID)
		if errors.Is(err, domain.ErrSessionNotFound) {
			return domain.GoneView(sessionID), nil
		}
		if err != nil {
			return domain.SessionView{}, err
		}
	}
	return domain.Project(*s, userID, uc.now()), nil
}

// Submit records userID's decision. Decisions are write-once: repeating the
// same answer is accepted, changing it is not. The write is not retried;
// the caller sees the failure and may submit again.
func (uc *SessionUseCase) Submit(ctx context.Context, userID int, sessionID, raw string) (domain.SessionView, error) {
	decision, err := domain.ParseDecision(raw)
	if err != nil {
		return domain.SessionView{}, err
	}

	s, err := uc.sessionRepo.GetByID(ctx, sessionID)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return domain.GoneView(sessionID), domain.ErrSessionEnded
	}
	if err != nil {
		return domain.SessionView{}, fmt.Errorf("failed to get session: %w", err)
	}
	side, ok := s.SideOf(userID)
	if !ok {
		return domain.SessionView{}, domain.ErrNotParticipant
	}
	if s.Ended {
		return domain.Project(*s, userID, uc.now()), domain.ErrSessionEnded
	}
	// Past the deadline nothing is accepted: write the timeout first.
	if domain.Resolve(*s, uc.now()).State == domain.StateExpiredUnresolved {
		s, err = uc.Reconcile(ctx, sessionID)
		if errors.Is(err, domain.ErrSessionNotFound) {
			return domain.GoneView(sessionID), domain.ErrSessionEnded
		}
		if err != nil {
			return domain.SessionView{}, err
		}
		if s.Ended {
			return domain.Project(*s, userID, uc.now()), domain.ErrSessionEnded
		}
	}

	switch current := s.DecisionOf(side); {
	case current == decision:
		// Resubmission after an unseen success.
	case current != domain.DecisionPending:
		return domain.Project(*s, userID, uc.now()), domain.ErrDecisionAlreadySet
	default:
		applied, err := uc.sessionRepo.SetDecision(ctx, sessionID, side, decision)
		if err != nil {
			return domain.SessionView{}, fmt.Errorf("failed to submit decision: %w", err)
		}
		if !applied {
			return uc.explainRejectedDecision(ctx, userID, sessionID, side, decision)
		}
		uc.log.Info("decision submitted", "session_id", sessionID, "user_id", userID, "decision", decision)
		uc.publish(ctx, domain.Event{Type: domain.EventSessionUpdated, SessionID: sessionID, UserID: userID, At: uc.now()})
	}

	return uc.Get(ctx, userID, sessionID)
}

func (uc *SessionUseCase) explainRejectedDecision(ctx context.Context, userID int, sessionID string, side domain.Side, decision domain.Decision) (domain.SessionView, error) {
	s, err := uc.sessionRepo.GetByID(ctx, sessionID)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return domain.GoneView(sessionID), domain.ErrSessionEnded
	}
	if err != nil {
		return domain.SessionView{}, fmt.Errorf("failed to get session: %w", err)
	}
	view := domain.Project(*s, userID, uc.now())
	switch {
	case s.DecisionOf(side) == decision:
		return uc.Get(ctx, userID, sessionID)
	case s.Ended:
		return view, domain.ErrSessionEnded
	default:
		return view, domain.ErrDecisionAlreadySet
	}
}

// Leave ends the session as abandoned by userID, unless it has already
// resolved on its own, in which case that outcome is applied instead.
func (uc *SessionUseCase) Leave(ctx context.Context, userID int, sessionID string) (domain.SessionView, error) {
	for attempt := 0; attempt < reconcileAttempts; attempt++ {
		s, err := uc.sessionRepo.GetByID(ctx, sessionID)
		if errors.Is(err, domain.ErrSessionNotFound) {
			return domain.GoneView(sessionID), nil
		}
		if err != nil {
			return domain.SessionView{}, fmt.Errorf("failed to get session: %w", err)
		}
		if !s.HasUser(userID) {
			return domain.SessionView{}, domain.ErrNotParticipant
		}

		now := uc.now()
		r, err := domain.Abandon(*s, userID, now)
		if err != nil {
			return domain.SessionView{}, err
		}
		if r.Terminal() {
			return domain.Project(*s, userID, now), nil
		}
		if err := uc.apply(ctx, s, r); err != nil {
			return domain.SessionView{}, err
		}
	}
	return uc.Get(ctx, userID, sessionID)
}

// Detach is the best-effort abandonment signal sent when a client goes
// away. It is idempotent, so a transient failure is retried once.
func (uc *SessionUseCase) Detach(ctx context.Context, userID int, sessionID string) error {
	_, err := uc.Leave(ctx, userID, sessionID)
	if err != nil && domain.IsTransient(err) {
		uc.log.Warn("detach failed, retrying once", "session_id", sessionID, "user_id", userID, "error", err)
		_, err = uc.Leave(ctx, userID, sessionID)
	}
	return err
}

// Acknowledge marks the ended session as consumed by userID. When both
// participants have acknowledged, the session is archived and its tickets
// are removed. It reports whether the session is gone.
func (uc *SessionUseCase) Acknowledge(ctx context.Context, userID int, sessionID string) (bool, error) {
	if _, err := uc.Reconcile(ctx, sessionID); err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return true, nil
		}
		return false, err
	}

	archived, err := uc.sessionRepo.Acknowledge(ctx, sessionID, userID)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return true, nil
	}
	if errors.Is(err, domain.ErrInvalidInput) {
		return false, fmt.Errorf("session %s is still open: %w", sessionID, domain.ErrInvalidInput)
	}
	if err != nil {
		return false, err
	}
	if archived {
		if err := uc.ticketRepo.DeleteBySession(ctx, sessionID); err != nil {
			uc.log.Warn("failed to delete tickets of archived session", "session_id", sessionID, "error", err)
		}
		uc.log.Info("session archived", "session_id", sessionID)
	}
	return archived, nil
}

// Reconcile drives the stored session to whatever its latest snapshot
// resolves to. It is safe to call from any number of processes at once:
// every terminal write is conditional on the snapshot it was computed from.
func (uc *SessionUseCase) Reconcile(ctx context.Context, sessionID string) (*domain.MatchSession, error) {
	var s *domain.MatchSession
	for attempt := 0; attempt < reconcileAttempts; attempt++ {
		var err error
		s, err = uc.sessionRepo.GetByID(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		r := domain.Resolve(*s, uc.now())
		if !r.NeedsWrite() {
			return s, nil
		}
		if err := uc.apply(ctx, s, r); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// apply performs the conditional terminal write for r. Losing the race to
// another writer is not an error; the caller re-reads.
func (uc *SessionUseCase) apply(ctx context.Context, s *domain.MatchSession, r domain.Resolution) error {
	if r.NeedsFinalize() {
		committed, err := uc.finalizer.Finalize(ctx, s.ID)
		if err != nil {
			return fmt.Errorf("failed to finalize session: %w", err)
		}
		if committed {
			uc.ended(ctx, s.ID, r.Reason)
		}
		return nil
	}

	applied, err := uc.sessionRepo.End(ctx, s.ID, repository.EndParams{
		Reason:    r.Reason,
		DecisionA: r.DecisionA,
		DecisionB: r.DecisionB,
		EndedBy:   r.EndedBy,
		ExpectA:   s.DecisionA,
		ExpectB:   s.DecisionB,
		At:        uc.now(),
	})
	if err != nil {
		return fmt.Errorf("failed to end session: %w", err)
	}
	if applied {
		uc.ended(ctx, s.ID, r.Reason)
	}
	return nil
}

func (uc *SessionUseCase) ended(ctx context.Context, sessionID string, reason domain.EndedReason) {
	uc.log.Info("session ended", "session_id", sessionID, "reason", reason)
	uc.publish(ctx, domain.Event{Type: domain.EventSessionEnded, SessionID: sessionID, At: uc.now()})
}

func (uc *SessionUseCase) publish(ctx context.Context, event domain.Event) {
	if err := uc.feed.Publish(ctx, domain.SessionTopic(event.SessionID), event); err != nil {
		uc.log.Warn("failed to publish change event", "session_id", event.SessionID, "type", event.Type, "error", err)
	}
}
