package matchmaking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gdugdh24/mpit2026-roulette/internal/domain"
	"github.com/gdugdh24/mpit2026-roulette/internal/repository"
	"github.com/google/uuid"
)

type Options struct {
	SessionTTL    time.Duration
	CandidateScan int
}

// MatchCoordinator owns the waiting pool. Pairing is serialized only by the
// conditional claim in the ticket store, so any number of coordinators may
// run side by side.
type MatchCoordinator struct {
	ticketRepo  repository.TicketRepository
	profileRepo repository.ProfileRepository
	feed        repository.ChangeFeed
	opts        Options
	log         *slog.Logger

	now   func() time.Time
	newID func() string
}

func NewMatchCoordinator(
	ticketRepo repository.TicketRepository,
	profileRepo repository.ProfileRepository,
	feed repository.ChangeFeed,
	opts Options,
	log *slog.Logger,
) *MatchCoordinator {
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = domain.DefaultSessionTTL
	}
	if opts.CandidateScan <= 0 {
		opts.CandidateScan = 10
	}
	return &MatchCoordinator{
		ticketRepo:  ticketRepo,
		profileRepo: profileRepo,
		feed:        feed,
		opts:        opts,
		log:         log,
		now:         func() time.Time { return time.Now().UTC() },
		newID:       uuid.NewString,
	}
}

// PartnerProfile is the card shown to a user when they are paired.
type PartnerProfile struct {
	UserID      int     `json:"user_id"`
	DisplayName string  `json:"display_name"`
	PhotoURL    *string `json:"photo_url,omitempty"`
}

// SearchResult is the outcome of a find-partner call or a ticket reconcile.
type SearchResult struct {
	TicketID  string              `json:"ticket_id"`
	Status    domain.TicketStatus `json:"status"`
	SessionID *string             `json:"session_id,omitempty"`
	Partner   *PartnerProfile     `json:"partner,omitempty"`
}

// FindPartner supersedes any previous search by the user, enqueues a fresh
// ticket and tries to claim the oldest waiting ticket of someone else. When
// there is no candidate, or the claim loses a race, the ticket stays waiting
// and a later search by another user will claim it.
func (c *MatchCoordinator) FindPartner(ctx context.Context, userID int) (*SearchResult, error) {
	superseded, err := c.ticketRepo.CancelWaitingByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel previous search: %w", err)
	}
	if superseded > 0 {
		c.log.Debug("superseded previous search", "user_id", userID, "count", superseded)
	}

	ticket, err := c.enqueue(ctx, userID)
	if err != nil {
		return nil, err
	}
	result := &SearchResult{TicketID: ticket.ID, Status: domain.TicketWaiting}

	candidates, err := c.ticketRepo.ListWaiting(ctx, userID, c.opts.CandidateScan)
	if err != nil {
		c.log.Warn("candidate scan failed, leaving ticket waiting", "ticket_id", ticket.ID, "error", err)
		return result, nil
	}
	if len(candidates) == 0 {
		return result, nil
	}

	candidate := candidates[0]
	session := domain.NewMatchSession(c.newID(), candidate.UserID, userID, c.now(), c.opts.SessionTTL)
	err = c.ticketRepo.Claim(ctx, ticket.ID, candidate.ID, session)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrStaleTicket):
		// Either the candidate was taken, or someone claimed our own ticket
		// in the meantime. The second case is a match, so re-read.
		c.log.Debug("claim lost a race", "ticket_id", ticket.ID, "candidate_id", candidate.ID)
		return c.Ticket(ctx, userID, ticket.ID)
	case domain.IsTransient(err):
		c.log.Warn("claim failed, leaving ticket waiting", "ticket_id", ticket.ID, "error", err)
		return result, nil
	default:
		return nil, fmt.Errorf("failed to claim ticket: %w", err)
	}

	c.log.Info("users paired",
		"session_id", session.ID,
		"participant_a", session.ParticipantA,
		"participant_b", session.ParticipantB,
	)
	now := c.now()
	c.publish(ctx, domain.UserTopic(candidate.UserID), domain.Event{
		Type: domain.EventTicketMatched, TicketID: candidate.ID, SessionID: session.ID, UserID: candidate.UserID, At: now,
	})
	c.publish(ctx, domain.UserTopic(userID), domain.Event{
		Type: domain.EventTicketMatched, TicketID: ticket.ID, SessionID: session.ID, UserID: userID, At: now,
	})

	sessionID := session.ID
	result.Status = domain.TicketMatched
	result.SessionID = &sessionID
	result.Partner = &PartnerProfile{
		UserID:      candidate.UserID,
		DisplayName: candidate.DisplayName,
		PhotoURL:    candidate.PhotoURL,
	}
	return result, nil
}

// Enqueue puts a waiting ticket for the user into the pool without
// attempting a claim. The user must not already hold a waiting ticket.
func (c *MatchCoordinator) Enqueue(ctx context.Context, userID int) (string, error) {
	ticket, err := c.enqueue(ctx, userID)
	if err != nil {
		return "", err
	}
	return ticket.ID, nil
}

func (c *MatchCoordinator) enqueue(ctx context.Context, userID int) (*domain.WaitingTicket, error) {
	profile, err := c.profileRepo.GetSummary(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve profile: %w", err)
	}

	ticket := &domain.WaitingTicket{
		ID:          c.newID(),
		UserID:      userID,
		DisplayName: profile.DisplayName,
		PhotoURL:    profile.PhotoURL,
		QueuedAt:    c.now(),
		Status:      domain.TicketWaiting,
	}
	if err := c.ticketRepo.Create(ctx, ticket); err != nil {
		if errors.Is(err, domain.ErrAlreadySearching) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create ticket: %w", err)
	}
	return ticket, nil
}

// Cancel withdraws a search. It is a no-op for tickets that are already
// matched, cancelled or gone, and is retried once on a transient failure.
func (c *MatchCoordinator) Cancel(ctx context.Context, userID int, ticketID string) error {
	ticket, err := c.ticketRepo.GetByID(ctx, ticketID)
	if errors.Is(err, domain.ErrTicketNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to get ticket: %w", err)
	}
	if ticket.UserID != userID {
		return domain.ErrNotTicketOwner
	}
	if !ticket.IsWaiting() {
		return nil
	}

	cancelled, err := c.ticketRepo.Cancel(ctx, ticketID)
	if err != nil && domain.IsTransient(err) {
		c.log.Warn("cancel failed, retrying once", "ticket_id", ticketID, "error", err)
		cancelled, err = c.ticketRepo.Cancel(ctx, ticketID)
	}
	if err != nil {
		return fmt.Errorf("failed to cancel ticket: %w", err)
	}
	if cancelled {
		c.publish(ctx, domain.UserTopic(userID), domain.Event{
			Type: domain.EventTicketCancelled, TicketID: ticketID, UserID: userID, At: c.now(),
		})
	}
	return nil
}

// Ticket reports the current state of a ticket. Clients use it to reconcile
// after a request whose outcome they never saw.
func (c *MatchCoordinator) Ticket(ctx context.Context, userID int, ticketID string) (*SearchResult, error) {
	ticket, err := c.ticketRepo.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.UserID != userID {
		return nil, domain.ErrNotTicketOwner
	}
	return &SearchResult{
		TicketID:  ticket.ID,
		Status:    ticket.Status,
		SessionID: ticket.SessionID,
	}, nil
}

// Subscribe streams change events addressed to the user.
func (c *MatchCoordinator) Subscribe(ctx context.Context, userID int) (<-chan domain.Event, func(), error) {
	return c.feed.Subscribe(ctx, domain.UserTopic(userID))
}

func (c *MatchCoordinator) publish(ctx context.Context, topic string, event domain.Event) {
	if err := c.feed.Publish(ctx, topic, event); err != nil {
		c.log.Warn("failed to publish change event", "topic", topic, "type", event.Type, "error", err)
	}
}
