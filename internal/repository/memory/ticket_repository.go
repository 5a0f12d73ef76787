package memory

import (
	"context"
	"sort"

	"github.com/gdugdh24/mpit2026-roulette/internal/domain"
	"github.com/gdugdh24/mpit2026-roulette/internal/repository"
)

type ticketRepository struct {
	s *Store
}

func NewTicketRepository(s *Store) repository.TicketRepository {
	return &ticketRepository{s: s}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.WaitingTicket) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.tickets[ticket.ID]; exists {
		return domain.ErrInvalidInput
	}
	if ticket.Status == domain.TicketWaiting {
		for _, t := range r.s.tickets {
			if t.UserID == ticket.UserID && t.IsWaiting() {
				return domain.ErrAlreadySearching
			}
		}
	}
	r.s.tickets[ticket.ID] = copyTicket(ticket)
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.WaitingTicket, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.tickets[id]
	if !ok {
		return nil, domain.ErrTicketNotFound
	}
	return copyTicket(t), nil
}

func (r *ticketRepository) ListWaiting(ctx context.Context, excludeUserID int, limit int) ([]*domain.WaitingTicket, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []*domain.WaitingTicket
	for _, t := range r.s.tickets {
		if t.IsWaiting() && t.UserID != excludeUserID {
			out = append(out, copyTicket(t))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].QueuedAt.Equal(out[j].QueuedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].QueuedAt.Before(out[j].QueuedAt)
	})
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *ticketRepository) Cancel(ctx context.Context, id string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.tickets[id]
	if !ok || !t.IsWaiting() {
		return false, nil
	}
	t.Status = domain.TicketCancelled
	return true, nil
}

func (r *ticketRepository) CancelWaitingByUser(ctx context.Context, userID int) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	n := 0
	for _, t := range r.s.tickets {
		if t.UserID == userID && t.IsWaiting() {
			t.Status = domain.TicketCancelled
			n++
		}
	}
	return n, nil
}

func (r *ticketRepository) Claim(ctx context.Context, selfTicketID, candidateTicketID string, session *domain.MatchSession) error {
	if selfTicketID == candidateTicketID {
		return domain.ErrCannotMatchSelf
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	self, ok := r.s.tickets[selfTicketID]
	if !ok || !self.IsWaiting() {
		return domain.ErrStaleTicket
	}
	candidate, ok := r.s.tickets[candidateTicketID]
	if !ok || !candidate.IsWaiting() {
		return domain.ErrStaleTicket
	}
	if _, exists := r.s.sessions[session.ID]; exists {
		return domain.ErrInvalidInput
	}

	sessionID := session.ID
	for _, t := range []*domain.WaitingTicket{self, candidate} {
		t.Status = domain.TicketMatched
		t.SessionID = &sessionID
	}
	r.s.sessions[session.ID] = copySession(session)
	r.s.channels[session.ID] = &domain.ChatChannel{SessionID: session.ID, CreatedAt: session.CreatedAt}
	return nil
}

func (r *ticketRepository) DeleteBySession(ctx context.Context, sessionID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for id, t := range r.s.tickets {
		if t.SessionID != nil && *t.SessionID == sessionID {
			delete(r.s.tickets, id)
		}
	}
	return nil
}
