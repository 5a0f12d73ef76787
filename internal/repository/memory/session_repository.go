package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/gdugdh24/mpit2026-roulette/internal/domain"
	"github.com/gdugdh24/mpit2026-roulette/internal/repository"
)

type sessionRepository struct {
	s *Store
}

func NewSessionRepository(s *Store) repository.SessionRepository {
	return &sessionRepository{s: s}
}

func (r *sessionRepository) GetByID(ctx context.Context, id string) (*domain.MatchSession, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	m, ok := r.s.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return copySession(m), nil
}

func (r *sessionRepository) GetChannel(ctx context.Context, sessionID string) (*domain.ChatChannel, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.channels[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	channel := *c
	return &channel, nil
}

func (r *sessionRepository) SetDecision(ctx context.Context, id string, side domain.Side, decision domain.Decision) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	m, ok := r.s.sessions[id]
	if !ok || m.Ended {
		return false, nil
	}
	switch side {
	case domain.SideA:
		if m.DecisionA != domain.DecisionPending {
			return false, nil
		}
		m.DecisionA = decision
	case domain.SideB:
		if m.DecisionB != domain.DecisionPending {
			return false, nil
		}
		m.DecisionB = decision
	default:
		return false, domain.ErrInvalidInput
	}
	return true, nil
}

func (r *sessionRepository) End(ctx context.Context, id string, params repository.EndParams) (bool, error) {
	if params.Reason == domain.EndedBothYes {
		return false, fmt.Errorf("both_yes must go through Finalize: %w", domain.ErrInvalidInput)
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	m, ok := r.s.sessions[id]
	if !ok || m.Ended || m.DecisionA != params.ExpectA || m.DecisionB != params.ExpectB {
		return false, nil
	}
	reason := params.Reason
	at := params.At
	m.Ended = true
	m.EndedReason = &reason
	m.DecisionA = params.DecisionA
	m.DecisionB = params.DecisionB
	m.EndedAt = &at
	if params.EndedBy != nil {
		by := *params.EndedBy
		m.EndedBy = &by
	}
	return true, nil
}

func (r *sessionRepository) Finalize(ctx context.Context, id string, at time.Time) (*domain.MatchSession, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	m, ok := r.s.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	if m.Ended {
		return nil, domain.ErrSessionEnded
	}
	if m.DecisionA != domain.DecisionYes || m.DecisionB != domain.DecisionYes {
		return nil, domain.ErrConsentConflict
	}

	reason := domain.EndedBothYes
	m.Ended = true
	m.EndedReason = &reason
	m.EndedAt = &at

	sessionID := m.ID
	for _, pair := range [][2]int{{m.ParticipantA, m.ParticipantB}, {m.ParticipantB, m.ParticipantA}} {
		key := edgeKey{owner: pair[0], friend: pair[1]}
		if _, exists := r.s.friendships[key]; exists {
			continue
		}
		r.s.friendships[key] = &domain.FriendshipEdge{OwnerID: pair[0], FriendID: pair[1], SessionID: &sessionID, AddedAt: at}
	}
	return copySession(m), nil
}

func (r *sessionRepository) Acknowledge(ctx context.Context, id string, userID int) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	m, ok := r.s.sessions[id]
	if !ok {
		return false, domain.ErrSessionNotFound
	}
	if !m.HasUser(userID) {
		return false, domain.ErrNotParticipant
	}
	if !m.Ended {
		return false, fmt.Errorf("session still open: %w", domain.ErrInvalidInput)
	}

	if r.s.receipts[id] == nil {
		r.s.receipts[id] = make(map[int]bool)
	}
	r.s.receipts[id][userID] = true
	if len(r.s.receipts[id]) < 2 {
		return false, nil
	}

	delete(r.s.sessions, id)
	delete(r.s.channels, id)
	delete(r.s.receipts, id)
	return true, nil
}
