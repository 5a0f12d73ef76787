// Package memory is a single-process implementation of the repositories.
// Each operation runs under one mutex, which gives it the same
// all-or-nothing behaviour as the SQL transactions in the postgres package.
// It backs STORAGE_TYPE=memory and the usecase tests.
package memory

import (
	"context"
	"sync"

	"github.com/gdugdh24/mpit2026-roulette/internal/domain"
)

type edgeKey struct {
	owner, friend int
}

type Store struct {
	mu          sync.Mutex
	tickets     map[string]*domain.WaitingTicket
	sessions    map[string]*domain.MatchSession
	channels    map[string]*domain.ChatChannel
	receipts    map[string]map[int]bool
	friendships map[edgeKey]*domain.FriendshipEdge
	profiles    map[int]*domain.ProfileSummary
}

func NewStore() *Store {
	return &Store{
		tickets:     make(map[string]*domain.WaitingTicket),
		sessions:    make(map[string]*domain.MatchSession),
		channels:    make(map[string]*domain.ChatChannel),
		receipts:    make(map[string]map[int]bool),
		friendships: make(map[edgeKey]*domain.FriendshipEdge),
		profiles:    make(map[int]*domain.ProfileSummary),
	}
}

// PutProfile seeds the profile lookup.
func (s *Store) PutProfile(p domain.ProfileSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.UserID] = &p
}

// SeedProfile is PutProfile for development logins.
func (s *Store) SeedProfile(ctx context.Context, p domain.ProfileSummary) error {
	s.PutProfile(p)
	return nil
}

// FriendshipCount returns the number of stored edges.
func (s *Store) FriendshipCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.friendships)
}

func copyTicket(t *domain.WaitingTicket) *domain.WaitingTicket {
	c := *t
	return &c
}

func copySession(m *domain.MatchSession) *domain.MatchSession {
	c := *m
	return &c
}
