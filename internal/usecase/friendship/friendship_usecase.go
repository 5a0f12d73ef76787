package friendship

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gdugdh24/mpit2026-roulette/internal/domain"
	"github.com/gdugdh24/mpit2026-roulette/internal/repository"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

type FriendshipUseCase struct {
	sessionRepo    repository.SessionRepository
	friendshipRepo repository.FriendshipRepository
	profileRepo    repository.ProfileRepository
	log            *slog.Logger

	now func() time.Time
}

func NewFriendshipUseCase(
	sessionRepo repository.SessionRepository,
	friendshipRepo repository.FriendshipRepository,
	profileRepo repository.ProfileRepository,
	log *slog.Logger,
) *FriendshipUseCase {
	return &FriendshipUseCase{
		sessionRepo:    sessionRepo,
		friendshipRepo: friendshipRepo,
		profileRepo:    profileRepo,
		log:            log,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// Finalize turns a mutual yes into a friendship. The store ends the session
// and writes both edges in one commit, guarded by "not ended and both yes",
// so of any number of concurrent callers exactly one commits. The others,
// and callers that arrive after a late "no", get committed=false and no
// error. A failed commit leaves nothing behind and may simply be retried.
func (uc *FriendshipUseCase) Finalize(ctx context.Context, sessionID string) (bool, error) {
	s, err := uc.sessionRepo.Finalize(ctx, sessionID, uc.now())
	switch {
	case err == nil:
		uc.log.Info("friendship created",
			"session_id", sessionID,
			"user_a", s.ParticipantA,
			"user_b", s.ParticipantB,
		)
		return true, nil
	case errors.Is(err, domain.ErrSessionEnded),
		errors.Is(err, domain.ErrSessionNotFound):
		return false, nil
	case errors.Is(err, domain.ErrConsentConflict):
		uc.log.Debug("finalize aborted, decisions changed", "session_id", sessionID)
		return false, nil
	default:
		return false, err
	}
}

// Friend is one entry of a user's friend list.
type Friend struct {
	UserID      int       `json:"user_id"`
	DisplayName string    `json:"display_name,omitempty"`
	PhotoURL    *string   `json:"photo_url,omitempty"`
	SessionID   *string   `json:"session_id,omitempty"`
	AddedAt     time.Time `json:"added_at"`
}

// ListFriends returns the user's friends, newest first. Profiles that
// cannot be resolved are listed by id only.
func (uc *FriendshipUseCase) ListFriends(ctx context.Context, userID, limit, offset int) ([]Friend, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	edges, err := uc.friendshipRepo.ListByOwner(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list friends: %w", err)
	}

	friends := make([]Friend, 0, len(edges))
	for _, e := range edges {
		f := Friend{UserID: e.FriendID, SessionID: e.SessionID, AddedAt: e.AddedAt}
		profile, err := uc.profileRepo.GetSummary(ctx, e.FriendID)
		if err == nil {
			f.DisplayName = profile.DisplayName
			f.PhotoURL = profile.PhotoURL
		} else if !errors.Is(err, domain.ErrProfileNotFound) {
			uc.log.Warn("failed to resolve friend profile", "user_id", e.FriendID, "error", err)
		}
		friends = append(friends, f)
	}
	return friends, nil
}

// AreFriends reports whether userID has otherID in their friend list.
func (uc *FriendshipUseCase) AreFriends(ctx context.Context, userID, otherID int) (bool, error) {
	if userID == otherID {
		return false, nil
	}
	return uc.friendshipRepo.AreFriends(ctx, userID, otherID)
}
