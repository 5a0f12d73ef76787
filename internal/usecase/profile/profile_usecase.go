package profile

import (
	"context"
	"fmt"

	"github.com/gdugdh24/mpit2026-roulette/internal/domain"
	"github.com/gdugdh24/mpit2026-roulette/internal/repository"
)

type FriendChecker interface {
	AreFriends(ctx context.Context, userID, otherID int) (bool, error)
}

type ProfileUseCase struct {
	profileRepo repository.ProfileRepository
	friends     FriendChecker
}

func NewProfileUseCase(profileRepo repository.ProfileRepository, friends FriendChecker) *ProfileUseCase {
	return &ProfileUseCase{
		profileRepo: profileRepo,
		friends:     friends,
	}
}

// ProfileCard is a profile as seen by another user.
type ProfileCard struct {
	domain.ProfileSummary
	IsFriend bool `json:"is_friend"`
}

// GetMyProfile returns the caller's own summary.
func (uc *ProfileUseCase) GetMyProfile(ctx context.Context, userID int) (*domain.ProfileSummary, error) {
	return uc.profileRepo.GetSummary(ctx, userID)
}

// GetProfileCard returns userID's profile as viewerID sees it.
func (uc *ProfileUseCase) GetProfileCard(ctx context.Context, viewerID, userID int) (*ProfileCard, error) {
	summary, err := uc.profileRepo.GetSummary(ctx, userID)
	if err != nil {
		return nil, err
	}

	isFriend, err := uc.friends.AreFriends(ctx, viewerID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to check friendship: %w", err)
	}
	return &ProfileCard{ProfileSummary: *summary, IsFriend: isFriend}, nil
}
