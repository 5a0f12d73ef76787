package repository

import (
	"context"

	"github.com/gdugdh24/mpit2026-roulette/internal/domain"
)

type ProfileRepository interface {
	GetSummary(ctx context.Context, userID int) (*domain.ProfileSummary, error)
}
