package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/gdugdh24/mpit2026-roulette/internal/domain"
	"github.com/gdugdh24/mpit2026-roulette/internal/repository"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type profileRepository struct {
	db *sqlx.DB
}

func NewProfileRepository(db *sqlx.DB) repository.ProfileRepository {
	return &profileRepository{db: db}
}

func (r *profileRepository) GetSummary(ctx context.Context, userID int) (*domain.ProfileSummary, error) {
	var profile domain.ProfileSummary
	query := `
		SELECT user_id, display_name, photo_url, interests
		FROM profiles WHERE user_id = $1
	`
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&profile.UserID, &profile.DisplayName, &profile.PhotoURL, pq.Array(&profile.Interests),
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrProfileNotFound
		}
		return nil, err
	}
	return &profile, nil
}

// ProfileSeeder upserts profiles for development logins against a local
// database. Production profiles are written by the profile service.
type ProfileSeeder struct {
	db *sqlx.DB
}

func NewProfileSeeder(db *sqlx.DB) *ProfileSeeder {
	return &ProfileSeeder{db: db}
}

func (s *ProfileSeeder) SeedProfile(ctx context.Context, p domain.ProfileSummary) error {
	interests := p.Interests
	if interests == nil {
		interests = []string{}
	}
	query := `
		INSERT INTO profiles (user_id, display_name, photo_url, interests)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE
		SET display_name = EXCLUDED.display_name,
		    photo_url = EXCLUDED.photo_url,
		    interests = EXCLUDED.interests,
		    updated_at = CURRENT_TIMESTAMP
	`
	_, err := s.db.ExecContext(ctx, query, p.UserID, p.DisplayName, p.PhotoURL, pq.Array(interests))
	return err
}
