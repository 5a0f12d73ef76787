package icebreaker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/gdugdh24/mpit2026-roulette/internal/domain"
	"github.com/gdugdh24/mpit2026-roulette/internal/infrastructure/gemini"
	"github.com/gdugdh24/mpit2026-roulette/internal/repository"
	"golang.org/x/sync/singleflight"
)

const generateTimeout = 8 * time.Second

type Generator interface {
	GenerateIcebreakers(ctx context.Context, myInterests, partnerInterests []string) ([]string, error)
}

type Cache interface {
	GetLines(ctx context.Context, key string) ([]string, bool, error)
	SetLines(ctx context.Context, key string, lines []string, ttl time.Duration) error
}

// IcebreakerUseCase suggests opening lines for an open session. Both a nil
// generator and a nil cache are allowed; without a generator the canned
// openers are used.
type IcebreakerUseCase struct {
	sessionRepo repository.SessionRepository
	profileRepo repository.ProfileRepository
	generator   Generator
	cache       Cache
	log         *slog.Logger

	group singleflight.Group
	now   func() time.Time
}

func NewIcebreakerUseCase(
	sessionRepo repository.SessionRepository,
	profileRepo repository.ProfileRepository,
	generator Generator,
	cache Cache,
	log *slog.Logger,
) *IcebreakerUseCase {
	return &IcebreakerUseCase{
		sessionRepo: sessionRepo,
		profileRepo: profileRepo,
		generator:   generator,
		cache:       cache,
		log:         log,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Suggest returns opening lines userID could send to their partner.
func (uc *IcebreakerUseCase) Suggest(ctx context.Context, userID int, sessionID string) ([]string, error) {
	s, err := uc.sessionRepo.GetByID(ctx, sessionID)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return nil, domain.ErrSessionEnded
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	partnerID, ok := s.GetOtherUserID(userID)
	if !ok {
		return nil, domain.ErrNotParticipant
	}
	if !s.ChannelWritable() {
		return nil, domain.ErrSessionEnded
	}

	key := cacheKey(sessionID, userID)
	if uc.cache != nil {
		lines, hit, err := uc.cache.GetLines(ctx, key)
		if err != nil {
			uc.log.Warn("icebreaker cache read failed", "session_id", sessionID, "error", err)
		} else if hit {
			return lines, nil
		}
	}

	// Repeated taps while the model is thinking share one call.
	v, err, _ := uc.group.Do(key, func() (interface{}, error) {
		lines := uc.generate(ctx, userID, partnerID)
		uc.store(ctx, key, lines, s.ExpiresAt)
		return lines, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]string), nil
}

func (uc *IcebreakerUseCase) generate(ctx context.Context, userID, partnerID int) []string {
	mine := uc.interests(ctx, userID)
	theirs := uc.interests(ctx, partnerID)
	if uc.generator == nil {
		return gemini.Fallback(mine, theirs)
	}

	genCtx, cancel := context.WithTimeout(ctx, generateTimeout)
	defer cancel()
	lines, err := uc.generator.GenerateIcebreakers(genCtx, mine, theirs)
	if err != nil || len(lines) == 0 {
		uc.log.Warn("icebreaker generation failed, using fallback", "user_id", userID, "error", err)
		return gemini.Fallback(mine, theirs)
	}
	return lines
}

func (uc *IcebreakerUseCase) interests(ctx context.Context, userID int) []string {
	p, err := uc.profileRepo.GetSummary(ctx, userID)
	if err != nil {
		if !errors.Is(err, domain.ErrProfileNotFound) {
			uc.log.Warn("failed to load profile interests", "user_id", userID, "error", err)
		}
		return nil
	}
	return p.Interests
}

// store caches lines until the session would expire.
func (uc *IcebreakerUseCase) store(ctx context.Context, key string, lines []string, expiresAt time.Time) {
	if uc.cache == nil {
		return
	}
	ttl := expiresAt.Sub(uc.now())
	if ttl < time.Second {
		return
	}
	if err := uc.cache.SetLines(ctx, key, lines, ttl); err != nil {
		uc.log.Warn("icebreaker cache write failed", "key", key, "error", err)
	}
}

func cacheKey(sessionID string, userID int) string {
	return "icebreakers:" + sessionID + ":" + strconv.Itoa(userID)
}
