package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/gdugdh24/mpit2026-roulette/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

const devTokenTTL = 24 * time.Hour

// ProfileSeeder stores a profile for development logins. In production
// profiles come from the profile service and no seeder is configured.
type ProfileSeeder interface {
	SeedProfile(ctx context.Context, p domain.ProfileSummary) error
}

// TokenUseCase verifies the bearer tokens issued by the identity service.
// Tokens are HS256 JWTs carrying the numeric user id in the user_id claim.
type TokenUseCase struct {
	jwtSecret string
	seeder    ProfileSeeder

	now func() time.Time
}

func NewTokenUseCase(jwtSecret string, seeder ProfileSeeder) *TokenUseCase {
	return &TokenUseCase{
		jwtSecret: jwtSecret,
		seeder:    seeder,
		now:       time.Now,
	}
}

// IssueToken signs a token for userID.
func (uc *TokenUseCase) IssueToken(userID int, ttl time.Duration) (string, time.Time, error) {
	now := uc.now()
	expiresAt := now.Add(ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"exp":     expiresAt.Unix(),
		"iat":     now.Unix(),
	})

	tokenString, err := token.SignedString([]byte(uc.jwtSecret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, expiresAt, nil
}

// VerifyToken verifies JWT token and returns user ID
func (uc *TokenUseCase) VerifyToken(ctx context.Context, tokenString string) (int, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, domain.ErrInvalidToken
		}
		return []byte(uc.jwtSecret), nil
	}, jwt.WithTimeFunc(uc.now))

	if err != nil || !token.Valid {
		return 0, domain.ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, domain.ErrInvalidToken
	}

	userID, ok := claims["user_id"].(float64)
	if !ok || userID <= 0 {
		return 0, domain.ErrInvalidToken
	}

	return int(userID), nil
}

// DevLoginRequest creates a throwaway identity outside production.
type DevLoginRequest struct {
	UserID      int      `json:"user_id" binding:"required,min=1"`
	DisplayName string   `json:"display_name" binding:"required,max=64"`
	PhotoURL    *string  `json:"photo_url" binding:"omitempty,url"`
	Interests   []string `json:"interests" binding:"omitempty,max=20,dive,min=1,max=40"`
}

type DevLoginResponse struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expires_at"`
	UserID    int    `json:"user_id"`
}

// DevLogin seeds the profile when a seeder is configured and issues a token.
func (uc *TokenUseCase) DevLogin(ctx context.Context, req *DevLoginRequest) (*DevLoginResponse, error) {
	if uc.seeder != nil {
		err := uc.seeder.SeedProfile(ctx, domain.ProfileSummary{
			UserID:      req.UserID,
			DisplayName: req.DisplayName,
			PhotoURL:    req.PhotoURL,
			Interests:   req.Interests,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to seed profile: %w", err)
		}
	}

	token, expiresAt, err := uc.IssueToken(req.UserID, devTokenTTL)
	if err != nil {
		return nil, err
	}
	return &DevLoginResponse{Token: token, ExpiresAt: expiresAt.Unix(), UserID: req.UserID}, nil
}
