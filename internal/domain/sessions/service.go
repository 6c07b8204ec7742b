// Package sessions issues and resolves opaque bearer tokens. Sessions never
// expire and are never revoked; a user may hold any number of them.
package sessions

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/Togather-Foundation/nko-directory/internal/domain/apperr"
	"github.com/Togather-Foundation/nko-directory/internal/domain/users"
	"github.com/rs/zerolog"
)

// tokenBytes is the amount of randomness in a token (256 bits).
const tokenBytes = 32

type Service struct {
	repo   Repository
	logger zerolog.Logger
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger.With().Str("component", "sessions").Logger(),
	}
}

// Create issues a new token for userID. The plaintext token is returned once
// and never stored.
func (s *Service) Create(ctx context.Context, userID int64) (string, error) {
	token, err := generateSecureToken()
	if err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}

	session, err := s.repo.Create(ctx, userID, hashToken(token))
	if err != nil {
		return "", apperr.Store("create session", err)
	}

	s.logger.Debug().Int64("user_id", userID).Int64("session_id", session.ID).Msg("session created")
	return token, nil
}

// Resolve maps a token to its user. An empty or unknown token yields
// (nil, nil): callers treat "no user" as unauthenticated.
func (s *Service) Resolve(ctx context.Context, token string) (*users.User, error) {
	if token == "" {
		return nil, nil
	}

	user, err := s.repo.UserByTokenHash(ctx, hashToken(token))
	if err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			return nil, nil
		}
		return nil, apperr.Store("resolve session", err)
	}
	return user, nil
}

func generateSecureToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
