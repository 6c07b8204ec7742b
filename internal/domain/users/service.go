// Package users is the credential store: registration with salted bcrypt
// hashes and email/password verification.
package users

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/Togather-Foundation/nko-directory/internal/audit"
	"github.com/Togather-Foundation/nko-directory/internal/domain/apperr"
	"github.com/Togather-Foundation/nko-directory/internal/metrics"
	"github.com/Togather-Foundation/nko-directory/internal/validation"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

const (
	// BcryptCost is the cost factor for bcrypt password hashing
	BcryptCost = 12
)

// RegisterParams carries raw registration input.
type RegisterParams struct {
	Name        string `json:"name"`
	Email       string `json:"email" validate:"required"`
	Password    string `json:"password" validate:"required"`
	AccountType string `json:"accountType"`
}

type Service struct {
	repo        Repository
	auditLogger *audit.Logger
	logger      zerolog.Logger
	validator   *validator.Validate
	cost        int

	dummyOnce sync.Once
	dummyHash []byte
}

type Option func(*Service)

// WithBcryptCost overrides the hashing cost. Tests use bcrypt.MinCost.
func WithBcryptCost(cost int) Option {
	return func(s *Service) {
		s.cost = cost
	}
}

func NewService(repo Repository, auditLogger *audit.Logger, logger zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		repo:        repo,
		auditLogger: auditLogger,
		logger:      logger.With().Str("component", "users").Logger(),
		validator:   validation.New(),
		cost:        BcryptCost,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates an account. Email is normalized before the insert; the
// repository's unique constraint decides conflicts, so two concurrent
// registrations of the same address cannot both succeed.
func (s *Service) Register(ctx context.Context, params RegisterParams) (*User, error) {
	params.Name = strings.TrimSpace(params.Name)
	params.Email = NormalizeEmail(params.Email)

	if err := validation.Struct(s.validator, params); err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword(passwordKey(params.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.repo.Create(ctx, CreateParams{
		Name:         params.Name,
		Email:        params.Email,
		PasswordHash: string(hash),
		AccountType:  ParseAccountType(params.AccountType),
	})
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil, ErrEmailTaken
		}
		return nil, apperr.Store("create user", err)
	}

	metrics.RegistrationsTotal.Inc()
	s.logger.Info().
		Int64("user_id", user.ID).
		Str("account_type", string(user.AccountType)).
		Msg("user registered")
	s.auditLogger.LogSuccess("user.registered", "user:"+strconv.FormatInt(user.ID, 10), "user", strconv.FormatInt(user.ID, 10), map[string]string{
		"account_type": string(user.AccountType),
	})

	return user, nil
}

// LoginParams carries raw login input.
type LoginParams struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Verify checks credentials. Unknown emails and wrong passwords both return
// apperr.ErrInvalidCredentials, and both pay for one bcrypt comparison.
// Missing fields are a ValidationError.
func (s *Service) Verify(ctx context.Context, email, password string) (*User, error) {
	email = NormalizeEmail(email)
	if err := validation.Struct(s.validator, LoginParams{Email: email, Password: password}); err != nil {
		return nil, err
	}

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			_ = bcrypt.CompareHashAndPassword(s.dummy(), passwordKey(password))
			metrics.LoginsTotal.WithLabelValues("failure").Inc()
			return nil, apperr.ErrInvalidCredentials
		}
		return nil, apperr.Store("get user by email", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), passwordKey(password)); err != nil {
		metrics.LoginsTotal.WithLabelValues("failure").Inc()
		return nil, apperr.ErrInvalidCredentials
	}
	metrics.LoginsTotal.WithLabelValues("success").Inc()
	return user, nil
}

// Get returns the user with the given id.
func (s *Service) Get(ctx context.Context, id int64) (*User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, apperr.Store("get user", err)
	}
	return user, nil
}

func (s *Service) dummy() []byte {
	s.dummyOnce.Do(func() {
		hash, err := bcrypt.GenerateFromPassword(passwordKey("nko-directory-timing-pad"), s.cost)
		if err != nil {
			s.logger.Warn().Err(err).Msg("failed to build timing pad hash")
			return
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}

// passwordKey is the bcrypt input for a password. bcrypt ignores bytes past
// 72, so the password is reduced to a base64 SHA-256 digest first and every
// byte of a long passphrase counts.
func passwordKey(password string) []byte {
	sum := sha256.Sum256([]byte(password))
	return []byte(base64.StdEncoding.EncodeToString(sum[:]))
}
