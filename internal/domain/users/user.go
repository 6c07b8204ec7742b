package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Togather-Foundation/nko-directory/internal/domain/apperr"
)

var (
	// ErrUserNotFound is returned by repositories when no row matches.
	ErrUserNotFound = errors.New("user not found")

	// ErrEmailTaken is returned when the normalized email is already registered.
	// The storage layer produces it from the unique constraint on users.email.
	ErrEmailTaken = fmt.Errorf("email is already taken: %w", apperr.ErrConflict)
)

// AccountType distinguishes private volunteers from NKO representatives.
type AccountType string

const (
	AccountPerson AccountType = "person"
	AccountNKO    AccountType = "nko"
)

// ParseAccountType maps raw input to a known account type. Anything absent or
// unknown becomes AccountPerson.
func ParseAccountType(raw string) AccountType {
	switch AccountType(raw) {
	case AccountNKO:
		return AccountNKO
	default:
		return AccountPerson
	}
}

// User is a registered account. PasswordHash never leaves the server.
type User struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	AccountType  AccountType
	CreatedAt    time.Time
}

// PublicUser is the only user shape serialized to clients.
type PublicUser struct {
	ID          int64       `json:"id"`
	Name        string      `json:"name"`
	Email       string      `json:"email"`
	AccountType AccountType `json:"accountType"`
}

func (u User) Public() PublicUser {
	return PublicUser{
		ID:          u.ID,
		Name:        u.Name,
		Email:       u.Email,
		AccountType: u.AccountType,
	}
}

// CreateParams is the already-normalized, already-hashed input for a new row.
type CreateParams struct {
	Name         string
	Email        string
	PasswordHash string
	AccountType  AccountType
}

type Repository interface {
	// Create inserts a user. It returns ErrEmailTaken when the email unique
	// constraint rejects the insert.
	Create(ctx context.Context, params CreateParams) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id int64) (*User, error)
}

// NormalizeEmail lower-cases and trims an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
