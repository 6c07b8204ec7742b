package sessions

import (
	"context"
	"time"

	"github.com/Togather-Foundation/nko-directory/internal/domain/users"
)

// Session links an opaque bearer token to a user. Only the SHA-256 of the
// token is stored.
type Session struct {
	ID        int64
	UserID    int64
	TokenHash string
	CreatedAt time.Time
}

type Repository interface {
	Create(ctx context.Context, userID int64, tokenHash string) (*Session, error)
	// UserByTokenHash returns the owning user, or users.ErrUserNotFound when no
	// session has that hash.
	UserByTokenHash(ctx context.Context, tokenHash string) (*users.User, error)
}
