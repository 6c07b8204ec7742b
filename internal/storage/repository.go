package storage

import (
	"context"

	"github.com/Togather-Foundation/nko-directory/internal/domain/events"
	"github.com/Togather-Foundation/nko-directory/internal/domain/nko"
	"github.com/Togather-Foundation/nko-directory/internal/domain/sessions"
	"github.com/Togather-Foundation/nko-directory/internal/domain/users"
)

// Repository groups data access by domain.
type Repository interface {
	Users() users.Repository
	Sessions() sessions.Repository
	Listings() nko.Repository
	Events() events.Repository

	// Ping reports whether the backing store is reachable.
	Ping(ctx context.Context) error

	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
}
