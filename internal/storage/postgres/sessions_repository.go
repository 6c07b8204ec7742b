package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Togather-Foundation/nko-directory/internal/domain/sessions"
	"github.com/Togather-Foundation/nko-directory/internal/domain/users"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type SessionRepository struct {
	pool *pgxpool.Pool
	tx   pgx.Tx
}

func (r *SessionRepository) Create(ctx context.Context, userID int64, tokenHash string) (*sessions.Session, error) {
	session := sessions.Session{UserID: userID, TokenHash: tokenHash}
	err := pick(r.pool, r.tx).QueryRow(ctx, `
INSERT INTO sessions (user_id, token_hash)
VALUES ($1, $2)
RETURNING id, created_at`, userID, tokenHash).Scan(&session.ID, &session.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}
	return &session, nil
}

// UserByTokenHash resolves a session to its owner in one query.
func (r *SessionRepository) UserByTokenHash(ctx context.Context, tokenHash string) (_ *users.User, err error) {
	defer observe("resolve_session", time.Now(), &err)

	row := pick(r.pool, r.tx).QueryRow(ctx, `
SELECT u.id, u.name, u.email, u.password_hash, u.account_type, u.created_at
  FROM sessions s
  JOIN users u ON u.id = s.user_id
 WHERE s.token_hash = $1`, tokenHash)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, users.ErrUserNotFound
		}
		return nil, fmt.Errorf("resolve session: %w", err)
	}
	return user, nil
}
