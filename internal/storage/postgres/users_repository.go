package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/Togather-Foundation/nko-directory/internal/domain/users"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UserRepository struct {
	pool *pgxpool.Pool
	tx   pgx.Tx
}

const userColumns = `id, name, email, password_hash, account_type, created_at`

// Create inserts a user. The unique index on email is the only duplicate
// check, so concurrent registrations of one address leave exactly one row.
func (r *UserRepository) Create(ctx context.Context, params users.CreateParams) (*users.User, error) {
	row := pick(r.pool, r.tx).QueryRow(ctx, `
INSERT INTO users (name, email, password_hash, account_type)
VALUES ($1, $2, $3, $4)
RETURNING `+userColumns, params.Name, params.Email, params.PasswordHash, string(params.AccountType))

	user, err := scanUser(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, users.ErrEmailTaken
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*users.User, error) {
	row := pick(r.pool, r.tx).QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, users.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*users.User, error) {
	row := pick(r.pool, r.tx).QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, users.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	return user, nil
}

func scanUser(row pgx.Row) (*users.User, error) {
	var (
		user        users.User
		accountType string
	)
	if err := row.Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &accountType, &user.CreatedAt); err != nil {
		return nil, err
	}
	user.AccountType = users.ParseAccountType(accountType)
	return &user, nil
}
