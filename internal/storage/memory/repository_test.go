package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/Togather-Foundation/nko-directory/internal/domain/events"
	"github.com/Togather-Foundation/nko-directory/internal/domain/nko"
	"github.com/Togather-Foundation/nko-directory/internal/domain/users"
	"github.com/Togather-Foundation/nko-directory/internal/storage"
	"github.com/stretchr/testify/require"
)

func TestUsersUniqueEmail(t *testing.T) {
	repo := NewRepository()
	ctx := context.Background()

	_, err := repo.Users().Create(ctx, users.CreateParams{Email: "a@b.c", PasswordHash: "x", AccountType: users.AccountPerson})
	require.NoError(t, err)
	_, err = repo.Users().Create(ctx, users.CreateParams{Email: "a@b.c", PasswordHash: "y", AccountType: users.AccountPerson})
	require.ErrorIs(t, err, users.ErrEmailTaken)

	_, err = repo.Users().GetByEmail(ctx, "missing@b.c")
	require.ErrorIs(t, err, users.ErrUserNotFound)
}

func TestListingsCreateManyIsAtomic(t *testing.T) {
	repo := NewRepository()
	ctx := context.Background()

	_, err := repo.Listings().CreateMany(ctx, []nko.NewListing{
		{Name: "Первая", Status: nko.StatusApproved},
		{Name: "", Status: nko.StatusApproved},
	})
	require.ErrorIs(t, err, ErrEmptyName)

	list, err := repo.Listings().ListByStatus(ctx, nko.StatusApproved)
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestListingsUpdateStatus(t *testing.T) {
	repo := NewRepository()
	ctx := context.Background()

	id, err := repo.Listings().Create(ctx, nko.NewListing{Name: "Фонд", Status: nko.StatusPending})
	require.NoError(t, err)

	require.NoError(t, repo.Listings().UpdateStatus(ctx, id, nko.StatusPending, nko.StatusApproved))
	require.ErrorIs(t, repo.Listings().UpdateStatus(ctx, id, nko.StatusPending, nko.StatusRejected), nko.ErrInvalidTransition)
	require.ErrorIs(t, repo.Listings().UpdateStatus(ctx, id+100, nko.StatusPending, nko.StatusRejected), nko.ErrNotFound)
}

func TestEventsOrderByDateBytes(t *testing.T) {
	repo := NewRepository()
	ctx := context.Background()

	_, err := repo.Events().CreateMany(ctx, []events.EventInput{
		{Title: "b", Date: "30 ноября"},
		{Title: "a", Date: "23 ноября"},
		{Title: "c", Date: "1 декабря"},
	})
	require.NoError(t, err)

	list, err := repo.Events().ListAll(ctx)
	require.NoError(t, err)
	require.Equal(t, "1 декабря", list[0].Date)
	require.Equal(t, "23 ноября", list[1].Date)
	require.Equal(t, "30 ноября", list[2].Date)
}

func TestWithTxRestoresOnError(t *testing.T) {
	repo := NewRepository()
	ctx := context.Background()
	boom := errors.New("boom")

	err := repo.WithTx(ctx, func(ctx context.Context, tx storage.Repository) error {
		if _, err := tx.Listings().Create(ctx, nko.NewListing{Name: "Фонд", Status: nko.StatusApproved}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	list, err := repo.Listings().ListByStatus(ctx, nko.StatusApproved)
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestFailWith(t *testing.T) {
	repo := NewRepository()
	ctx := context.Background()
	boom := errors.New("db down")

	repo.FailWith("ping", boom)
	require.ErrorIs(t, repo.Ping(ctx), boom)
	_, err := repo.Events().ListAll(ctx)
	require.NoError(t, err)

	repo.FailWith("", nil)
	require.NoError(t, repo.Ping(ctx))
}
