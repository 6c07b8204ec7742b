package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Togather-Foundation/nko-directory/internal/domain/nko"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ListingRepository struct {
	pool *pgxpool.Pool
	tx   pgx.Tx
}

const listingColumns = `id, name, category, description, volunteers, phone, address, logo, website,
       albums, filters, city, lat, lng, status, created_by_user_id, created_at`

const insertListingSQL = `
INSERT INTO nko_listings (
    name, category, description, volunteers, phone, address, logo, website,
    albums, filters, city, lat, lng, status, created_by_user_id
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
RETURNING id`

func (r *ListingRepository) ListByStatus(ctx context.Context, status nko.Status) (_ []nko.Listing, err error) {
	defer observe("list_listings", time.Now(), &err)

	rows, err := pick(r.pool, r.tx).Query(ctx, `
SELECT `+listingColumns+`
  FROM nko_listings
 WHERE status = $1
 ORDER BY lower(name), id`, string(status))
	if err != nil {
		return nil, fmt.Errorf("list listings: %w", err)
	}
	defer rows.Close()

	listings := []nko.Listing{}
	for rows.Next() {
		listing, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("scan listing: %w", err)
		}
		listings = append(listings, *listing)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate listings: %w", err)
	}
	return listings, nil
}

func (r *ListingRepository) GetByID(ctx context.Context, id int64) (*nko.Listing, error) {
	row := pick(r.pool, r.tx).QueryRow(ctx, `SELECT `+listingColumns+` FROM nko_listings WHERE id = $1`, id)
	listing, err := scanListing(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nko.ErrNotFound
		}
		return nil, fmt.Errorf("get listing: %w", err)
	}
	return listing, nil
}

func (r *ListingRepository) Create(ctx context.Context, listing nko.NewListing) (int64, error) {
	var id int64
	if err := pick(r.pool, r.tx).QueryRow(ctx, insertListingSQL, listingArgs(listing)...).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert listing: %w", err)
	}
	return id, nil
}

// CreateMany inserts every listing or none of them.
func (r *ListingRepository) CreateMany(ctx context.Context, listings []nko.NewListing) (_ int, err error) {
	defer observe("import_listings", time.Now(), &err)

	insert := func(q queryer) error {
		for i, listing := range listings {
			var id int64
			if err := q.QueryRow(ctx, insertListingSQL, listingArgs(listing)...).Scan(&id); err != nil {
				return fmt.Errorf("insert listing %d (%q): %w", i+1, listing.Name, err)
			}
		}
		return nil
	}

	if r.tx != nil {
		if err := insert(r.tx); err != nil {
			return 0, err
		}
		return len(listings), nil
	}
	if err := withTx(ctx, r.pool, func(tx pgx.Tx) error { return insert(tx) }); err != nil {
		return 0, err
	}
	return len(listings), nil
}

// UpdateStatus applies a moderation decision. The status check and the
// update are one statement, so two moderators cannot both win.
func (r *ListingRepository) UpdateStatus(ctx context.Context, id int64, from, to nko.Status) (err error) {
	defer observe("update_listing_status", time.Now(), &err)

	if !nko.CanTransition(from, to) {
		return nko.ErrInvalidTransition
	}

	q := pick(r.pool, r.tx)
	tag, err := q.Exec(ctx, `UPDATE nko_listings SET status = $3 WHERE id = $1 AND status = $2`, id, string(from), string(to))
	if err != nil {
		return fmt.Errorf("update listing status: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	if err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM nko_listings WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("check listing exists: %w", err)
	}
	if !exists {
		return nko.ErrNotFound
	}
	return nko.ErrInvalidTransition
}

func listingArgs(l nko.NewListing) []any {
	return []any{
		l.Name, l.Category, l.Description, l.Volunteers, l.Phone, l.Address, l.Logo, l.Website,
		l.Albums, l.Filters, l.City, l.Lat.Ptr(), l.Lng.Ptr(), string(l.Status), l.CreatedByUserID,
	}
}

func scanListing(row pgx.Row) (*nko.Listing, error) {
	var (
		listing  nko.Listing
		lat, lng *float64
		status   string
	)
	if err := row.Scan(
		&listing.ID,
		&listing.Name,
		&listing.Category,
		&listing.Description,
		&listing.Volunteers,
		&listing.Phone,
		&listing.Address,
		&listing.Logo,
		&listing.Website,
		&listing.Albums,
		&listing.Filters,
		&listing.City,
		&lat,
		&lng,
		&status,
		&listing.CreatedByUserID,
		&listing.CreatedAt,
	); err != nil {
		return nil, err
	}
	listing.Lat = coordinate(lat)
	listing.Lng = coordinate(lng)
	listing.Status = nko.Status(status)
	return &listing, nil
}
