package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Togather-Foundation/nko-directory/internal/domain/events"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type EventRepository struct {
	pool *pgxpool.Pool
	tx   pgx.Tx
}

// ListAll orders by the raw date text using byte order, independent of the
// database locale.
func (r *EventRepository) ListAll(ctx context.Context) (_ []events.Event, err error) {
	defer observe("list_events", time.Now(), &err)

	rows, err := pick(r.pool, r.tx).Query(ctx, `
SELECT id, title, category, city, address, "date", "time", image, created_at
  FROM events
 ORDER BY "date" COLLATE "C", id`)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	list := []events.Event{}
	for rows.Next() {
		var e events.Event
		if err := rows.Scan(&e.ID, &e.Title, &e.Category, &e.City, &e.Address, &e.Date, &e.Time, &e.Image, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		list = append(list, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return list, nil
}

func (r *EventRepository) CountByCity(ctx context.Context, city string) (int, error) {
	var count int
	if err := pick(r.pool, r.tx).QueryRow(ctx, `SELECT count(*) FROM events WHERE city = $1`, city).Scan(&count); err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return count, nil
}

func (r *EventRepository) CreateMany(ctx context.Context, inputs []events.EventInput) (int, error) {
	insert := func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, in := range inputs {
			batch.Queue(`
INSERT INTO events (title, category, city, address, "date", "time", image)
VALUES ($1, $2, $3, $4, $5, $6, $7)`, in.Title, in.Category, in.City, in.Address, in.Date, in.Time, in.Image)
		}
		results := tx.SendBatch(ctx, batch)
		for range inputs {
			if _, err := results.Exec(); err != nil {
				_ = results.Close()
				return fmt.Errorf("insert event: %w", err)
			}
		}
		return results.Close()
	}

	if r.tx != nil {
		if err := insert(r.tx); err != nil {
			return 0, err
		}
		return len(inputs), nil
	}
	if err := withTx(ctx, r.pool, insert); err != nil {
		return 0, err
	}
	return len(inputs), nil
}
