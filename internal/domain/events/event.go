package events

import (
	"context"
	"time"
)

// Event is a community event. Date and Time are display strings such as
// "23 ноября" and "11:00–14:00"; they are never parsed.
type Event struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Category  string    `json:"category"`
	City      string    `json:"city"`
	Address   string    `json:"address"`
	Date      string    `json:"date"`
	Time      string    `json:"time"`
	Image     string    `json:"image"`
	CreatedAt time.Time `json:"-"`
}

// EventInput is one entry of a seed file.
type EventInput struct {
	Title    string `json:"title" yaml:"title" validate:"required"`
	Category string `json:"category" yaml:"category"`
	City     string `json:"city" yaml:"city"`
	Address  string `json:"address" yaml:"address"`
	Date     string `json:"date" yaml:"date"`
	Time     string `json:"time" yaml:"time"`
	Image    string `json:"image" yaml:"image"`
}

type Repository interface {
	// ListAll returns every event ordered by the textual date, then id.
	ListAll(ctx context.Context) ([]Event, error)
	CountByCity(ctx context.Context, city string) (int, error)
	// CreateMany inserts all events atomically.
	CreateMany(ctx context.Context, events []EventInput) (int, error)
}
