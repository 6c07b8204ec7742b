package nko

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

var (
	ErrNotFound          = errors.New("nko listing not found")
	ErrInvalidStatus     = errors.New("invalid listing status")
	ErrInvalidTransition = errors.New("listing is not pending moderation")
)

// Status is the moderation state of a listing. Only approved listings are
// publicly visible.
type Status string

const (
	StatusApproved Status = "approved"
	StatusPending  Status = "pending"
	StatusRejected Status = "rejected"
)

func ParseStatus(raw string) (Status, error) {
	switch s := Status(strings.ToLower(strings.TrimSpace(raw))); s {
	case StatusApproved, StatusPending, StatusRejected:
		return s, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
	}
}

func (s Status) Valid() bool {
	_, err := ParseStatus(string(s))
	return err == nil
}

// CanTransition reports whether moderation may move a listing from one
// status to another. Only pending listings are ever moderated.
func CanTransition(from, to Status) bool {
	return from == StatusPending && (to == StatusApproved || to == StatusRejected)
}

// Coordinate is an optional latitude or longitude. It decodes JSON numbers
// and numeric strings; null, empty and non-numeric values decode to absent.
type Coordinate struct {
	Value float64
	Valid bool
}

// NewCoordinate returns an absent coordinate for NaN and infinities, which
// cannot be encoded as JSON.
func NewCoordinate(v float64) Coordinate {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Coordinate{}
	}
	return Coordinate{Value: v, Valid: true}
}

// Ptr returns nil for an absent coordinate.
func (c Coordinate) Ptr() *float64 {
	if !c.Valid {
		return nil
	}
	v := c.Value
	return &v
}

func (c Coordinate) MarshalJSON() ([]byte, error) {
	if !c.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(c.Value)
}

func (c *Coordinate) UnmarshalJSON(data []byte) error {
	*c = Coordinate{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	raw := string(data)
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		raw = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	*c = NewCoordinate(v)
	return nil
}

// UnmarshalYAML accepts the same inputs as UnmarshalJSON.
func (c *Coordinate) UnmarshalYAML(unmarshal func(any) error) error {
	var raw any
	if err := unmarshal(&raw); err != nil {
		return err
	}
	*c = Coordinate{}
	switch v := raw.(type) {
	case int:
		*c = NewCoordinate(float64(v))
	case float64:
		*c = NewCoordinate(v)
	case string:
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(strings.ReplaceAll(v, ",", ".")), 64); err == nil {
			*c = NewCoordinate(parsed)
		}
	}
	return nil
}

// Listing is an NKO directory entry.
type Listing struct {
	ID              int64      `json:"id"`
	Name            string     `json:"name"`
	Category        string     `json:"category"`
	Description     string     `json:"description"`
	Volunteers      string     `json:"volunteers"`
	Phone           string     `json:"phone"`
	Address         string     `json:"address"`
	Logo            string     `json:"logo"`
	Website         string     `json:"website"`
	Albums          string     `json:"albums"`
	Filters         string     `json:"filters"`
	City            string     `json:"city"`
	Lat             Coordinate `json:"lat"`
	Lng             Coordinate `json:"lng"`
	Status          Status     `json:"status"`
	CreatedByUserID *int64     `json:"-"`
	CreatedAt       time.Time  `json:"-"`
}

// NewListing is a fully prepared row for insertion.
type NewListing struct {
	Name            string
	Category        string
	Description     string
	Volunteers      string
	Phone           string
	Address         string
	Logo            string
	Website         string
	Albums          string
	Filters         string
	City            string
	Lat             Coordinate
	Lng             Coordinate
	Status          Status
	CreatedByUserID *int64
}

// SubmitInput is what an authenticated user sends. Status and Albums are
// accepted for compatibility and ignored.
type SubmitInput struct {
	Name        string     `json:"name" validate:"required"`
	Category    string     `json:"category" validate:"required"`
	Description string     `json:"description" validate:"required"`
	Volunteers  string     `json:"volunteers"`
	Phone       string     `json:"phone"`
	Address     string     `json:"address"`
	Logo        string     `json:"logo"`
	Website     string     `json:"website"`
	Filters     string     `json:"filters"`
	City        string     `json:"city" validate:"required"`
	Lat         Coordinate `json:"lat"`
	Lng         Coordinate `json:"lng"`
	Albums      string     `json:"albums"`
	Status      string     `json:"status"`
}

// ImportRow is one row produced by the spreadsheet converter.
type ImportRow struct {
	Name        string     `json:"name" yaml:"name"`
	Category    string     `json:"category" yaml:"category"`
	Description string     `json:"description" yaml:"description"`
	Volunteers  string     `json:"volunteers" yaml:"volunteers"`
	Phone       string     `json:"phone" yaml:"phone"`
	Address     string     `json:"address" yaml:"address"`
	Logo        string     `json:"logo" yaml:"logo"`
	Website     string     `json:"website" yaml:"website"`
	Albums      string     `json:"albums" yaml:"albums"`
	Filters     string     `json:"filters" yaml:"filters"`
	City        string     `json:"city" yaml:"city"`
	Lat         Coordinate `json:"lat" yaml:"lat"`
	Lng         Coordinate `json:"lng" yaml:"lng"`
}

// ImportResult summarizes a bulk import.
type ImportResult struct {
	Inserted int
	Skipped  int
}

type Repository interface {
	// ListByStatus returns listings with the given status ordered by name,
	// case-insensitively.
	ListByStatus(ctx context.Context, status Status) ([]Listing, error)
	GetByID(ctx context.Context, id int64) (*Listing, error)
	Create(ctx context.Context, listing NewListing) (int64, error)
	// CreateMany inserts all listings atomically.
	CreateMany(ctx context.Context, listings []NewListing) (int, error)
	// UpdateStatus moves a listing from one status to another in a single
	// conditional statement. It returns ErrNotFound for an unknown id and
	// ErrInvalidTransition when the current status is not from.
	UpdateStatus(ctx context.Context, id int64, from, to Status) error
}
