// Package events serves the public calendar of community events.
package events

import (
	"context"
	"strings"

	"github.com/Togather-Foundation/nko-directory/internal/domain/apperr"
	"github.com/Togather-Foundation/nko-directory/internal/validation"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

type Service struct {
	repo      Repository
	logger    zerolog.Logger
	validator *validator.Validate
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{
		repo:      repo,
		logger:    logger.With().Str("component", "events").Logger(),
		validator: validation.New(),
	}
}

// ListAll returns all events. Dates sort as text, so "23 ноября" comes
// before "27 ноября" but month names do not sort chronologically.
func (s *Service) ListAll(ctx context.Context) ([]Event, error) {
	list, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, apperr.Store("list events", err)
	}
	if list == nil {
		list = []Event{}
	}
	return list, nil
}

// Seed inserts demo events. A city that already has events is left alone,
// so running the same seed twice adds nothing.
func (s *Service) Seed(ctx context.Context, inputs []EventInput) (int, error) {
	counts := make(map[string]int)
	toInsert := make([]EventInput, 0, len(inputs))

	for _, in := range inputs {
		in = trimInput(in)
		if err := validation.Struct(s.validator, in); err != nil {
			return 0, err
		}

		existing, seen := counts[in.City]
		if !seen {
			n, err := s.repo.CountByCity(ctx, in.City)
			if err != nil {
				return 0, apperr.Store("count events by city", err)
			}
			counts[in.City] = n
			existing = n
			if n > 0 {
				s.logger.Info().Str("city", in.City).Int("existing", n).Msg("city already has events, skipping seed")
			}
		}
		if existing > 0 {
			continue
		}
		toInsert = append(toInsert, in)
	}

	if len(toInsert) == 0 {
		return 0, nil
	}

	inserted, err := s.repo.CreateMany(ctx, toInsert)
	if err != nil {
		return 0, apperr.Store("seed events", err)
	}
	s.logger.Info().Int("inserted", inserted).Msg("events seeded")
	return inserted, nil
}

func trimInput(in EventInput) EventInput {
	in.Title = strings.TrimSpace(in.Title)
	in.Category = strings.TrimSpace(in.Category)
	in.City = strings.TrimSpace(in.City)
	in.Address = strings.TrimSpace(in.Address)
	in.Date = strings.TrimSpace(in.Date)
	in.Time = strings.TrimSpace(in.Time)
	in.Image = strings.TrimSpace(in.Image)
	return in
}
