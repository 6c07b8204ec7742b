// Package nko is the directory of non-profit organizations: moderated
// submissions from users, bulk imports from the spreadsheet converter and the
// public list of approved entries.
package nko

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/Togather-Foundation/nko-directory/internal/audit"
	"github.com/Togather-Foundation/nko-directory/internal/domain/apperr"
	"github.com/Togather-Foundation/nko-directory/internal/domain/users"
	"github.com/Togather-Foundation/nko-directory/internal/metrics"
	"github.com/Togather-Foundation/nko-directory/internal/sanitize"
	"github.com/Togather-Foundation/nko-directory/internal/validation"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

type Service struct {
	repo        Repository
	auditLogger *audit.Logger
	logger      zerolog.Logger
	validator   *validator.Validate
}

func NewService(repo Repository, auditLogger *audit.Logger, logger zerolog.Logger) *Service {
	return &Service{
		repo:        repo,
		auditLogger: auditLogger,
		logger:      logger.With().Str("component", "nko").Logger(),
		validator:   validation.New(),
	}
}

// ListApproved returns the public directory.
func (s *Service) ListApproved(ctx context.Context) ([]Listing, error) {
	return s.list(ctx, StatusApproved)
}

// ListPending returns submissions awaiting moderation.
func (s *Service) ListPending(ctx context.Context) ([]Listing, error) {
	return s.list(ctx, StatusPending)
}

func (s *Service) list(ctx context.Context, status Status) ([]Listing, error) {
	listings, err := s.repo.ListByStatus(ctx, status)
	if err != nil {
		return nil, apperr.Store("list "+string(status)+" listings", err)
	}
	if listings == nil {
		listings = []Listing{}
	}
	return listings, nil
}

// Submit stores a user's listing for moderation. Whatever status the client
// sends, the listing is created pending.
func (s *Service) Submit(ctx context.Context, user *users.User, input SubmitInput) (int64, error) {
	if user == nil {
		return 0, apperr.ErrUnauthenticated
	}

	sanitize.Fields(
		&input.Name, &input.Category, &input.Description, &input.Volunteers,
		&input.Phone, &input.Address, &input.Logo, &input.Website,
		&input.Filters, &input.City,
	)
	if err := validation.Struct(s.validator, input); err != nil {
		return 0, err
	}
	if input.Volunteers == "" {
		input.Volunteers = input.Description
	}

	userID := user.ID
	id, err := s.repo.Create(ctx, NewListing{
		Name:            input.Name,
		Category:        input.Category,
		Description:     input.Description,
		Volunteers:      input.Volunteers,
		Phone:           input.Phone,
		Address:         input.Address,
		Logo:            input.Logo,
		Website:         input.Website,
		Filters:         input.Filters,
		City:            input.City,
		Lat:             input.Lat,
		Lng:             input.Lng,
		Status:          StatusPending,
		CreatedByUserID: &userID,
	})
	if err != nil {
		return 0, apperr.Store("create listing", err)
	}

	metrics.ListingSubmissionsTotal.Inc()
	s.logger.Info().Int64("listing_id", id).Int64("user_id", userID).Msg("listing submitted for moderation")
	return id, nil
}

// PrepareImport normalizes converter rows into approved listings. Rows
// without a name are dropped and counted in the result's Skipped.
func PrepareImport(rows []ImportRow) ([]NewListing, ImportResult) {
	var result ImportResult
	listings := make([]NewListing, 0, len(rows))
	for _, row := range rows {
		name := strings.TrimSpace(row.Name)
		if name == "" {
			result.Skipped++
			continue
		}
		description := strings.TrimSpace(row.Description)
		volunteers := strings.TrimSpace(row.Volunteers)
		if volunteers == "" {
			volunteers = description
		}
		listings = append(listings, NewListing{
			Name:        name,
			Category:    strings.TrimSpace(row.Category),
			Description: description,
			Volunteers:  volunteers,
			Phone:       strings.TrimSpace(row.Phone),
			Address:     strings.TrimSpace(row.Address),
			Logo:        strings.TrimSpace(row.Logo),
			Website:     strings.TrimSpace(row.Website),
			Albums:      strings.TrimSpace(row.Albums),
			Filters:     strings.TrimSpace(row.Filters),
			City:        strings.TrimSpace(row.City),
			Lat:         row.Lat,
			Lng:         row.Lng,
			Status:      StatusApproved,
		})
	}
	return listings, result
}

// Import inserts converter rows as approved listings in one transaction.
func (s *Service) Import(ctx context.Context, rows []ImportRow) (ImportResult, error) {
	listings, result := PrepareImport(rows)
	if len(listings) == 0 {
		return result, nil
	}

	inserted, err := s.repo.CreateMany(ctx, listings)
	if err != nil {
		return ImportResult{}, apperr.Store("import listings", err)
	}
	result.Inserted = inserted
	metrics.ListingsImportedTotal.Add(float64(inserted))

	s.logger.Info().Int("inserted", result.Inserted).Int("skipped", result.Skipped).Msg("listings imported")
	s.auditLogger.LogSuccess("nko.imported", "operator", "nko_listing", "", map[string]string{
		"inserted": strconv.Itoa(result.Inserted),
		"skipped":  strconv.Itoa(result.Skipped),
	})
	return result, nil
}

// Approve publishes a pending listing.
func (s *Service) Approve(ctx context.Context, id int64) (*Listing, error) {
	return s.transition(ctx, id, StatusApproved)
}

// Reject hides a pending listing permanently.
func (s *Service) Reject(ctx context.Context, id int64) (*Listing, error) {
	return s.transition(ctx, id, StatusRejected)
}

func (s *Service) transition(ctx context.Context, id int64, to Status) (*Listing, error) {
	action := "nko." + string(to)
	resourceID := strconv.FormatInt(id, 10)

	if err := s.repo.UpdateStatus(ctx, id, StatusPending, to); err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidTransition) {
			s.auditLogger.LogFailure(action, "operator", map[string]string{
				"listing_id": resourceID,
				"reason":     err.Error(),
			})
			return nil, err
		}
		return nil, apperr.Store("update listing status", err)
	}

	listing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Store("get listing", err)
	}

	metrics.ModerationTransitionsTotal.WithLabelValues(string(to)).Inc()
	s.logger.Info().Int64("listing_id", id).Str("status", string(to)).Msg("listing moderated")
	s.auditLogger.LogSuccess(action, "operator", "nko_listing", resourceID, map[string]string{
		"from": string(StatusPending),
		"to":   string(to),
	})
	return listing, nil
}
