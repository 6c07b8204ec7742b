package postgres

import (
	"errors"
	"time"

	"github.com/Togather-Foundation/nko-directory/internal/domain/nko"
	"github.com/Togather-Foundation/nko-directory/internal/domain/users"
	"github.com/Togather-Foundation/nko-directory/internal/metrics"
)

// coordinate converts a nullable column into a nko.Coordinate.
func coordinate(value *float64) nko.Coordinate {
	if value == nil {
		return nko.Coordinate{}
	}
	return nko.NewCoordinate(*value)
}

// observe records query timing. Use with a named error result:
//
//	defer observe("list_events", time.Now(), &err)
//
// Domain outcomes such as "not found" are not counted as database errors.
func observe(operation string, start time.Time, err *error) {
	var value error
	if err != nil {
		value = *err
	}
	if errors.Is(value, nko.ErrNotFound) || errors.Is(value, nko.ErrInvalidTransition) || errors.Is(value, users.ErrUserNotFound) {
		value = nil
	}
	metrics.RecordQuery(operation, start, value)
}
