package validation

import (
	"errors"
	"testing"

	"github.com/Togather-Foundation/nko-directory/internal/domain/apperr"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name     string `json:"name" validate:"required"`
	City     string `json:"city" validate:"required"`
	Optional string `json:"optional"`
}

func TestStructReportsJSONFieldNames(t *testing.T) {
	err := Struct(New(), sample{})

	var verr apperr.ValidationError
	require.True(t, errors.As(err, &verr))
	require.Equal(t, []string{"name", "city"}, verr.Fields)
	require.Equal(t, "missing required fields: name, city", verr.Error())
}

func TestStructPasses(t *testing.T) {
	require.NoError(t, Struct(New(), sample{Name: "a", City: "b"}))
}
