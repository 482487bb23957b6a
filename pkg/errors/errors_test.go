package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPredefinedErrorsHaveDistinctCodes(t *testing.T) {
	all := []*Error{
		ErrInvalidCredentials, ErrNotFound, ErrForbidden, ErrUnauthorized, ErrValidation, ErrInternal,
		ErrFinalized, ErrInvalidTransition, ErrMissingDocument, ErrMissingRemarks, ErrInvalidIdentification,
		ErrCacheMiss,
	}
	seen := map[string]bool{}
	for _, e := range all {
		assert.False(t, seen[e.Code], "duplicate code %s", e.Code)
		seen[e.Code] = true
		assert.NotZero(t, e.Status)
	}
}

func TestCloneMatchesByCode(t *testing.T) {
	clone := Clone(ErrMissingRemarks, "remarks are required")
	wrapped := fmt.Errorf("reject: %w", clone)

	assert.True(t, errors.Is(wrapped, ErrMissingRemarks))
	assert.False(t, errors.Is(wrapped, ErrMissingDocument))
	assert.Equal(t, "remarks are required", clone.Message)
	assert.Equal(t, "an uploaded certified copy is required to approve", ErrMissingDocument.Message)
}

func TestFromError(t *testing.T) {
	assert.Nil(t, FromError(nil))

	typed := FromError(fmt.Errorf("wrap: %w", ErrFinalized))
	assert.Equal(t, "FINALIZED", typed.Code)
	assert.Equal(t, http.StatusConflict, typed.Status)

	plain := FromError(errors.New("disk full"))
	assert.Equal(t, ErrInternal.Code, plain.Code)
	assert.Contains(t, plain.Error(), "disk full")
}
