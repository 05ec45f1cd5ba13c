package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError(t *testing.T) {
	t.Run("matches by code", func(t *testing.T) {
		err := NewDomainError("NOT_FOUND", "payment intent not found")
		assert.True(t, errors.Is(err, ErrNotFound))
		assert.False(t, errors.Is(err, ErrInvalidInput))
	})

	t.Run("unwraps cause", func(t *testing.T) {
		cause := errors.New("duplicate key")
		err := WrapDomainError("DOMAIN_WRITE_FAILED", "could not persist records", cause)
		assert.ErrorIs(t, fmt.Errorf("settle: %w", err), cause)
		assert.Equal(t, "could not persist records: duplicate key", err.Error())
	})
}
