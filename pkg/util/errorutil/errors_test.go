package errorutil

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
)

func TestToDomainErrorPassesThrough(t *testing.T) {
	original := NewValidationError("subject required", map[string]any{"field": "subject"})
	wrapped := fmt.Errorf("submit: %w", original)

	got := ToDomainError(wrapped)
	assert.Equal(t, CodeValidation, got.Code)
	assert.Equal(t, http.StatusBadRequest, got.HTTPStatus)
	assert.Equal(t, "subject", got.Details["field"])
}

func TestToDomainErrorNoRows(t *testing.T) {
	got := ToDomainError(fmt.Errorf("get case: %w", pgx.ErrNoRows))
	assert.Equal(t, CodeNotFound, got.Code)
	assert.ErrorIs(t, got, pgx.ErrNoRows)
}

func TestToDomainErrorKeepsStorageCause(t *testing.T) {
	cause := errors.New("connection reset")
	got := ToDomainError(cause)
	assert.Equal(t, CodeInternal, got.Code)
	assert.ErrorIs(t, got, cause)
	assert.Nil(t, ToDomainError(nil))
	assert.NoError(t, MapError(nil))
}

func TestWrapKeepsCause(t *testing.T) {
	sentinel := errors.New("boom")
	err := Wrap(CodeNoOpTransition, "already there", http.StatusConflict, sentinel)
	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, "already there: boom", err.Error())
}
