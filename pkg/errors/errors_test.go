package errors

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCloneMatchesTemplate(t *testing.T) {
	err := Clone(ErrConflict, "record already approved")

	assert.True(t, errors.Is(err, ErrConflict))
	assert.False(t, errors.Is(err, ErrDuplicate))
	assert.Equal(t, "conflict", ErrConflict.Message)
	assert.Equal(t, http.StatusConflict, err.Status)
}

func TestWrapUnwraps(t *testing.T) {
	err := Wrap(sql.ErrConnDone, ErrRemoteService.Code, ErrRemoteService.Status, "failed to load record")

	assert.ErrorIs(t, err, sql.ErrConnDone)
	assert.ErrorIs(t, err, ErrRemoteService)
	assert.Equal(t, "failed to load record: sql: connection is already closed", err.Error())
}

func TestFromError(t *testing.T) {
	assert.Nil(t, FromError(nil))

	typed := WithFields(ErrValidation, map[string]string{"email": "is required"})
	wrapped := fmt.Errorf("register: %w", typed)
	assert.Same(t, typed, FromError(wrapped))
	assert.Nil(t, ErrValidation.Fields)

	plain := FromError(errors.New("boom"))
	assert.Equal(t, ErrInternal.Code, plain.Code)
	assert.Equal(t, http.StatusInternalServerError, plain.Status)
}
