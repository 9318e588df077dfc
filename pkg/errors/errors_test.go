package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCloneKeepsCodeAndMatches(t *testing.T) {
	cloned := Clone(ErrSlotFull, "window 3 is full")

	assert.Equal(t, "SLOT_FULL", cloned.Code)
	assert.Equal(t, http.StatusConflict, cloned.Status)
	assert.Equal(t, "window 3 is full", cloned.Message)
	assert.True(t, errors.Is(cloned, ErrSlotFull))
	assert.False(t, errors.Is(cloned, ErrLabClosed))
	assert.Equal(t, "no seats left in this window", ErrSlotFull.Message)
}

func TestFromErrorDefaultsToInternal(t *testing.T) {
	plain := fmt.Errorf("boom")
	appErr := FromError(plain)

	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)
	assert.ErrorIs(t, appErr, plain)
	assert.Nil(t, FromError(nil))
}

func TestFromErrorUnwrapsTypedError(t *testing.T) {
	wrapped := fmt.Errorf("create booking: %w", Clone(ErrDoctorUnavailable, ""))
	appErr := FromError(wrapped)

	assert.Equal(t, ErrDoctorUnavailable.Code, appErr.Code)
	assert.Equal(t, "doctor is unavailable on this date", appErr.Error())
}
