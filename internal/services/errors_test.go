package services

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestTranslate(t *testing.T) {
	assert.NoError(t, translate(nil, "op"))
	assert.ErrorIs(t, translate(gorm.ErrRecordNotFound, "op"), ErrNotFound)
	assert.ErrorIs(t, translate(fmt.Errorf("wrapped: %w", gorm.ErrRecordNotFound), "op"), ErrNotFound)
	assert.Equal(t, ErrPermissionDenied, translate(ErrPermissionDenied, "op"))

	verr := NewValidationError("content", "required")
	assert.Same(t, verr, translate(verr, "op"))

	boom := errors.New("disk full")
	err := translate(boom, "save review")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "failed to save review: disk full", err.Error())
}

func TestValidationError(t *testing.T) {
	verr := &ValidationError{}
	assert.NoError(t, verr.OrNil())

	verr.Add("due_back", "Enter a valid date.")
	verr.Add("book", "This field is required.")
	verr.Add("book", "second message")

	err := verr.OrNil()
	assert.Error(t, err)
	assert.Equal(t, "book", verr.Fields[0].Field)
	assert.Equal(t, map[string]string{
		"book":     "This field is required.",
		"due_back": "Enter a valid date.",
	}, verr.Messages())
	assert.Contains(t, err.Error(), "due_back: Enter a valid date.")
}
