package http

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/librarian/internal/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestParseIDParam_Valid(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "id", Value: "123"}}

	id, ok := parseIDParam(c, "id")

	assert.True(t, ok)
	assert.Equal(t, uint(123), id)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestParseIDParam_Invalid(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "id", Value: "abc"}}

	id, ok := parseIDParam(c, "id")

	assert.False(t, ok)
	assert.Equal(t, uint(0), id)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid id")
}

func TestParseIDParam_Negative(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "id", Value: "-1"}}

	id, ok := parseIDParam(c, "id")

	assert.False(t, ok)
	assert.Equal(t, uint(0), id)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestParseOptionalQueryID(t *testing.T) {
	tests := []struct {
		query string
		want  uint
	}{
		{"/?genre_id=7", 7},
		{"/?genre_id=", 0},
		{"/", 0},
		{"/?genre_id=poetry", 0},
		{"/?genre_id=-3", 0},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest(http.MethodGet, tt.query, nil)

			assert.Equal(t, tt.want, parseOptionalQueryID(c, "genre_id"))
		})
	}
}

type bindingFixture struct {
	Book    uint   `form:"book" binding:"required"`
	DueBack string `form:"due_back" binding:"omitempty,datetime=2006-01-02"`
	Email   string `form:"email" binding:"omitempty,email"`
}

func TestBindingError_FieldErrors(t *testing.T) {
	err := binding.Validator.ValidateStruct(bindingFixture{DueBack: "tomorrow", Email: "nope"})
	require.Error(t, err)

	messages := bindingError(err).Messages()

	assert.Equal(t, map[string]string{
		"book":     "This field is required.",
		"due_back": "Enter a valid date.",
		"email":    "Enter a valid email address.",
	}, messages)
}

func TestBindingError_OtherErrors(t *testing.T) {
	assert.Equal(t, "Invalid request body.", bindingError(errors.New("unexpected EOF")).Messages()["__all__"])

	_, numErr := strconv.ParseUint("x", 10, 32)
	require.Error(t, numErr)
	assert.Contains(t, bindingError(numErr).Messages(), "__all__")
}

func TestRespondServiceError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantBody string
	}{
		{"not found", fmt.Errorf("load: %w", services.ErrNotFound), http.StatusNotFound, CodeNotFound},
		{"forbidden", services.ErrPermissionDenied, http.StatusForbidden, CodePermissionDenied},
		{"unauthenticated", services.ErrUnauthenticated, http.StatusUnauthorized, CodeUnauthenticated},
		{"throttled", services.ErrTooManyReviews, http.StatusTooManyRequests, CodeTooManyRequests},
		{"validation", services.NewValidationError("content", "This field is required."), http.StatusBadRequest, CodeValidation},
		{"internal", errors.New("disk on fire"), http.StatusInternalServerError, "internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			respondServiceError(c, tt.err, "book")

			assert.Equal(t, tt.wantCode, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantBody)
			assert.NotContains(t, w.Body.String(), "disk on fire")
		})
	}
}

func TestPageURL(t *testing.T) {
	assert.Equal(t, "?page=2", pageURL(2, "", 0))
	assert.Equal(t, "?genre_id=4&page=1&search=war+and+peace", pageURL(1, "war and peace", 4))
}

func TestFormatDate(t *testing.T) {
	assert.Equal(t, "", formatDate(nil))
	assert.Equal(t, "2024-06-01", formatDate(date(2024, 6, 1)))
}
