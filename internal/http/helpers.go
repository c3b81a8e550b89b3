package http

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/mrlokans/librarian/internal/auth"
	"github.com/mrlokans/librarian/internal/services"
)

// --- Response Types ---

// ErrorResponse is the standard error response format for all API errors.
type ErrorResponse struct {
	Error   string                `json:"error"`
	Code    string                `json:"code,omitempty"`    // machine-readable error code
	Details []services.FieldError `json:"details,omitempty"` // field-level validation failures
}

// SuccessResponse is a standard success response with optional data.
type SuccessResponse struct {
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Machine-readable error codes.
const (
	CodeNotFound         = "not_found"
	CodePermissionDenied = "permission_denied"
	CodeUnauthenticated  = "unauthenticated"
	CodeValidation       = "validation_failed"
	CodeTooManyRequests  = "too_many_requests"
)

// --- Error Response Helpers ---

// respondBadRequest sends a 400 Bad Request response.
func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: message})
}

// respondNotFound sends a 404 Not Found response.
func respondNotFound(c *gin.Context, resource string) {
	c.JSON(http.StatusNotFound, ErrorResponse{Error: resource + " not found", Code: CodeNotFound})
}

// respondInternalError logs the error and sends a 500 Internal Server Error response.
// The actual error is logged but not exposed to the client.
func respondInternalError(c *gin.Context, err error, context string) {
	log.Printf("Internal error (%s): %v", context, err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
}

// respondValidationError sends a 400 with every failed field.
func respondValidationError(c *gin.Context, verr *services.ValidationError) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error:   "validation failed",
		Code:    CodeValidation,
		Details: verr.Fields,
	})
}

// respondServiceError maps a service error onto a JSON response.
func respondServiceError(c *gin.Context, err error, resource string) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		respondValidationError(c, verr)
	case errors.Is(err, services.ErrNotFound):
		respondNotFound(c, resource)
	case errors.Is(err, services.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "you do not have permission to perform this action", Code: CodePermissionDenied})
	case errors.Is(err, services.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "authentication required", Code: CodeUnauthenticated})
	case errors.Is(err, services.ErrTooManyReviews):
		c.JSON(http.StatusTooManyRequests, ErrorResponse{Error: services.WarningPostingTooMuch, Code: CodeTooManyRequests})
	default:
		respondInternalError(c, err, resource)
	}
}

// --- Success Response Helpers ---

// respondSuccess sends a 200 OK response with a message.
func respondSuccess(c *gin.Context, message string) {
	c.JSON(http.StatusOK, SuccessResponse{Message: message})
}

// respondCreated sends a 201 Created response with data.
func respondCreated(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, data)
}

// respondAccepted sends a 202 Accepted response (for async operations).
func respondAccepted(c *gin.Context, message string, data any) {
	c.JSON(http.StatusAccepted, SuccessResponse{Message: message, Data: data})
}

// --- Parameter Parsing ---

// parseIDParam extracts and validates an unsigned integer ID from URL parameters.
// Returns the parsed ID or responds with a 400 error and returns 0, false.
func parseIDParam(c *gin.Context, paramName string) (uint, bool) {
	id, err := parseID(c.Param(paramName))
	if err != nil {
		respondBadRequest(c, "invalid "+paramName)
		return 0, false
	}
	return id, true
}

// parseOptionalQueryID reads an optional ID filter such as genre_id. Missing
// or malformed values mean "no filter".
func parseOptionalQueryID(c *gin.Context, paramName string) uint {
	id, err := parseID(c.Query(paramName))
	if err != nil {
		return 0
	}
	return id
}

func parseID(raw string) (uint, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}

// --- Binding ---

// bindingError converts a gin binding failure into field errors keyed by the
// form field name.
func bindingError(err error) *services.ValidationError {
	verr := &services.ValidationError{}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		for _, fe := range fieldErrs {
			verr.Add(fieldName(fe), fieldMessage(fe))
		}
		return verr
	}

	var numErr *strconv.NumError
	if errors.As(err, &numErr) {
		verr.Add("__all__", "Enter a whole number.")
		return verr
	}

	verr.Add("__all__", "Invalid request body.")
	return verr
}

// fieldName turns the Go field name into the snake_case form name.
func fieldName(fe validator.FieldError) string {
	var b strings.Builder
	for i, r := range fe.Field() {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Enter a valid email address."
	case "datetime":
		return "Enter a valid date."
	case "max":
		return fmt.Sprintf("Ensure this value has at most %s characters.", fe.Param())
	case "oneof":
		return "Select a valid choice."
	default:
		return "Enter a valid value."
	}
}

// --- HTML Error Pages ---

// handleServiceError renders the HTML counterpart of respondServiceError.
// Validation errors are handled by the callers, which re-render their form.
func (r *Renderer) handleServiceError(c *gin.Context, err error, resource string) {
	switch {
	case auth.IsAPIRequest(c):
		respondServiceError(c, err, resource)
	case errors.Is(err, services.ErrNotFound):
		r.errorPage(c, http.StatusNotFound, "Not found", "The requested "+strings.ToLower(resource)+" does not exist.")
	case errors.Is(err, services.ErrPermissionDenied):
		r.errorPage(c, http.StatusForbidden, "Forbidden", "You do not have permission to access this page.")
	case errors.Is(err, services.ErrUnauthenticated):
		c.Redirect(http.StatusFound, auth.LoginURL(c.Request.URL.RequestURI()))
	default:
		log.Printf("Internal error (%s): %v", resource, err)
		r.errorPage(c, http.StatusInternalServerError, "Server error", "Something went wrong. Please try again later.")
	}
}

func (r *Renderer) errorPage(c *gin.Context, status int, title, message string) {
	r.HTML(c, status, "error.html", gin.H{
		"Title":   title,
		"Message": message,
		"Status":  status,
	})
}
