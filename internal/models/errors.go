package models

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Error codes used across the API.
const (
	CodeNotFound     = "NOT_FOUND"
	CodeValidation   = "VALIDATION_ERROR"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
	CodeConflict     = "CONFLICT"
	CodeInternal     = "INTERNAL_ERROR"
)

// ErrorResponse represents a standardized API error response.
// Fallback, when set, names a safe destination for the client to navigate to
// after a denied mutation (the post detail page in practice).
type ErrorResponse struct {
	Error    string `json:"error"`
	Code     string `json:"code,omitempty"`
	Details  string `json:"details,omitempty"`
	Fallback string `json:"fallback,omitempty"`
}

// AppError is the error type services hand back to handlers. Code picks
// the HTTP status; Err, when set, is surfaced in the Details field.
type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewNotFoundError(resource string, id interface{}) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s %v not found", resource, id),
	}
}

// NewNotFoundMessageError builds a NOT_FOUND error with a free-form message,
// for lookups keyed by slug or username rather than numeric ID.
func NewNotFoundMessageError(message string) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: message,
	}
}

func NewValidationError(message string) *AppError {
	return &AppError{
		Code:    CodeValidation,
		Message: message,
	}
}

func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Code:    CodeUnauthorized,
		Message: message,
	}
}

func NewForbiddenError(message string) *AppError {
	return &AppError{
		Code:    CodeForbidden,
		Message: message,
	}
}

func NewConflictError(message string) *AppError {
	return &AppError{
		Code:    CodeConflict,
		Message: message,
	}
}

func NewInternalError(err error) *AppError {
	return &AppError{
		Code:    CodeInternal,
		Message: "Unexpected server error",
		Err:     err,
	}
}

// RespondWithError creates a standardized error response
func RespondWithError(c *fiber.Ctx, status int, err error) error {
	return c.Status(status).JSON(buildErrorResponse(err))
}

// RespondWithFallback writes an error response that carries a fallback
// destination, used when a mutation is denied and the client should land
// somewhere sensible instead.
func RespondWithFallback(c *fiber.Ctx, status int, err error, fallback string) error {
	response := buildErrorResponse(err)
	response.Fallback = fallback
	return c.Status(status).JSON(response)
}

func buildErrorResponse(err error) ErrorResponse {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return ErrorResponse{Error: err.Error()}
	}
	response := ErrorResponse{
		Error: appErr.Message,
		Code:  appErr.Code,
	}
	if appErr.Err != nil {
		response.Details = appErr.Err.Error()
	}
	return response
}
