package models

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Error codes shared by services and handlers.
const (
	CodeNotFound           = "NOT_FOUND"
	CodeValidation         = "VALIDATION_ERROR"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeConflict           = "CONFLICT"
	CodeStorageUnavailable = "STORAGE_UNAVAILABLE"
	CodeInternal           = "INTERNAL_ERROR"
)

// ErrorResponse represents a standardized API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// AppError represents a custom application error
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

func newAppError(code, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

func NewNotFoundError(resource string, id interface{}) *AppError {
	return newAppError(CodeNotFound, fmt.Sprintf("%s with ID %v not found", resource, id), nil)
}

func NewValidationError(message string) *AppError {
	return newAppError(CodeValidation, message, nil)
}

func NewUnauthorizedError(message string) *AppError {
	return newAppError(CodeUnauthorized, message, nil)
}

func NewConflictError(message string) *AppError {
	return newAppError(CodeConflict, message, nil)
}

// NewStorageError wraps a persistence failure. Callers log it and keep
// operating in memory.
func NewStorageError(op string, err error) *AppError {
	return newAppError(CodeStorageUnavailable, "storage unavailable during "+op, err)
}

func NewInternalError(err error) *AppError {
	return newAppError(CodeInternal, "Internal server error", err)
}

// ErrorCode returns the AppError code carried by err, or "".
func ErrorCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// StatusFor maps an error to the HTTP status the handlers respond with.
func StatusFor(err error) int {
	switch ErrorCode(err) {
	case CodeNotFound:
		return fiber.StatusNotFound
	case CodeValidation:
		return fiber.StatusBadRequest
	case CodeUnauthorized:
		return fiber.StatusUnauthorized
	case CodeConflict:
		return fiber.StatusConflict
	case CodeStorageUnavailable:
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

// RespondWithError writes err as an ErrorResponse. Wrapped causes are
// reported as details except for internal errors, and plain errors become
// a generic internal error.
func RespondWithError(c *fiber.Ctx, status int, err error) error {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		if status >= fiber.StatusInternalServerError {
			return c.Status(status).JSON(ErrorResponse{Error: "Internal server error", Code: CodeInternal})
		}
		return c.Status(status).JSON(ErrorResponse{Error: err.Error()})
	}

	response := ErrorResponse{Error: appErr.Message, Code: appErr.Code}
	if appErr.Err != nil && appErr.Code != CodeInternal {
		response.Details = appErr.Err.Error()
	}
	return c.Status(status).JSON(response)
}
