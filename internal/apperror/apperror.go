// Package apperror defines the error types services return to handlers.
package apperror

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// Error is implemented by every error in this package.
type Error interface {
	error
	HTTPStatus() int
	Code() string
}

type BaseError struct {
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	ErrorCode  string `json:"code"`
}

func (e *BaseError) Error() string   { return e.Message }
func (e *BaseError) HTTPStatus() int { return e.StatusCode }
func (e *BaseError) Code() string    { return e.ErrorCode }

type NotFoundError struct {
	BaseError
	Resource string
}

func NotFound(resource string) *NotFoundError {
	return &NotFoundError{
		BaseError: BaseError{
			Message:    fmt.Sprintf("%s not found", resource),
			StatusCode: http.StatusNotFound,
			ErrorCode:  "NOT_FOUND",
		},
		Resource: resource,
	}
}

// ValidationError carries one message per offending field.
type ValidationError struct {
	BaseError
	Fields map[string]string
}

func Validation(fields map[string]string) *ValidationError {
	return &ValidationError{
		BaseError: BaseError{
			Message:    "validation failed",
			StatusCode: http.StatusUnprocessableEntity,
			ErrorCode:  "VALIDATION_ERROR",
		},
		Fields: fields,
	}
}

// Invalid is a single-field validation error.
func Invalid(field, message string) *ValidationError {
	return Validation(map[string]string{field: message})
}

type ConflictError struct {
	BaseError
}

func Conflict(message string) *ConflictError {
	return &ConflictError{BaseError{
		Message:    message,
		StatusCode: http.StatusConflict,
		ErrorCode:  "CONFLICT",
	}}
}

type ForbiddenError struct {
	BaseError
}

func Forbidden(message string) *ForbiddenError {
	if message == "" {
		message = "permission denied"
	}
	return &ForbiddenError{BaseError{
		Message:    message,
		StatusCode: http.StatusForbidden,
		ErrorCode:  "FORBIDDEN",
	}}
}

type UnauthorizedError struct {
	BaseError
}

func Unauthorized(message string) *UnauthorizedError {
	if message == "" {
		message = "authentication required"
	}
	return &UnauthorizedError{BaseError{
		Message:    message,
		StatusCode: http.StatusUnauthorized,
		ErrorCode:  "UNAUTHORIZED",
	}}
}

type TooManyRequestsError struct {
	BaseError
}

func TooManyRequests(message string) *TooManyRequestsError {
	return &TooManyRequestsError{BaseError{
		Message:    message,
		StatusCode: http.StatusTooManyRequests,
		ErrorCode:  "TOO_MANY_REQUESTS",
	}}
}

// ExternalError wraps a failure of an outside service (SMS gateway, PDF
// renderer). The user sees Message; Cause is only logged.
type ExternalError struct {
	BaseError
	Cause error
}

func External(message string, cause error) *ExternalError {
	return &ExternalError{
		BaseError: BaseError{
			Message:    message,
			StatusCode: http.StatusBadGateway,
			ErrorCode:  "EXTERNAL_ERROR",
		},
		Cause: cause,
	}
}

func (e *ExternalError) Unwrap() error { return e.Cause }

type InternalError struct {
	BaseError
	Cause error
}

func Internal(cause error) *InternalError {
	return &InternalError{
		BaseError: BaseError{
			Message:    "internal server error",
			StatusCode: http.StatusInternalServerError,
			ErrorCode:  "INTERNAL_ERROR",
		},
		Cause: cause,
	}
}

func (e *InternalError) Unwrap() error { return e.Cause }

// FromDB maps a gorm lookup error onto NotFound for resource; any other
// error becomes Internal.
func FromDB(err error, resource string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return NotFound(resource)
	}
	var ae Error
	if errors.As(err, &ae) {
		return err
	}
	return Internal(err)
}

// ToHTTP converts any error into a status code and JSON body.
func ToHTTP(err error) (int, fiber.Map) {
	var ae Error
	if errors.As(err, &ae) {
		body := fiber.Map{"error": ae.Code(), "message": ae.Error()}
		var ve *ValidationError
		if errors.As(err, &ve) && len(ve.Fields) > 0 {
			body["fields"] = ve.Fields
		}
		return ae.HTTPStatus(), body
	}

	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code, fiber.Map{"error": http.StatusText(fe.Code), "message": fe.Message}
	}

	return http.StatusInternalServerError, fiber.Map{
		"error":   "INTERNAL_ERROR",
		"message": "internal server error",
	}
}
