package errors

import (
	"errors"
	"fmt"
)

// Domain errors - Sentinel errors for use with errors.Is()
var (
	ErrNotFound           = errors.New("resource not found")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrBadRequest         = errors.New("bad request")
	ErrConflict           = errors.New("resource already exists")
	ErrInternalServer     = errors.New("internal server error")
	ErrValidation         = errors.New("validation error")
	ErrInvalidInput       = errors.New("invalid input")
	ErrExpired            = errors.New("resource expired")
	ErrUpstream           = errors.New("upstream dependency error")
	ErrConfiguration      = errors.New("configuration error")
	ErrUnsupportedFile    = errors.New("unsupported file type")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrWatchTeardown      = errors.New("watch teardown failed")
)

// Custom error type with context
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

// Constructors
func NotFound(msg string) *AppError {
	return &AppError{Code: "NOT_FOUND", Message: msg, Err: ErrNotFound}
}

func Unauthorized(msg string) *AppError {
	return &AppError{Code: "UNAUTHORIZED", Message: msg, Err: ErrUnauthorized}
}

func Forbidden(msg string) *AppError {
	return &AppError{Code: "FORBIDDEN", Message: msg, Err: ErrForbidden}
}

func BadRequest(msg string) *AppError {
	return &AppError{Code: "BAD_REQUEST", Message: msg, Err: ErrBadRequest}
}

func Conflict(msg string) *AppError {
	return &AppError{Code: "CONFLICT", Message: msg, Err: ErrConflict}
}

func Validation(msg string) *AppError {
	return &AppError{Code: "VALIDATION", Message: msg, Err: ErrValidation}
}

func InternalServer(msg string, err error) *AppError {
	return &AppError{Code: "INTERNAL_SERVER_ERROR", Message: msg, Err: err}
}

// Upstream wraps failures of external dependencies (storage, document server,
// calendar provider). These surface as 5xx and are retryable by the caller.
func Upstream(msg string, err error) *AppError {
	return &AppError{Code: "UPSTREAM", Message: msg, Err: errors.Join(ErrUpstream, err)}
}

// Configuration marks a missing or invalid server secret. Handlers fail fast
// on these before making any network call.
func Configuration(msg string) *AppError {
	return &AppError{Code: "CONFIGURATION", Message: msg, Err: ErrConfiguration}
}

func UnsupportedFile(msg string) *AppError {
	return &AppError{Code: "UNSUPPORTED_FILE_TYPE", Message: msg, Err: errors.Join(ErrValidation, ErrUnsupportedFile)}
}

// WatchTeardown is a warning-class error: the watch channel could not be
// stopped, but the operation that triggered teardown should proceed.
func WatchTeardown(err error) *AppError {
	return &AppError{Code: "WATCH_TEARDOWN", Message: "failed to stop watch channel", Err: errors.Join(ErrWatchTeardown, err)}
}
