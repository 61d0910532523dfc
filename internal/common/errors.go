package common

import (
	"errors"
	"net/http"
	"strconv"
	"time"
)

// AppError represents an error with an attached code and HTTP status.
type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
	Details    any
	// RetryAfter, when positive, is sent as a Retry-After header.
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// Unwrap allows errors.Is/As to inspect the underlying error.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewAppError constructs an AppError.
func NewAppError(code, message string, status int, err error) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status, Err: err}
}

// WithDetails attaches response details and returns the same error.
func (e *AppError) WithDetails(details any) *AppError {
	e.Details = details
	return e
}

// WriteAppError renders err when it is an AppError and reports whether it did.
func WriteAppError(w http.ResponseWriter, err error) bool {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return false
	}
	status := appErr.HTTPStatus
	if status == 0 {
		status = http.StatusInternalServerError
	}
	if appErr.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(int(appErr.RetryAfter.Round(time.Second)/time.Second)))
	}
	JSONError(w, status, appErr.Code, appErr.Message, appErr.Details)
	return true
}
