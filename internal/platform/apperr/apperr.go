// Package apperr defines the error kinds shared by the careflow domain
// packages and their mapping onto HTTP responses.
//
// Every error produced by a service carries exactly one kind. Callers test
// for a kind with errors.Is:
//
//	if errors.Is(err, apperr.ErrNotFound) { ... }
package apperr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Kinds.
var (
	ErrValidation     = errors.New("validation error")
	ErrNotFound       = errors.New("not found")
	ErrDuplicateName  = errors.New("duplicate name")
	ErrInUse          = errors.New("in use")
	ErrExternalLookup = errors.New("external lookup failure")
	ErrAggregation    = errors.New("aggregation failure")
)

// Error is a kinded error with an optional cause.
type Error struct {
	Kind    error
	Message string
	// Count is the number of blocking references for ErrInUse.
	Count int
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Kind, e.Cause}
	}
	return []error{e.Kind}
}

func Validation(format string, args ...interface{}) error {
	return &Error{Kind: ErrValidation, Message: fmt.Sprintf(format, args...)}
}

func NotFound(entity string, id interface{}) error {
	return &Error{Kind: ErrNotFound, Message: fmt.Sprintf("%s %v not found", entity, id)}
}

func DuplicateName(entity, name string) error {
	return &Error{Kind: ErrDuplicateName, Message: fmt.Sprintf("an active %s named %q already exists", entity, name)}
}

func InUse(entity, name string, count int) error {
	return &Error{
		Kind:    ErrInUse,
		Message: fmt.Sprintf("%s %q is referenced by %d flow node(s)", entity, name, count),
		Count:   count,
	}
}

func ExternalLookup(cause error, format string, args ...interface{}) error {
	return &Error{Kind: ErrExternalLookup, Message: fmt.Sprintf(format, args...), Cause: cause}
}

func Aggregation(cause error, format string, args ...interface{}) error {
	return &Error{Kind: ErrAggregation, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// InUseCount returns the blocking reference count carried by an ErrInUse
// error, or 0.
func InUseCount(err error) int {
	var ae *Error
	if errors.As(err, &ae) && ae.Kind == ErrInUse {
		return ae.Count
	}
	return 0
}

// HTTPStatus maps an error kind to an HTTP status code.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicateName), errors.Is(err, ErrInUse):
		return http.StatusConflict
	case errors.Is(err, ErrExternalLookup):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// HTTPError converts err into an echo HTTP error with the mapped status.
func HTTPError(err error) *echo.HTTPError {
	status := HTTPStatus(err)
	if errors.Is(err, ErrInUse) {
		return echo.NewHTTPError(status, map[string]interface{}{
			"message":    err.Error(),
			"references": InUseCount(err),
		})
	}
	return echo.NewHTTPError(status, err.Error())
}
