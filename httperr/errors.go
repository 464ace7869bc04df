// Package httperr defines the error conditions raised while dispatching a
// request and the single JSON body every failure is rendered with.
package httperr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Fatal configuration errors. They are never retried.
var (
	// ErrMiddlewareNotFound is wrapped by [MiddlewareResolutionError].
	ErrMiddlewareNotFound = errors.New("middleware not found")
	// ErrHandlerReturnedNothing is returned when the middleware stack is
	// exhausted without producing a response.
	ErrHandlerReturnedNothing = errors.New("reached end of middleware stack; does your handler return a response?")
)

// Slugs used in the "error" field of the JSON body.
const (
	SlugBadRequest       = "bad_request"
	SlugNotFound         = "not_found"
	SlugMethodNotAllowed = "method_not_allowed"
	SlugValidation       = "validation_failed"
	SlugInternal         = "internal_server_error"
)

// Error is an HTTP-facing failure: a status, a slug and optional field errors.
type Error struct {
	Status      int
	Slug        string
	Message     string
	Description string
	// Fields maps an input key to its validation messages.
	Fields map[string][]string
	// Allowed lists the methods accepted for the path (method not allowed only).
	Allowed []string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// HTTPStatus returns the status the error is rendered with.
func (e *Error) HTTPStatus() int { return e.Status }

// New returns an Error for status with the standard slug and message.
func New(status int, message string) *Error {
	if message == "" {
		message = http.StatusText(status)
	}
	return &Error{Status: status, Slug: slugFor(status), Message: message}
}

// NotFound is raised when no route matches the request.
func NotFound() *Error {
	return &Error{Status: http.StatusNotFound, Slug: SlugNotFound, Message: "Not Found"}
}

// MethodNotAllowed is raised when the path exists for other methods only.
func MethodNotAllowed(allowed []string) *Error {
	return &Error{
		Status:      http.StatusMethodNotAllowed,
		Slug:        SlugMethodNotAllowed,
		Message:     "Method Not Allowed",
		Description: "Allowed methods: " + strings.Join(allowed, ", "),
		Allowed:     allowed,
	}
}

// BadRequest wraps a malformed request.
func BadRequest(message string, err error) *Error {
	e := New(http.StatusBadRequest, message)
	e.Err = err
	return e
}

// ValidationFailed carries the field errors produced by the validation middleware.
func ValidationFailed(fields map[string][]string) *Error {
	return &Error{
		Status:      http.StatusBadRequest,
		Slug:        SlugValidation,
		Message:     "The given data was invalid.",
		Description: "One or more request parameters failed validation.",
		Fields:      fields,
	}
}

// MiddlewareResolutionError is returned when an alias cannot be resolved.
type MiddlewareResolutionError struct {
	Alias string
}

func (e *MiddlewareResolutionError) Error() string {
	return fmt.Sprintf("%v: %q", ErrMiddlewareNotFound, e.Alias)
}

func (e *MiddlewareResolutionError) Unwrap() error { return ErrMiddlewareNotFound }

func slugFor(status int) string {
	switch status {
	case http.StatusBadRequest:
		return SlugBadRequest
	case http.StatusNotFound:
		return SlugNotFound
	case http.StatusMethodNotAllowed:
		return SlugMethodNotAllowed
	case http.StatusInternalServerError:
		return SlugInternal
	default:
		return strings.ReplaceAll(strings.ToLower(http.StatusText(status)), " ", "_")
	}
}
