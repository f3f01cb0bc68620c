package graphql

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMissingField reports a required field that was absent or null.
	ErrMissingField = errors.New("required field missing")
	// ErrNullObject reports a null where an object was selected.
	ErrNullObject = errors.New("object is null")
)

// MissingFieldError names the required field that failed a decode.
type MissingFieldError struct {
	Type  string
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("graphql: %s.%s: %v", e.Type, e.Field, ErrMissingField)
}

func (e *MissingFieldError) Unwrap() error { return ErrMissingField }

// FieldTypeError is returned when a field holds JSON of the wrong shape.
type FieldTypeError struct {
	Type  string
	Field string
	Want  string
	Err   error
}

func (e *FieldTypeError) Error() string {
	return fmt.Sprintf("graphql: %s.%s: expected %s: %v", e.Type, e.Field, e.Want, e.Err)
}

func (e *FieldTypeError) Unwrap() error { return e.Err }

// Error is one entry of a response's "errors" array.
type Error struct {
	Message    string         `json:"message"`
	Path       []any          `json:"path,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

// Errors is the "errors" array of a response.
type Errors []Error

func (e Errors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, it := range e {
		msgs = append(msgs, it.Message)
	}
	return "graphql: " + strings.Join(msgs, "; ")
}

// HTTPError is a non-2xx transport response.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("graphql: HTTP %d: %s", e.StatusCode, e.Body)
}

// Unauthorized reports whether the server rejected the credentials.
func (e *HTTPError) Unauthorized() bool {
	return e.StatusCode == 401 || e.StatusCode == 403
}
