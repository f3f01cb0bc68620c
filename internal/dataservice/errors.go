package dataservice

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"

	"omnitui/internal/graphql"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNoViewer is returned when no account is logged in.
	ErrNoViewer = errors.New("no logged-in viewer")
)

// APIError carries the errorCodes of a union error result.
type APIError struct {
	Op    string
	Codes []string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, strings.Join(e.Codes, ", "))
}

func (e *APIError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return slices.Contains(e.Codes, "NOT_FOUND")
	case ErrUnauthorized:
		return slices.Contains(e.Codes, "UNAUTHORIZED")
	}
	return false
}

func (r result[T]) value(op string) (T, error) {
	var zero T
	switch {
	case r.ok != nil:
		return *r.ok, nil
	case r.codes != nil:
		return zero, &APIError{Op: op, Codes: *r.codes}
	default:
		return zero, fmt.Errorf("%s: unexpected result type", op)
	}
}

// unreachable reports whether err means the server could not be reached,
// as opposed to the server answering with an error.
func unreachable(ctx context.Context, err error) bool {
	if err == nil || ctx.Err() != nil {
		return false
	}
	var he *graphql.HTTPError
	if errors.As(err, &he) {
		return he.StatusCode >= 500
	}
	var ue *url.Error
	return errors.As(err, &ue)
}
