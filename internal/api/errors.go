package api

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnauthenticated means no credential is present; no network call was made.
var ErrUnauthenticated = errors.New("not authenticated (no token)")

// RequestError is a completed HTTP call with a non-success status.
type RequestError struct {
	Status int
	Body   string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("request failed: status=%d body=%s", e.Status, truncateBody(e.Body))
}

// ValidationError is a client-side required-field failure raised before any
// network call.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s is required", e.Field)
}

func truncateBody(body string) string {
	const limit = 512
	s := strings.TrimSpace(body)
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "…"
}
