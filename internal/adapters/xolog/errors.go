package xolog

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnauthorized is wrapped by every 401 response.
	ErrUnauthorized = errors.New("xolog: unauthorized")
	// ErrMalformedResponse means the body did not have the expected shape.
	ErrMalformedResponse = errors.New("xolog: malformed response")
	// ErrRejected means the backend answered 2xx with success=false.
	ErrRejected = errors.New("xolog: request rejected")
)

// StatusError is a non-2xx answer from the backend.
type StatusError struct {
	Status    int
	Message   string
	RequestID string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("xolog: %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("xolog: %d %s", e.Status, e.Message)
}

func (e *StatusError) Unwrap() error {
	if e.Status == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	return nil
}
