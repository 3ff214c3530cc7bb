// SPDX-License-Identifier: MIT

package census

import (
	"errors"
	"fmt"
)

var (
	// Sentinel errors for errors.Is checks at the boundary.
	ErrNotFound            = errors.New("census: resource not found")
	ErrUpstreamUnavailable = errors.New("census: host unreachable or transport failure")
	ErrUpstreamError       = errors.New("census: upstream error (5xx)")
	ErrBadResponse         = errors.New("census: invalid response format or malformed data")
)

// APIError wraps the sentinel errors with request context.
type APIError struct {
	Sentinel  error
	Operation string
	Status    int
	Err       error
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("census: %s: %v", e.Operation, e.Sentinel)
	if e.Status > 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.Status)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *APIError) Unwrap() error { return e.Sentinel }

func apiErr(op string, sentinel error, status int, err error) error {
	return &APIError{Sentinel: sentinel, Operation: op, Status: status, Err: err}
}
