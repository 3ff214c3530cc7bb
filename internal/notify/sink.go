// SPDX-License-Identifier: MIT

// Package notify formats enriched events and fans them out to destinations,
// isolating and classifying per-destination delivery failures.
package notify

import (
	"context"
	"errors"
)

// Notification is the formatted artifact handed to the sink.
type Notification struct {
	Title      string `json:"title"`
	Body       string `json:"body"`
	Color      string `json:"color,omitempty"`
	SubjectKey string `json:"-"`
}

var (
	// ErrPermissionDenied means the sink refused because the daemon lacks
	// send rights at that destination. Possibly transient; the subscription
	// stays.
	ErrPermissionDenied = errors.New("notify: permission denied")
	// ErrDestinationGone means the destination no longer exists. The
	// dispatcher prunes its subscriptions.
	ErrDestinationGone = errors.New("notify: destination gone")
)

// Sink delivers a notification to one destination. Implementations classify
// failures via the sentinel errors above; any other error is transient.
type Sink interface {
	Send(ctx context.Context, destinationID string, n Notification) error
}
