// SPDX-License-Identifier: MIT

// Package registry is the persisted mapping from notification subjects to
// destination ids. It is the only long-lived state in the pipeline; the
// uniqueness contract on (subject_key, destination_id) lives in the storage
// layer so duplicate subscribes are rejected, never silently duplicated.
package registry

import (
	"context"
	"errors"
)

var (
	// ErrAlreadySubscribed is returned when the (subjectKey, destinationID)
	// pair already exists.
	ErrAlreadySubscribed = errors.New("registry: already subscribed")
	// ErrNotSubscribed is returned when an unsubscribe matches no row.
	ErrNotSubscribed = errors.New("registry: not subscribed")
)

// Subscription is one registry row.
type Subscription struct {
	SubjectKey    string `json:"subject_key"`
	DestinationID string `json:"destination_id"`
	Platform      string `json:"platform"`
}

// Registry exposes the subscriber registry contract. Reads come from the
// queue worker, writes from the command surface and the dispatcher's prune.
type Registry interface {
	Subscribe(ctx context.Context, sub Subscription) error
	Unsubscribe(ctx context.Context, subjectKey, destinationID string) error
	Lookup(ctx context.Context, subjectKey string) ([]string, error)
	ListBySubject(ctx context.Context, subjectKey string) ([]Subscription, error)
	PruneDestination(ctx context.Context, destinationID string) (int64, error)
	Close() error
}
