// SPDX-License-Identifier: MIT

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldJobID         = "job_id"
	FieldCharacterID   = "character_id"
	FieldOutfitID      = "outfit_id"
	FieldDestinationID = "destination_id"
	FieldSubjectKey    = "subject_key"

	// Process / pipeline fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldKind      = "kind"
	FieldOutcome   = "outcome"

	// Stream fields
	FieldPlatform   = "platform"
	FieldWorldID    = "world_id"
	FieldContinent  = "continent_id"
	FieldBackoffMS  = "backoff_ms"
	FieldAttempt    = "attempt"
	FieldQueueDepth = "queue_depth"
)
