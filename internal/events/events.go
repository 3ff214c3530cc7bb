// SPDX-License-Identifier: MIT

// Package events defines the typed game-world events flowing through the
// pipeline and the router that classifies raw stream frames into them.
package events

import "encoding/json"

// Platform identifies one of the game-client ecosystems the push service
// partitions events by. Each platform has its own socket connection.
type Platform string

const (
	PlatformPC    Platform = "pc"
	PlatformPS4US Platform = "ps4us"
	PlatformPS4EU Platform = "ps4eu"
)

// Envelope is one inbound stream frame that carried a payload. It is created
// by the stream connector and consumed exactly once by the router.
type Envelope struct {
	Platform Platform
	Payload  json.RawMessage
}

// ActivityKind distinguishes login from logout events.
type ActivityKind string

const (
	ActivityLogin  ActivityKind = "login"
	ActivityLogout ActivityKind = "logout"
)

// WorldEventState is the lifecycle state carried by a metagame event frame.
type WorldEventState string

const (
	WorldEventStarted WorldEventState = "started"
	WorldEventEnded   WorldEventState = "ended"
	WorldEventOther   WorldEventState = "other"
)

// Event is the closed set of classified pipeline events.
type Event interface {
	EventPlatform() Platform
	Kind() string
}

// CharacterActivity is a player login or logout.
type CharacterActivity struct {
	Platform    Platform
	CharacterID string
	Activity    ActivityKind
	WorldID     string
}

func (e CharacterActivity) EventPlatform() Platform { return e.Platform }
func (e CharacterActivity) Kind() string            { return "character_activity" }

// WorldEvent is a timed world-wide event (alert) changing state.
type WorldEvent struct {
	Platform Platform
	EventID  string
	WorldID  string
	State    WorldEventState
}

func (e WorldEvent) EventPlatform() Platform { return e.Platform }
func (e WorldEvent) Kind() string            { return "world_event" }

// FacilityCapture is a territory-capture event attributed to an outfit.
type FacilityCapture struct {
	Platform    Platform
	FacilityID  string
	OutfitID    string
	WorldID     string
	ContinentID string
}

func (e FacilityCapture) EventPlatform() Platform { return e.Platform }
func (e FacilityCapture) Kind() string            { return "facility_capture" }
