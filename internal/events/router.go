// SPDX-License-Identifier: MIT

package events

import (
	"encoding/json"
	"strings"

	"github.com/ManuGH/auraxd/internal/log"
	"github.com/ManuGH/auraxd/internal/metrics"
	"github.com/rs/zerolog"
)

// Enqueuer accepts classified events for asynchronous processing. It must not
// block; the router runs on the connector's read path.
type Enqueuer interface {
	Enqueue(ev Event)
}

// Router classifies inbound envelopes into typed events and enqueues them.
type Router struct {
	queue  Enqueuer
	logger zerolog.Logger
}

// NewRouter creates a router feeding the given queue.
func NewRouter(queue Enqueuer) *Router {
	return &Router{
		queue:  queue,
		logger: log.WithComponent("router"),
	}
}

// framePayload covers the union of fields the known event kinds carry.
type framePayload struct {
	EventName     string `json:"event_name"`
	CharacterID   string `json:"character_id"`
	WorldID       string `json:"world_id"`
	MetagameID    string `json:"metagame_event_id"`
	MetagameState string `json:"metagame_event_state_name"`
	FacilityID    string `json:"facility_id"`
	OutfitID      string `json:"outfit_id"`
	ZoneID        string `json:"zone_id"`
}

// Route classifies env and enqueues the resulting job, if any. Classification
// priority: character id, then world-event state, then facility fields.
// Anything else is discarded silently; a bad frame never propagates an error.
func (r *Router) Route(env Envelope) {
	var p framePayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		r.logger.Debug().
			Err(err).
			Str(log.FieldPlatform, string(env.Platform)).
			Str(log.FieldEvent, "router.malformed_payload").
			Msg("discarding malformed payload")
		metrics.IncFrame(string(env.Platform), metrics.FrameMalformed)
		return
	}

	switch {
	case p.CharacterID != "":
		kind := ActivityLogin
		if strings.EqualFold(p.EventName, "PlayerLogout") {
			kind = ActivityLogout
		}
		r.queue.Enqueue(CharacterActivity{
			Platform:    env.Platform,
			CharacterID: p.CharacterID,
			Activity:    kind,
			WorldID:     p.WorldID,
		})

	case p.MetagameState != "":
		state := worldEventState(p.MetagameState)
		if state != WorldEventStarted {
			// Ended and intermediate states carry no notification.
			metrics.IncFrame(string(env.Platform), metrics.FrameDiscarded)
			return
		}
		r.queue.Enqueue(WorldEvent{
			Platform: env.Platform,
			EventID:  p.MetagameID,
			WorldID:  p.WorldID,
			State:    state,
		})

	case p.FacilityID != "" && p.OutfitID != "":
		r.queue.Enqueue(FacilityCapture{
			Platform:    env.Platform,
			FacilityID:  p.FacilityID,
			OutfitID:    p.OutfitID,
			WorldID:     p.WorldID,
			ContinentID: p.ZoneID,
		})

	default:
		metrics.IncFrame(string(env.Platform), metrics.FrameDiscarded)
	}
}

func worldEventState(s string) WorldEventState {
	switch strings.ToLower(s) {
	case "started":
		return WorldEventStarted
	case "ended":
		return WorldEventEnded
	default:
		return WorldEventOther
	}
}
