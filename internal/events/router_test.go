// SPDX-License-Identifier: MIT

package events

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureQueue struct {
	events []Event
}

func (c *captureQueue) Enqueue(ev Event) {
	c.events = append(c.events, ev)
}

func route(t *testing.T, q *captureQueue, payload string) {
	t.Helper()
	r := NewRouter(q)
	r.Route(Envelope{Platform: PlatformPC, Payload: json.RawMessage(payload)})
}

func TestRouteCharacterLogin(t *testing.T) {
	q := &captureQueue{}
	route(t, q, `{"event_name":"PlayerLogin","character_id":"5428010618035323201","world_id":"1"}`)

	require.Len(t, q.events, 1)
	ev, ok := q.events[0].(CharacterActivity)
	require.True(t, ok, "expected CharacterActivity, got %T", q.events[0])
	assert.Equal(t, "5428010618035323201", ev.CharacterID)
	assert.Equal(t, ActivityLogin, ev.Activity)
	assert.Equal(t, PlatformPC, ev.Platform)
	assert.Equal(t, "1", ev.WorldID)
}

func TestRouteCharacterLogout(t *testing.T) {
	q := &captureQueue{}
	route(t, q, `{"event_name":"PlayerLogout","character_id":"c1","world_id":"10"}`)

	require.Len(t, q.events, 1)
	ev := q.events[0].(CharacterActivity)
	assert.Equal(t, ActivityLogout, ev.Activity)
}

func TestRouteWorldEventStarted(t *testing.T) {
	q := &captureQueue{}
	route(t, q, `{"event_name":"MetagameEvent","metagame_event_id":"159","metagame_event_state_name":"started","world_id":"13"}`)

	require.Len(t, q.events, 1)
	ev := q.events[0].(WorldEvent)
	assert.Equal(t, "159", ev.EventID)
	assert.Equal(t, WorldEventStarted, ev.State)
}

func TestRouteWorldEventEndedIsDiscarded(t *testing.T) {
	q := &captureQueue{}
	route(t, q, `{"event_name":"MetagameEvent","metagame_event_id":"159","metagame_event_state_name":"ended","world_id":"13"}`)
	route(t, q, `{"event_name":"MetagameEvent","metagame_event_id":"159","metagame_event_state_name":"canceled","world_id":"13"}`)

	assert.Empty(t, q.events, "non-started world events must not enqueue")
}

func TestRouteFacilityCapture(t *testing.T) {
	q := &captureQueue{}
	route(t, q, `{"event_name":"FacilityControl","facility_id":"2404","outfit_id":"37509488620604883","world_id":"1","zone_id":"2"}`)

	require.Len(t, q.events, 1)
	ev := q.events[0].(FacilityCapture)
	assert.Equal(t, "2404", ev.FacilityID)
	assert.Equal(t, "37509488620604883", ev.OutfitID)
	assert.Equal(t, "2", ev.ContinentID)
}

func TestRouteFacilityWithoutOutfitIsDiscarded(t *testing.T) {
	q := &captureQueue{}
	route(t, q, `{"event_name":"FacilityControl","facility_id":"2404","outfit_id":"","world_id":"1","zone_id":"2"}`)

	assert.Empty(t, q.events)
}

func TestRouteUnknownShapeIsDiscarded(t *testing.T) {
	q := &captureQueue{}
	route(t, q, `{"event_name":"GainExperience","amount":"120"}`)

	assert.Empty(t, q.events)
}

func TestRouteMalformedPayloadIsDiscarded(t *testing.T) {
	q := &captureQueue{}
	route(t, q, `{"event_name":`)

	assert.Empty(t, q.events, "malformed payload must be dropped, not raised")
}

func TestRouteCharacterTakesPriorityOverFacilityFields(t *testing.T) {
	q := &captureQueue{}
	route(t, q, `{"event_name":"PlayerLogin","character_id":"c1","facility_id":"2404","outfit_id":"o1","world_id":"1"}`)

	require.Len(t, q.events, 1)
	_, ok := q.events[0].(CharacterActivity)
	assert.True(t, ok, "character id field wins classification priority")
}
