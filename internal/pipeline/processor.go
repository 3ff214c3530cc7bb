// SPDX-License-Identifier: MIT

// Package pipeline executes enrichment jobs: resolve supplementary data via
// the game-data API, compute the subject key, look up subscribers and hand
// the result to the dispatcher. It runs on the queue's single worker.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ManuGH/auraxd/internal/census"
	"github.com/ManuGH/auraxd/internal/events"
	"github.com/ManuGH/auraxd/internal/log"
	"github.com/ManuGH/auraxd/internal/metrics"
	"github.com/ManuGH/auraxd/internal/notify"
	"github.com/ManuGH/auraxd/internal/queue"
	"github.com/rs/zerolog"
)

// Enricher is the slice of the game-data client the processor needs.
type Enricher interface {
	CharacterOutfit(ctx context.Context, platform events.Platform, characterID string) (*census.Outfit, error)
	MetagameEvent(ctx context.Context, platform events.Platform, eventID string) (*census.MetagameEvent, error)
	WorldName(ctx context.Context, platform events.Platform, worldID string) (string, error)
}

// Subscriptions is the read side of the subscriber registry.
type Subscriptions interface {
	Lookup(ctx context.Context, subjectKey string) ([]string, error)
}

// Dispatcher fans a notification out to its destinations.
type Dispatcher interface {
	Dispatch(ctx context.Context, n notify.Notification, destinations []string)
}

// Processor turns queued events into dispatched notifications.
type Processor struct {
	enricher   Enricher
	registry   Subscriptions
	dispatcher Dispatcher
	jobTimeout time.Duration
	logger     zerolog.Logger
}

// New creates a Processor. jobTimeout bounds one job's enrichment, lookup and
// dispatch; zero selects the 30s default.
func New(enricher Enricher, registry Subscriptions, dispatcher Dispatcher, jobTimeout time.Duration) *Processor {
	if jobTimeout <= 0 {
		jobTimeout = 30 * time.Second
	}
	return &Processor{
		enricher:   enricher,
		registry:   registry,
		dispatcher: dispatcher,
		jobTimeout: jobTimeout,
		logger:     log.WithComponent("pipeline"),
	}
}

// Handle executes one job. Failures discard only this job; the queue worker
// always proceeds to the next one.
func (p *Processor) Handle(ctx context.Context, job queue.Job) {
	ctx, cancel := context.WithTimeout(ctx, p.jobTimeout)
	defer cancel()

	logger := p.logger.With().
		Str(log.FieldJobID, job.ID).
		Str(log.FieldKind, job.Event.Kind()).
		Str(log.FieldPlatform, string(job.Event.EventPlatform())).
		Logger()

	var (
		n   notify.Notification
		err error
	)
	switch ev := job.Event.(type) {
	case events.CharacterActivity:
		n, err = p.characterNotification(ctx, ev)
	case events.WorldEvent:
		n, err = p.worldNotification(ctx, ev)
	case events.FacilityCapture:
		n = facilityNotification(ev)
	default:
		logger.Warn().
			Str(log.FieldEvent, "pipeline.unknown_event").
			Msg("dropping job with unknown event type")
		metrics.JobsTotal.WithLabelValues(job.Event.Kind(), metrics.OutcomeError).Inc()
		return
	}

	switch {
	case errors.Is(err, census.ErrNotFound):
		metrics.JobsTotal.WithLabelValues(job.Event.Kind(), metrics.OutcomeDiscarded).Inc()
		logger.Debug().
			Str(log.FieldEvent, "pipeline.discarded").
			Msg("enrichment found no subject, discarding")
		return
	case err != nil:
		metrics.JobsTotal.WithLabelValues(job.Event.Kind(), metrics.OutcomeError).Inc()
		logger.Warn().
			Err(err).
			Str(log.FieldEvent, "pipeline.enrichment_failed").
			Msg("enrichment failed, discarding job")
		return
	}

	destinations, err := p.registry.Lookup(ctx, n.SubjectKey)
	if err != nil {
		metrics.JobsTotal.WithLabelValues(job.Event.Kind(), metrics.OutcomeError).Inc()
		logger.Error().
			Err(err).
			Str(log.FieldSubjectKey, n.SubjectKey).
			Str(log.FieldEvent, "pipeline.registry_lookup_failed").
			Msg("registry lookup failed, discarding job")
		return
	}
	if len(destinations) == 0 {
		metrics.JobsTotal.WithLabelValues(job.Event.Kind(), metrics.OutcomeNoMatch).Inc()
		return
	}

	p.dispatcher.Dispatch(ctx, n, destinations)
	metrics.JobsTotal.WithLabelValues(job.Event.Kind(), metrics.OutcomeDelivered).Inc()
}

func (p *Processor) characterNotification(ctx context.Context, ev events.CharacterActivity) (notify.Notification, error) {
	outfit, err := p.enricher.CharacterOutfit(ctx, ev.Platform, ev.CharacterID)
	if err != nil {
		return notify.Notification{}, fmt.Errorf("character %s: %w", ev.CharacterID, err)
	}

	world := p.worldNameOrID(ctx, ev.Platform, ev.WorldID)

	verb := "logged in"
	color := "green"
	if ev.Activity == events.ActivityLogout {
		verb = "logged out"
		color = "grey"
	}

	return notify.Notification{
		Title:      fmt.Sprintf("[%s] %s %s", outfit.Alias, outfit.CharacterName, verb),
		Body:       fmt.Sprintf("%s (%s) %s on %s", outfit.CharacterName, outfit.Name, verb, world),
		Color:      color,
		SubjectKey: OutfitSubject(ev.Platform, outfit.OutfitID),
	}, nil
}

func (p *Processor) worldNotification(ctx context.Context, ev events.WorldEvent) (notify.Notification, error) {
	me, err := p.enricher.MetagameEvent(ctx, ev.Platform, ev.EventID)
	if err != nil {
		return notify.Notification{}, fmt.Errorf("metagame event %s: %w", ev.EventID, err)
	}

	world := p.worldNameOrID(ctx, ev.Platform, ev.WorldID)

	return notify.Notification{
		Title:      fmt.Sprintf("%s started on %s", me.Name, world),
		Body:       me.Description,
		Color:      "purple",
		SubjectKey: AlertSubject(ev.Platform, ev.WorldID),
	}, nil
}

// facilityNotification needs no enrichment call; the outfit id is already in
// the payload.
func facilityNotification(ev events.FacilityCapture) notify.Notification {
	return notify.Notification{
		Title:      "Facility captured",
		Body:       fmt.Sprintf("Outfit %s captured facility %s (world %s, continent %s)", ev.OutfitID, ev.FacilityID, ev.WorldID, ev.ContinentID),
		Color:      "blue",
		SubjectKey: TerritorySubject(ev.WorldID, ev.ContinentID),
	}
}

// worldNameOrID resolves a world's display name, falling back to the raw id.
// The name is cosmetic; a lookup failure never fails the job.
func (p *Processor) worldNameOrID(ctx context.Context, platform events.Platform, worldID string) string {
	name, err := p.enricher.WorldName(ctx, platform, worldID)
	if err != nil || name == "" {
		return worldID
	}
	return name
}
