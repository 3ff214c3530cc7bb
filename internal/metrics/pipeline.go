// SPDX-License-Identifier: MIT

// Package metrics exposes prometheus instrumentation for the event pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FramesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "auraxd",
		Name:      "stream_frames_total",
		Help:      "Inbound stream frames by platform and disposition",
	}, []string{"platform", "disposition"})

	ReconnectsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "auraxd",
		Name:      "stream_reconnects_total",
		Help:      "Stream reconnect attempts by platform",
	}, []string{"platform"})

	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "auraxd",
		Name:      "queue_depth",
		Help:      "Jobs waiting in the enrichment queue",
	})

	JobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "auraxd",
		Name:      "jobs_total",
		Help:      "Enrichment jobs by kind and outcome",
	}, []string{"kind", "outcome"})

	DeliveriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "auraxd",
		Name:      "deliveries_total",
		Help:      "Notification deliveries by outcome",
	}, []string{"outcome"})

	PrunesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "auraxd",
		Name:      "registry_prunes_total",
		Help:      "Subscription rows pruned after destination-gone delivery failures",
	})

	EnrichmentCacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "auraxd",
		Name:      "enrichment_cache_total",
		Help:      "Enrichment cache lookups by result",
	}, []string{"result"})
)

// Frame dispositions.
const (
	FrameEvent     = "event"
	FrameHeartbeat = "heartbeat"
	FrameMalformed = "malformed"
	FrameDiscarded = "discarded"
)

// Job and delivery outcomes.
const (
	OutcomeEnqueued  = "enqueued"
	OutcomeDelivered = "delivered"
	OutcomeDiscarded = "discarded"
	OutcomeError     = "error"
	OutcomeDenied    = "permission_denied"
	OutcomeGone      = "destination_gone"
	OutcomeTransient = "transient"
	OutcomeNoMatch   = "no_match"
)

// IncFrame records an inbound frame disposition for a platform.
func IncFrame(platform, disposition string) {
	if platform == "" {
		platform = "unknown"
	}
	FramesTotal.WithLabelValues(platform, disposition).Inc()
}
