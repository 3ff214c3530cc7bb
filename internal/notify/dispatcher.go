// SPDX-License-Identifier: MIT

package notify

import (
	"context"
	"errors"
	"sync"

	"github.com/ManuGH/auraxd/internal/log"
	"github.com/ManuGH/auraxd/internal/metrics"
	"github.com/rs/zerolog"
)

// Pruner removes all subscriptions of a vanished destination.
type Pruner interface {
	PruneDestination(ctx context.Context, destinationID string) (int64, error)
}

// Dispatcher fans a notification out to its destinations. Every destination
// is attempted independently and concurrently; one branch failing never
// affects its siblings. Delivery is at-most-once, no retries.
type Dispatcher struct {
	sink   Sink
	pruner Pruner
	logger zerolog.Logger
}

// NewDispatcher creates a dispatcher delivering through sink and pruning
// stale destinations via pruner.
func NewDispatcher(sink Sink, pruner Pruner) *Dispatcher {
	return &Dispatcher{
		sink:   sink,
		pruner: pruner,
		logger: log.WithComponent("dispatcher"),
	}
}

// Dispatch delivers n to every destination and returns when all branches are
// done. Failures are classified per branch:
//   - permission denied: logged, subscription untouched (rights may return)
//   - destination gone: subscriptions for that destination are pruned
//   - anything else: logged as transient
func (d *Dispatcher) Dispatch(ctx context.Context, n Notification, destinations []string) {
	if len(destinations) == 0 {
		return
	}

	var wg sync.WaitGroup
	for _, dest := range destinations {
		wg.Add(1)
		go func(dest string) {
			defer wg.Done()
			d.deliver(ctx, n, dest)
		}(dest)
	}
	wg.Wait()
}

func (d *Dispatcher) deliver(ctx context.Context, n Notification, dest string) {
	logger := d.logger.With().
		Str(log.FieldDestinationID, dest).
		Str(log.FieldSubjectKey, n.SubjectKey).
		Logger()

	err := d.sink.Send(ctx, dest, n)
	switch {
	case err == nil:
		metrics.DeliveriesTotal.WithLabelValues(metrics.OutcomeDelivered).Inc()
		logger.Debug().
			Str(log.FieldEvent, "dispatch.delivered").
			Msg("notification delivered")

	case errors.Is(err, ErrPermissionDenied):
		metrics.DeliveriesTotal.WithLabelValues(metrics.OutcomeDenied).Inc()
		logger.Warn().
			Err(err).
			Str(log.FieldEvent, "dispatch.permission_denied").
			Msg("delivery refused, keeping subscription")

	case errors.Is(err, ErrDestinationGone):
		metrics.DeliveriesTotal.WithLabelValues(metrics.OutcomeGone).Inc()
		rows, perr := d.pruner.PruneDestination(ctx, dest)
		if perr != nil {
			logger.Error().
				Err(perr).
				Str(log.FieldEvent, "dispatch.prune_failed").
				Msg("failed to prune vanished destination")
			return
		}
		metrics.PrunesTotal.Add(float64(rows))
		logger.Info().
			Int64("rows", rows).
			Str(log.FieldEvent, "dispatch.destination_pruned").
			Msg("destination gone, subscriptions pruned")

	default:
		metrics.DeliveriesTotal.WithLabelValues(metrics.OutcomeTransient).Inc()
		logger.Warn().
			Err(err).
			Str(log.FieldEvent, "dispatch.transient_failure").
			Msg("delivery failed, no retry")
	}
}
