// SPDX-License-Identifier: MIT

// Package queue provides the single-worker FIFO work queue that serializes
// all enrichment work across platforms. Serialization is the backpressure
// mechanism protecting the upstream REST API from concurrent bursts.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/ManuGH/auraxd/internal/events"
	"github.com/ManuGH/auraxd/internal/log"
	"github.com/ManuGH/auraxd/internal/metrics"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Job is one unit of enrichment work.
type Job struct {
	ID         string
	Event      events.Event
	EnqueuedAt time.Time
}

// Handler processes a single job. Errors are handled (logged, counted) inside
// the handler; a failing job never stops the worker.
type Handler interface {
	Handle(ctx context.Context, job Job)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, job Job)

func (f HandlerFunc) Handle(ctx context.Context, job Job) { f(ctx, job) }

// Queue is an unbounded FIFO queue drained by exactly one worker.
// Enqueue never blocks, so connectors keep reading sockets while the
// worker drains asynchronously.
type Queue struct {
	mu     sync.Mutex
	jobs   []Job
	wake   chan struct{}
	logger zerolog.Logger
}

// New creates an empty queue.
func New() *Queue {
	return &Queue{
		wake:   make(chan struct{}, 1),
		logger: log.WithComponent("queue"),
	}
}

// Enqueue appends a classified event to the queue. It is safe for concurrent
// use and returns immediately.
func (q *Queue) Enqueue(ev events.Event) {
	job := Job{
		ID:         uuid.NewString(),
		Event:      ev,
		EnqueuedAt: time.Now(),
	}

	q.mu.Lock()
	q.jobs = append(q.jobs, job)
	depth := len(q.jobs)
	q.mu.Unlock()

	metrics.QueueDepth.Set(float64(depth))
	q.logger.Debug().
		Str(log.FieldJobID, job.ID).
		Str(log.FieldKind, ev.Kind()).
		Int(log.FieldQueueDepth, depth).
		Str(log.FieldEvent, "queue.enqueued").
		Msg("job enqueued")

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Depth returns the number of queued jobs.
func (q *Queue) Depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

func (q *Queue) pop() (Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.jobs) == 0 {
		return Job{}, false
	}
	job := q.jobs[0]
	q.jobs = q.jobs[1:]
	metrics.QueueDepth.Set(float64(len(q.jobs)))
	return job, true
}

// Run drains the queue with a single worker until ctx is cancelled. Jobs run
// strictly one at a time in arrival order. The job in flight when ctx is
// cancelled finishes; it receives a context detached from the shutdown
// cancellation so the handler's own timeouts bound it instead.
func (q *Queue) Run(ctx context.Context, h Handler) error {
	jobCtx := context.WithoutCancel(ctx)
	for {
		job, ok := q.pop()
		if !ok {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-q.wake:
			}
			continue
		}

		h.Handle(jobCtx, job)

		if err := ctx.Err(); err != nil {
			return err
		}
	}
}
