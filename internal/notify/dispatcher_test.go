// SPDX-License-Identifier: MIT

package notify

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSink returns a scripted error per destination.
type fakeSink struct {
	mu       sync.Mutex
	results  map[string]error
	attempts []string
	block    time.Duration
}

func (f *fakeSink) Send(_ context.Context, dest string, _ Notification) error {
	if f.block > 0 {
		time.Sleep(f.block)
	}
	f.mu.Lock()
	f.attempts = append(f.attempts, dest)
	err := f.results[dest]
	f.mu.Unlock()
	return err
}

func (f *fakeSink) attempted() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.attempts...)
}

type fakePruner struct {
	mu     sync.Mutex
	pruned []string
	err    error
}

func (f *fakePruner) PruneDestination(_ context.Context, dest string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	f.pruned = append(f.pruned, dest)
	return 1, nil
}

func TestDispatchDeliversToAllDestinations(t *testing.T) {
	sink := &fakeSink{results: map[string]error{}}
	pruner := &fakePruner{}
	d := NewDispatcher(sink, pruner)

	d.Dispatch(context.Background(), Notification{Title: "t"}, []string{"d1", "d2", "d3"})

	assert.ElementsMatch(t, []string{"d1", "d2", "d3"}, sink.attempted())
	assert.Empty(t, pruner.pruned)
}

func TestDispatchIsolatesBranchFailures(t *testing.T) {
	sink := &fakeSink{results: map[string]error{
		"d2": fmt.Errorf("rate limited: %w", context.DeadlineExceeded),
	}}
	pruner := &fakePruner{}
	d := NewDispatcher(sink, pruner)

	d.Dispatch(context.Background(), Notification{Title: "t"}, []string{"d1", "d2", "d3"})

	assert.ElementsMatch(t, []string{"d1", "d2", "d3"}, sink.attempted(),
		"one branch failing must not stop the others")
	assert.Empty(t, pruner.pruned, "transient errors never mutate the registry")
}

func TestDispatchPrunesOnDestinationGone(t *testing.T) {
	sink := &fakeSink{results: map[string]error{
		"d2": fmt.Errorf("destination d2: %w", ErrDestinationGone),
	}}
	pruner := &fakePruner{}
	d := NewDispatcher(sink, pruner)

	d.Dispatch(context.Background(), Notification{Title: "t"}, []string{"d1", "d2"})

	assert.Equal(t, []string{"d2"}, pruner.pruned, "exactly the gone destination is pruned")
}

func TestDispatchKeepsSubscriptionOnPermissionDenied(t *testing.T) {
	sink := &fakeSink{results: map[string]error{
		"d1": fmt.Errorf("destination d1: %w", ErrPermissionDenied),
	}}
	pruner := &fakePruner{}
	d := NewDispatcher(sink, pruner)

	d.Dispatch(context.Background(), Notification{Title: "t"}, []string{"d1"})

	assert.Empty(t, pruner.pruned, "permission denied may be transient, registry untouched")
}

func TestDispatchPruneFailureIsSwallowed(t *testing.T) {
	sink := &fakeSink{results: map[string]error{
		"d1": ErrDestinationGone,
	}}
	pruner := &fakePruner{err: fmt.Errorf("storage unavailable")}
	d := NewDispatcher(sink, pruner)

	// Must not panic or retry; registry errors are logged only.
	d.Dispatch(context.Background(), Notification{Title: "t"}, []string{"d1"})
}

func TestDispatchRunsBranchesConcurrently(t *testing.T) {
	sink := &fakeSink{results: map[string]error{}, block: 50 * time.Millisecond}
	d := NewDispatcher(sink, &fakePruner{})

	start := time.Now()
	d.Dispatch(context.Background(), Notification{Title: "t"}, []string{"d1", "d2", "d3", "d4"})
	elapsed := time.Since(start)

	require.Less(t, elapsed, 180*time.Millisecond,
		"four 50ms sends must overlap, not run back to back")
}

func TestDispatchNoDestinationsIsNoOp(t *testing.T) {
	sink := &fakeSink{results: map[string]error{}}
	d := NewDispatcher(sink, &fakePruner{})

	d.Dispatch(context.Background(), Notification{Title: "t"}, nil)
	assert.Empty(t, sink.attempted())
}
