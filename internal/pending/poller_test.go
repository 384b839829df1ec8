package pending

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"payadmin/internal/types"
)

type countingSource struct {
	calls   atomic.Int32
	running atomic.Int32
	overlap atomic.Bool
	delay   time.Duration
}

func (s *countingSource) PendingCount(ctx context.Context) (types.PendingCount, error) {
	if s.running.Add(1) > 1 {
		s.overlap.Store(true)
	}
	defer s.running.Add(-1)
	n := s.calls.Add(1)
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return types.PendingCount{}, ctx.Err()
		}
	}
	return types.PendingCount{PendingCount: int(n)}, nil
}

func TestPollerRefreshesOnStartAndWake(t *testing.T) {
	source := &countingSource{}
	tracker := NewTracker(source)

	var mu sync.Mutex
	var snaps []Snapshot
	poller := NewPoller(tracker, time.Hour, OnRefresh(func(s Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		snaps = append(snaps, s)
	}))
	poller.Start(context.Background())
	defer poller.Stop()

	waitFor(t, func() bool { return source.calls.Load() == 1 })
	waitFor(t, func() bool { return tracker.Snapshot().Initialized })

	// The first run may still hold the skip token for a moment.
	waitFor(t, func() bool {
		poller.Wake()
		return source.calls.Load() >= 2
	})
	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(snaps) >= 2
	})
	if got := tracker.Count(); got < 2 {
		t.Fatalf("expected count from a later refresh, got %d", got)
	}
}

func TestPollerRunsOnInterval(t *testing.T) {
	source := &countingSource{}
	poller := NewPoller(NewTracker(source), time.Second)
	poller.Start(context.Background())
	defer poller.Stop()

	deadline := time.Now().Add(4 * time.Second)
	for time.Now().Before(deadline) && source.calls.Load() < 2 {
		time.Sleep(20 * time.Millisecond)
	}
	if source.calls.Load() < 2 {
		t.Fatalf("expected a scheduled refresh after the initial one, got %d calls", source.calls.Load())
	}
}

func TestPollerSkipsWakeWhileRunning(t *testing.T) {
	source := &countingSource{delay: 200 * time.Millisecond}
	poller := NewPoller(NewTracker(source), time.Hour)
	poller.Start(context.Background())
	waitFor(t, func() bool { return source.running.Load() == 1 })

	poller.Wake()
	poller.Wake()
	poller.Stop()

	if source.overlap.Load() {
		t.Fatalf("expected refreshes never to overlap")
	}
	if got := source.calls.Load(); got != 1 {
		t.Fatalf("expected wakes during a running refresh to be skipped, got %d calls", got)
	}
}

func TestPollerStopIsIdempotentAndBlocksWake(t *testing.T) {
	source := &countingSource{}
	poller := NewPoller(NewTracker(source), time.Hour)
	poller.Stop()
	poller.Start(context.Background())
	poller.Wake()
	poller.Stop()
	if got := source.calls.Load(); got != 0 {
		t.Fatalf("expected a stopped poller to never refresh, got %d", got)
	}
}
