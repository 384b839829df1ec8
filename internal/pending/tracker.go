package pending

import (
	"context"
	"fmt"
	"sync"
	"time"

	"payadmin/internal/client"
	"payadmin/internal/logging"
	"payadmin/internal/notify"
	"payadmin/internal/types"
)

const noticeSource = "pending"

// CountSource fetches the authoritative pending count.
type CountSource interface {
	PendingCount(ctx context.Context) (types.PendingCount, error)
}

// RefreshObserver is told about every refresh outcome that was applied.
type RefreshObserver interface {
	ObserveRefresh(count int, err error)
}

type Snapshot struct {
	Count       int
	Initialized bool
	Loading     bool
	Err         string
	RefreshedAt time.Time
}

// Tracker mirrors the number of transfers waiting for an admin. Local
// increments and decrements apply immediately; Refresh reconciles with the
// server and always wins over local adjustments made while it was in flight.
type Tracker struct {
	source   CountSource
	notifier notify.Notifier
	observer RefreshObserver
	logger   logging.Logger
	now      func() time.Time

	mu          sync.Mutex
	count       int
	initialized bool
	inFlight    int
	lastErr     string
	refreshedAt time.Time
	issued      uint64
	applied     uint64
}

type TrackerOption func(*Tracker)

func WithNotifier(notifier notify.Notifier) TrackerOption {
	return func(t *Tracker) {
		if notifier != nil {
			t.notifier = notifier
		}
	}
}

func WithObserver(observer RefreshObserver) TrackerOption {
	return func(t *Tracker) {
		t.observer = observer
	}
}

func WithLogger(logger logging.Logger) TrackerOption {
	return func(t *Tracker) {
		if logger != nil {
			t.logger = logger
		}
	}
}

func NewTracker(source CountSource, opts ...TrackerOption) *Tracker {
	t := &Tracker{
		source:   source,
		notifier: notify.Nop(),
		logger:   logging.Nop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(t)
		}
	}
	return t
}

// Refresh fetches the count and reconciles. It never returns an error; a
// failure keeps the previous count and is reported through Snapshot.Err.
func (t *Tracker) Refresh(ctx context.Context) Snapshot {
	t.mu.Lock()
	t.issued++
	seq := t.issued
	t.inFlight++
	t.mu.Unlock()

	result, err := t.fetch(ctx)

	t.mu.Lock()
	t.inFlight--
	if seq < t.applied {
		applied := t.applied
		snapshot := t.snapshotLocked()
		t.mu.Unlock()
		t.logger.Debug("pending_refresh_stale", logging.F("seq", int64(seq)), logging.F("applied", int64(applied)))
		return snapshot
	}
	if err != nil {
		t.lastErr = client.UserMessage(err)
		snapshot := t.snapshotLocked()
		t.mu.Unlock()
		t.logger.Warn("pending_refresh_failed", logging.F("error", err))
		t.observe(snapshot.Count, err)
		return snapshot
	}

	t.applied = seq
	previous := t.count
	wasInitialized := t.initialized
	next := max(result.PendingCount, 0)
	t.count = next
	t.initialized = true
	t.lastErr = ""
	t.refreshedAt = t.now().UTC()
	snapshot := t.snapshotLocked()
	t.mu.Unlock()

	t.observe(next, nil)
	if wasInitialized {
		if notice, ok := changeNotice(previous, next); ok {
			t.notifier.Notify(notice)
		}
	}
	return snapshot
}

func (t *Tracker) fetch(ctx context.Context) (result types.PendingCount, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pending count source panicked: %v", r)
		}
	}()
	if t.source == nil {
		return types.PendingCount{}, fmt.Errorf("pending count source is not configured")
	}
	return t.source.PendingCount(ctx)
}

func (t *Tracker) observe(count int, err error) {
	if t.observer != nil {
		t.observer.ObserveRefresh(count, err)
	}
}

// Increment adds one without a network call or a notice.
func (t *Tracker) Increment() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.count++
}

// Decrement subtracts one, never going below zero.
func (t *Tracker) Decrement() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.count > 0 {
		t.count--
	}
}

func (t *Tracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.count
}

func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

func (t *Tracker) snapshotLocked() Snapshot {
	return Snapshot{
		Count:       t.count,
		Initialized: t.initialized,
		Loading:     t.inFlight > 0,
		Err:         t.lastErr,
		RefreshedAt: t.refreshedAt,
	}
}

// changeNotice decides what to announce after reconciliation. A drop of
// exactly one is assumed to be the admin's own action and stays quiet.
func changeNotice(previous, next int) (notify.Notice, bool) {
	switch {
	case next > previous:
		delta := next - previous
		return notify.Info(noticeSource,
			"New pending transfers",
			fmt.Sprintf("%d new %s awaiting review (%d pending)", delta, plural(delta, "transfer", "transfers"), next),
		).Edge(), true
	case previous-next > 1:
		delta := previous - next
		return notify.Success(noticeSource,
			"Transfers processed",
			fmt.Sprintf("%d %s processed (%d pending)", delta, plural(delta, "transfer", "transfers"), next),
		).Edge(), true
	default:
		return notify.Notice{}, false
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
