package notify

import (
	"context"
	"strings"
	"sync"
	"time"

	"payadmin/internal/logging"
	"payadmin/internal/types"
)

const deliveryTimeout = 10 * time.Second

// Service queues notices and delivers them on a background goroutine so
// callers never wait on a slow sink.
type Service struct {
	dispatcher *Dispatcher
	settings   types.NotificationSettings
	logger     logging.Logger

	dedupeMu sync.Mutex
	lastSent map[string]time.Time
	now      func() time.Time

	mu      sync.RWMutex
	notices chan Notice
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
	closed  bool
}

func NewService(dispatcher *Dispatcher, settings types.NotificationSettings, logger logging.Logger) *Service {
	if logger == nil {
		logger = logging.Nop()
	}
	if dispatcher == nil {
		dispatcher = NewDispatcher()
	}
	return &Service{
		dispatcher: dispatcher,
		settings:   types.NormalizeNotificationSettings(settings),
		logger:     logger,
		lastSent:   map[string]time.Time{},
		now:        time.Now,
		notices:    make(chan Notice, 256),
	}
}

func (s *Service) Start() {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started || s.closed {
		return
	}
	runCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.started = true
	s.wg.Add(1)
	go s.run(runCtx)
}

// Stop drains queued notices and waits for the worker, or gives up when ctx
// is done.
func (s *Service) Stop(ctx context.Context) error {
	if s == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	started := s.started
	close(s.notices)
	s.mu.Unlock()
	if !started {
		return nil
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		s.cancel()
		return ctx.Err()
	}
}

func (s *Service) Notify(notice Notice) {
	if s == nil {
		return
	}
	if notice.At.IsZero() {
		notice.At = s.now().UTC()
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		s.logger.Debug("notice_ignored_closed", logging.F("title", notice.Title))
		return
	}
	select {
	case s.notices <- notice:
	default:
		s.logger.Warn("notice_queue_full", logging.F("title", notice.Title))
	}
}

func (s *Service) run(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case notice, ok := <-s.notices:
			if !ok {
				return
			}
			s.handle(ctx, notice)
		}
	}
}

func (s *Service) handle(ctx context.Context, notice Notice) {
	if !s.settings.Enabled {
		return
	}
	if notice.Level.Rank() < s.settings.MinLevel.Rank() {
		return
	}
	if s.shouldSuppress(notice) {
		s.logger.Debug("notice_suppressed_duplicate", logging.F("title", notice.Title))
		return
	}
	deliverCtx, cancel := context.WithTimeout(ctx, deliveryTimeout)
	defer cancel()
	if err := s.dispatcher.Dispatch(deliverCtx, notice, s.settings.Methods); err != nil {
		s.logger.Warn("notice_dispatch_failed",
			logging.F("title", notice.Title),
			logging.F("level", string(notice.Level)),
			logging.F("error", err),
		)
	}
}

func (s *Service) shouldSuppress(notice Notice) bool {
	window := time.Duration(s.settings.DedupeWindowSeconds) * time.Second
	if window <= 0 || notice.EdgeTriggered {
		return false
	}
	key := strings.Join([]string{string(notice.Level), notice.Title, notice.Message}, "|")
	now := s.now()

	s.dedupeMu.Lock()
	defer s.dedupeMu.Unlock()
	if then, ok := s.lastSent[key]; ok && now.Sub(then) < window {
		return true
	}
	s.lastSent[key] = now
	if len(s.lastSent) > 512 {
		cutoff := now.Add(-2 * window)
		for candidate, ts := range s.lastSent {
			if ts.Before(cutoff) {
				delete(s.lastSent, candidate)
			}
		}
	}
	return false
}
