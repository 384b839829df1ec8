package pending

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"payadmin/internal/logging"
)

const DefaultInterval = 30 * time.Second

// Poller drives Tracker.Refresh once at start, then on a fixed interval, and
// whenever Wake is called. Runs never overlap; a trigger that arrives while a
// refresh is running is dropped.
type Poller struct {
	tracker   *Tracker
	interval  time.Duration
	logger    logging.Logger
	onRefresh func(Snapshot)

	mu      sync.Mutex
	cron    *cron.Cron
	job     cron.Job
	ctx     context.Context
	cancel  context.CancelFunc
	wakes   sync.WaitGroup
	started bool
	stopped bool
}

type PollerOption func(*Poller)

// OnRefresh registers a callback that receives the snapshot after each run.
func OnRefresh(fn func(Snapshot)) PollerOption {
	return func(p *Poller) {
		p.onRefresh = fn
	}
}

func WithPollerLogger(logger logging.Logger) PollerOption {
	return func(p *Poller) {
		if logger != nil {
			p.logger = logger
		}
	}
}

func NewPoller(tracker *Tracker, interval time.Duration, opts ...PollerOption) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	p := &Poller{
		tracker:  tracker,
		interval: interval,
		logger:   logging.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.stopped {
		return
	}
	p.ctx, p.cancel = context.WithCancel(ctx)
	logger := cronLogger{logger: p.logger}
	p.job = cron.NewChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)).Then(cron.FuncJob(p.run))
	p.cron = cron.New(cron.WithLogger(logger))
	p.cron.Schedule(cron.Every(p.interval), p.job)
	p.cron.Start()
	p.started = true
	p.logger.Info("pending_poller_started", logging.F("interval", p.interval))
	p.wakeLocked()
}

// Wake requests an immediate refresh, e.g. when the dashboard regains focus.
func (p *Poller) Wake() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.started || p.stopped {
		return
	}
	p.wakeLocked()
}

func (p *Poller) wakeLocked() {
	job := p.job
	p.wakes.Add(1)
	go func() {
		defer p.wakes.Done()
		job.Run()
	}()
}

// Stop cancels any in-flight refresh and waits for running jobs to return.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.started || p.stopped {
		p.stopped = true
		p.mu.Unlock()
		return
	}
	p.stopped = true
	p.cancel()
	c := p.cron
	p.mu.Unlock()

	<-c.Stop().Done()
	p.wakes.Wait()
	p.logger.Info("pending_poller_stopped")
}

func (p *Poller) run() {
	if p.ctx.Err() != nil {
		return
	}
	ctx, cancel := context.WithTimeout(p.ctx, p.interval)
	defer cancel()
	snapshot := p.tracker.Refresh(ctx)
	if p.ctx.Err() != nil {
		return
	}
	if p.onRefresh != nil {
		p.onRefresh(snapshot)
	}
}

// cronLogger routes cron's key/value logging into the application logger.
type cronLogger struct {
	logger logging.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron_"+msg, cronFields(keysAndValues)...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	fields := append(cronFields(keysAndValues), logging.F("error", err))
	l.logger.Error("cron_"+msg, fields...)
}

func cronFields(keysAndValues []any) []logging.Field {
	fields := make([]logging.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		fields = append(fields, logging.F(key, keysAndValues[i+1]))
	}
	return fields
}
