package app

import (
	"context"
	"errors"
	"time"

	tea "charm.land/bubbletea/v2"

	"payadmin/internal/logging"
	"payadmin/internal/notify"
	"payadmin/internal/pending"
	"payadmin/internal/store"
)

type Options struct {
	Service      TransferService
	Tracker      *pending.Tracker
	PollInterval time.Duration
	Toasts       *notify.ToastQueue
	State        store.AppStateStore
	Logger       logging.Logger
	PageSize     int
}

// Run starts the dashboard and blocks until the admin quits or ctx is done.
// The pending count is polled in the background and refreshed again whenever
// the terminal regains focus.
func Run(ctx context.Context, opts Options) error {
	if opts.Service == nil {
		return errors.New("transfer service is required")
	}
	if opts.Tracker == nil {
		return errors.New("pending tracker is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var program *tea.Program
	poller := pending.NewPoller(opts.Tracker, opts.PollInterval,
		pending.WithPollerLogger(logger),
		pending.OnRefresh(func(snapshot pending.Snapshot) {
			if program != nil {
				program.Send(pendingMsg{snapshot: snapshot})
			}
		}),
	)
	model := NewModel(opts.Service,
		WithContext(runCtx),
		WithPending(opts.Tracker),
		WithPendingWaker(poller.Wake),
		WithStateStore(opts.State),
		WithLogger(logger),
		WithPageSize(opts.PageSize),
	)
	program = tea.NewProgram(model, tea.WithContext(runCtx))

	poller.Start(runCtx)
	defer poller.Stop()
	if opts.Toasts != nil {
		go forwardToasts(runCtx, opts.Toasts, program)
	}

	logger.Info("ui_started")
	_, err := program.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		err = nil
	}
	logger.Info("ui_stopped")
	return err
}

func forwardToasts(ctx context.Context, queue *notify.ToastQueue, program *tea.Program) {
	for {
		notice, ok := queue.Next(ctx)
		if !ok {
			return
		}
		program.Send(noticeMsg{notice: notice})
	}
}
