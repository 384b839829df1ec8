package main

import (
	"context"
	"flag"
	"io"
	"os"
	"path/filepath"

	"payadmin/internal/app"
	"payadmin/internal/client"
	"payadmin/internal/config"
	"payadmin/internal/logging"
	"payadmin/internal/notify"
	"payadmin/internal/pending"
	"payadmin/internal/transfers"
)

const toastQueueSize = 32

type UICommand struct {
	stderr             io.Writer
	cfg                config.Config
	logger             logging.Logger
	newClient          clientFactory
	signalContext      func() (context.Context, context.CancelFunc)
	runUI              func(ctx context.Context, opts app.Options) error
	configureUILogging func(cfg config.Config) logging.Logger
}

func NewUICommand(wiring commandWiring) *UICommand {
	return &UICommand{
		stderr:             wiring.stderr,
		cfg:                wiring.cfg,
		logger:             wiring.logger,
		newClient:          wiring.newClient,
		signalContext:      wiring.signalContext,
		runUI:              wiring.runUI,
		configureUILogging: wiring.configureUILogging,
	}
}

func (c *UICommand) Run(args []string) error {
	fs := flag.NewFlagSet("ui", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	pageSize := fs.Int("page-size", c.cfg.PageSize(), "rows per page")
	interval := fs.Duration("interval", c.cfg.PollInterval(), "pending count poll interval")
	if err := fs.Parse(args); err != nil {
		return err
	}

	logger := c.logger
	if c.configureUILogging != nil {
		logger = c.configureUILogging(c.cfg)
	}
	ctx, stop := c.signalContext()
	defer stop()

	api, err := c.newClient(client.WithLogger(logger))
	if err != nil {
		return err
	}
	defer api.Close()

	toasts := notify.NewToastQueue(toastQueueSize)
	notifier := newNotifyService(c.cfg, logger, toasts)
	notifier.Start()
	defer stopNotifier(notifier)

	tracker := pending.NewTracker(api,
		pending.WithNotifier(notifier),
		pending.WithLogger(logger),
	)
	manager := transfers.NewManager(api, tracker,
		transfers.WithNotifier(notifier),
		transfers.WithLogger(logger),
		transfers.WithPageSize(*pageSize),
		transfers.WithTransitionValidation(c.cfg.ValidateTransitions()),
	)
	return c.runUI(ctx, app.Options{
		Service:      manager,
		Tracker:      tracker,
		PollInterval: *interval,
		Toasts:       toasts,
		State:        api.AppState(),
		Logger:       logger,
		PageSize:     *pageSize,
	})
}

// configureUILogging sends logs to a file while the dashboard owns the
// terminal. It falls back to a no-op logger when the file cannot be opened.
func configureUILogging(cfg config.Config) logging.Logger {
	logPath, err := config.LogPath()
	if err != nil {
		return logging.Nop()
	}
	if err := os.MkdirAll(filepath.Dir(logPath), 0o700); err != nil {
		return logging.Nop()
	}
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return logging.Nop()
	}
	return logging.NewWithFormat(file, logging.ParseLevel(cfg.LogLevel()), logging.FormatJSON)
}
