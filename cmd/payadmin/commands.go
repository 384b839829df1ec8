package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"payadmin/internal/app"
	"payadmin/internal/config"
	"payadmin/internal/logging"
)

type commandRunner interface {
	Run(args []string) error
}

type commandWiring struct {
	stdout             io.Writer
	stderr             io.Writer
	cfg                config.Config
	logger             logging.Logger
	newClient          clientFactory
	signalContext      func() (context.Context, context.CancelFunc)
	runUI              func(ctx context.Context, opts app.Options) error
	configureUILogging func(cfg config.Config) logging.Logger
	version            string
}

func defaultCommandWiring(stdout, stderr io.Writer, cfg config.Config, logger logging.Logger) commandWiring {
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return commandWiring{
		stdout:             stdout,
		stderr:             stderr,
		cfg:                cfg,
		logger:             logger,
		newClient:          newAdminClientFactory(cfg, logger),
		signalContext:      interruptContext,
		runUI:              app.Run,
		configureUILogging: configureUILogging,
		version:            buildVersion(),
	}
}

func buildCommands(wiring commandWiring) map[string]commandRunner {
	return map[string]commandRunner{
		"login":     NewLoginCommand(wiring.stdout, wiring.stderr, wiring.cfg, wiring.newClient),
		"logout":    NewLogoutCommand(wiring.stdout, wiring.stderr, wiring.newClient),
		"whoami":    NewWhoAmICommand(wiring.stdout, wiring.stderr, wiring.newClient),
		"pending":   NewPendingCommand(wiring.stdout, wiring.stderr, wiring.newClient, wiring.logger),
		"watch":     NewWatchCommand(wiring),
		"transfers": NewTransfersCommand(wiring.stdout, wiring.stderr, wiring.cfg, wiring.newClient, wiring.logger),
		"records":   NewRecordsCommand(wiring.stdout, wiring.stderr, wiring.newClient),
		"ui":        NewUICommand(wiring),
		"config":    NewConfigCommand(wiring.stdout, wiring.stderr, wiring.cfg),
		"sandbox":   NewSandboxCommand(wiring.stderr, wiring.cfg, wiring.logger, wiring.signalContext),
		"version":   NewVersionCommand(wiring.stdout, wiring.version),
	}
}

func interruptContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
