package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"payadmin/internal/config"
	"payadmin/internal/logging"
	"payadmin/internal/sandbox"
)

// SandboxCommand serves a local stand-in for the admin API backed by sqlite.
type SandboxCommand struct {
	stderr        io.Writer
	cfg           config.Config
	logger        logging.Logger
	signalContext func() (context.Context, context.CancelFunc)
}

func NewSandboxCommand(stderr io.Writer, cfg config.Config, logger logging.Logger, signalContext func() (context.Context, context.CancelFunc)) *SandboxCommand {
	return &SandboxCommand{stderr: stderr, cfg: cfg, logger: logger, signalContext: signalContext}
}

func (c *SandboxCommand) Run(args []string) error {
	fs := flag.NewFlagSet("sandbox", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	addr := fs.String("addr", c.cfg.SandboxAddress(), "listen address")
	dbPath := fs.String("db", "", "sqlite file (default from config, :memory: for a throwaway store)")
	seed := fs.Bool("seed", false, "load demo customers and transfers")
	secret := fs.String("secret", c.cfg.Sandbox.JWTSecret, "JWT signing secret (random when empty)")
	accessTTL := fs.Duration("access-ttl", c.cfg.SandboxAccessTTL(), "access token lifetime")
	if err := fs.Parse(args); err != nil {
		return err
	}

	path := *dbPath
	if path == "" {
		resolved, err := c.cfg.SandboxDBPath()
		if err != nil {
			return err
		}
		path = resolved
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return err
		}
	}

	ctx, stop := c.signalContext()
	defer stop()
	server, err := sandbox.New(ctx, sandbox.Options{
		DBPath:    path,
		JWTSecret: *secret,
		AccessTTL: *accessTTL,
		Seed:      *seed,
		Logger:    c.logger,
	})
	if err != nil {
		return err
	}
	defer server.Close()
	fmt.Fprintf(c.stderr, "sandbox admin: %s / %s\n", sandbox.DefaultAdminEmail, sandbox.DefaultAdminPassword)
	return server.Run(ctx, *addr)
}
