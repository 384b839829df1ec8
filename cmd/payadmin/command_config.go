package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"payadmin/internal/config"
)

const (
	configFormatJSON = "json"
	configFormatTOML = "toml"
	redacted         = "********"
)

type ConfigCommand struct {
	stdout io.Writer
	stderr io.Writer
	cfg    config.Config
}

func NewConfigCommand(stdout, stderr io.Writer, cfg config.Config) *ConfigCommand {
	return &ConfigCommand{stdout: stdout, stderr: stderr, cfg: cfg}
}

func (c *ConfigCommand) Run(args []string) error {
	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	defaults := fs.Bool("defaults", false, "print default configuration values")
	format := fs.String("format", configFormatTOML, "output format: toml or json")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return errors.New("config does not take positional arguments")
	}

	cfg := c.cfg
	if *defaults {
		cfg = config.Default()
	}
	cfg = redactConfig(cfg)

	switch strings.ToLower(strings.TrimSpace(*format)) {
	case configFormatTOML:
		data, err := cfg.Encode()
		if err != nil {
			return err
		}
		if path, err := config.ConfigPath(); err == nil && !*defaults {
			fmt.Fprintf(c.stdout, "# %s\n", path)
		}
		_, err = c.stdout.Write(data)
		return err
	case configFormatJSON:
		return writeStructured(c.stdout, formatJSON, cfg)
	default:
		return fmt.Errorf("unsupported format %q (want toml or json)", *format)
	}
}

// redactConfig hides credentials. The password never leaves the process; a
// telegram token only shows that one is set.
func redactConfig(cfg config.Config) config.Config {
	cfg.API.Password = ""
	if strings.TrimSpace(cfg.Notifications.Telegram.Token) != "" {
		cfg.Notifications.Telegram.Token = redacted
	}
	if strings.TrimSpace(cfg.Sandbox.JWTSecret) != "" {
		cfg.Sandbox.JWTSecret = redacted
	}
	return cfg
}
