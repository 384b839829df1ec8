package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"payadmin/internal/client"
	"payadmin/internal/config"
)

type LoginCommand struct {
	stdout    io.Writer
	stderr    io.Writer
	cfg       config.Config
	newClient clientFactory
}

func NewLoginCommand(stdout, stderr io.Writer, cfg config.Config, newClient clientFactory) *LoginCommand {
	return &LoginCommand{stdout: stdout, stderr: stderr, cfg: cfg, newClient: newClient}
}

func (c *LoginCommand) Run(args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	email := fs.String("email", c.cfg.API.Email, "admin email (default from PAYADMIN_EMAIL)")
	password := fs.String("password", "", "password (default from PAYADMIN_PASSWORD)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*password) == "" {
		*password = c.cfg.API.Password
	}
	if strings.TrimSpace(*email) == "" || *password == "" {
		return errors.New("email and password are required")
	}

	api, err := c.newClient()
	if err != nil {
		return err
	}
	defer api.Close()
	session, err := api.Login(context.Background(), strings.TrimSpace(*email), *password)
	if err != nil {
		return errors.New(client.UserMessage(err))
	}
	name := strings.TrimSpace(*email)
	if session.Admin != nil {
		name = session.Admin.DisplayName()
	}
	fmt.Fprintf(c.stdout, "signed in as %s at %s\n", name, api.BaseURL())
	return nil
}

type LogoutCommand struct {
	stdout    io.Writer
	stderr    io.Writer
	newClient clientFactory
}

func NewLogoutCommand(stdout, stderr io.Writer, newClient clientFactory) *LogoutCommand {
	return &LogoutCommand{stdout: stdout, stderr: stderr, newClient: newClient}
}

func (c *LogoutCommand) Run(args []string) error {
	fs := flag.NewFlagSet("logout", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	api, err := c.newClient()
	if err != nil {
		return err
	}
	defer api.Close()
	// The local session is cleared even when the server call fails.
	if err := api.Logout(context.Background()); err != nil {
		fmt.Fprintf(c.stderr, "server logout failed: %s\n", client.UserMessage(err))
	}
	fmt.Fprintln(c.stdout, "signed out")
	return nil
}

type WhoAmICommand struct {
	stdout    io.Writer
	stderr    io.Writer
	newClient clientFactory
}

func NewWhoAmICommand(stdout, stderr io.Writer, newClient clientFactory) *WhoAmICommand {
	return &WhoAmICommand{stdout: stdout, stderr: stderr, newClient: newClient}
}

func (c *WhoAmICommand) Run(args []string) error {
	fs := flag.NewFlagSet("whoami", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	format := fs.String("format", formatTable, "output format: table, json or yaml")
	if err := fs.Parse(args); err != nil {
		return err
	}
	outFormat, err := parseFormat(*format, formatTable, formatJSON, formatYAML)
	if err != nil {
		return err
	}
	api, err := c.newClient()
	if err != nil {
		return err
	}
	defer api.Close()
	profile, err := api.Me(context.Background())
	if err != nil {
		return errors.New(client.UserMessage(err))
	}
	if outFormat != formatTable {
		return writeStructured(c.stdout, outFormat, profile)
	}
	table := newTextTable("NAME", "EMAIL", "ROLE", "API")
	table.Append(profile.DisplayName(), profile.Email, dash(profile.Role), api.BaseURL())
	return table.Render(c.stdout)
}
