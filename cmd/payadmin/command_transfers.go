package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"payadmin/internal/app"
	"payadmin/internal/config"
	"payadmin/internal/logging"
	"payadmin/internal/notify"
	"payadmin/internal/transfers"
	"payadmin/internal/types"
)

const (
	transfersUsage = "usage: payadmin transfers <list|show|approve|reject|set-status|bulk> [flags]"
	markdownWidth  = 100
)

type transferListOutput struct {
	Kind       string            `json:"kind" yaml:"kind"`
	Transfers  []*types.Transfer `json:"transfers" yaml:"transfers"`
	Pagination types.Pagination  `json:"pagination" yaml:"pagination"`
}

// TransfersCommand runs every transfer operation through a transfers.Manager
// so the CLI applies the same validation and error mapping as the dashboard.
type TransfersCommand struct {
	stdout    io.Writer
	stderr    io.Writer
	cfg       config.Config
	newClient clientFactory
	logger    logging.Logger
}

func NewTransfersCommand(stdout, stderr io.Writer, cfg config.Config, newClient clientFactory, logger logging.Logger) *TransfersCommand {
	return &TransfersCommand{stdout: stdout, stderr: stderr, cfg: cfg, newClient: newClient, logger: logger}
}

func (c *TransfersCommand) Run(args []string) error {
	if len(args) == 0 {
		return errors.New(transfersUsage)
	}
	switch args[0] {
	case "list", "ls":
		return c.runList(args[1:])
	case "show":
		return c.runShow(args[1:])
	case "approve":
		return c.runApprove(args[1:])
	case "reject":
		return c.runReject(args[1:])
	case "set-status":
		return c.runSetStatus(args[1:])
	case "bulk":
		return c.runBulk(args[1:])
	default:
		return fmt.Errorf("unknown transfers command %q\n%s", args[0], transfersUsage)
	}
}

type transferSession struct {
	api      commandClient
	manager  *transfers.Manager
	recorder *notify.Recorder
}

func (c *TransfersCommand) open() (*transferSession, error) {
	api, err := c.newClient()
	if err != nil {
		return nil, err
	}
	recorder := &notify.Recorder{}
	manager := transfers.NewManager(api, nil,
		transfers.WithNotifier(recorder),
		transfers.WithLogger(c.logger),
		transfers.WithPageSize(c.cfg.PageSize()),
		transfers.WithTransitionValidation(c.cfg.ValidateTransitions()),
	)
	return &transferSession{api: api, manager: manager, recorder: recorder}, nil
}

func (s *transferSession) Close() error {
	return s.api.Close()
}

// result turns a manager outcome into a command error. Success notices are
// printed; failures come back as the error instead.
func (s *transferSession) result(output io.Writer, ok bool) error {
	notices := s.recorder.Notices()
	s.recorder.Reset()
	if !ok {
		if message := s.manager.LastError(); message != "" {
			return errors.New(message)
		}
		return errors.New("request was not applied")
	}
	for _, notice := range notices {
		fmt.Fprintf(output, "%s: %s\n", notice.Level, notice.Text())
	}
	return nil
}

func (c *TransfersCommand) runList(args []string) error {
	fs := flag.NewFlagSet("transfers list", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	kindFlag := fs.String("kind", string(transfers.KindAll), "view: all, pending, failed or completed")
	search := fs.String("search", "", "match reference, email or tx hash")
	typeFilter := fs.String("type", "", "crypto_to_fiat or fiat_to_crypto")
	status := fs.String("status", "", "exact status (all view only)")
	page := fs.Int("page", 1, "page number")
	limit := fs.Int("limit", c.cfg.PageSize(), "page size")
	format := fs.String("format", formatTable, "output format: table, json or yaml")
	if _, err := parseInterspersed(fs, args); err != nil {
		return err
	}
	outFormat, err := parseFormat(*format, formatTable, formatJSON, formatYAML)
	if err != nil {
		return err
	}
	kind, ok := transfers.ParseKind(*kindFlag)
	if !ok {
		return fmt.Errorf("unknown view %q", *kindFlag)
	}

	session, err := c.open()
	if err != nil {
		return err
	}
	defer session.Close()

	filters := transfers.Filters{
		Search: *search,
		Type:   types.TransferType(strings.TrimSpace(*typeFilter)),
		Status: types.Status(strings.TrimSpace(*status)),
		Limit:  *limit,
	}.ForPage(*page)
	if err := session.result(io.Discard, session.manager.FetchCollection(context.Background(), kind, filters)); err != nil {
		return err
	}
	view := session.manager.Collection(kind)
	if outFormat != formatTable {
		return writeStructured(c.stdout, outFormat, transferListOutput{
			Kind:       string(kind),
			Transfers:  view.Items,
			Pagination: view.Page,
		})
	}
	table := newTextTable("REFERENCE", "ID", "STATUS", "TYPE", "AMOUNT", "CUSTOMER", "CREATED")
	for _, transfer := range view.Items {
		table.Append(
			transfer.Reference,
			transfer.ID,
			string(transfer.Status),
			string(transfer.Type),
			transfer.Amount.StringFixed(2)+" "+transfer.Currency,
			dash(customerName(transfer)),
			formatTimestamp(transfer.CreatedAt),
		)
	}
	if err := table.Render(c.stdout); err != nil {
		return err
	}
	_, err = fmt.Fprintf(c.stdout, "\n%s: page %d of %d, %d total\n",
		kind.Title(), view.Page.CurrentPage, max(view.Page.TotalPages, 1), view.Page.TotalCount)
	return err
}

func (c *TransfersCommand) runShow(args []string) error {
	fs := flag.NewFlagSet("transfers show", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	format := fs.String("format", formatMarkdown, "output format: markdown, json or yaml")
	width := fs.Int("width", markdownWidth, "markdown wrap width")
	positional, err := parseInterspersed(fs, args)
	if err != nil {
		return err
	}
	outFormat, err := parseFormat(*format, formatMarkdown, formatJSON, formatYAML)
	if err != nil {
		return err
	}
	id, err := singleID(positional)
	if err != nil {
		return err
	}

	session, err := c.open()
	if err != nil {
		return err
	}
	defer session.Close()
	if err := session.result(io.Discard, session.manager.FetchOne(context.Background(), id)); err != nil {
		return err
	}
	transfer := session.manager.Selected()
	if outFormat != formatMarkdown {
		return writeStructured(c.stdout, outFormat, transfer)
	}
	_, err = fmt.Fprintln(c.stdout, app.RenderMarkdown(app.TransferMarkdown(transfer), *width))
	return err
}

func (c *TransfersCommand) runApprove(args []string) error {
	fs := flag.NewFlagSet("transfers approve", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	notes := fs.String("notes", "", "internal notes")
	positional, err := parseInterspersed(fs, args)
	if err != nil {
		return err
	}
	id, err := singleID(positional)
	if err != nil {
		return err
	}
	return c.mutate(id, func(ctx context.Context, manager *transfers.Manager) bool {
		return manager.Approve(ctx, id, *notes)
	})
}

func (c *TransfersCommand) runReject(args []string) error {
	fs := flag.NewFlagSet("transfers reject", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	reason := fs.String("reason", "", "reason shown to the customer")
	positional, err := parseInterspersed(fs, args)
	if err != nil {
		return err
	}
	id, err := singleID(positional)
	if err != nil {
		return err
	}
	return c.mutate(id, func(ctx context.Context, manager *transfers.Manager) bool {
		return manager.Reject(ctx, id, *reason)
	})
}

func (c *TransfersCommand) runSetStatus(args []string) error {
	fs := flag.NewFlagSet("transfers set-status", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	status := fs.String("status", "", "target status")
	message := fs.String("message", "", "status message shown to the customer")
	remarks := fs.String("remarks", "", "admin remarks")
	notes := fs.String("notes", "", "internal notes")
	positional, err := parseInterspersed(fs, args)
	if err != nil {
		return err
	}
	id, err := singleID(positional)
	if err != nil {
		return err
	}
	if strings.TrimSpace(*status) == "" {
		return errors.New("--status is required")
	}
	update := types.TransferUpdate{Status: types.StatusPtr(types.ParseStatus(*status))}
	if value := strings.TrimSpace(*message); value != "" {
		update.StatusMessage = types.StringPtr(value)
	}
	if value := strings.TrimSpace(*remarks); value != "" {
		update.AdminRemarks = types.StringPtr(value)
	}
	if value := strings.TrimSpace(*notes); value != "" {
		update.InternalNotes = types.StringPtr(value)
	}
	return c.mutate(id, func(ctx context.Context, manager *transfers.Manager) bool {
		return manager.UpdateStatus(ctx, id, update)
	})
}

func (c *TransfersCommand) runBulk(args []string) error {
	fs := flag.NewFlagSet("transfers bulk", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	status := fs.String("status", "", "target status")
	message := fs.String("message", "", "status message shown to the customers")
	ids, err := parseInterspersed(fs, args)
	if err != nil {
		return err
	}
	if strings.TrimSpace(*status) == "" {
		return errors.New("--status is required")
	}
	if len(ids) == 0 {
		return errors.New("at least one transfer id is required")
	}

	session, err := c.open()
	if err != nil {
		return err
	}
	defer session.Close()
	ok := session.manager.BulkUpdateStatus(context.Background(), ids, types.Status(*status), *message)
	return session.result(c.stdout, ok)
}

// mutate loads the transfer first so transition checks and the printed
// before/after see the server's current status.
func (c *TransfersCommand) mutate(id string, apply func(context.Context, *transfers.Manager) bool) error {
	session, err := c.open()
	if err != nil {
		return err
	}
	defer session.Close()

	ctx := context.Background()
	if err := session.result(io.Discard, session.manager.FetchOne(ctx, id)); err != nil {
		return err
	}
	before := session.manager.Selected()
	if err := session.result(c.stdout, apply(ctx, session.manager)); err != nil {
		return err
	}
	after, ok := session.manager.Find(id)
	if !ok {
		return nil
	}
	_, err = fmt.Fprintf(c.stdout, "%s: %s -> %s\n", after.Reference, before.Status, after.Status)
	return err
}

// parseInterspersed lets flags follow positional arguments, as in
// `transfers approve <id> --notes ...`.
func parseInterspersed(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		rest := fs.Args()
		if len(rest) == 0 {
			return positional, nil
		}
		positional = append(positional, rest[0])
		args = rest[1:]
	}
}

func singleID(positional []string) (string, error) {
	if len(positional) != 1 || strings.TrimSpace(positional[0]) == "" {
		return "", errors.New("exactly one transfer id is required")
	}
	return strings.TrimSpace(positional[0]), nil
}

func customerName(transfer *types.Transfer) string {
	if transfer.User == nil {
		return transfer.UserID
	}
	return transfer.User.DisplayName()
}
