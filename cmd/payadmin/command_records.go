package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"payadmin/internal/client"
	"payadmin/internal/types"
)

const recordsUsage = "usage: payadmin records <customers|admins|wallets|audit|settings> [flags]"

type recordsOutput[T any] struct {
	Items      []T `json:"items" yaml:"items"`
	TotalCount int `json:"total_count" yaml:"total_count"`
}

// RecordsCommand lists the read-only admin collections.
type RecordsCommand struct {
	stdout    io.Writer
	stderr    io.Writer
	newClient clientFactory
}

func NewRecordsCommand(stdout, stderr io.Writer, newClient clientFactory) *RecordsCommand {
	return &RecordsCommand{stdout: stdout, stderr: stderr, newClient: newClient}
}

func (c *RecordsCommand) Run(args []string) error {
	if len(args) == 0 {
		return errors.New(recordsUsage)
	}
	resource := args[0]
	fs := flag.NewFlagSet("records "+resource, flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	search := fs.String("search", "", "free-text filter")
	page := fs.Int("page", 1, "page number")
	limit := fs.Int("limit", 20, "page size")
	format := fs.String("format", formatTable, "output format: table, json or yaml")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}
	outFormat, err := parseFormat(*format, formatTable, formatJSON, formatYAML)
	if err != nil {
		return err
	}
	if *limit <= 0 {
		return errors.New("limit must be positive")
	}
	params := client.ListParams{
		Skip:   (max(*page, 1) - 1) * *limit,
		Limit:  *limit,
		Search: *search,
	}

	api, err := c.newClient()
	if err != nil {
		return err
	}
	defer api.Close()
	ctx := context.Background()

	switch resource {
	case "customers":
		list, err := api.ListCustomers(ctx, params)
		if err != nil {
			return errors.New(client.UserMessage(err))
		}
		return writeRecords(c.stdout, outFormat, list, []string{"CODE", "EMAIL", "NAME", "KYC", "ACTIVE", "CREATED"},
			func(item types.Customer) []string {
				return []string{item.CustomerCode, item.Email, dash(fullName(item.FirstName, item.LastName)), dash(item.KYCStatus), yesNo(item.IsActive), formatTimestamp(item.CreatedAt)}
			})
	case "admins":
		list, err := api.ListAdmins(ctx, params)
		if err != nil {
			return errors.New(client.UserMessage(err))
		}
		return writeRecords(c.stdout, outFormat, list, []string{"EMAIL", "NAME", "ROLE", "ACTIVE", "LAST LOGIN"},
			func(item types.Admin) []string {
				lastLogin := "-"
				if item.LastLogin != nil {
					lastLogin = formatTimestamp(*item.LastLogin)
				}
				return []string{item.Email, dash(fullName(item.FirstName, item.LastName)), item.Role, yesNo(item.IsActive), lastLogin}
			})
	case "wallets":
		list, err := api.ListWallets(ctx, params)
		if err != nil {
			return errors.New(client.UserMessage(err))
		}
		return writeRecords(c.stdout, outFormat, list, []string{"LABEL", "NETWORK", "CURRENCY", "BALANCE", "ADDRESS", "ACTIVE"},
			func(item types.Wallet) []string {
				return []string{dash(item.Label), item.Network, item.Currency, item.Balance.String(), item.Address, yesNo(item.IsActive)}
			})
	case "audit", "audit-logs":
		list, err := api.ListAuditLogs(ctx, params)
		if err != nil {
			return errors.New(client.UserMessage(err))
		}
		return writeRecords(c.stdout, outFormat, list, []string{"TIME", "ACTOR", "ACTION", "ENTITY", "ENTITY ID"},
			func(item types.AuditLog) []string {
				actor := item.ActorName
				if actor == "" {
					actor = item.ActorID
				}
				return []string{formatTimestamp(item.CreatedAt), dash(actor), item.Action, item.EntityType, dash(item.EntityID)}
			})
	case "settings":
		list, err := api.ListSettings(ctx)
		if err != nil {
			return errors.New(client.UserMessage(err))
		}
		return writeRecords(c.stdout, outFormat, list, []string{"KEY", "VALUE", "DESCRIPTION", "UPDATED"},
			func(item types.SystemSetting) []string {
				return []string{item.Key, item.Value, dash(item.Description), formatTimestamp(item.UpdatedAt)}
			})
	default:
		return fmt.Errorf("unknown record type %q\n%s", resource, recordsUsage)
	}
}

func writeRecords[T any](output io.Writer, format string, list *client.RecordList[T], header []string, row func(T) []string) error {
	if list == nil {
		list = &client.RecordList[T]{}
	}
	if format != formatTable {
		items := list.Items
		if items == nil {
			items = []T{}
		}
		return writeStructured(output, format, recordsOutput[T]{Items: items, TotalCount: list.TotalCount})
	}
	table := newTextTable(header...)
	for _, item := range list.Items {
		table.Append(row(item)...)
	}
	if err := table.Render(output); err != nil {
		return err
	}
	_, err := fmt.Fprintf(output, "\n%d shown, %d total\n", len(list.Items), list.TotalCount)
	return err
}

func fullName(first, last string) string {
	switch {
	case first == "":
		return last
	case last == "":
		return first
	default:
		return first + " " + last
	}
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
