package main

import (
	"context"
	"os"
	"path/filepath"

	"payadmin/internal/client"
	"payadmin/internal/config"
	"payadmin/internal/logging"
	"payadmin/internal/store"
	"payadmin/internal/types"
)

type clientFactory func(opts ...client.Option) (commandClient, error)

// commandClient is the admin API surface the subcommands use, plus the local
// state that lives next to the session.
type commandClient interface {
	Login(ctx context.Context, email, password string) (*types.Session, error)
	Logout(ctx context.Context) error
	Me(ctx context.Context) (*types.AdminProfile, error)
	PendingCount(ctx context.Context) (types.PendingCount, error)
	ListTransfers(ctx context.Context, params client.ListTransfersParams) (*client.TransferList, error)
	GetTransfer(ctx context.Context, id string) (*types.Transfer, error)
	UpdateTransfer(ctx context.Context, id string, update types.TransferUpdate) (*types.Transfer, error)
	BulkUpdateStatus(ctx context.Context, update types.BulkStatusUpdate) (*types.BulkStatusResult, error)
	ListCustomers(ctx context.Context, params client.ListParams) (*client.RecordList[types.Customer], error)
	ListAdmins(ctx context.Context, params client.ListParams) (*client.RecordList[types.Admin], error)
	ListWallets(ctx context.Context, params client.ListParams) (*client.RecordList[types.Wallet], error)
	ListAuditLogs(ctx context.Context, params client.ListParams) (*client.RecordList[types.AuditLog], error)
	ListSettings(ctx context.Context) (*client.RecordList[types.SystemSetting], error)
	AppState() store.AppStateStore
	BaseURL() string
	Close() error
}

// adminClientAdapter binds the HTTP client to the bbolt repository its
// session is stored in.
type adminClientAdapter struct {
	*client.Client
	repo store.Repository
}

func newAdminClientFactory(cfg config.Config, logger logging.Logger) clientFactory {
	return func(opts ...client.Option) (commandClient, error) {
		dbPath, err := config.DBPath()
		if err != nil {
			return nil, err
		}
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
			return nil, err
		}
		repo, err := store.OpenRepository(dbPath, store.RepositoryBackendBbolt)
		if err != nil {
			return nil, err
		}
		base := []client.Option{
			client.WithTimeout(cfg.RequestTimeout()),
			client.WithLogger(logger),
		}
		api := client.New(cfg.APIBaseURL(), repo.Sessions(), append(base, opts...)...)
		return &adminClientAdapter{Client: api, repo: repo}, nil
	}
}

func (a *adminClientAdapter) AppState() store.AppStateStore {
	return a.repo.AppState()
}

func (a *adminClientAdapter) Close() error {
	return a.repo.Close()
}
