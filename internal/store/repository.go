package store

import (
	"context"
	"errors"
	"strings"

	"payadmin/internal/types"
)

const (
	RepositoryBackendMemory = "memory"
	RepositoryBackendBbolt  = "bbolt"
)

type Repository interface {
	Sessions() SessionStore
	AppState() AppStateStore
	Backend() string
	Close() error
}

// SessionStore persists the signed-in admin's tokens. Load returns nil when
// nobody is signed in.
type SessionStore interface {
	Load(ctx context.Context) (*types.Session, error)
	Save(ctx context.Context, session *types.Session) error
	Clear(ctx context.Context) error
}

type AppStateStore interface {
	Load(ctx context.Context) (*types.AppState, error)
	Save(ctx context.Context, state *types.AppState) error
}

func OpenRepository(dbPath, backend string) (Repository, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", RepositoryBackendBbolt:
		if strings.TrimSpace(dbPath) == "" {
			return nil, errors.New("db path is required for bbolt repository")
		}
		return NewBboltRepository(dbPath)
	case RepositoryBackendMemory:
		return NewMemoryRepository(), nil
	default:
		return nil, errors.New("unsupported repository backend: " + backend)
	}
}

func cloneSession(in *types.Session) *types.Session {
	if in == nil {
		return nil
	}
	out := *in
	if in.Admin != nil {
		admin := *in.Admin
		out.Admin = &admin
	}
	return &out
}
