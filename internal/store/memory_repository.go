package store

import (
	"context"
	"errors"
	"sync"

	"payadmin/internal/types"
)

type memoryRepository struct {
	sessions *MemorySessionStore
	appState *memoryAppStateStore
}

func NewMemoryRepository() Repository {
	return &memoryRepository{
		sessions: NewMemorySessionStore(nil),
		appState: &memoryAppStateStore{},
	}
}

func (r *memoryRepository) Sessions() SessionStore {
	return r.sessions
}

func (r *memoryRepository) AppState() AppStateStore {
	return r.appState
}

func (r *memoryRepository) Backend() string {
	return RepositoryBackendMemory
}

func (r *memoryRepository) Close() error {
	return nil
}

type MemorySessionStore struct {
	mu      sync.Mutex
	session *types.Session
	saves   int
	clears  int
}

func NewMemorySessionStore(initial *types.Session) *MemorySessionStore {
	return &MemorySessionStore{session: cloneSession(initial)}
}

func (s *MemorySessionStore) Load(ctx context.Context) (*types.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneSession(s.session), nil
}

func (s *MemorySessionStore) Save(ctx context.Context, session *types.Session) error {
	if session == nil {
		return errors.New("session is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = cloneSession(session)
	s.saves++
	return nil
}

func (s *MemorySessionStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = nil
	s.clears++
	return nil
}

// Counts reports how many saves and clears the store has seen.
func (s *MemorySessionStore) Counts() (saves, clears int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves, s.clears
}

type memoryAppStateStore struct {
	mu    sync.Mutex
	state types.AppState
}

func (s *memoryAppStateStore) Load(ctx context.Context) (*types.AppState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.state
	return &out, nil
}

func (s *memoryAppStateStore) Save(ctx context.Context, state *types.AppState) error {
	if state == nil {
		return errors.New("state is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = *state
	return nil
}
