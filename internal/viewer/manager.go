package viewer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/cbassuarez/flux/internal/ir"
	"github.com/cbassuarez/flux/internal/loader"
	"github.com/cbassuarez/flux/internal/store"
)

// ErrSessionNotFound is returned when a session id is unknown.
var ErrSessionNotFound = errors.New("viewer: session not found")

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger. Default slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// WithStore journals every session into s.
func WithStore(s *store.Store) Option {
	return func(m *Manager) { m.journal = s }
}

// WithSeed sets the seed for new sessions. Default 0.
func WithSeed(seed int64) Option {
	return func(m *Manager) { m.seed = seed }
}

// Manager owns the live viewer sessions. Opening the same document path
// twice returns the existing session.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	byPath   map[string]string

	journal *store.Store
	seed    int64
	logger  *slog.Logger
}

// NewManager creates an empty session manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		sessions: make(map[string]*Session),
		byPath:   make(map[string]string),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Open loads the document at path and starts a session for it, or
// returns the session already serving that path.
func (m *Manager) Open(ctx context.Context, path string) (*Session, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("viewer: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if id, ok := m.byPath[abs]; ok {
		return m.sessions[id], nil
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, &loader.LoadError{Code: loader.ErrCodeReadFailed, Path: abs, Message: err.Error()}
	}
	doc, err := loader.Parse(abs, data)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	s, err := newSession(ctx, id, abs, doc, ir.SourceHash(data), m)
	if err != nil {
		return nil, err
	}
	m.sessions[id] = s
	m.byPath[abs] = id

	m.logger.Info("session opened",
		slog.String("session", id),
		slog.String("path", abs),
		slog.String("journal", s.journalID))
	return s, nil
}

// Get returns the session with the given id.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// List returns the status of every session, ordered by path.
func (m *Manager) List() []Status {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.Unlock()

	out := make([]Status, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, s.Status())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Close ends a session. Its journal, if any, stays in the store.
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	delete(m.sessions, id)
	delete(m.byPath, s.Path)
	m.logger.Info("session closed", slog.String("session", id))
	return nil
}

// CloseAll ends every session.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions = make(map[string]*Session)
	m.byPath = make(map[string]string)
}
