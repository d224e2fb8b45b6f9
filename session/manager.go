package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	errorskg "github.com/sweetpotato0/health-agent/errors"
)

// Store persists session snapshots.
type Store interface {
	Save(ctx context.Context, record *Record) error
	Load(ctx context.Context, id string) (*Record, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]string, error)
	Close() error
}

// Manager hands out live sessions on top of a Store. Live sessions are
// cached so two lookups of the same ID share history.
type Manager struct {
	mu    sync.Mutex
	store Store
	live  map[string]*Session
}

// NewManager creates a Manager over a store.
func NewManager(store Store) *Manager {
	return &Manager{store: store, live: make(map[string]*Session)}
}

// Open returns the live session with the given ID, reviving it from the
// store if needed, or creates a fresh one for the user when none exists.
func (m *Manager) Open(ctx context.Context, id, userID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sess, ok := m.live[id]; ok {
		return sess, nil
	}

	if id != "" {
		record, err := m.store.Load(ctx, id)
		if err == nil {
			sess := FromRecord(record)
			m.live[sess.ID()] = sess
			return sess, nil
		}
		if !errors.Is(err, errorskg.ErrNotFound) {
			return nil, fmt.Errorf("load session %s: %w", id, err)
		}
	}

	sess := New(userID)
	m.live[sess.ID()] = sess
	return sess, nil
}

// Save snapshots a session into the store.
func (m *Manager) Save(ctx context.Context, sess *Session) error {
	if sess == nil {
		return fmt.Errorf("session cannot be nil: %w", errorskg.ErrInvalidInput)
	}
	if err := m.store.Save(ctx, sess.Snapshot()); err != nil {
		return fmt.Errorf("save session %s: %w", sess.ID(), err)
	}
	return nil
}

// Close closes a session, persists the final snapshot and evicts it from
// the live cache.
func (m *Manager) Close(ctx context.Context, sess *Session) error {
	if sess == nil {
		return nil
	}
	sess.Close()
	err := m.Save(ctx, sess)

	m.mu.Lock()
	delete(m.live, sess.ID())
	m.mu.Unlock()
	return err
}

// Drop removes a session from the cache and the store.
func (m *Manager) Drop(ctx context.Context, id string) error {
	m.mu.Lock()
	delete(m.live, id)
	m.mu.Unlock()

	if err := m.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	return nil
}
