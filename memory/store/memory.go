// Package store provides the persistence backends for the health profile
// store: in-memory for tests, SQLite for single-node deployments, PostgreSQL
// and MongoDB for shared ones.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	errorskg "github.com/sweetpotato0/health-agent/errors"
	"github.com/sweetpotato0/health-agent/memory"
)

// MemoryStore implements memory.Store with mutex-guarded maps.
type MemoryStore struct {
	mu       sync.RWMutex
	users    map[string]*memory.User
	profiles map[string]*memory.Profile
	records  map[string][]*memory.Record // by user ID, insertion order
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[string]*memory.User),
		profiles: make(map[string]*memory.Profile),
		records:  make(map[string][]*memory.Record),
	}
}

// CreateUser registers a user.
func (s *MemoryStore) CreateUser(ctx context.Context, user *memory.User) error {
	if user == nil || user.ID == "" {
		return fmt.Errorf("user ID cannot be empty: %w", errorskg.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.ID]; ok {
		return fmt.Errorf("user %s: %w", user.ID, errorskg.ErrAlreadyExists)
	}
	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.LastActive = now
	clone := *user
	s.users[user.ID] = &clone
	return nil
}

// GetUser returns a user by ID.
func (s *MemoryStore) GetUser(ctx context.Context, userID string) (*memory.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[userID]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", userID, errorskg.ErrNotFound)
	}
	clone := *u
	return &clone, nil
}

// TouchUser bumps the user's last-active timestamp.
func (s *MemoryStore) TouchUser(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return fmt.Errorf("user %s: %w", userID, errorskg.ErrNotFound)
	}
	u.LastActive = time.Now()
	return nil
}

// DeleteUser removes a user, their profile and their records.
func (s *MemoryStore) DeleteUser(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[userID]; !ok {
		return fmt.Errorf("user %s: %w", userID, errorskg.ErrNotFound)
	}
	delete(s.users, userID)
	delete(s.profiles, userID)
	delete(s.records, userID)
	return nil
}

// SaveProfile stores a user's structured profile.
func (s *MemoryStore) SaveProfile(ctx context.Context, userID string, profile *memory.Profile) error {
	if profile == nil {
		return fmt.Errorf("profile cannot be nil: %w", errorskg.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	clone := profile.Clone()
	clone.UpdatedAt = time.Now()
	s.profiles[userID] = clone
	return nil
}

// GetProfile returns a user's structured profile.
func (s *MemoryStore) GetProfile(ctx context.Context, userID string) (*memory.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[userID]
	if !ok {
		return nil, fmt.Errorf("profile %s: %w", userID, errorskg.ErrNotFound)
	}
	return p.Clone(), nil
}

// AddRecord stores a record, reporting false for duplicates.
func (s *MemoryStore) AddRecord(ctx context.Context, rec *memory.Record) (bool, error) {
	if rec == nil || rec.UserID == "" || rec.Content == "" {
		return false, fmt.Errorf("record needs user and content: %w", errorskg.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.records[rec.UserID] {
		if existing.Category == rec.Category && existing.Content == rec.Content {
			return false, nil
		}
	}

	clone := *rec
	if clone.ID == "" {
		clone.ID = uuid.NewString()
	}
	if clone.CreatedAt.IsZero() {
		clone.CreatedAt = time.Now()
	}
	s.records[rec.UserID] = append(s.records[rec.UserID], &clone)
	return true, nil
}

// Records lists a user's records, important first then newest first.
func (s *MemoryStore) Records(ctx context.Context, userID string) ([]*memory.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*memory.Record, 0, len(s.records[userID]))
	for _, rec := range s.records[userID] {
		clone := *rec
		out = append(out, &clone)
	}
	sortRecords(out)
	return out, nil
}

// RecordsByCategory lists a user's records in one category.
func (s *MemoryStore) RecordsByCategory(ctx context.Context, userID, category string) ([]*memory.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*memory.Record, 0)
	for _, rec := range s.records[userID] {
		if rec.Category == category {
			clone := *rec
			out = append(out, &clone)
		}
	}
	sortRecords(out)
	return out, nil
}

// DeleteRecord removes one record by its dedup key.
func (s *MemoryStore) DeleteRecord(ctx context.Context, userID, category, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	recs := s.records[userID]
	for i, rec := range recs {
		if rec.Category == category && rec.Content == content {
			s.records[userID] = append(recs[:i], recs[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("record %s/%s: %w", category, content, errorskg.ErrNotFound)
}

// ClearRecords removes all of a user's records.
func (s *MemoryStore) ClearRecords(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.records, userID)
	return nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error { return nil }

func sortRecords(recs []*memory.Record) {
	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].Important != recs[j].Important {
			return recs[i].Important
		}
		return recs[i].CreatedAt.After(recs[j].CreatedAt)
	})
}

var _ memory.Store = (*MemoryStore)(nil)
