// Package inmemory provides a process-local vector store. It backs the
// knowledge base in tests and in deployments without a pgvector database.
package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	errorskg "github.com/sweetpotato0/health-agent/errors"
	"github.com/sweetpotato0/health-agent/vector"
)

// Store implements vector.Store with a mutex-guarded map.
type Store struct {
	entries map[string]*vector.Entry
	mu      sync.RWMutex
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{entries: make(map[string]*vector.Entry)}
}

// Upsert inserts or replaces an entry by ID.
func (s *Store) Upsert(ctx context.Context, entry *vector.Entry) error {
	if entry == nil {
		return fmt.Errorf("entry cannot be nil: %w", errorskg.ErrInvalidInput)
	}
	if entry.ID == "" {
		return fmt.Errorf("entry ID cannot be empty: %w", errorskg.ErrInvalidInput)
	}
	if len(entry.Vector) == 0 {
		return fmt.Errorf("entry vector cannot be empty: %w", errorskg.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[entry.ID] = entry
	return nil
}

// Search returns the topK most similar entries by cosine similarity.
func (s *Store) Search(ctx context.Context, queryVector []float32, topK int) ([]*vector.Entry, error) {
	if len(queryVector) == 0 {
		return nil, fmt.Errorf("query vector cannot be empty: %w", errorskg.ErrInvalidInput)
	}
	if topK <= 0 {
		topK = 10
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	type scored struct {
		entry      *vector.Entry
		similarity float32
	}
	results := make([]scored, 0, len(s.entries))
	for _, e := range s.entries {
		if len(e.Vector) != len(queryVector) {
			continue
		}
		results = append(results, scored{
			entry:      e,
			similarity: vector.CosineSimilarity(queryVector, e.Vector),
		})
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].similarity > results[j].similarity
	})

	limit := topK
	if limit > len(results) {
		limit = len(results)
	}
	entries := make([]*vector.Entry, limit)
	for i := 0; i < limit; i++ {
		entries[i] = results[i].entry
	}
	return entries, nil
}

// Delete removes an entry by ID.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[id]; !ok {
		return fmt.Errorf("entry %s: %w", id, errorskg.ErrNotFound)
	}
	delete(s.entries, id)
	return nil
}

// Get retrieves an entry by ID.
func (s *Store) Get(ctx context.Context, id string) (*vector.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[id]
	if !ok {
		return nil, fmt.Errorf("entry %s: %w", id, errorskg.ErrNotFound)
	}
	return e, nil
}

// Clear removes all entries.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make(map[string]*vector.Entry)
	return nil
}

// Count returns the number of entries.
func (s *Store) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.entries), nil
}
