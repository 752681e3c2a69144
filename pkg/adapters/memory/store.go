package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/civicchat/orchestra/pkg/domain"
)

// Store implements ports.ThreadStore in memory. Threads live as long as the
// process. Safe for concurrent use.
type Store struct {
	data map[string][]domain.Message
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string][]domain.Message),
	}
}

// Save replaces the thread history.
func (s *Store) Save(ctx context.Context, id string, messages []domain.Message) error {
	// Copy to ensure isolation, similar to serialization
	copied := slices.Clone(messages)
	if copied == nil {
		copied = []domain.Message{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[id] = copied
	return nil
}

// Load retrieves the thread history.
func (s *Store) Load(ctx context.Context, id string) ([]domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs, ok := s.data[id]
	if !ok {
		return nil, domain.ErrThreadNotFound
	}
	// Copy on read so callers can't mutate the stored slice.
	return slices.Clone(msgs), nil
}

// Delete removes the thread.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, id)
	return nil
}

// List returns the stored thread ids, sorted.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}
