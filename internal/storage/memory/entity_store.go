package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"token-flow-lab/internal/domain"
	"token-flow-lab/internal/storage"
)

// EntityStore is an in-memory implementation of storage.EntityStore.
type EntityStore struct {
	mu   sync.RWMutex
	data map[string]*domain.KnownEntity // keyed by lowercase address
}

// NewEntityStore creates a new in-memory entity store.
func NewEntityStore() *EntityStore {
	return &EntityStore{
		data: make(map[string]*domain.KnownEntity),
	}
}

// Upsert inserts or replaces an entity keyed by lowercase address.
func (s *EntityStore) Upsert(_ context.Context, e *domain.KnownEntity) error {
	if e == nil || e.Address == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *e
	cp.Address = strings.ToLower(e.Address)
	if cp.CreatedAt == 0 {
		cp.CreatedAt = time.Now().Unix()
	}
	s.data[cp.Address] = &cp
	return nil
}

// GetByAddress retrieves an entity by address, case-insensitive.
func (s *EntityStore) GetByAddress(_ context.Context, address string) (*domain.KnownEntity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.data[strings.ToLower(address)]
	if !ok {
		return nil, storage.ErrNotFound
	}

	cp := *e
	return &cp, nil
}

// ListByCategory retrieves all entities of a category, ordered by address ASC.
func (s *EntityStore) ListByCategory(_ context.Context, category domain.EntityCategory) ([]*domain.KnownEntity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.KnownEntity
	for _, e := range s.data {
		if e.Category == category {
			cp := *e
			result = append(result, &cp)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Address < result[j].Address
	})

	return result, nil
}

// List retrieves all entities, ordered by address ASC.
func (s *EntityStore) List(_ context.Context) ([]*domain.KnownEntity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.KnownEntity, 0, len(s.data))
	for _, e := range s.data {
		cp := *e
		result = append(result, &cp)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Address < result[j].Address
	})

	return result, nil
}

var _ storage.EntityStore = (*EntityStore)(nil)
