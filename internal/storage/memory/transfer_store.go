package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"token-flow-lab/internal/domain"
	"token-flow-lab/internal/storage"
)

// TransferStore is an in-memory implementation of storage.TransferStore.
type TransferStore struct {
	mu   sync.RWMutex
	data map[string]*domain.TransferRecord // keyed by composite key
}

// NewTransferStore creates a new in-memory transfer store.
func NewTransferStore() *TransferStore {
	return &TransferStore{
		data: make(map[string]*domain.TransferRecord),
	}
}

// transferKey generates a unique key for a cached transfer.
func transferKey(scope, network, hash string) string {
	return fmt.Sprintf("%s|%s|%s", scope, network, hash)
}

// InsertMany adds records, silently skipping duplicates on
// (scope, network, hash). Returns the number actually inserted.
func (s *TransferStore) InsertMany(_ context.Context, scope, network string, records []*domain.TransferRecord) (int, error) {
	if scope == "" || network == "" {
		return 0, storage.ErrInvalidInput
	}
	if len(records) == 0 {
		return 0, nil
	}

	now := time.Now().Unix()

	s.mu.Lock()
	defer s.mu.Unlock()

	inserted := 0
	for _, rec := range records {
		if rec == nil || rec.Hash == "" {
			return inserted, storage.ErrInvalidInput
		}

		key := transferKey(scope, network, rec.Hash)
		if _, exists := s.data[key]; exists {
			continue
		}

		cp := *rec
		cp.Scope = scope
		cp.Network = network
		cp.CreatedAt = now
		s.data[key] = &cp
		inserted++
	}

	return inserted, nil
}

// QueryByScope retrieves all records for a scope, ordered by timestamp DESC,
// hash ASC tie-break.
func (s *TransferStore) QueryByScope(_ context.Context, scope, network string) ([]*domain.TransferRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TransferRecord
	for _, rec := range s.data {
		if rec.Scope == scope && rec.Network == network {
			cp := *rec
			result = append(result, &cp)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Timestamp != result[j].Timestamp {
			return result[i].Timestamp > result[j].Timestamp
		}
		return result[i].Hash < result[j].Hash
	})

	return result, nil
}

// MaxTimestamp returns the most recent cached timestamp for a scope, 0 if empty.
func (s *TransferStore) MaxTimestamp(_ context.Context, scope, network string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var max int64
	for _, rec := range s.data {
		if rec.Scope == scope && rec.Network == network && rec.Timestamp > max {
			max = rec.Timestamp
		}
	}

	return max, nil
}

// DeleteByScope removes all records for a scope.
func (s *TransferStore) DeleteByScope(_ context.Context, scope, network string) error {
	if scope == "" || network == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for key, rec := range s.data {
		if rec.Scope == scope && rec.Network == network {
			delete(s.data, key)
		}
	}

	return nil
}

var _ storage.TransferStore = (*TransferStore)(nil)
