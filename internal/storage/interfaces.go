package storage

import (
	"context"

	"token-flow-lab/internal/domain"
)

// TransferStore provides access to the durable transfer cache.
//
// All mutation is append-only: inserts are idempotent on
// (scope, network, hash) and conflicts are skipped silently, never raised.
// The only destructive operation is DeleteByScope, which must never reach
// across scope boundaries.
type TransferStore interface {
	// InsertMany adds records for a scope, skipping any whose
	// (scope, network, hash) already exists. Returns the number of
	// records actually inserted.
	InsertMany(ctx context.Context, scope, network string, records []*domain.TransferRecord) (int, error)

	// QueryByScope retrieves all cached records for a scope, ordered by
	// timestamp DESC with hash ASC as tie-break.
	QueryByScope(ctx context.Context, scope, network string) ([]*domain.TransferRecord, error)

	// MaxTimestamp returns the most recent cached timestamp for a scope,
	// or 0 if nothing is cached. This is the sync cursor source and must
	// be recomputed from the store on every call.
	MaxTimestamp(ctx context.Context, scope, network string) (int64, error)

	// DeleteByScope removes all cached records for a scope (cache
	// invalidation). Other scopes are untouched.
	DeleteByScope(ctx context.Context, scope, network string) error
}

// EntityStore provides access to operator-labeled known entities.
type EntityStore interface {
	// Upsert inserts or replaces an entity keyed by lowercase address.
	Upsert(ctx context.Context, e *domain.KnownEntity) error

	// GetByAddress retrieves an entity by address (case-insensitive).
	// Returns ErrNotFound if the address is not labeled.
	GetByAddress(ctx context.Context, address string) (*domain.KnownEntity, error)

	// ListByCategory retrieves all entities of a category, ordered by
	// address ASC.
	ListByCategory(ctx context.Context, category domain.EntityCategory) ([]*domain.KnownEntity, error)

	// List retrieves all entities, ordered by address ASC.
	List(ctx context.Context) ([]*domain.KnownEntity, error)
}
