package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"token-flow-lab/internal/domain"
	"token-flow-lab/internal/storage"
)

// EntityStore implements storage.EntityStore using PostgreSQL.
type EntityStore struct {
	pool *Pool
}

// NewEntityStore creates a new EntityStore.
func NewEntityStore(pool *Pool) *EntityStore {
	return &EntityStore{pool: pool}
}

// Compile-time interface check.
var _ storage.EntityStore = (*EntityStore)(nil)

// Upsert inserts or replaces an entity keyed by lowercase address.
func (s *EntityStore) Upsert(ctx context.Context, e *domain.KnownEntity) error {
	if e == nil || e.Address == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO known_entities (address, label, category, tags, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (address) DO UPDATE
		SET label = EXCLUDED.label, category = EXCLUDED.category, tags = EXCLUDED.tags
	`

	createdAt := e.CreatedAt
	if createdAt == 0 {
		createdAt = time.Now().Unix()
	}

	// nil would encode as SQL NULL and violate the NOT NULL constraint.
	tags := e.Tags
	if tags == nil {
		tags = []string{}
	}

	_, err := s.pool.Exec(ctx, query,
		strings.ToLower(e.Address),
		e.Label,
		string(e.Category),
		tags,
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("upsert entity: %w", err)
	}
	return nil
}

// GetByAddress retrieves an entity by address, case-insensitive.
func (s *EntityStore) GetByAddress(ctx context.Context, address string) (*domain.KnownEntity, error) {
	query := `
		SELECT address, label, category, tags, created_at
		FROM known_entities
		WHERE address = $1
	`

	var e domain.KnownEntity
	var category string
	err := s.pool.QueryRow(ctx, query, strings.ToLower(address)).Scan(
		&e.Address,
		&e.Label,
		&category,
		&e.Tags,
		&e.CreatedAt,
	)
	if err != nil {
		if isNoRowsError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get entity by address: %w", err)
	}

	e.Category = domain.EntityCategory(category)
	return &e, nil
}

// ListByCategory retrieves all entities of a category, ordered by address ASC.
func (s *EntityStore) ListByCategory(ctx context.Context, category domain.EntityCategory) ([]*domain.KnownEntity, error) {
	query := `
		SELECT address, label, category, tags, created_at
		FROM known_entities
		WHERE category = $1
		ORDER BY address ASC
	`

	rows, err := s.pool.Query(ctx, query, string(category))
	if err != nil {
		return nil, fmt.Errorf("list entities by category: %w", err)
	}
	defer rows.Close()

	return scanEntities(rows)
}

// List retrieves all entities, ordered by address ASC.
func (s *EntityStore) List(ctx context.Context) ([]*domain.KnownEntity, error) {
	query := `
		SELECT address, label, category, tags, created_at
		FROM known_entities
		ORDER BY address ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list entities: %w", err)
	}
	defer rows.Close()

	return scanEntities(rows)
}

// scanEntities scans multiple rows into a slice of KnownEntity.
func scanEntities(rows pgx.Rows) ([]*domain.KnownEntity, error) {
	var entities []*domain.KnownEntity

	for rows.Next() {
		var e domain.KnownEntity
		var category string

		err := rows.Scan(
			&e.Address,
			&e.Label,
			&category,
			&e.Tags,
			&e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan entity row: %w", err)
		}

		e.Category = domain.EntityCategory(category)
		entities = append(entities, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entity rows: %w", err)
	}

	return entities, nil
}
