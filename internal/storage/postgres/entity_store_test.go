package postgres_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"token-flow-lab/internal/domain"
	"token-flow-lab/internal/storage"
	"token-flow-lab/internal/storage/postgres"
)

func TestEntityStore_UpsertAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := postgres.NewEntityStore(pool)

	err := store.Upsert(ctx, &domain.KnownEntity{
		Address:  "0xABCDEF",
		Label:    "Binance Hot Wallet",
		Category: domain.CategoryExchange,
		Tags:     []string{"cex", "hot-wallet"},
	})
	require.NoError(t, err)

	got, err := store.GetByAddress(ctx, "0xAbCdEf")
	require.NoError(t, err)

	assert.Equal(t, "0xabcdef", got.Address)
	assert.Equal(t, "Binance Hot Wallet", got.Label)
	assert.Equal(t, domain.CategoryExchange, got.Category)
	assert.Equal(t, []string{"cex", "hot-wallet"}, got.Tags)
	assert.NotZero(t, got.CreatedAt)
}

func TestEntityStore_UpsertReplaces(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := postgres.NewEntityStore(pool)

	err := store.Upsert(ctx, &domain.KnownEntity{Address: "0x1", Label: "old", Category: domain.CategoryWallet})
	require.NoError(t, err)

	err = store.Upsert(ctx, &domain.KnownEntity{Address: "0x1", Label: "new", Category: domain.CategoryExchange})
	require.NoError(t, err)

	got, err := store.GetByAddress(ctx, "0x1")
	require.NoError(t, err)
	assert.Equal(t, "new", got.Label)
	assert.Equal(t, domain.CategoryExchange, got.Category)

	all, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestEntityStore_ListByCategory(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := postgres.NewEntityStore(pool)

	entities := []*domain.KnownEntity{
		{Address: "0xc", Category: domain.CategoryExchange},
		{Address: "0xa", Category: domain.CategoryExchange},
		{Address: "0xb", Category: domain.CategoryVesting},
	}
	for _, e := range entities {
		require.NoError(t, store.Upsert(ctx, e))
	}

	exchanges, err := store.ListByCategory(ctx, domain.CategoryExchange)
	require.NoError(t, err)
	require.Len(t, exchanges, 2)
	assert.Equal(t, "0xa", exchanges[0].Address)
	assert.Equal(t, "0xc", exchanges[1].Address)
}

func TestEntityStore_GetNotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := postgres.NewEntityStore(pool)

	_, err := store.GetByAddress(context.Background(), "0xmissing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
