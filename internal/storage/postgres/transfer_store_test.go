package postgres_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"token-flow-lab/internal/domain"
	"token-flow-lab/internal/storage/postgres"
)

func testRecord(hash string, timestamp int64) *domain.TransferRecord {
	return &domain.TransferRecord{
		Hash:         hash,
		From:         "0xsender",
		To:           "0xrecipient",
		Value:        "1000000000000000000",
		TokenAddress: "0xtoken",
		TokenSymbol:  "TKN",
		TokenName:    "Test Token",
		Decimals:     18,
		BlockNumber:  12345,
		Timestamp:    timestamp,
	}
}

func TestTransferStore_InsertManyAndQuery(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := postgres.NewTransferStore(pool)

	records := []*domain.TransferRecord{
		testRecord("0xaaa", 1000),
		testRecord("0xbbb", 2000),
	}

	inserted, err := store.InsertMany(ctx, "scope1", "mainnet", records)
	require.NoError(t, err)
	assert.Equal(t, 2, inserted)

	got, err := store.QueryByScope(ctx, "scope1", "mainnet")
	require.NoError(t, err)
	require.Len(t, got, 2)

	// timestamp DESC
	assert.Equal(t, "0xbbb", got[0].Hash)
	assert.Equal(t, "0xaaa", got[1].Hash)

	assert.Equal(t, "scope1", got[0].Scope)
	assert.Equal(t, "mainnet", got[0].Network)
	assert.Equal(t, "1000000000000000000", got[0].Value)
	assert.Equal(t, int32(18), got[0].Decimals)
	assert.Equal(t, int64(12345), got[0].BlockNumber)
	assert.NotZero(t, got[0].CreatedAt)
}

func TestTransferStore_InsertManyIdempotent(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := postgres.NewTransferStore(pool)

	records := []*domain.TransferRecord{
		testRecord("0xaaa", 1000),
		testRecord("0xbbb", 2000),
	}

	inserted, err := store.InsertMany(ctx, "scope1", "mainnet", records)
	require.NoError(t, err)
	assert.Equal(t, 2, inserted)

	// Re-inserting the same batch is a silent no-op.
	inserted, err = store.InsertMany(ctx, "scope1", "mainnet", records)
	require.NoError(t, err)
	assert.Equal(t, 0, inserted)

	// Mixed batch: one duplicate, one new.
	inserted, err = store.InsertMany(ctx, "scope1", "mainnet", []*domain.TransferRecord{
		testRecord("0xbbb", 2000),
		testRecord("0xccc", 3000),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)

	got, err := store.QueryByScope(ctx, "scope1", "mainnet")
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestTransferStore_ScopeIsolation(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := postgres.NewTransferStore(pool)

	// Same hash in two scopes and two networks is four distinct rows.
	_, err := store.InsertMany(ctx, "scope1", "mainnet", []*domain.TransferRecord{testRecord("0xaaa", 1000)})
	require.NoError(t, err)
	_, err = store.InsertMany(ctx, "scope2", "mainnet", []*domain.TransferRecord{testRecord("0xaaa", 1000)})
	require.NoError(t, err)
	_, err = store.InsertMany(ctx, "scope1", "sepolia", []*domain.TransferRecord{testRecord("0xaaa", 1000)})
	require.NoError(t, err)

	got, err := store.QueryByScope(ctx, "scope1", "mainnet")
	require.NoError(t, err)
	assert.Len(t, got, 1)

	got, err = store.QueryByScope(ctx, "scope1", "sepolia")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestTransferStore_MaxTimestamp(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := postgres.NewTransferStore(pool)

	max, err := store.MaxTimestamp(ctx, "scope1", "mainnet")
	require.NoError(t, err)
	assert.Equal(t, int64(0), max)

	_, err = store.InsertMany(ctx, "scope1", "mainnet", []*domain.TransferRecord{
		testRecord("0xaaa", 1000),
		testRecord("0xbbb", 5000),
		testRecord("0xccc", 3000),
	})
	require.NoError(t, err)

	max, err = store.MaxTimestamp(ctx, "scope1", "mainnet")
	require.NoError(t, err)
	assert.Equal(t, int64(5000), max)
}

func TestTransferStore_DeleteByScope(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := postgres.NewTransferStore(pool)

	_, err := store.InsertMany(ctx, "scope1", "mainnet", []*domain.TransferRecord{testRecord("0xaaa", 1000)})
	require.NoError(t, err)
	_, err = store.InsertMany(ctx, "scope2", "mainnet", []*domain.TransferRecord{testRecord("0xbbb", 2000)})
	require.NoError(t, err)

	err = store.DeleteByScope(ctx, "scope1", "mainnet")
	require.NoError(t, err)

	got, err := store.QueryByScope(ctx, "scope1", "mainnet")
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = store.QueryByScope(ctx, "scope2", "mainnet")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestTransferStore_LargeValuePrecision(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := postgres.NewTransferStore(pool)

	// 2^256 range values must round-trip without precision loss.
	rec := testRecord("0xbig", 1000)
	rec.Value = "115792089237316195423570985008687907853269984665640564039457584007913129639935"

	_, err := store.InsertMany(ctx, "scope1", "mainnet", []*domain.TransferRecord{rec})
	require.NoError(t, err)

	got, err := store.QueryByScope(ctx, "scope1", "mainnet")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, rec.Value, got[0].Value)
}
