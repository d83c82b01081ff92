// internal/storage/sqlite/sqlite_test.go
package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/jupiter-swap-service/internal/storage"
	"github.com/rovshanmuradov/jupiter-swap-service/internal/storage/models"
)

func newTestStorage(t *testing.T) storage.Storage {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "trades.db")
	store, err := NewStorage(dsn, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, store.RunMigrations())
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sampleTrade(user, txHash string, ts time.Time) *models.Trade {
	return &models.Trade{
		UserID:    user,
		Token:     "So11111111111111111111111111111111111111112",
		Side:      models.SideBuy,
		Amount:    decimal.RequireFromString("1.5"),
		Price:     decimal.RequireFromString("2.25"),
		TxHash:    txHash,
		Timestamp: ts,
	}
}

func TestAppendAndReadBack(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	persisted, err := store.Append(ctx, sampleTrade("user-1", "tx-1", now))
	require.NoError(t, err)
	assert.NotZero(t, persisted.ID, "журнал присваивает автоинкрементный идентификатор")

	// Чтение сразу после записи обязано видеть сделку (read-your-write).
	trades, err := store.ListByUser(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, trades, 1)

	got := trades[0]
	assert.Equal(t, "user-1", got.UserID)
	assert.Equal(t, models.SideBuy, got.Side)
	assert.True(t, got.Amount.Equal(decimal.RequireFromString("1.5")))
	assert.True(t, got.Price.Equal(decimal.RequireFromString("2.25")))
	assert.Equal(t, "tx-1", got.TxHash)
}

func TestListByUserFiltersAndOrders(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Second)

	_, err := store.Append(ctx, sampleTrade("user-1", "tx-b", base.Add(time.Minute)))
	require.NoError(t, err)
	_, err = store.Append(ctx, sampleTrade("user-1", "tx-a", base))
	require.NoError(t, err)
	_, err = store.Append(ctx, sampleTrade("user-2", "tx-c", base))
	require.NoError(t, err)

	trades, err := store.ListByUser(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, trades, 2)
	assert.Equal(t, "tx-a", trades[0].TxHash, "сортировка по времени фиксации")
	assert.Equal(t, "tx-b", trades[1].TxHash)

	other, err := store.ListByUser(ctx, "user-2")
	require.NoError(t, err)
	require.Len(t, other, 1)
	assert.Equal(t, "tx-c", other[0].TxHash)
}

func TestListByUserEmpty(t *testing.T) {
	store := newTestStorage(t)

	trades, err := store.ListByUser(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, trades)
}

func TestDuplicateTxHashRejected(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	now := time.Now().UTC()

	_, err := store.Append(ctx, sampleTrade("user-1", "tx-dup", now))
	require.NoError(t, err)

	_, err = store.Append(ctx, sampleTrade("user-1", "tx-dup", now.Add(time.Second)))
	assert.Error(t, err, "tx_hash уникален: одна on-chain транзакция — одна запись")
}
