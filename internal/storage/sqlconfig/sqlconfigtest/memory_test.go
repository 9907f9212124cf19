package sqlconfigtest

import (
	"context"
	"testing"

	"github.com/gofrs/uuid/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carson-networks/wallet-server/internal/storage/sqlconfig"
)

func TestAccounts_UpdateBalanceVersionCheck(t *testing.T) {
	ctx := context.Background()
	accounts := NewAccounts()
	id := accounts.Seed("NGN", decimal.NewFromInt(100))

	require.NoError(t, accounts.UpdateBalance(ctx, id, decimal.NewFromInt(90), 0))
	err := accounts.UpdateBalance(ctx, id, decimal.NewFromInt(80), 0)
	assert.ErrorIs(t, err, sqlconfig.ErrVersionConflict)

	row, err := accounts.FindByID(ctx, id)
	require.NoError(t, err)
	assert.True(t, row.Balance.Equal(decimal.NewFromInt(90)))
	assert.Equal(t, int64(1), row.Version)
}

func TestTransactions_UpsertKeepsTerminalStatus(t *testing.T) {
	ctx := context.Background()
	txs := NewTransactions()
	id := uuid.Must(uuid.NewV4())

	_, err := txs.Upsert(ctx, &sqlconfig.Transaction{ID: id, Status: sqlconfig.StatusPending})
	require.NoError(t, err)
	stored, err := txs.Upsert(ctx, &sqlconfig.Transaction{ID: id, Status: sqlconfig.StatusSuccess, ProviderRef: "FLW-1"})
	require.NoError(t, err)
	assert.Equal(t, sqlconfig.StatusSuccess, stored.Status)

	stored, err = txs.Upsert(ctx, &sqlconfig.Transaction{ID: id, Status: sqlconfig.StatusPending})
	require.NoError(t, err)
	assert.Equal(t, sqlconfig.StatusSuccess, stored.Status)
	assert.Equal(t, "FLW-1", stored.ProviderRef)
}

func TestTransactions_ListPaging(t *testing.T) {
	ctx := context.Background()
	txs := NewTransactions()
	accountID := uuid.Must(uuid.NewV4())
	for i := 0; i < 5; i++ {
		_, err := txs.Upsert(ctx, &sqlconfig.Transaction{ID: uuid.Must(uuid.NewV4()), AccountID: accountID})
		require.NoError(t, err)
	}

	rows, err := txs.List(ctx, &sqlconfig.TransactionFilter{AccountID: &accountID, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	rows, err = txs.List(ctx, &sqlconfig.TransactionFilter{AccountID: &accountID, Limit: 2, Offset: 4})
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
