package record

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactionFromMapCoercion(t *testing.T) {
	tx, err := TransactionFromMap(map[string]any{
		"amount":         "1500.5",
		"timestamp":      int64(1700000000),
		"gas_price":      json.Number("20"),
		"to_is_contract": true,
		"from":           "0xAbC0000000000000000000000000000000000001",
		"to":             "walletB",
	})
	require.NoError(t, err)

	assert.Equal(t, 1500.5, tx.Amount)
	assert.Equal(t, float64(1700000000), tx.Timestamp)
	assert.Equal(t, 20.0, tx.GasPrice)
	assert.Equal(t, 1.0, tx.ToIsContract)
	assert.Equal(t, "0xabc0000000000000000000000000000000000001", tx.From)
	assert.Equal(t, "walletB", tx.To)
}

func TestTransactionFromMapDefaults(t *testing.T) {
	tx, err := TransactionFromMap(map[string]any{})
	require.NoError(t, err)

	assert.Zero(t, tx.Amount)
	assert.Zero(t, tx.GasUsed)
	assert.Zero(t, tx.TimeSinceLastTx)
	// success defaults to 1, matching the edge feature convention
	assert.Equal(t, 1.0, tx.Success)
}

func TestTransactionFromMapRejectsNonNumeric(t *testing.T) {
	_, err := TransactionFromMap(map[string]any{"amount": "lots"})
	require.Error(t, err)

	var ce *CoerceError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "amount", ce.Field)
}

func TestWalletFromMap(t *testing.T) {
	w, err := WalletFromMap(map[string]any{
		"address":           "0xABC0000000000000000000000000000000000001",
		"balance":           100,
		"total_volume":      20000.0,
		"account_age":       10,
		"transaction_count": 2000,
	})
	require.NoError(t, err)

	assert.Equal(t, "0xabc0000000000000000000000000000000000001", w.Address)
	assert.Equal(t, 100.0, w.Balance)
	assert.Equal(t, 20000.0, w.TotalVolume)
	assert.Zero(t, w.LastActivity)
}

func TestWalletsFromMapsReportsIndex(t *testing.T) {
	_, err := WalletsFromMaps([]map[string]any{
		{"address": "a", "balance": 1},
		{"address": "b", "balance": map[string]any{}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wallet 1")
}

func TestNormalizeAddress(t *testing.T) {
	assert.Equal(t,
		"0xabc0000000000000000000000000000000000001",
		NormalizeAddress("  0xABC0000000000000000000000000000000000001 "))
	assert.Equal(t, "not-an-address", NormalizeAddress(" not-an-address"))
}
