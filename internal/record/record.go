// Package record models the loosely-typed transaction and wallet records
// handed to the engine by the ingestion collaborator. Fields are optional;
// anything missing coerces to zero at this boundary so downstream feature
// extraction never has to branch on presence.
package record

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Transaction is a single observed transaction. Immutable once built.
type Transaction struct {
	Amount               float64
	Timestamp            float64
	GasPrice             float64
	GasUsed              float64
	FromBalance          float64
	ToBalance            float64
	FromTransactionCount float64
	ToTransactionCount   float64
	TimeSinceLastTx      float64
	UniqueCounterparties float64
	AvgTransactionAmount float64
	ToIsContract         float64
	Success              float64 // defaults to 1 when absent
	From                 string
	To                   string
}

// Wallet is the per-address aggregate maintained by upstream ingestion.
type Wallet struct {
	Address              string
	Balance              float64
	TransactionCount     float64
	UniqueCounterparties float64
	AvgTransactionAmount float64
	MaxTransactionAmount float64
	TotalVolume          float64
	AccountAge           float64
	LastActivity         float64
	RecentActivityLevel  float64
}

// CoerceError reports a field whose value could not be coerced to float64.
// It is the only hard failure this package produces; missing fields are
// soft and default to zero.
type CoerceError struct {
	Field string
	Value any
}

func (e *CoerceError) Error() string {
	return fmt.Sprintf("record: field %q has non-numeric value %v (%T)", e.Field, e.Value, e.Value)
}

// TransactionFromMap coerces a loose key/value record into a Transaction.
// Missing fields default to zero, except success which defaults to 1.
func TransactionFromMap(m map[string]any) (Transaction, error) {
	tx := Transaction{Success: 1}

	fields := []struct {
		key string
		dst *float64
	}{
		{"amount", &tx.Amount},
		{"timestamp", &tx.Timestamp},
		{"gas_price", &tx.GasPrice},
		{"gas_used", &tx.GasUsed},
		{"from_balance", &tx.FromBalance},
		{"to_balance", &tx.ToBalance},
		{"from_transaction_count", &tx.FromTransactionCount},
		{"to_transaction_count", &tx.ToTransactionCount},
		{"time_since_last_tx", &tx.TimeSinceLastTx},
		{"unique_counterparties", &tx.UniqueCounterparties},
		{"avg_transaction_amount", &tx.AvgTransactionAmount},
		{"to_is_contract", &tx.ToIsContract},
		{"success", &tx.Success},
	}
	for _, f := range fields {
		v, ok := m[f.key]
		if !ok || v == nil {
			continue
		}
		fv, err := toFloat(f.key, v)
		if err != nil {
			return Transaction{}, err
		}
		*f.dst = fv
	}

	if v, ok := m["from"]; ok && v != nil {
		tx.From = NormalizeAddress(fmt.Sprintf("%v", v))
	}
	if v, ok := m["to"]; ok && v != nil {
		tx.To = NormalizeAddress(fmt.Sprintf("%v", v))
	}
	return tx, nil
}

// WalletFromMap coerces a loose key/value record into a Wallet.
func WalletFromMap(m map[string]any) (Wallet, error) {
	var w Wallet

	fields := []struct {
		key string
		dst *float64
	}{
		{"balance", &w.Balance},
		{"transaction_count", &w.TransactionCount},
		{"unique_counterparties", &w.UniqueCounterparties},
		{"avg_transaction_amount", &w.AvgTransactionAmount},
		{"max_transaction_amount", &w.MaxTransactionAmount},
		{"total_volume", &w.TotalVolume},
		{"account_age", &w.AccountAge},
		{"last_activity", &w.LastActivity},
		{"recent_activity_level", &w.RecentActivityLevel},
	}
	for _, f := range fields {
		v, ok := m[f.key]
		if !ok || v == nil {
			continue
		}
		fv, err := toFloat(f.key, v)
		if err != nil {
			return Wallet{}, err
		}
		*f.dst = fv
	}

	if v, ok := m["address"]; ok && v != nil {
		w.Address = NormalizeAddress(fmt.Sprintf("%v", v))
	}
	return w, nil
}

// TransactionsFromMaps coerces a slice of loose records, failing on the
// first field that cannot coerce.
func TransactionsFromMaps(ms []map[string]any) ([]Transaction, error) {
	txs := make([]Transaction, 0, len(ms))
	for i, m := range ms {
		tx, err := TransactionFromMap(m)
		if err != nil {
			return nil, fmt.Errorf("transaction %d: %w", i, err)
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

// WalletsFromMaps coerces a slice of loose wallet records.
func WalletsFromMaps(ms []map[string]any) ([]Wallet, error) {
	ws := make([]Wallet, 0, len(ms))
	for i, m := range ms {
		w, err := WalletFromMap(m)
		if err != nil {
			return nil, fmt.Errorf("wallet %d: %w", i, err)
		}
		ws = append(ws, w)
	}
	return ws, nil
}

// NormalizeAddress lower-cases hex addresses so lookups are
// case-insensitive. Non-hex identifiers (test fixtures, foreign chains)
// pass through trimmed but otherwise untouched.
func NormalizeAddress(addr string) string {
	addr = strings.TrimSpace(addr)
	if common.IsHexAddress(addr) {
		return strings.ToLower(common.HexToAddress(addr).Hex())
	}
	return addr
}

// toFloat coerces the dynamic value types that survive JSON decoding and
// direct construction. Anything else is a CoerceError.
func toFloat(field string, v any) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case float32:
		return float64(t), nil
	case int:
		return float64(t), nil
	case int32:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case uint64:
		return float64(t), nil
	case bool:
		if t {
			return 1, nil
		}
		return 0, nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0, &CoerceError{Field: field, Value: v}
		}
		return f, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, &CoerceError{Field: field, Value: v}
		}
		return f, nil
	default:
		return 0, &CoerceError{Field: field, Value: v}
	}
}
