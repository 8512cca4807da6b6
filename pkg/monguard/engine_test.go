package monguard

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/monguard/riskengine/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		Env:              "development",
		LogLevel:         "error",
		SeqLen:           config.DefaultSeqLen,
		LookbackWindow:   config.DefaultLookbackWindow,
		AnomalyThreshold: config.DefaultAnomalyThreshold,
		ClusterThreshold: config.DefaultClusterThreshold,
	}
}

func TestEngineAssessTransaction(t *testing.T) {
	e, err := NewWithConfig(context.Background(), testConfig())
	require.NoError(t, err)
	defer e.Close(context.Background())

	tx := map[string]any{"from": "a", "to": "b", "amount": 9500.0, "timestamp": 1700000000.0}
	wallets := []map[string]any{
		{"address": "a", "balance": 100.0, "transaction_count": 20.0},
		{"address": "b", "balance": 50.0},
	}

	got, err := e.AssessTransaction(context.Background(), tx, nil, nil, wallets)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, got.RiskScore, 0.0)
	assert.LessOrEqual(t, got.RiskScore, 1.0)
	assert.NotEmpty(t, got.RiskLevel)
	assert.NotEmpty(t, got.Recommendations)
}

func TestEngineAssessTransactionRejectsBadField(t *testing.T) {
	e, err := NewWithConfig(context.Background(), testConfig())
	require.NoError(t, err)
	defer e.Close(context.Background())

	_, err = e.AssessTransaction(context.Background(),
		map[string]any{"amount": "not-a-number"}, nil, nil, nil)
	assert.Error(t, err)
}

func TestEngineAssessWalletNotFound(t *testing.T) {
	e, err := NewWithConfig(context.Background(), testConfig())
	require.NoError(t, err)
	defer e.Close(context.Background())

	wallets := []map[string]any{{"address": "a", "balance": 1.0}}
	got, err := e.AssessWallet(context.Background(), "missing", wallets, nil)
	require.NoError(t, err)
	assert.False(t, got.Found)
}

func TestEngineDetectSuspiciousClusters(t *testing.T) {
	e, err := NewWithConfig(context.Background(), testConfig())
	require.NoError(t, err)
	defer e.Close(context.Background())

	wallets := []map[string]any{
		{"address": "a", "balance": 1.0},
		{"address": "b", "balance": 2.0},
	}
	txs := []map[string]any{{"from": "a", "to": "b", "amount": 5.0}}

	clusters, err := e.DetectSuspiciousClusters(context.Background(), wallets, txs)
	require.NoError(t, err)
	// Untrained weights give arbitrary scores; only the shape is stable.
	for _, c := range clusters {
		assert.NotEmpty(t, c)
	}
}

func TestEngineFuseSignals(t *testing.T) {
	e, err := NewWithConfig(context.Background(), testConfig())
	require.NoError(t, err)
	defer e.Close(context.Background())

	sequences := [][]map[string]any{
		{{"amount": 100.0, "timestamp": 1700000000.0}},
		{{"amount": 9000.0, "timestamp": 1700000100.0}},
	}
	wallets := []map[string]any{
		{"address": "a", "balance": 1.0},
		{"address": "b", "balance": 2.0},
	}
	txs := []map[string]any{{"from": "a", "to": "b", "amount": 5.0}}

	out, err := e.FuseSignals(context.Background(), sequences, wallets, txs)
	require.NoError(t, err)

	require.Len(t, out.RiskScores, 2)
	require.Len(t, out.Confidence, 2)
	for i := range out.RiskScores {
		assert.GreaterOrEqual(t, out.RiskScores[i], 0.0)
		assert.LessOrEqual(t, out.RiskScores[i], 1.0)
	}
	lr, lc := out.LevelLogits.Dims()
	assert.Equal(t, 2, lr)
	assert.Equal(t, 4, lc)
}

func TestEngineFuseSignalsRequiresInput(t *testing.T) {
	e, err := NewWithConfig(context.Background(), testConfig())
	require.NoError(t, err)
	defer e.Close(context.Background())

	_, err = e.FuseSignals(context.Background(), nil, nil, nil)
	assert.Error(t, err)

	sequences := [][]map[string]any{{{"amount": 1.0}}}
	_, err = e.FuseSignals(context.Background(), sequences, nil, nil)
	assert.Error(t, err)
}

func TestEngineRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.SeqLen = -1
	_, err := NewWithConfig(context.Background(), cfg)
	assert.Error(t, err)
}
