// Package monguard is the public embedding surface of the risk engine.
//
// A host application constructs one Engine and calls it per request; the
// engine owns model handles, logging, and tracing but no transport or
// storage. All results are computed per call and discarded.
package monguard

import (
	"context"
	"fmt"
	"log/slog"

	"gonum.org/v1/gonum/mat"

	"github.com/monguard/riskengine/internal/config"
	"github.com/monguard/riskengine/internal/logging"
	"github.com/monguard/riskengine/internal/network"
	"github.com/monguard/riskengine/internal/pattern"
	"github.com/monguard/riskengine/internal/record"
	"github.com/monguard/riskengine/internal/risk"
	"github.com/monguard/riskengine/internal/traces"
)

// weightSeed keys the deterministic weight initialization used until a
// trained checkpoint overwrites the model parameters.
const weightSeed = 1

// Engine bundles the full assessment pipeline behind one handle.
// Stateless between calls; safe for concurrent use.
type Engine struct {
	cfg      *config.Config
	logger   *slog.Logger
	detector *pattern.Detector
	analyzer *network.Analyzer
	assessor *risk.Assessor
	fusion   *risk.Fusion

	shutdownTraces func(context.Context) error
}

// New loads configuration from the environment and assembles the engine.
// Tracing is enabled when OTEL_EXPORTER_OTLP_ENDPOINT is set; Close
// flushes it.
func New(ctx context.Context) (*Engine, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return NewWithConfig(ctx, cfg)
}

// NewWithConfig assembles the engine from an explicit configuration.
func NewWithConfig(ctx context.Context, cfg *config.Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	format := "text"
	if cfg.IsProduction() {
		format = "json"
	}
	logger := logging.New(cfg.LogLevel, format)

	shutdown, err := traces.Init(ctx, cfg.OTLPEndpoint, logger)
	if err != nil {
		return nil, fmt.Errorf("tracing: %w", err)
	}

	detector := pattern.NewDetector(pattern.NewAnalyzer(weightSeed), logger, cfg.SeqLen, cfg.AnomalyThreshold)
	analyzer := network.NewAnalyzer(network.NewWalletGNN(weightSeed), logger, cfg.LookbackWindow)

	logger.Info("risk engine ready",
		"env", cfg.Env,
		"seq_len", cfg.SeqLen,
		"lookback_window", cfg.LookbackWindow)

	return &Engine{
		cfg:            cfg,
		logger:         logger,
		detector:       detector,
		analyzer:       analyzer,
		assessor:       risk.NewAssessor(detector, analyzer, logger),
		fusion:         risk.NewFusion(weightSeed),
		shutdownTraces: shutdown,
	}, nil
}

// Close flushes tracing. Call once on host shutdown.
func (e *Engine) Close(ctx context.Context) error {
	return e.shutdownTraces(ctx)
}

// Config returns the effective configuration.
func (e *Engine) Config() *config.Config { return e.cfg }

// AssessTransaction scores one transaction given its wallet's history and
// optional network context, all as raw field maps.
func (e *Engine) AssessTransaction(ctx context.Context, tx map[string]any, history, networkTxs []map[string]any, wallets []map[string]any) (*risk.Assessment, error) {
	rec, err := record.TransactionFromMap(tx)
	if err != nil {
		return nil, fmt.Errorf("transaction: %w", err)
	}
	hist, err := record.TransactionsFromMaps(history)
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	ws, err := record.WalletsFromMaps(wallets)
	if err != nil {
		return nil, fmt.Errorf("wallets: %w", err)
	}
	ntx, err := record.TransactionsFromMaps(networkTxs)
	if err != nil {
		return nil, fmt.Errorf("network transactions: %w", err)
	}
	return e.assessor.AssessTransaction(ctx, rec, hist, ws, ntx)
}

// AssessWallet scores a wallet independent of any single transaction.
func (e *Engine) AssessWallet(ctx context.Context, address string, wallets, txs []map[string]any) (*risk.WalletAssessment, error) {
	ws, err := record.WalletsFromMaps(wallets)
	if err != nil {
		return nil, fmt.Errorf("wallets: %w", err)
	}
	ts, err := record.TransactionsFromMaps(txs)
	if err != nil {
		return nil, fmt.Errorf("transactions: %w", err)
	}
	return e.assessor.AssessWallet(ctx, address, ws, ts)
}

// DetectSuspiciousClusters returns weakly-connected groups of wallets
// whose risk score exceeds the configured cluster threshold.
func (e *Engine) DetectSuspiciousClusters(ctx context.Context, wallets, txs []map[string]any) ([][]string, error) {
	ws, err := record.WalletsFromMaps(wallets)
	if err != nil {
		return nil, fmt.Errorf("wallets: %w", err)
	}
	ts, err := record.TransactionsFromMaps(txs)
	if err != nil {
		return nil, fmt.Errorf("transactions: %w", err)
	}
	return e.assessor.DetectSuspiciousClusters(ctx, ws, ts, e.cfg.ClusterThreshold)
}

// FuseSignals runs the learned fusion network over a batch of transaction
// sequences against shared network context. This is the secondary,
// model-level signal; the auditable per-transaction verdict comes from
// AssessTransaction.
func (e *Engine) FuseSignals(ctx context.Context, sequences [][]map[string]any, wallets, txs []map[string]any) (*risk.FusionOutput, error) {
	_, span := traces.StartSpan(ctx, "risk.fuse_signals", traces.SequenceCount(len(sequences)))
	defer span.End()

	if len(sequences) == 0 {
		return nil, fmt.Errorf("fusion: no sequences")
	}
	ws, err := record.WalletsFromMaps(wallets)
	if err != nil {
		return nil, fmt.Errorf("wallets: %w", err)
	}
	ts, err := record.TransactionsFromMaps(txs)
	if err != nil {
		return nil, fmt.Errorf("transactions: %w", err)
	}
	seqs := make([][]record.Transaction, 0, len(sequences))
	for i, s := range sequences {
		rs, err := record.TransactionsFromMaps(s)
		if err != nil {
			return nil, fmt.Errorf("sequence %d: %w", i, err)
		}
		seqs = append(seqs, rs)
	}

	preds, err := e.detector.BatchAnalyze(seqs)
	if err != nil {
		return nil, err
	}
	analysis, err := e.analyzer.AnalyzeNetwork(ws, ts)
	if err != nil {
		return nil, err
	}
	if len(analysis.Wallets) == 0 {
		return nil, fmt.Errorf("fusion: no wallets in network context")
	}

	patternEmb := mat.NewDense(len(preds), pattern.EmbeddingDim, nil)
	for i, p := range preds {
		patternEmb.SetRow(i, p.Embedding)
	}
	networkEmb := mat.NewDense(len(analysis.Wallets), network.EmbeddingDim, nil)
	for i := range analysis.Wallets {
		networkEmb.SetRow(i, analysis.Wallets[i].Embedding)
	}

	return e.fusion.Forward(patternEmb, networkEmb)
}

// Submission shapes an assessment for the compliance sink.
func (e *Engine) Submission(address string, a *risk.Assessment) risk.Submission {
	return risk.NewSubmission(address, a)
}
