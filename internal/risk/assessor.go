package risk

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/monguard/riskengine/internal/metrics"
	"github.com/monguard/riskengine/internal/network"
	"github.com/monguard/riskengine/internal/pattern"
	"github.com/monguard/riskengine/internal/record"
	"github.com/monguard/riskengine/internal/traces"
)

// Informational factor weights surfaced in explanations.
const (
	weightPattern    = 0.4
	weightNetwork    = 0.3
	weightHistorical = 0.3
)

// Thresholds on the final mean score.
const (
	factorThreshold     = 0.5
	reviewThreshold     = 0.7
	blockThreshold      = 0.9
	monitoringThreshold = 0.5
)

// communityRisk maps a community classification to a baseline risk score.
// Unknown communities score the same as OTHER.
var communityRisk = map[string]float64{
	"NORMAL":          0.1,
	"EXCHANGE":        0.2,
	"MIXER":           0.9,
	"GAMBLING":        0.6,
	"DEFI_PROTOCOL":   0.3,
	"NFT_MARKETPLACE": 0.2,
	"SCAM":            1.0,
	"SANCTIONED":      1.0,
	"MINING_POOL":     0.1,
	"OTHER":           0.5,
}

// Assessor runs the full rule-based assessment pipeline. Stateless; safe
// for concurrent use.
type Assessor struct {
	detector *pattern.Detector
	analyzer *network.Analyzer
	logger   *slog.Logger
}

// NewAssessor wires the two signal sources into an assessor.
func NewAssessor(detector *pattern.Detector, analyzer *network.Analyzer, logger *slog.Logger) *Assessor {
	return &Assessor{detector: detector, analyzer: analyzer, logger: logger}
}

// AssessTransaction scores one transaction. history is the subject
// wallet's preceding transactions, oldest first; wallets and their
// transactions are optional network context. The final score is the
// arithmetic mean of the pattern anomaly score, the historical-behavior
// score (always present, zero without wallet context), and the subject's
// network risk when the network analysis locates it.
func (a *Assessor) AssessTransaction(ctx context.Context, tx record.Transaction, history []record.Transaction, wallets []record.Wallet, networkTxs []record.Transaction) (*Assessment, error) {
	ctx, span := traces.StartSpan(ctx, "risk.assess_transaction", traces.WalletAddr(tx.From))
	defer span.End()
	start := time.Now()

	seq := make([]record.Transaction, 0, len(history)+1)
	seq = append(seq, history...)
	seq = append(seq, tx)

	pred, err := a.detector.Analyze(seq)
	if err != nil {
		return nil, fmt.Errorf("pattern detection: %w", err)
	}
	metrics.PatternDetectionsTotal.WithLabelValues(pred.PatternType).Inc()

	var scores []float64
	var factors []Factor

	scores = append(scores, pred.AnomalyScore)
	if pred.AnomalyScore > factorThreshold {
		factors = append(factors, Factor{
			Factor:     fmt.Sprintf("Suspicious pattern detected: %s", pred.PatternType),
			Type:       "pattern",
			Confidence: pred.PatternConfidence,
			Weight:     weightPattern,
		})
	}

	communityType := ""
	if len(wallets) > 0 {
		analysis, err := a.analyzer.AnalyzeNetwork(wallets, networkTxs)
		if err != nil {
			return nil, fmt.Errorf("network analysis: %w", err)
		}
		// No match means the network contribution is omitted, not an error.
		if wa, ok := analysis.Lookup(tx.From); ok {
			scores = append(scores, wa.RiskScore)
			communityType = wa.CommunityType
			if wa.RiskScore > factorThreshold {
				factors = append(factors, Factor{
					Factor:     fmt.Sprintf("High-risk network position (community: %s)", wa.CommunityType),
					Type:       "network",
					Confidence: wa.CommunityConfidence,
					Weight:     weightNetwork,
				})
			}
		}
	}

	// Historical behavior always enters the mean; an absent wallet context
	// scores as a zero-valued wallet and averages the result down.
	subject, _ := findWallet(wallets, tx.From)
	hist := historicalRisk(subject)
	scores = append(scores, hist)
	if hist > factorThreshold {
		factors = append(factors, Factor{
			Factor:     "Anomalous historical behavior",
			Type:       "historical",
			Confidence: hist,
			Weight:     weightHistorical,
		})
	}

	score := mean(scores)
	level := scoreToLevel(score)

	assessment := &Assessment{
		RiskScore:       score,
		RiskLevel:       level,
		Factors:         factors,
		Recommendations: Recommendations(score, pred.PatternType, communityType),
		RequiresReview:  score > reviewThreshold,
		ShouldBlock:     score > blockThreshold,
	}

	metrics.AssessmentsTotal.WithLabelValues(string(level)).Inc()
	metrics.AssessmentDuration.Observe(time.Since(start).Seconds())
	if assessment.ShouldBlock {
		metrics.BlockedTotal.Inc()
	}
	span.SetAttributes(traces.RiskScore(score), traces.RiskLevel(string(level)))

	a.logger.Info("transaction assessed",
		"from", tx.From,
		"score", score,
		"level", level,
		"factors", len(factors),
		"should_block", assessment.ShouldBlock)

	return assessment, nil
}

// AssessWallet scores a wallet independent of any single transaction. The
// score is the mean of the network risk, the pattern risk over the
// wallet's last transactions (0 when it has none), and the community
// baseline. An address outside the wallet set yields Found=false, not an
// error.
func (a *Assessor) AssessWallet(ctx context.Context, address string, wallets []record.Wallet, txs []record.Transaction) (*WalletAssessment, error) {
	ctx, span := traces.StartSpan(ctx, "risk.assess_wallet", traces.WalletAddr(address))
	defer span.End()

	address = record.NormalizeAddress(address)

	analysis, err := a.analyzer.AnalyzeNetwork(wallets, txs)
	if err != nil {
		return nil, fmt.Errorf("network analysis: %w", err)
	}
	wa, ok := analysis.Lookup(address)
	if !ok {
		a.logger.Warn("wallet not found in network", "address", address)
		return &WalletAssessment{Address: address, Found: false}, nil
	}

	patternRisk := 0.0
	if own := walletTransactions(address, txs, a.detector.SeqLen()); len(own) > 0 {
		pred, err := a.detector.Analyze(own)
		if err != nil {
			return nil, fmt.Errorf("pattern detection: %w", err)
		}
		patternRisk = pred.AnomalyScore
	}

	commRisk, ok := communityRisk[wa.CommunityType]
	if !ok {
		commRisk = communityRisk["OTHER"]
	}

	score := mean([]float64{wa.RiskScore, patternRisk, commRisk})
	level := scoreToLevel(score)
	span.SetAttributes(traces.RiskScore(score), traces.RiskLevel(string(level)))

	return &WalletAssessment{
		Address:            address,
		Found:              true,
		RiskScore:          score,
		RiskLevel:          level,
		NetworkRisk:        wa.RiskScore,
		PatternRisk:        patternRisk,
		CommunityRisk:      commRisk,
		CommunityType:      wa.CommunityType,
		RequiresMonitoring: score > monitoringThreshold,
	}, nil
}

// DetectSuspiciousClusters delegates to the network analyzer and records
// detection metrics.
func (a *Assessor) DetectSuspiciousClusters(ctx context.Context, wallets []record.Wallet, txs []record.Transaction, riskThreshold float64) ([][]string, error) {
	ctx, span := traces.StartSpan(ctx, "risk.detect_clusters")
	defer span.End()

	clusters, err := a.analyzer.DetectSuspiciousClusters(wallets, txs, riskThreshold)
	if err != nil {
		return nil, err
	}
	metrics.SuspiciousClustersTotal.Add(float64(len(clusters)))
	span.SetAttributes(traces.ClusterCount(len(clusters)))
	return clusters, nil
}

// historicalRisk scores a wallet's aggregate behavior. Additive, clamped
// to [0,1]. Branches dividing by account age or balance are skipped when
// the denominator is not positive.
func historicalRisk(w record.Wallet) float64 {
	score := 0.0
	if w.AccountAge > 0 && w.TransactionCount/w.AccountAge > 100 {
		score += 0.3
	}
	if w.Balance > 0 && w.TotalVolume/w.Balance > 100 {
		score += 0.3
	}
	if w.UniqueCounterparties > 1000 {
		score += 0.2
	}
	if w.LastActivity < 86400 && w.RecentActivityLevel > 0.8 {
		score += 0.2
	}
	return clamp01(score)
}

// walletTransactions returns the wallet's most recent transactions, up to
// limit, preserving order.
func walletTransactions(address string, txs []record.Transaction, limit int) []record.Transaction {
	var own []record.Transaction
	for _, tx := range txs {
		if tx.From == address || tx.To == address {
			own = append(own, tx)
		}
	}
	if len(own) > limit {
		own = own[len(own)-limit:]
	}
	return own
}

func findWallet(wallets []record.Wallet, address string) (record.Wallet, bool) {
	for i := len(wallets) - 1; i >= 0; i-- {
		if wallets[i].Address == address {
			return wallets[i], true
		}
	}
	return record.Wallet{}, false
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0.0
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}
