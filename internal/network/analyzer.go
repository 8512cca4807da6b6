package network

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/monguard/riskengine/internal/nn"
	"github.com/monguard/riskengine/internal/record"
)

// CommunityLabels maps classifier indices to community names. The index
// order is a correctness-critical part of the trained-model contract.
var CommunityLabels = [NumCommunities]string{
	"NORMAL",
	"EXCHANGE",
	"MIXER",
	"GAMBLING",
	"DEFI_PROTOCOL",
	"NFT_MARKETPLACE",
	"SCAM",
	"SANCTIONED",
	"MINING_POOL",
	"OTHER",
}

// highRiskThreshold marks a wallet as high risk in network statistics.
const highRiskThreshold = 0.7

// WalletAnalysis is the per-wallet result of a network pass.
type WalletAnalysis struct {
	Address             string             `json:"address"`
	RiskScore           float64            `json:"risk_score"`
	Embedding           []float64          `json:"-"`
	CommunityType       string             `json:"community_type"`
	CommunityConfidence float64            `json:"community_confidence"`
	CommunityProbs      map[string]float64 `json:"community_probabilities"`
}

// Stats summarizes a network pass.
type Stats struct {
	NumWallets            int            `json:"num_wallets"`
	NumTransactions       int            `json:"num_transactions"`
	AvgRiskScore          float64        `json:"avg_risk_score"`
	MaxRiskScore          float64        `json:"max_risk_score"`
	HighRiskWallets       int            `json:"high_risk_wallets"`
	CommunityDistribution map[string]int `json:"community_distribution"`
}

// Analysis is the full result of a network pass.
type Analysis struct {
	Wallets []WalletAnalysis `json:"wallet_analyses"`
	Stats   Stats            `json:"network_stats"`
}

// Lookup finds the analysis for an address. The second return is false
// when the address was not part of the analyzed network — a soft condition,
// not an error.
func (a *Analysis) Lookup(address string) (*WalletAnalysis, bool) {
	address = record.NormalizeAddress(address)
	for i := range a.Wallets {
		if a.Wallets[i].Address == address {
			return &a.Wallets[i], true
		}
	}
	return nil, false
}

// Analyzer wraps a graph model handle with graph construction and result
// mapping. Stateless; safe for concurrent use.
type Analyzer struct {
	model          Model
	logger         *slog.Logger
	lookbackWindow int
}

// NewAnalyzer creates an analyzer around an injected model handle.
func NewAnalyzer(model Model, logger *slog.Logger, lookbackWindow int) *Analyzer {
	if lookbackWindow <= 0 {
		lookbackWindow = 1000
	}
	return &Analyzer{model: model, logger: logger, lookbackWindow: lookbackWindow}
}

// AnalyzeNetwork builds the wallet graph over the most recent
// lookbackWindow transactions and scores every node.
func (a *Analyzer) AnalyzeNetwork(wallets []record.Wallet, txs []record.Transaction) (*Analysis, error) {
	return a.analyze(Build(wallets, txs, a.lookbackWindow), len(wallets), len(txs))
}

func (a *Analyzer) analyze(g *Graph, numWallets, numTxs int) (*Analysis, error) {
	if g.NumNodes() == 0 {
		return &Analysis{
			Stats: Stats{CommunityDistribution: make(map[string]int)},
		}, nil
	}

	out, err := a.model.Forward(g.NodeFeatures, g.Edges, g.EdgeFeatures, nil)
	if err != nil {
		return nil, fmt.Errorf("graph model: %w", err)
	}

	analysis := &Analysis{
		Wallets: make([]WalletAnalysis, 0, g.NumNodes()),
		Stats: Stats{
			NumWallets:            numWallets,
			NumTransactions:       numTxs,
			CommunityDistribution: make(map[string]int, NumCommunities),
		},
	}

	for i := 0; i < g.NumNodes(); i++ {
		probs := nn.SoftmaxVec(nn.Row(out.CommunityLogits, i))
		best := 0
		for j, p := range probs {
			if p > probs[best] {
				best = j
			}
		}
		probMap := make(map[string]float64, NumCommunities)
		for j, name := range CommunityLabels {
			probMap[name] = probs[j]
		}

		wa := WalletAnalysis{
			Address:             g.Addresses[i],
			RiskScore:           out.RiskScores[i],
			Embedding:           nn.Row(out.Embeddings, i),
			CommunityType:       CommunityLabels[best],
			CommunityConfidence: probs[best],
			CommunityProbs:      probMap,
		}
		analysis.Wallets = append(analysis.Wallets, wa)

		analysis.Stats.CommunityDistribution[wa.CommunityType]++
		analysis.Stats.AvgRiskScore += wa.RiskScore
		if wa.RiskScore > analysis.Stats.MaxRiskScore {
			analysis.Stats.MaxRiskScore = wa.RiskScore
		}
		if wa.RiskScore > highRiskThreshold {
			analysis.Stats.HighRiskWallets++
		}
	}
	if n := len(analysis.Wallets); n > 0 {
		analysis.Stats.AvgRiskScore /= float64(n)
	}

	a.logger.Debug("network analysis complete",
		"wallets", analysis.Stats.NumWallets,
		"high_risk", analysis.Stats.HighRiskWallets,
		"max_risk", analysis.Stats.MaxRiskScore)

	return analysis, nil
}

// DetectSuspiciousClusters finds groups of connected high-risk wallets.
// The graph uses every transaction (no lookback window) and the clustering
// ignores edge direction; clusters are the weakly-connected components of
// the subgraph induced on wallets whose risk score exceeds riskThreshold.
// A high-risk wallet with no high-risk neighbor forms a singleton cluster.
func (a *Analyzer) DetectSuspiciousClusters(wallets []record.Wallet, txs []record.Transaction, riskThreshold float64) ([][]string, error) {
	analysis, err := a.analyze(Build(wallets, txs, 0), len(wallets), len(txs))
	if err != nil {
		return nil, err
	}

	highRisk := make(map[string]bool)
	for _, w := range analysis.Wallets {
		if w.RiskScore > riskThreshold {
			highRisk[w.Address] = true
		}
	}

	// Undirected adjacency restricted to high-risk wallets, built from the
	// full transaction list.
	known := make(map[string]bool, len(wallets))
	for _, w := range wallets {
		known[w.Address] = true
	}
	adj := make(map[string][]string)
	for _, tx := range txs {
		if !known[tx.From] || !known[tx.To] {
			continue
		}
		if !highRisk[tx.From] || !highRisk[tx.To] {
			continue
		}
		adj[tx.From] = append(adj[tx.From], tx.To)
		adj[tx.To] = append(adj[tx.To], tx.From)
	}

	// DFS over the induced subgraph. Iterate analysis order so output is
	// deterministic.
	visited := make(map[string]bool, len(highRisk))
	var clusters [][]string
	for _, w := range analysis.Wallets {
		addr := w.Address
		if !highRisk[addr] || visited[addr] {
			continue
		}
		var cluster []string
		stack := []string{addr}
		visited[addr] = true
		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			cluster = append(cluster, cur)
			for _, next := range adj[cur] {
				if !visited[next] {
					visited[next] = true
					stack = append(stack, next)
				}
			}
		}
		sort.Strings(cluster)
		clusters = append(clusters, cluster)
	}

	if len(clusters) > 0 {
		a.logger.Info("suspicious clusters detected",
			"clusters", len(clusters),
			"threshold", riskThreshold)
	}
	return clusters, nil
}
