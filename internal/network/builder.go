// Package network builds wallet relationship graphs and scores them with
// the graph attention model. The Analyzer wraps a model handle with graph
// construction, per-wallet result mapping, and suspicious cluster
// detection.
package network

import (
	"gonum.org/v1/gonum/mat"

	"github.com/monguard/riskengine/internal/features"
	"github.com/monguard/riskengine/internal/record"
)

// Graph is a directed attributed wallet graph. Node index equals position
// in the wallet list handed to Build; Addresses maps back to wallet keys.
type Graph struct {
	NodeFeatures *mat.Dense // n x features.WalletDim
	Edges        [][2]int   // (from, to) node index pairs
	EdgeFeatures *mat.Dense // len(Edges) x features.EdgeDim
	Addresses    []string
	Index        map[string]int
}

// Build constructs a graph from wallets and the most recent
// lookbackWindow transactions. lookbackWindow <= 0 means no limit.
//
// Duplicate addresses overwrite earlier index entries (last write wins).
// Transactions referencing unknown addresses are dropped. When no
// transaction connects two known wallets, every node gets a single
// self-loop with a zero edge-feature vector so the graph model always
// sees at least one edge.
func Build(wallets []record.Wallet, txs []record.Transaction, lookbackWindow int) *Graph {
	g := &Graph{
		Addresses: make([]string, len(wallets)),
		Index:     make(map[string]int, len(wallets)),
	}

	if len(wallets) == 0 {
		return g
	}
	g.NodeFeatures = mat.NewDense(len(wallets), features.WalletDim, nil)
	for i, w := range wallets {
		g.Addresses[i] = w.Address
		g.Index[w.Address] = i
		g.NodeFeatures.SetRow(i, features.WalletVector(w))
	}

	window := txs
	if lookbackWindow > 0 && len(txs) > lookbackWindow {
		window = txs[len(txs)-lookbackWindow:]
	}

	var edgeRows [][]float64
	for _, tx := range window {
		from, okFrom := g.Index[tx.From]
		to, okTo := g.Index[tx.To]
		if !okFrom || !okTo {
			continue
		}
		g.Edges = append(g.Edges, [2]int{from, to})
		edgeRows = append(edgeRows, features.EdgeVector(tx))
	}

	if len(g.Edges) == 0 {
		// Self-loop fallback keeps downstream attention well-defined.
		for i := range wallets {
			g.Edges = append(g.Edges, [2]int{i, i})
			edgeRows = append(edgeRows, make([]float64, features.EdgeDim))
		}
	}

	g.EdgeFeatures = mat.NewDense(len(edgeRows), features.EdgeDim, nil)
	for i, row := range edgeRows {
		g.EdgeFeatures.SetRow(i, row)
	}
	return g
}

// NumNodes returns the node count.
func (g *Graph) NumNodes() int { return len(g.Addresses) }
