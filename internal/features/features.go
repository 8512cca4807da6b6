// Package features turns raw transaction and wallet records into the
// fixed-width numeric vectors the models consume. Extraction is total:
// missing fields arrive as zeros from the record package and every derived
// division carries an epsilon guard, so output vectors never contain NaN
// or Inf and always have exactly the declared width.
package features

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/monguard/riskengine/internal/record"
)

// Fixed vector widths. These are part of the trained-model contract and
// must not change without retraining.
const (
	TransactionDim = 128
	WalletDim      = 64
	EdgeDim        = 10
)

// Eps guards divisions against zero denominators. The exact value affects
// anomaly sensitivity at edge values and matches the trained models.
const Eps = 1e-10

const (
	secondsPerDay  = 86400
	secondsPerWeek = 604800
)

// TransactionVector derives the transaction feature vector, zero-padded to
// TransactionDim. Feature order is part of the model contract.
func TransactionVector(tx record.Transaction) []float64 {
	f := make([]float64, 0, 32)

	// Amount
	f = append(f,
		tx.Amount,
		math.Log1p(tx.Amount),
		tx.Amount*tx.Amount,
	)

	// Time
	f = append(f,
		tx.Timestamp,
		math.Mod(tx.Timestamp, secondsPerDay),
		math.Mod(tx.Timestamp, secondsPerWeek),
	)

	// Gas
	f = append(f,
		tx.GasPrice,
		tx.GasUsed,
		tx.GasPrice*tx.GasUsed,
	)

	// Balances
	f = append(f,
		tx.FromBalance,
		tx.ToBalance,
		tx.FromBalance-tx.Amount,
		tx.Amount/(tx.FromBalance+Eps),
	)

	// Transaction counts
	f = append(f,
		tx.FromTransactionCount,
		tx.ToTransactionCount,
		math.Log1p(tx.FromTransactionCount),
		math.Log1p(tx.ToTransactionCount),
	)

	// Velocity
	f = append(f,
		tx.TimeSinceLastTx,
		tx.Amount/(tx.TimeSinceLastTx+Eps),
		1/(tx.TimeSinceLastTx+Eps),
	)

	// Counterparty network
	f = append(f,
		tx.UniqueCounterparties,
		tx.AvgTransactionAmount,
		tx.Amount/(tx.AvgTransactionAmount+Eps),
	)

	// Contract interaction
	f = append(f, tx.ToIsContract)

	return padTruncate(f, TransactionDim)
}

// WalletVector derives the wallet node feature vector, zero-padded to
// WalletDim.
func WalletVector(w record.Wallet) []float64 {
	f := make([]float64, 0, 16)

	f = append(f,
		w.Balance,
		math.Log1p(w.Balance),
	)
	f = append(f,
		w.TransactionCount,
		math.Log1p(w.TransactionCount),
	)
	f = append(f, w.UniqueCounterparties)
	f = append(f,
		w.AvgTransactionAmount,
		w.MaxTransactionAmount,
		w.TotalVolume,
		math.Log1p(w.TotalVolume),
	)
	f = append(f,
		w.AccountAge,
		w.LastActivity,
	)

	return padTruncate(f, WalletDim)
}

// EdgeVector derives the edge feature vector for a transaction, zero-padded
// to EdgeDim.
func EdgeVector(tx record.Transaction) []float64 {
	f := make([]float64, 0, 8)

	f = append(f,
		tx.Amount,
		math.Log1p(tx.Amount),
	)
	f = append(f,
		tx.GasPrice,
		tx.GasUsed,
	)
	f = append(f, math.Mod(tx.Timestamp, secondsPerDay))
	f = append(f, tx.Success)

	return padTruncate(f, EdgeDim)
}

// SequenceTensor extracts the last seqLen transactions into a
// seqLen x TransactionDim matrix, most recent last. When fewer than seqLen
// transactions exist the front rows are zero vectors: the models treat the
// final row as "now", so padding goes at the front.
func SequenceTensor(txs []record.Transaction, seqLen int) *mat.Dense {
	out := mat.NewDense(seqLen, TransactionDim, nil)

	start := 0
	if len(txs) > seqLen {
		start = len(txs) - seqLen
	}
	window := txs[start:]

	offset := seqLen - len(window)
	for i, tx := range window {
		out.SetRow(offset+i, TransactionVector(tx))
	}
	return out
}

// padTruncate forces f to exactly width entries: extra features are
// dropped, missing trailing slots stay zero.
func padTruncate(f []float64, width int) []float64 {
	if len(f) >= width {
		return f[:width]
	}
	out := make([]float64, width)
	copy(out, f)
	return out
}
