// Package pattern scores transaction sequences for laundering-typical
// temporal patterns. The Analyzer is the sequence model itself; Detector
// wraps a model handle with feature extraction and label mapping.
package pattern

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/monguard/riskengine/internal/features"
	"github.com/monguard/riskengine/internal/nn"
)

// Model dimensions, fixed by the trained-model contract.
const (
	InputDim     = features.TransactionDim
	HiddenDim    = 256
	EmbeddingDim = 64
	NumPatterns  = 6
	lstmLayers   = 3
	attnHeads    = 8
)

// Output is the raw per-sequence model output.
type Output struct {
	PatternLogits []float64  // NumPatterns, pre-softmax
	AnomalyScore  float64    // in [0,1]
	Embedding     []float64  // EmbeddingDim
	Attention     *mat.Dense // T x T, rows sum to 1
}

// Model is the inference contract the detector depends on. Implementations
// must be safe for concurrent use once constructed.
type Model interface {
	Forward(seq *mat.Dense) (*Output, error)
}

// Analyzer is the temporal pattern model: per-timestep projection, stacked
// bidirectional LSTM, self-attention refinement with a residual sum, mean
// pooling, then classification, anomaly, and embedding heads.
type Analyzer struct {
	Proj     *nn.Linear
	ProjNorm *nn.BatchNorm
	LSTM     *nn.BiLSTM
	Attn     *nn.MultiHeadAttention

	ClassHidden *nn.Linear
	ClassOut    *nn.Linear
	AnomHidden  *nn.Linear
	AnomOut     *nn.Linear
	EmbedProj   *nn.Linear

	Drop *nn.Dropout
}

// NewAnalyzer constructs an analyzer with seeded Xavier weights. Production
// deployments overwrite the exported weight matrices from a trained
// checkpoint; the seed keeps development and test runs reproducible.
func NewAnalyzer(seed int64) *Analyzer {
	rng := rand.New(rand.NewSource(seed))
	return &Analyzer{
		Proj:        nn.NewLinear(InputDim, HiddenDim, rng),
		ProjNorm:    nn.NewBatchNorm(HiddenDim),
		LSTM:        nn.NewBiLSTM(HiddenDim, HiddenDim/2, lstmLayers, rng),
		Attn:        nn.NewMultiHeadAttention(HiddenDim, attnHeads, rng),
		ClassHidden: nn.NewLinear(HiddenDim, HiddenDim/2, rng),
		ClassOut:    nn.NewLinear(HiddenDim/2, NumPatterns, rng),
		AnomHidden:  nn.NewLinear(HiddenDim, HiddenDim/2, rng),
		AnomOut:     nn.NewLinear(HiddenDim/2, 1, rng),
		EmbedProj:   nn.NewLinear(HiddenDim, EmbeddingDim, rng),
		Drop:        nn.NewDropout(0.2, rng),
	}
}

// Forward runs the model over one sequence (T x InputDim).
func (a *Analyzer) Forward(seq *mat.Dense) (*Output, error) {
	_, cols := seq.Dims()
	if cols != InputDim {
		return nil, fmt.Errorf("pattern: sequence has %d features, want %d", cols, InputDim)
	}

	// Per-timestep feature projection
	feat := a.Drop.Forward(nn.ReLU(a.ProjNorm.Forward(a.Proj.Forward(seq))))

	// Temporal encoding and attention refinement
	lstmOut := a.LSTM.Forward(feat)
	attnOut, attnW := a.Attn.Forward(lstmOut)

	combined := mat.DenseCopyOf(lstmOut)
	combined.Add(combined, attnOut)

	pooled := nn.MeanRows(combined)

	logits := a.ClassOut.Forward(nn.ReLU(a.ClassHidden.Forward(pooled)))
	anomaly := nn.Sigmoid(a.AnomOut.Forward(nn.ReLU(a.AnomHidden.Forward(pooled))))
	embedding := a.EmbedProj.Forward(pooled)

	return &Output{
		PatternLogits: nn.Row(logits, 0),
		AnomalyScore:  anomaly.At(0, 0),
		Embedding:     nn.Row(embedding, 0),
		Attention:     attnW,
	}, nil
}
