package risk

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/monguard/riskengine/internal/nn"
	"github.com/monguard/riskengine/internal/pattern"
)

// Fusion network dimensions, fixed by the trained-model contract.
const (
	networkContextDim = 32
	fusedDim          = pattern.EmbeddingDim + networkContextDim // 96
	fusionHiddenDim   = 192
	numLevels         = 4
)

// FusionOutput is the model-level fused verdict for a batch of sequences.
type FusionOutput struct {
	RiskScores  []float64  // per sequence, in [0,1]
	LevelLogits *mat.Dense // batch x 4, pre-softmax, LOW..CRITICAL order
	Confidence  []float64  // per sequence, in [0,1]
}

// Fusion combines pattern embeddings with a pooled network context vector
// and scores the result with three heads.
type Fusion struct {
	Proj1     *nn.Linear
	ProjNorm  *nn.BatchNorm
	Proj2     *nn.Linear
	RiskHead1 *nn.Linear
	RiskHead2 *nn.Linear
	LvlHead1  *nn.Linear
	LvlHead2  *nn.Linear
	ConfHead1 *nn.Linear
	ConfHead2 *nn.Linear
	Drop      *nn.Dropout
}

// NewFusion constructs the fusion network with seeded Xavier weights.
// Production deployments overwrite the exported weights from a trained
// checkpoint.
func NewFusion(seed int64) *Fusion {
	rng := rand.New(rand.NewSource(seed))
	return &Fusion{
		Proj1:     nn.NewLinear(fusedDim, fusedDim, rng),
		ProjNorm:  nn.NewBatchNorm(fusedDim),
		Proj2:     nn.NewLinear(fusedDim, fusionHiddenDim, rng),
		RiskHead1: nn.NewLinear(fusionHiddenDim, fusedDim, rng),
		RiskHead2: nn.NewLinear(fusedDim, 1, rng),
		LvlHead1:  nn.NewLinear(fusionHiddenDim, fusedDim, rng),
		LvlHead2:  nn.NewLinear(fusedDim, numLevels, rng),
		ConfHead1: nn.NewLinear(fusionHiddenDim, fusedDim, rng),
		ConfHead2: nn.NewLinear(fusedDim, 1, rng),
		Drop:      nn.NewDropout(0.25, rng),
	}
}

// Forward fuses one pattern embedding per sequence with the mean of all
// node embeddings. The context vector is broadcast across the batch.
func (f *Fusion) Forward(patternEmb, networkEmb *mat.Dense) (*FusionOutput, error) {
	batch, pc := patternEmb.Dims()
	if pc != pattern.EmbeddingDim {
		return nil, fmt.Errorf("risk: pattern embeddings have width %d, want %d", pc, pattern.EmbeddingDim)
	}
	nodes, wc := networkEmb.Dims()
	if wc != networkContextDim {
		return nil, fmt.Errorf("risk: network embeddings have width %d, want %d", wc, networkContextDim)
	}
	if nodes == 0 {
		return nil, fmt.Errorf("risk: network embeddings are empty")
	}

	context := nn.MeanRows(networkEmb) // 1 x 32

	fused := mat.NewDense(batch, fusedDim, nil)
	for i := 0; i < batch; i++ {
		for j := 0; j < pattern.EmbeddingDim; j++ {
			fused.Set(i, j, patternEmb.At(i, j))
		}
		for j := 0; j < networkContextDim; j++ {
			fused.Set(i, pattern.EmbeddingDim+j, context.At(0, j))
		}
	}

	h := f.Drop.Forward(nn.ReLU(f.ProjNorm.Forward(f.Proj1.Forward(fused))))
	h = f.Drop.Forward(nn.ReLU(f.Proj2.Forward(h)))

	risk := nn.Sigmoid(f.RiskHead2.Forward(nn.ReLU(f.RiskHead1.Forward(h))))
	conf := nn.Sigmoid(f.ConfHead2.Forward(nn.ReLU(f.ConfHead1.Forward(h))))

	out := &FusionOutput{
		RiskScores:  make([]float64, batch),
		LevelLogits: f.LvlHead2.Forward(nn.ReLU(f.LvlHead1.Forward(h))),
		Confidence:  make([]float64, batch),
	}
	for i := 0; i < batch; i++ {
		out.RiskScores[i] = risk.At(i, 0)
		out.Confidence[i] = conf.At(i, 0)
	}
	return out, nil
}
