package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/monguard/riskengine/internal/pattern"
)

func TestFusionForwardShapes(t *testing.T) {
	f := NewFusion(42)

	patternEmb := mat.NewDense(3, pattern.EmbeddingDim, nil)
	networkEmb := mat.NewDense(5, networkContextDim, nil)
	for i := 0; i < 5; i++ {
		networkEmb.Set(i, 0, float64(i))
	}

	out, err := f.Forward(patternEmb, networkEmb)
	require.NoError(t, err)

	require.Len(t, out.RiskScores, 3)
	require.Len(t, out.Confidence, 3)
	for i := 0; i < 3; i++ {
		assert.GreaterOrEqual(t, out.RiskScores[i], 0.0)
		assert.LessOrEqual(t, out.RiskScores[i], 1.0)
		assert.GreaterOrEqual(t, out.Confidence[i], 0.0)
		assert.LessOrEqual(t, out.Confidence[i], 1.0)
	}

	lr, lc := out.LevelLogits.Dims()
	assert.Equal(t, 3, lr)
	assert.Equal(t, numLevels, lc)
}

func TestFusionBroadcastsContext(t *testing.T) {
	f := NewFusion(42)

	// Identical pattern embeddings must produce identical fused scores
	// because the network context is shared across the batch.
	patternEmb := mat.NewDense(2, pattern.EmbeddingDim, nil)
	for j := 0; j < pattern.EmbeddingDim; j++ {
		patternEmb.Set(0, j, 0.5)
		patternEmb.Set(1, j, 0.5)
	}
	networkEmb := mat.NewDense(3, networkContextDim, nil)
	networkEmb.Set(0, 0, 1)
	networkEmb.Set(1, 0, 2)
	networkEmb.Set(2, 0, 3)

	out, err := f.Forward(patternEmb, networkEmb)
	require.NoError(t, err)
	assert.InDelta(t, out.RiskScores[0], out.RiskScores[1], 1e-12)
	assert.InDelta(t, out.Confidence[0], out.Confidence[1], 1e-12)
}

func TestFusionRejectsBadInput(t *testing.T) {
	f := NewFusion(42)

	_, err := f.Forward(mat.NewDense(1, 10, nil), mat.NewDense(1, networkContextDim, nil))
	assert.Error(t, err)

	_, err = f.Forward(mat.NewDense(1, pattern.EmbeddingDim, nil), mat.NewDense(1, 10, nil))
	assert.Error(t, err)

	_, err = f.Forward(mat.NewDense(1, pattern.EmbeddingDim, nil), &mat.Dense{})
	assert.Error(t, err)
}
