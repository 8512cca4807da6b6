package pattern

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/monguard/riskengine/internal/record"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAnalyzerForwardShapes(t *testing.T) {
	m := NewAnalyzer(42)
	seq := mat.NewDense(10, InputDim, nil)
	for i := 0; i < 10; i++ {
		seq.Set(i, 0, float64(i))
	}

	out, err := m.Forward(seq)
	require.NoError(t, err)

	assert.Len(t, out.PatternLogits, NumPatterns)
	assert.Len(t, out.Embedding, EmbeddingDim)
	assert.GreaterOrEqual(t, out.AnomalyScore, 0.0)
	assert.LessOrEqual(t, out.AnomalyScore, 1.0)

	ar, ac := out.Attention.Dims()
	assert.Equal(t, 10, ar)
	assert.Equal(t, 10, ac)
}

func TestAnalyzerRejectsWrongWidth(t *testing.T) {
	m := NewAnalyzer(42)
	_, err := m.Forward(mat.NewDense(10, 64, nil))
	assert.Error(t, err)
}

func TestDetectorAnalyze(t *testing.T) {
	d := NewDetector(NewAnalyzer(42), discardLogger(), 10, 0.5)

	pred, err := d.Analyze([]record.Transaction{
		{Amount: 5000, Timestamp: 1700000000},
		{Amount: 4900, Timestamp: 1700000100},
	})
	require.NoError(t, err)

	assert.Contains(t, Labels[:], pred.PatternType)
	assert.InDelta(t, pred.Probabilities[pred.PatternType], pred.PatternConfidence, 1e-12)
	assert.Equal(t, pred.AnomalyScore > 0.5, pred.Suspicious)

	sum := 0.0
	for _, name := range Labels {
		p, ok := pred.Probabilities[name]
		require.True(t, ok, "missing probability for %s", name)
		require.GreaterOrEqual(t, p, 0.0)
		sum += p
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
	assert.Len(t, pred.Embedding, EmbeddingDim)
}

func TestDetectorAnalyzeEmptySequence(t *testing.T) {
	d := NewDetector(NewAnalyzer(42), discardLogger(), 10, 0.5)

	pred, err := d.Analyze(nil)
	require.NoError(t, err)
	assert.NotNil(t, pred)
}

// indexModel maps the last row's first feature straight to the anomaly
// score so batch ordering is observable.
type indexModel struct{}

func (indexModel) Forward(seq *mat.Dense) (*Output, error) {
	r, _ := seq.Dims()
	return &Output{
		PatternLogits: make([]float64, NumPatterns),
		AnomalyScore:  seq.At(r-1, 0) / 1000,
		Embedding:     make([]float64, EmbeddingDim),
		Attention:     mat.NewDense(r, r, nil),
	}, nil
}

func TestBatchAnalyzePreservesOrder(t *testing.T) {
	d := NewDetector(indexModel{}, discardLogger(), 10, 0.5)

	sequences := [][]record.Transaction{
		{{Amount: 100}},
		{{Amount: 200}},
		{{Amount: 300}},
	}
	preds, err := d.BatchAnalyze(sequences)
	require.NoError(t, err)
	require.Len(t, preds, 3)

	assert.InDelta(t, 0.1, preds[0].AnomalyScore, 1e-12)
	assert.InDelta(t, 0.2, preds[1].AnomalyScore, 1e-12)
	assert.InDelta(t, 0.3, preds[2].AnomalyScore, 1e-12)
}

// structuringModel classifies everything as STRUCTURING with near-full
// confidence.
type structuringModel struct{}

func (structuringModel) Forward(seq *mat.Dense) (*Output, error) {
	r, _ := seq.Dims()
	logits := make([]float64, NumPatterns)
	logits[1] = 50 // STRUCTURING
	return &Output{
		PatternLogits: logits,
		AnomalyScore:  0.2,
		Embedding:     make([]float64, EmbeddingDim),
		Attention:     mat.NewDense(r, r, nil),
	}, nil
}

func TestDetectorAlertUsesPerPatternThreshold(t *testing.T) {
	d := NewDetector(structuringModel{}, discardLogger(), 10, 0.5)

	pred, err := d.Analyze([]record.Transaction{{Amount: 9900}})
	require.NoError(t, err)

	assert.Equal(t, "STRUCTURING", pred.PatternType)
	assert.True(t, pred.Alert)
	assert.False(t, pred.Suspicious)
}

func TestDetectorNoAlertForUnthresholdedPattern(t *testing.T) {
	// indexModel emits all-zero logits, so NORMAL wins; NORMAL carries no
	// alerting threshold.
	d := NewDetector(indexModel{}, discardLogger(), 10, 0.5)

	pred, err := d.Analyze([]record.Transaction{{Amount: 100}})
	require.NoError(t, err)

	assert.Equal(t, "NORMAL", pred.PatternType)
	assert.False(t, pred.Alert)
}

// failingModel always errors.
type failingModel struct{}

func (failingModel) Forward(*mat.Dense) (*Output, error) {
	return nil, errors.New("device unavailable")
}

func TestDetectorPropagatesModelErrors(t *testing.T) {
	d := NewDetector(failingModel{}, discardLogger(), 10, 0.5)
	_, err := d.Analyze([]record.Transaction{{Amount: 1}})
	assert.ErrorContains(t, err, "device unavailable")
}
