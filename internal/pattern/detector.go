package pattern

import (
	"fmt"
	"log/slog"

	"gonum.org/v1/gonum/mat"

	"github.com/monguard/riskengine/internal/config"
	"github.com/monguard/riskengine/internal/features"
	"github.com/monguard/riskengine/internal/nn"
	"github.com/monguard/riskengine/internal/record"
)

// Labels maps classifier indices to pattern names. The index order is a
// correctness-critical part of the trained-model contract.
var Labels = [NumPatterns]string{
	"NORMAL",
	"STRUCTURING",
	"RAPID_MOVEMENT",
	"MIXING",
	"HIGH_VOLUME",
	"SANCTION_INTERACTION",
}

// Prediction is the parsed result of analyzing one transaction sequence.
type Prediction struct {
	PatternType       string             `json:"pattern_type"`
	PatternConfidence float64            `json:"pattern_confidence"`
	Probabilities     map[string]float64 `json:"pattern_probabilities"`
	AnomalyScore      float64            `json:"anomaly_score"`
	Suspicious        bool               `json:"is_suspicious"`
	Alert             bool               `json:"alert"`
	Embedding         []float64          `json:"-"`
	Attention         *mat.Dense         `json:"-"`
}

// Detector wraps a pattern model handle with feature extraction. It holds
// no mutable state and is safe for concurrent use.
type Detector struct {
	model     Model
	logger    *slog.Logger
	seqLen    int
	threshold float64
}

// NewDetector creates a detector around an injected model handle.
func NewDetector(model Model, logger *slog.Logger, seqLen int, threshold float64) *Detector {
	if seqLen <= 0 {
		seqLen = 10
	}
	return &Detector{model: model, logger: logger, seqLen: seqLen, threshold: threshold}
}

// Threshold returns the anomaly threshold the detector flags against.
func (d *Detector) Threshold() float64 { return d.threshold }

// SeqLen reports the fixed sequence length the model consumes.
func (d *Detector) SeqLen() int { return d.seqLen }

// Analyze extracts sequence features from the transactions and runs one
// model pass. Sequences shorter than the configured length are front-padded
// with zero vectors so the most recent transaction stays in the final slot.
func (d *Detector) Analyze(txs []record.Transaction) (*Prediction, error) {
	seq := features.SequenceTensor(txs, d.seqLen)

	out, err := d.model.Forward(seq)
	if err != nil {
		return nil, fmt.Errorf("pattern model: %w", err)
	}

	probs := nn.SoftmaxVec(append([]float64(nil), out.PatternLogits...))
	best := 0
	for i, p := range probs {
		if p > probs[best] {
			best = i
		}
	}

	probMap := make(map[string]float64, NumPatterns)
	for i, name := range Labels {
		probMap[name] = probs[i]
	}

	alert := false
	if t, ok := config.PatternThresholds[Labels[best]]; ok {
		alert = probs[best] > t
	}

	pred := &Prediction{
		PatternType:       Labels[best],
		PatternConfidence: probs[best],
		Probabilities:     probMap,
		AnomalyScore:      out.AnomalyScore,
		Suspicious:        out.AnomalyScore > d.threshold,
		Alert:             alert,
		Embedding:         out.Embedding,
		Attention:         out.Attention,
	}

	if pred.Suspicious {
		d.logger.Debug("suspicious sequence detected",
			"pattern", pred.PatternType,
			"confidence", pred.PatternConfidence,
			"anomaly_score", pred.AnomalyScore)
	}
	return pred, nil
}

// BatchAnalyze analyzes multiple sequences. Each sequence is independent;
// output index i always corresponds to input index i.
func (d *Detector) BatchAnalyze(sequences [][]record.Transaction) ([]*Prediction, error) {
	results := make([]*Prediction, 0, len(sequences))
	for i, seq := range sequences {
		pred, err := d.Analyze(seq)
		if err != nil {
			return nil, fmt.Errorf("sequence %d: %w", i, err)
		}
		results = append(results, pred)
	}
	return results, nil
}
