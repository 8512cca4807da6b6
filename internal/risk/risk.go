// Package risk fuses the transaction pattern signal, the wallet network
// signal, and historical behavior heuristics into auditable risk verdicts.
//
// The primary score is the rule-based arithmetic mean of the available
// signals; the learned fusion network is a secondary, model-level signal.
// Scores range from 0.0 (safe) to 1.0 (high risk).
package risk

// Level is the categorical risk verdict.
type Level string

const (
	LevelLow      Level = "LOW"
	LevelMedium   Level = "MEDIUM"
	LevelHigh     Level = "HIGH"
	LevelCritical Level = "CRITICAL"
)

// Code returns the fixed-point wire encoding of a level.
func (l Level) Code() int {
	switch l {
	case LevelLow:
		return 1
	case LevelMedium:
		return 2
	case LevelHigh:
		return 3
	case LevelCritical:
		return 4
	}
	return 0
}

// scoreToLevel maps a [0,1] score to a level with inclusive lower bounds.
func scoreToLevel(score float64) Level {
	switch {
	case score >= 0.9:
		return LevelCritical
	case score >= 0.7:
		return LevelHigh
	case score >= 0.4:
		return LevelMedium
	default:
		return LevelLow
	}
}

// Factor is a human-readable explanation of one contributing signal. The
// weight is informational; it does not enter the score arithmetic.
type Factor struct {
	Factor     string  `json:"factor"`
	Type       string  `json:"type"`
	Confidence float64 `json:"confidence"`
	Weight     float64 `json:"weight"`
}

// Assessment is the full verdict for a single transaction. Derived, never
// persisted; recomputed per request.
type Assessment struct {
	RiskScore       float64  `json:"risk_score"`
	RiskLevel       Level    `json:"risk_level"`
	Factors         []Factor `json:"risk_factors"`
	Recommendations []string `json:"recommendations"`
	RequiresReview  bool     `json:"requires_review"`
	ShouldBlock     bool     `json:"should_block"`
}

// WalletAssessment is the verdict for a wallet scored independent of any
// single transaction.
type WalletAssessment struct {
	Address            string  `json:"address"`
	Found              bool    `json:"found"`
	RiskScore          float64 `json:"risk_score"`
	RiskLevel          Level   `json:"risk_level"`
	NetworkRisk        float64 `json:"network_risk"`
	PatternRisk        float64 `json:"pattern_risk"`
	CommunityRisk      float64 `json:"community_risk"`
	CommunityType      string  `json:"community_type"`
	RequiresMonitoring bool    `json:"requires_monitoring"`
}

func clamp01(v float64) float64 {
	if v > 1.0 {
		return 1.0
	}
	if v < 0.0 {
		return 0.0
	}
	return v
}
