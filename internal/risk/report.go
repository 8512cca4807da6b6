package risk

import (
	"math"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Submission is the payload shape the compliance sink consumes. Scores are
// fixed-point integers in 0..100; the round-half-away-from-zero conversion
// must not change, downstream consumers compare raw integers.
type Submission struct {
	Address string `json:"address"`
	Score   int    `json:"risk_score"`
	Level   int    `json:"risk_level"`
	Reason  string `json:"reason"`
}

// NewSubmission converts an assessment into sink form. Hex addresses are
// checksummed; other identifiers pass through unchanged.
func NewSubmission(address string, a *Assessment) Submission {
	return Submission{
		Address: checksummed(address),
		Score:   scaleScore(a.RiskScore),
		Level:   a.RiskLevel.Code(),
		Reason:  reason(a.Factors),
	}
}

// SubmissionsForWallets shapes a batch of wallet verdicts for the sink.
// Not-found wallets are skipped.
func SubmissionsForWallets(assessments []*WalletAssessment) []Submission {
	subs := make([]Submission, 0, len(assessments))
	for _, wa := range assessments {
		if !wa.Found {
			continue
		}
		subs = append(subs, Submission{
			Address: checksummed(wa.Address),
			Score:   scaleScore(wa.RiskScore),
			Level:   wa.RiskLevel.Code(),
			Reason:  "wallet risk assessment (community: " + wa.CommunityType + ")",
		})
	}
	return subs
}

func scaleScore(score float64) int {
	return int(math.Round(clamp01(score) * 100))
}

func reason(factors []Factor) string {
	if len(factors) == 0 {
		return "no risk factors identified"
	}
	names := make([]string, len(factors))
	for i, f := range factors {
		names[i] = f.Factor
	}
	return strings.Join(names, "; ")
}

func checksummed(address string) string {
	if common.IsHexAddress(address) {
		return common.HexToAddress(address).Hex()
	}
	return address
}
