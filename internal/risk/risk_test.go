package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/monguard/riskengine/internal/record"
)

func TestScoreToLevel(t *testing.T) {
	tests := []struct {
		score float64
		want  Level
	}{
		{0.95, LevelCritical},
		{0.9, LevelCritical}, // inclusive lower bound
		{0.8, LevelHigh},
		{0.7, LevelHigh},
		{0.5, LevelMedium},
		{0.4, LevelMedium},
		{0.2, LevelLow},
		{0.0, LevelLow},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, scoreToLevel(tt.score), "score %v", tt.score)
	}
}

func TestLevelCode(t *testing.T) {
	assert.Equal(t, 1, LevelLow.Code())
	assert.Equal(t, 2, LevelMedium.Code())
	assert.Equal(t, 3, LevelHigh.Code())
	assert.Equal(t, 4, LevelCritical.Code())
	assert.Equal(t, 0, Level("bogus").Code())
}

func TestHistoricalRiskAllBranches(t *testing.T) {
	w := record.Wallet{
		Balance:              100,
		TotalVolume:          20000,
		AccountAge:           10,
		TransactionCount:     2000,
		UniqueCounterparties: 1500,
		LastActivity:         1000,
		RecentActivityLevel:  0.9,
	}
	// velocity 0.3 + turnover 0.3 + counterparties 0.2 + recent 0.2
	assert.Equal(t, 1.0, historicalRisk(w))
}

func TestHistoricalRiskDivisionGuards(t *testing.T) {
	// Zero age and zero balance skip their branches rather than divide.
	w := record.Wallet{
		AccountAge:       0,
		TransactionCount: 1e6,
		Balance:          0,
		TotalVolume:      1e9,
	}
	assert.Zero(t, historicalRisk(w))
}

func TestHistoricalRiskQuietWallet(t *testing.T) {
	w := record.Wallet{
		Balance:              1000,
		TotalVolume:          500,
		AccountAge:           365,
		TransactionCount:     50,
		UniqueCounterparties: 12,
		LastActivity:         700000,
		RecentActivityLevel:  0.1,
	}
	assert.Zero(t, historicalRisk(w))
}

func TestRecommendationsCriticalStructuringMixer(t *testing.T) {
	recs := Recommendations(0.95, "STRUCTURING", "MIXER")

	require.Equal(t, []string{
		"BLOCK: Immediate transaction blocking recommended",
		"REPORT: File Suspicious Activity Report (SAR)",
		"DELAY: Hold transaction for manual review",
		"INVESTIGATE: Deep dive into transaction history",
		"Monitor for structured transaction patterns",
		"High-risk community detected: MIXER",
		"ENHANCE: Request additional KYC documentation",
	}, recs)
}

func TestRecommendationsNormal(t *testing.T) {
	recs := Recommendations(0.1, "NORMAL", "NORMAL")
	assert.Equal(t, []string{"PROCEED: Transaction appears normal"}, recs)
}

func TestRecommendationsMidScore(t *testing.T) {
	recs := Recommendations(0.6, "RAPID_MOVEMENT", "EXCHANGE")
	assert.Equal(t, []string{"ENHANCE: Request additional KYC documentation"}, recs)
}

func TestRecommendationsHighMixing(t *testing.T) {
	recs := Recommendations(0.75, "MIXING", "")
	require.Equal(t, []string{
		"DELAY: Hold transaction for manual review",
		"INVESTIGATE: Deep dive into transaction history",
		"Investigate potential use of mixing services",
		"ENHANCE: Request additional KYC documentation",
	}, recs)
}

func TestSubmissionScaling(t *testing.T) {
	a := &Assessment{RiskScore: 0.675, RiskLevel: LevelMedium}
	sub := NewSubmission("wallet-1", a)

	assert.Equal(t, 68, sub.Score) // round, not truncate
	assert.Equal(t, 2, sub.Level)
	assert.Equal(t, "wallet-1", sub.Address)
	assert.Equal(t, "no risk factors identified", sub.Reason)
}

func TestSubmissionChecksumsHexAddresses(t *testing.T) {
	a := &Assessment{RiskScore: 1.0, RiskLevel: LevelCritical}
	sub := NewSubmission("0x52908400098527886e0f7030069857d2e4169ee7", a)

	assert.Equal(t, "0x52908400098527886E0F7030069857D2E4169EE7", sub.Address)
	assert.Equal(t, 100, sub.Score)
	assert.Equal(t, 4, sub.Level)
}

func TestSubmissionReasonJoinsFactors(t *testing.T) {
	a := &Assessment{
		RiskScore: 0.8,
		RiskLevel: LevelHigh,
		Factors: []Factor{
			{Factor: "Suspicious pattern detected: MIXING"},
			{Factor: "Anomalous historical behavior"},
		},
	}
	sub := NewSubmission("w", a)
	assert.Equal(t, "Suspicious pattern detected: MIXING; Anomalous historical behavior", sub.Reason)
}

func TestSubmissionsForWalletsSkipsNotFound(t *testing.T) {
	subs := SubmissionsForWallets([]*WalletAssessment{
		{Address: "a", Found: true, RiskScore: 0.5, RiskLevel: LevelMedium, CommunityType: "NORMAL"},
		{Address: "b", Found: false},
	})

	require.Len(t, subs, 1)
	assert.Equal(t, "a", subs[0].Address)
	assert.Equal(t, 50, subs[0].Score)
}
