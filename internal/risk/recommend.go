package risk

import "fmt"

// Recommendations builds the ordered action list for a verdict. Rules are
// additive and emission order is fixed; callers must treat the result as
// ordered, not sorted by severity.
func Recommendations(score float64, patternType, communityType string) []string {
	var recs []string

	if score > 0.9 {
		recs = append(recs,
			"BLOCK: Immediate transaction blocking recommended",
			"REPORT: File Suspicious Activity Report (SAR)")
	}
	if score > 0.7 {
		recs = append(recs,
			"DELAY: Hold transaction for manual review",
			"INVESTIGATE: Deep dive into transaction history")
	}

	switch patternType {
	case "STRUCTURING":
		recs = append(recs, "Monitor for structured transaction patterns")
	case "MIXING":
		recs = append(recs, "Investigate potential use of mixing services")
	}

	switch communityType {
	case "MIXER", "SCAM", "SANCTIONED":
		recs = append(recs, fmt.Sprintf("High-risk community detected: %s", communityType))
	}

	if score > 0.5 {
		recs = append(recs, "ENHANCE: Request additional KYC documentation")
	}

	if len(recs) == 0 {
		recs = append(recs, "PROCEED: Transaction appears normal")
	}
	return recs
}
