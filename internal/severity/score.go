package severity

import "fmt"

// Band is the fixed tri-band reading of a 0-100 safety or health score.
type Band string

const (
	BandGood     Band = "good"
	BandCaution  Band = "caution"
	BandHighRisk Band = "high-risk"
)

// Score band thresholds.
const (
	GoodThreshold    = 75
	CautionThreshold = 50
)

// ValidateScore rejects scores outside 0-100.
func ValidateScore(score float64) error {
	if score < 0 || score > 100 {
		return fmt.Errorf("score %v outside 0-100", score)
	}
	return nil
}

// BandFor maps a score to exactly one band.
func BandFor(score float64) Band {
	switch {
	case score >= GoodThreshold:
		return BandGood
	case score >= CautionThreshold:
		return BandCaution
	default:
		return BandHighRisk
	}
}

// Level is the severity implied by the band.
func (b Band) Level() Level {
	switch b {
	case BandGood:
		return Low
	case BandCaution:
		return Moderate
	default:
		return High
	}
}

// HealthLabel is the dashboard wording for the band.
func (b Band) HealthLabel() string {
	switch b {
	case BandGood:
		return "Good"
	case BandCaution:
		return "Fair"
	default:
		return "Poor"
	}
}

// SafetyLabel is the drug analyzer wording for the band.
func (b Band) SafetyLabel() string {
	switch b {
	case BandGood:
		return "Safe"
	case BandCaution:
		return "Caution"
	default:
		return "High Risk"
	}
}
