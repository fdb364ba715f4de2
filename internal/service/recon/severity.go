package recon

import "PropRecon/internal/domain/models"

// SeverityClassifier maps a match's magnitude to a severity level.
// Pure mapping, no state beyond the warning threshold.
type SeverityClassifier struct {
	// WarningPercent is the absolute percent difference above which a price
	// discrepancy escalates from INFO to WARNING.
	WarningPercent int
}

// DefaultWarningPercent is the production escalation threshold.
const DefaultWarningPercent = 30

func NewSeverityClassifier(warningPercent int) *SeverityClassifier {
	if warningPercent <= 0 {
		warningPercent = DefaultWarningPercent
	}
	return &SeverityClassifier{WarningPercent: warningPercent}
}

// Classify returns the severity for a signal of the given type.
// percentDifference is only consulted for price discrepancies.
func (c *SeverityClassifier) Classify(t models.SignalType, percentDifference int) models.Severity {
	switch t {
	case models.SignalPriceDiscrepancy:
		abs := percentDifference
		if abs < 0 {
			abs = -abs
		}
		if abs > c.WarningPercent {
			return models.SeverityWarning
		}
		return models.SeverityInfo
	case models.SignalPossibleDup:
		// Duplicates are inherently actionable.
		return models.SeverityWarning
	default:
		return models.SeverityInfo
	}
}
