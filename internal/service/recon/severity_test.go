package recon

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"PropRecon/internal/domain/models"
)

func TestClassifyPriceDiscrepancy(t *testing.T) {
	c := NewSeverityClassifier(DefaultWarningPercent)

	// 30 is the boundary and stays INFO; escalation needs strictly more
	assert.Equal(t, models.SeverityInfo, c.Classify(models.SignalPriceDiscrepancy, 30))
	assert.Equal(t, models.SeverityInfo, c.Classify(models.SignalPriceDiscrepancy, -30))
	assert.Equal(t, models.SeverityWarning, c.Classify(models.SignalPriceDiscrepancy, 31))
	assert.Equal(t, models.SeverityWarning, c.Classify(models.SignalPriceDiscrepancy, -31))
}

func TestClassifyDuplicateAlwaysWarning(t *testing.T) {
	c := NewSeverityClassifier(DefaultWarningPercent)
	assert.Equal(t, models.SeverityWarning, c.Classify(models.SignalPossibleDup, 0))
}

func TestClassifyNewListingInfo(t *testing.T) {
	c := NewSeverityClassifier(DefaultWarningPercent)
	assert.Equal(t, models.SeverityInfo, c.Classify(models.SignalNewListing, 0))
}

func TestClassifierZeroThresholdFallsBack(t *testing.T) {
	c := NewSeverityClassifier(0)
	assert.Equal(t, DefaultWarningPercent, c.WarningPercent)
}
