package usecase

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PropRecon/internal/domain/models"
	"PropRecon/internal/service/recon"
	applogger "PropRecon/pkg/logger"
)

// nopMetrics satisfies the metrics interface for tests.
type nopMetrics struct{}

func (nopMetrics) RecordRun(string, float64)   {}
func (nopMetrics) RecordPass(string, float64)  {}
func (nopMetrics) RecordSignal(string, string) {}
func (nopMetrics) RecordError(string)          {}
func (nopMetrics) SetOutstanding(string, float64) {}

var testNow = time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

func newTestGenerator(t *testing.T, limits Limits) *SignalGenerator {
	t.Helper()
	g := NewSignalGenerator(
		recon.NewMatcher(recon.DefaultThresholds()),
		recon.NewSeverityClassifier(recon.DefaultWarningPercent),
		limits,
		nopMetrics{},
		applogger.Nop(),
	)
	g.now = func() time.Time { return testNow }
	seq := 0
	g.newID = func() string {
		seq++
		return fmt.Sprintf("sig-%d", seq)
	}
	return g
}

func price(v float64) *float64 { return &v }

func obsListing(id string, age time.Duration) models.ObservedListing {
	o := models.ObservedListing{
		ID:        id,
		Title:     "Listing " + id,
		Address:   "Address " + id,
		CreatedAt: testNow.Add(-age),
	}
	o.Source.Name = "portalito"
	return o
}

func TestNewListingWindow(t *testing.T) {
	g := newTestGenerator(t, DefaultLimits())
	observed := []models.ObservedListing{
		obsListing("obs-recent", 6*24*time.Hour),
		obsListing("obs-stale", 8*24*time.Hour),
	}

	signals, err := g.Generate(context.Background(), observed, nil)
	require.NoError(t, err)

	var newListings []models.Signal
	for _, s := range signals {
		if s.Type == models.SignalNewListing {
			newListings = append(newListings, s)
		}
	}
	require.Len(t, newListings, 1)
	assert.Equal(t, "obs-recent", newListings[0].ObservedListingID)
	assert.Equal(t, models.SeverityInfo, newListings[0].Severity)
	assert.Nil(t, newListings[0].MatchedListingID)
	assert.Equal(t, models.StatusOpen, newListings[0].Status)
}

func TestNewListingCapKeepsDatasetOrder(t *testing.T) {
	limits := DefaultLimits()
	limits.SyntheticFallback = false
	g := newTestGenerator(t, limits)

	observed := make([]models.ObservedListing, 20)
	for i := range observed {
		observed[i] = obsListing(fmt.Sprintf("obs-%02d", i), time.Hour)
	}

	signals, err := g.Generate(context.Background(), observed, nil)
	require.NoError(t, err)
	require.Len(t, signals, 5)
	for i, s := range signals {
		assert.Equal(t, fmt.Sprintf("obs-%02d", i), s.ObservedListingID)
	}
}

func TestPricePassScanAndCap(t *testing.T) {
	limits := DefaultLimits()
	limits.NewListingWindow = 0 // suppress the new-listing pass
	limits.SyntheticFallback = false
	g := newTestGenerator(t, limits)

	canonical := []models.CanonicalListing{
		{ID: "can-1", Title: "Canon", Address: "X", City: "Centro", Price: 1000000},
	}
	// 12 qualifying listings; scan stops at 10, cap at 4
	observed := make([]models.ObservedListing, 12)
	for i := range observed {
		o := obsListing(fmt.Sprintf("obs-%02d", i), 30*24*time.Hour)
		o.Address = "Madero 88 Centro"
		o.Price = price(1500000)
		observed[i] = o
	}

	signals, err := g.Generate(context.Background(), observed, canonical)
	require.NoError(t, err)
	require.Len(t, signals, 4)
	for _, s := range signals {
		assert.Equal(t, models.SignalPriceDiscrepancy, s.Type)
		require.NotNil(t, s.MatchedListingID)
		assert.Equal(t, "can-1", *s.MatchedListingID)
		require.NotNil(t, s.Payload.PercentDifference)
		assert.Equal(t, 50, *s.Payload.PercentDifference)
		assert.Equal(t, models.SeverityWarning, s.Severity)
		assert.False(t, s.Payload.Synthetic)
	}
}

func TestPriceSyntheticFallback(t *testing.T) {
	limits := DefaultLimits()
	limits.NewListingWindow = 0
	g := newTestGenerator(t, limits)

	// no addresses mention any canonical city, so no natural match exists
	observed := []models.ObservedListing{
		func() models.ObservedListing {
			o := obsListing("obs-a", 30*24*time.Hour)
			o.Price = price(500000)
			return o
		}(),
		func() models.ObservedListing {
			o := obsListing("obs-b", 30*24*time.Hour)
			o.Price = price(600000)
			return o
		}(),
	}
	canonical := []models.CanonicalListing{
		{ID: "can-1", City: "Norte", Price: 1000000, Address: "Q1"},
		{ID: "can-2", City: "Norte", Price: 1200000, Address: "Q2"},
	}

	signals, err := g.Generate(context.Background(), observed, canonical)
	require.NoError(t, err)

	var priceSignals []models.Signal
	for _, s := range signals {
		if s.Type == models.SignalPriceDiscrepancy {
			priceSignals = append(priceSignals, s)
		}
	}
	// positional pairs bounded by the shorter snapshot
	require.Len(t, priceSignals, 2)
	for i, s := range priceSignals {
		assert.True(t, s.Payload.Synthetic)
		assert.Equal(t, observed[i].ID, s.ObservedListingID)
		assert.Equal(t, canonical[i].ID, *s.MatchedListingID)
		require.NotNil(t, s.Payload.PercentDifference)
	}
	assert.Equal(t, -50, *priceSignals[0].Payload.PercentDifference)
}

func TestPriceSyntheticSuppressedByMatchBeyondScanHead(t *testing.T) {
	limits := DefaultLimits()
	limits.NewListingWindow = 0
	g := newTestGenerator(t, limits)

	canonical := []models.CanonicalListing{
		{ID: "can-1", City: "Centro", Price: 1000000, Address: "X"},
	}
	// 11 non-matching rows, then one natural match outside the scanned head:
	// no natural signal is emitted, but the fallback must stay off.
	observed := make([]models.ObservedListing, 12)
	for i := range observed {
		o := obsListing(fmt.Sprintf("obs-%02d", i), 30*24*time.Hour)
		o.Price = price(100)
		observed[i] = o
	}
	observed[11].Address = "Madero 88 Centro"
	observed[11].Price = price(1500000)

	signals, err := g.Generate(context.Background(), observed, canonical)
	require.NoError(t, err)
	for _, s := range signals {
		assert.NotEqual(t, models.SignalPriceDiscrepancy, s.Type)
	}
}

func TestDuplicateSyntheticTailPairs(t *testing.T) {
	limits := DefaultLimits()
	limits.NewListingWindow = 0
	g := newTestGenerator(t, limits)

	observed := []models.ObservedListing{
		func() models.ObservedListing { o := obsListing("obs-a", time.Hour*999); o.Address = "Alpha"; return o }(),
		func() models.ObservedListing { o := obsListing("obs-b", time.Hour*999); o.Address = "Beta"; return o }(),
		func() models.ObservedListing { o := obsListing("obs-c", time.Hour*999); o.Address = "Gamma"; return o }(),
	}
	canonical := []models.CanonicalListing{
		{ID: "can-1", Address: "Delta"},
		{ID: "can-2", Address: "Epsilon"},
		{ID: "can-3", Address: "Zeta"},
	}

	signals, err := g.Generate(context.Background(), observed, canonical)
	require.NoError(t, err)

	var dups []models.Signal
	for _, s := range signals {
		if s.Type == models.SignalPossibleDup {
			dups = append(dups, s)
		}
	}
	// two pairs drawn from the tails of both lists
	require.Len(t, dups, 2)
	assert.Equal(t, "obs-b", dups[0].ObservedListingID)
	assert.Equal(t, "can-2", *dups[0].MatchedListingID)
	assert.Equal(t, "obs-c", dups[1].ObservedListingID)
	assert.Equal(t, "can-3", *dups[1].MatchedListingID)
	for _, s := range dups {
		assert.True(t, s.Payload.Synthetic)
		assert.Equal(t, models.SeverityWarning, s.Severity)
	}
}

func TestSyntheticFallbackDisabled(t *testing.T) {
	limits := DefaultLimits()
	limits.NewListingWindow = 0
	limits.SyntheticFallback = false
	g := newTestGenerator(t, limits)

	observed := []models.ObservedListing{obsListing("obs-a", time.Hour*999)}
	canonical := []models.CanonicalListing{{ID: "can-1", Address: "Q", City: "Norte", Price: 100}}

	signals, err := g.Generate(context.Background(), observed, canonical)
	require.NoError(t, err)
	assert.Empty(t, signals)
}

func TestGenerateAssemblyOrder(t *testing.T) {
	g := newTestGenerator(t, DefaultLimits())

	observed := []models.ObservedListing{
		func() models.ObservedListing {
			o := obsListing("obs-1", time.Hour)
			o.Address = "Avenida Revolución 1450 Campestre"
			o.Price = price(2900000)
			return o
		}(),
	}
	canonical := []models.CanonicalListing{
		{ID: "can-1", Title: "Depto", Address: "Av. Revolución 1450 Campestre", City: "Campestre", Price: 2000000},
	}

	signals, err := g.Generate(context.Background(), observed, canonical)
	require.NoError(t, err)
	require.Len(t, signals, 3)
	assert.Equal(t, models.SignalNewListing, signals[0].Type)
	assert.Equal(t, models.SignalPriceDiscrepancy, signals[1].Type)
	assert.Equal(t, models.SignalPossibleDup, signals[2].Type)

	// 45% over canonical escalates to WARNING
	require.NotNil(t, signals[1].Payload.PercentDifference)
	assert.Equal(t, 45, *signals[1].Payload.PercentDifference)
	assert.Equal(t, models.SeverityWarning, signals[1].Severity)
}

func TestGenerateCancelledContext(t *testing.T) {
	g := newTestGenerator(t, DefaultLimits())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := g.Generate(ctx, nil, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
