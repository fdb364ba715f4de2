package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"PropRecon/internal/domain/models"
	domrepo "PropRecon/internal/domain/repository"
	"PropRecon/internal/service/recon"
	applogger "PropRecon/pkg/logger"
)

// Limits bounds the work each detection pass performs per run.
type Limits struct {
	NewListingWindow        time.Duration
	NewListingCap           int
	PriceScanLimit          int
	PriceCap                int
	DuplicateScanLimit      int
	DuplicateCap            int
	SyntheticFallback       bool
	SyntheticPricePairs     int
	SyntheticDuplicatePairs int
}

// DefaultLimits returns the production pass bounds.
func DefaultLimits() Limits {
	return Limits{
		NewListingWindow:        7 * 24 * time.Hour,
		NewListingCap:           5,
		PriceScanLimit:          10,
		PriceCap:                4,
		DuplicateScanLimit:      8,
		DuplicateCap:            3,
		SyntheticFallback:       true,
		SyntheticPricePairs:     3,
		SyntheticDuplicatePairs: 2,
	}
}

// SignalGenerator runs the three detection passes over the two immutable
// snapshots and assembles Signal records. The passes are read-only and
// mutually independent, so they execute concurrently; assembly order is
// fixed (new, price, duplicate) to keep output deterministic.
type SignalGenerator struct {
	matcher    *recon.Matcher
	classifier *recon.SeverityClassifier
	limits     Limits
	metrics    domrepo.Metrics
	logger     *applogger.Logger

	// overridable for tests
	now   func() time.Time
	newID func() string
}

func NewSignalGenerator(matcher *recon.Matcher, classifier *recon.SeverityClassifier, limits Limits, metrics domrepo.Metrics, lgr *applogger.Logger) *SignalGenerator {
	return &SignalGenerator{
		matcher:    matcher,
		classifier: classifier,
		limits:     limits,
		metrics:    metrics,
		logger:     lgr,
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// Generate produces the signal set for one run. It never mutates its inputs
// and treats per-item defects (missing price or address) as skips.
func (g *SignalGenerator) Generate(ctx context.Context, observed []models.ObservedListing, canonical []models.CanonicalListing) ([]models.Signal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	type passResult struct {
		name    string
		signals []models.Signal
		took    time.Duration
	}

	run := func(name string, fn func() []models.Signal, ch chan<- passResult, wg *sync.WaitGroup) {
		defer wg.Done()
		start := time.Now()
		ch <- passResult{name: name, signals: fn(), took: time.Since(start)}
	}

	ch := make(chan passResult, 3)
	var wg sync.WaitGroup
	wg.Add(3)
	go run("new_listing", func() []models.Signal { return g.newListingPass(observed) }, ch, &wg)
	go run("price_discrepancy", func() []models.Signal { return g.pricePass(observed, canonical) }, ch, &wg)
	go run("duplicate", func() []models.Signal { return g.duplicatePass(observed, canonical) }, ch, &wg)
	wg.Wait()
	close(ch)

	byPass := make(map[string][]models.Signal, 3)
	for res := range ch {
		byPass[res.name] = res.signals
		g.metrics.RecordPass(res.name, res.took.Seconds())
		g.logger.Debug("pass complete",
			applogger.String("pass", res.name),
			applogger.Int("signals", len(res.signals)),
			applogger.Duration("took", res.took),
		)
	}

	var signals []models.Signal
	for _, name := range []string{"new_listing", "price_discrepancy", "duplicate"} {
		signals = append(signals, byPass[name]...)
	}
	for _, s := range signals {
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("generated signal invalid: %w", err)
		}
	}
	return signals, nil
}

// newListingPass selects observed listings created inside the recency
// window, first N in dataset order.
func (g *SignalGenerator) newListingPass(observed []models.ObservedListing) []models.Signal {
	cutoff := g.now().Add(-g.limits.NewListingWindow)
	var signals []models.Signal
	for _, obs := range observed {
		if len(signals) >= g.limits.NewListingCap {
			break
		}
		if !obs.CreatedAt.After(cutoff) {
			continue
		}
		signals = append(signals, g.newSignal(models.SignalNewListing, obs, nil, models.SignalPayload{
			ObservedPrice:   obs.Price,
			ObservedAddress: obs.Address,
			SourceName:      obs.Source.Name,
			ConfidenceScore: obs.ConfidenceScore,
			Message:         fmt.Sprintf("New listing %q observed at %s via %s", obs.Title, obs.Address, obs.Source.Name),
		}, 0))
	}
	return signals
}

// pricePass scans the head of the observed set for price disagreements. When
// no natural match exists anywhere in the observed set, it degrades to
// synthetic positional pairs so downstream consumers see non-empty output;
// those are tagged and never mistaken for genuine market discrepancies.
func (g *SignalGenerator) pricePass(observed []models.ObservedListing, canonical []models.CanonicalListing) []models.Signal {
	var signals []models.Signal
	scan := min(g.limits.PriceScanLimit, len(observed))
	for i := 0; i < scan && len(signals) < g.limits.PriceCap; i++ {
		cmp := g.matcher.MatchPrice(observed[i], canonical)
		if cmp == nil {
			continue
		}
		obs := observed[i]
		pct := cmp.PercentDifference
		can := cmp.Canonical
		signals = append(signals, g.newSignal(models.SignalPriceDiscrepancy, obs, &can.ID, models.SignalPayload{
			ObservedPrice:     obs.Price,
			CanonicalPrice:    &can.Price,
			PercentDifference: &pct,
			ObservedAddress:   obs.Address,
			CanonicalAddress:  can.Address,
			SourceName:        obs.Source.Name,
			ConfidenceScore:   obs.ConfidenceScore,
			Message:           fmt.Sprintf("Observed price %.0f deviates %+d%% from canonical %.0f for %q", *obs.Price, pct, can.Price, can.Title),
		}, pct))
	}
	if len(signals) > 0 || !g.limits.SyntheticFallback {
		return signals
	}
	if g.anyPriceMatch(observed, canonical) || len(observed) == 0 || len(canonical) == 0 {
		return signals
	}
	pairs := min(g.limits.SyntheticPricePairs, len(observed), len(canonical))
	for i := 0; i < pairs; i++ {
		signals = append(signals, g.syntheticPriceSignal(observed[i], canonical[i]))
	}
	return signals
}

// anyPriceMatch checks the entire observed set, not just the scanned head.
func (g *SignalGenerator) anyPriceMatch(observed []models.ObservedListing, canonical []models.CanonicalListing) bool {
	for _, obs := range observed {
		if g.matcher.MatchPrice(obs, canonical) != nil {
			return true
		}
	}
	return false
}

func (g *SignalGenerator) syntheticPriceSignal(obs models.ObservedListing, can models.CanonicalListing) models.Signal {
	payload := models.SignalPayload{
		ObservedPrice:    obs.Price,
		CanonicalPrice:   &can.Price,
		ObservedAddress:  obs.Address,
		CanonicalAddress: can.Address,
		SourceName:       obs.Source.Name,
		Synthetic:        true,
		Message:          fmt.Sprintf("Synthetic comparison of %q against canonical %q; no natural price match in this snapshot", obs.Title, can.Title),
	}
	pct := 0
	if obs.HasPrice() && can.Price > 0 {
		pct = recon.PercentDifference(*obs.Price, can.Price)
		payload.PercentDifference = &pct
	}
	return g.newSignal(models.SignalPriceDiscrepancy, obs, &can.ID, payload, pct)
}

// duplicatePass scans the head of the observed set for address overlaps,
// with the synthetic fallback drawing from the tails of both lists to
// reduce overlap with the price pass's synthetic pairs.
func (g *SignalGenerator) duplicatePass(observed []models.ObservedListing, canonical []models.CanonicalListing) []models.Signal {
	var signals []models.Signal
	scan := min(g.limits.DuplicateScanLimit, len(observed))
	for i := 0; i < scan && len(signals) < g.limits.DuplicateCap; i++ {
		match := g.matcher.MatchDuplicate(observed[i], canonical)
		if match == nil {
			continue
		}
		obs := observed[i]
		can := match.Canonical
		signals = append(signals, g.newSignal(models.SignalPossibleDup, obs, &can.ID, models.SignalPayload{
			ObservedAddress:  match.ObservedAddress,
			CanonicalAddress: match.CanonicalAddress,
			SourceName:       obs.Source.Name,
			ConfidenceScore:  obs.ConfidenceScore,
			Message:          fmt.Sprintf("Address %q closely matches canonical listing %q at %q", obs.Address, can.Title, can.Address),
		}, 0))
	}
	if len(signals) > 0 || !g.limits.SyntheticFallback {
		return signals
	}
	if g.anyDuplicateMatch(observed, canonical) || len(observed) == 0 || len(canonical) == 0 {
		return signals
	}
	pairs := min(g.limits.SyntheticDuplicatePairs, len(observed), len(canonical))
	for i := 0; i < pairs; i++ {
		obs := observed[len(observed)-pairs+i]
		can := canonical[len(canonical)-pairs+i]
		signals = append(signals, g.newSignal(models.SignalPossibleDup, obs, &can.ID, models.SignalPayload{
			ObservedAddress:  obs.Address,
			CanonicalAddress: can.Address,
			SourceName:       obs.Source.Name,
			Synthetic:        true,
			Message:          fmt.Sprintf("Synthetic duplicate pairing of %q with canonical %q; no natural address match in this snapshot", obs.Title, can.Title),
		}, 0))
	}
	return signals
}

func (g *SignalGenerator) anyDuplicateMatch(observed []models.ObservedListing, canonical []models.CanonicalListing) bool {
	for _, obs := range observed {
		if g.matcher.MatchDuplicate(obs, canonical) != nil {
			return true
		}
	}
	return false
}

func (g *SignalGenerator) newSignal(t models.SignalType, obs models.ObservedListing, matchedID *string, payload models.SignalPayload, pct int) models.Signal {
	return models.Signal{
		ID:                g.newID(),
		Type:              t,
		Severity:          g.classifier.Classify(t, pct),
		ObservedListingID: obs.ID,
		MatchedListingID:  matchedID,
		Payload:           payload,
		Status:            models.StatusOpen,
		CreatedAt:         g.now(),
	}
}

func min(a int, rest ...int) int {
	for _, v := range rest {
		if v < a {
			a = v
		}
	}
	return a
}
