package recon

import (
	"math"
	"strings"

	"PropRecon/internal/domain/models"
)

// Thresholds tunes the matching heuristics. Zero values are not usable;
// construct via DefaultThresholds or map from config.
type Thresholds struct {
	// PriceDelta is the minimum relative price difference
	// (|canonical-observed| / canonical) for a pair to qualify.
	PriceDelta float64
	// DuplicateMinSharedTokens is how many discriminative address tokens two
	// listings must share to be flagged as a possible duplicate.
	DuplicateMinSharedTokens int
	// DuplicateMinTokenLength excludes short tokens (street-type
	// abbreviations and the like) from the shared-token count. A token must
	// be strictly longer than this to count.
	DuplicateMinTokenLength int
}

// DefaultThresholds returns the production heuristic settings.
func DefaultThresholds() Thresholds {
	return Thresholds{
		PriceDelta:               0.15,
		DuplicateMinSharedTokens: 2,
		DuplicateMinTokenLength:  3,
	}
}

// PriceComparison is a qualifying price-comparison candidate.
type PriceComparison struct {
	Canonical         models.CanonicalListing
	PercentDifference int // signed; positive = observed is pricier
}

// DuplicateMatch is a qualifying duplicate candidate with both raw addresses
// for human review.
type DuplicateMatch struct {
	Canonical        models.CanonicalListing
	ObservedAddress  string
	CanonicalAddress string
}

// Matcher compares one observed listing against the canonical set. No shared
// primary key exists between the two datasets, so matching is heuristic:
// city-substring plus price delta for price comparison, shared address
// tokens for duplicates. The first qualifying candidate in canonical
// iteration order wins; best-match-by-distance is a possible upgrade that
// would not break callers.
type Matcher struct {
	th Thresholds
}

func NewMatcher(th Thresholds) *Matcher {
	return &Matcher{th: th}
}

// MatchPrice finds the first canonical listing in the observed listing's
// city whose price disagrees by more than the delta threshold. Returns nil
// when the observed listing has no usable price or no candidate qualifies;
// that is the expected no-signal outcome, not an error.
func (m *Matcher) MatchPrice(obs models.ObservedListing, canonical []models.CanonicalListing) *PriceComparison {
	if !obs.HasPrice() {
		return nil
	}
	address := strings.ToLower(obs.Address)
	for _, can := range canonical {
		if can.Price <= 0 || can.City == "" {
			continue
		}
		if !strings.Contains(address, strings.ToLower(can.City)) {
			continue
		}
		delta := math.Abs(can.Price-*obs.Price) / can.Price
		if delta <= m.th.PriceDelta {
			continue
		}
		return &PriceComparison{
			Canonical:         can,
			PercentDifference: PercentDifference(*obs.Price, can.Price),
		}
	}
	return nil
}

// MatchDuplicate finds the first canonical listing whose address shares
// enough discriminative tokens with the observed address. Returns nil when
// the observed address is empty or nothing qualifies.
func (m *Matcher) MatchDuplicate(obs models.ObservedListing, canonical []models.CanonicalListing) *DuplicateMatch {
	obsTokens := m.tokenize(obs.Address)
	if len(obsTokens) == 0 {
		return nil
	}
	for _, can := range canonical {
		canTokens := m.tokenize(can.Address)
		shared := 0
		for tok := range canTokens {
			if _, ok := obsTokens[tok]; ok {
				shared++
			}
		}
		if shared < m.th.DuplicateMinSharedTokens {
			continue
		}
		return &DuplicateMatch{
			Canonical:        can,
			ObservedAddress:  obs.Address,
			CanonicalAddress: can.Address,
		}
	}
	return nil
}

// tokenize splits an address on whitespace, lower-cases, and drops tokens at
// or below the minimum length.
func (m *Matcher) tokenize(address string) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, tok := range strings.Fields(strings.ToLower(address)) {
		if len([]rune(tok)) <= m.th.DuplicateMinTokenLength {
			continue
		}
		tokens[tok] = struct{}{}
	}
	return tokens
}

// PercentDifference computes the signed percent delta of observed against
// canonical, rounded half away from zero.
func PercentDifference(observed, canonical float64) int {
	return int(math.Round((observed - canonical) / canonical * 100))
}
