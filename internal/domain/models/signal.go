package models

import (
	"fmt"
	"strings"
	"time"
)

// SignalType classifies what a reconciliation pass detected.
type SignalType string

const (
	SignalNewListing       SignalType = "NEW_LISTING"
	SignalPriceDiscrepancy SignalType = "PRICE_DISCREPANCY"
	SignalPossibleDup      SignalType = "POSSIBLE_DUPLICATE"
)

// Valid reports whether t is one of the known signal types.
func (t SignalType) Valid() bool {
	switch t {
	case SignalNewListing, SignalPriceDiscrepancy, SignalPossibleDup:
		return true
	}
	return false
}

// Severity is the urgency classification attached to a signal.
type Severity string

const (
	SeverityInfo    Severity = "INFO"
	SeverityWarning Severity = "WARNING"
)

func (s Severity) Valid() bool {
	return s == SeverityInfo || s == SeverityWarning
}

// SignalStatus is the governance lifecycle state. This core only ever writes
// StatusOpen; transitions are driven by the governance consumer.
type SignalStatus string

const (
	StatusOpen         SignalStatus = "OPEN"
	StatusAcknowledged SignalStatus = "ACKNOWLEDGED"
	StatusResolved     SignalStatus = "RESOLVED"
)

func (s SignalStatus) Valid() bool {
	switch s {
	case StatusOpen, StatusAcknowledged, StatusResolved:
		return true
	}
	return false
}

// CanTransitionTo reports whether the governance transition s -> next is legal.
func (s SignalStatus) CanTransitionTo(next SignalStatus) bool {
	switch s {
	case StatusOpen:
		return next == StatusAcknowledged || next == StatusResolved
	case StatusAcknowledged:
		return next == StatusResolved
	}
	return false
}

// SignalPayload is the self-contained evidence carried by a signal. A
// consumer must be able to render or act on it without re-reading listings.
type SignalPayload struct {
	ObservedPrice     *float64 `json:"observed_price,omitempty"`
	CanonicalPrice    *float64 `json:"canonical_price,omitempty"`
	PercentDifference *int     `json:"percent_difference,omitempty"`
	ObservedAddress   string   `json:"observed_address,omitempty"`
	CanonicalAddress  string   `json:"canonical_address,omitempty"`
	SourceName        string   `json:"source_name,omitempty"`
	ConfidenceScore   float64  `json:"confidence_score,omitempty"`
	Message           string   `json:"message"`
	Synthetic         bool     `json:"synthetic,omitempty"`
}

// Signal is the sole output entity of the reconciliation engine.
type Signal struct {
	ID                string        `json:"id"`
	Type              SignalType    `json:"type"`
	Severity          Severity      `json:"severity"`
	ObservedListingID string        `json:"observed_listing_id"`
	MatchedListingID  *string       `json:"matched_listing_id,omitempty"` // required for price/duplicate types
	Payload           SignalPayload `json:"payload"`
	Status            SignalStatus  `json:"status"`
	CreatedAt         time.Time     `json:"created_at"`
}

// Fingerprint derives the identity of the underlying condition, stable
// across runs: same cause, same fingerprint.
func (s Signal) Fingerprint() string {
	matched := ""
	if s.MatchedListingID != nil {
		matched = *s.MatchedListingID
	}
	return strings.Join([]string{string(s.Type), s.ObservedListingID, matched}, "|")
}

// Validate enforces the structural invariants on a freshly built signal.
func (s Signal) Validate() error {
	if !s.Type.Valid() {
		return fmt.Errorf("invalid signal type %q", s.Type)
	}
	if !s.Severity.Valid() {
		return fmt.Errorf("invalid severity %q", s.Severity)
	}
	if s.ObservedListingID == "" {
		return fmt.Errorf("signal missing observed listing reference")
	}
	switch s.Type {
	case SignalPriceDiscrepancy, SignalPossibleDup:
		if s.MatchedListingID == nil || *s.MatchedListingID == "" {
			return fmt.Errorf("%s signal missing matched listing reference", s.Type)
		}
	case SignalNewListing:
		if s.MatchedListingID != nil {
			return fmt.Errorf("NEW_LISTING signal must not carry a matched listing")
		}
	}
	return nil
}
