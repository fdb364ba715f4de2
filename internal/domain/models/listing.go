package models

import "time"

// Source identifies the external data provider a listing was observed at.
type Source struct {
	Name      string
	TrustTier string // "verified", "partner", "scraped"
}

// ObservedListing is a property listing as captured from an external source
// at a point in time. Owned by the ingestion subsystem; read-only here.
type ObservedListing struct {
	ID              string
	Title           string
	Address         string   // free text, as scraped
	Price           *float64 // nil when the source did not expose a price
	CreatedAt       time.Time
	ConfidenceScore float64 // 0..1, assigned by the source adapter
	Source          Source
}

// HasPrice reports whether the listing carries a usable positive price.
func (o ObservedListing) HasPrice() bool {
	return o.Price != nil && *o.Price > 0
}

// CanonicalListing is an authoritative broker-owned property record.
// Owned by the listing-management subsystem; read-only here.
type CanonicalListing struct {
	ID      string
	Title   string
	Address string
	City    string
	Price   float64
}
