package models

import "time"

// ReconcileStats describes how a run's output was merged into the
// outstanding signal set.
type ReconcileStats struct {
	Inserted int `json:"inserted"`
	Retained int `json:"retained"` // fingerprint already outstanding, row kept (status preserved)
	Retired  int `json:"retired"`  // condition no longer holds, row removed
}

// RunReport is the operator-facing result of one reconciliation run.
type RunReport struct {
	RunID              string         `json:"run_id"`
	DryRun             bool           `json:"dry_run"`
	StartedAt          time.Time      `json:"started_at"`
	Duration           time.Duration  `json:"duration"`
	ObservedCount      int            `json:"observed_count"`
	CanonicalCount     int            `json:"canonical_count"`
	NewListings        int            `json:"new_listings"`
	PriceDiscrepancies int            `json:"price_discrepancies"`
	PossibleDuplicates int            `json:"possible_duplicates"`
	Synthetic          int            `json:"synthetic"`
	Reconcile          ReconcileStats `json:"reconcile"`
	TotalOutstanding   int            `json:"total_outstanding"`
}

// Emitted is the number of signals the detection passes produced.
func (r *RunReport) Emitted() int {
	return r.NewListings + r.PriceDiscrepancies + r.PossibleDuplicates
}
