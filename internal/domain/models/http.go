package models

// Requests for the signals HTTP endpoints. Defined in domain for consistency and reuse.

type ListSignalsRequest struct {
	Type     string `query:"type" json:"type" validate:"omitempty,oneof=NEW_LISTING PRICE_DISCREPANCY POSSIBLE_DUPLICATE"`
	Severity string `query:"severity" json:"severity" validate:"omitempty,oneof=INFO WARNING"`
	Status   string `query:"status" json:"status" validate:"omitempty,oneof=OPEN ACKNOWLEDGED RESOLVED"`
	Limit    int    `query:"limit" json:"limit" default:"100" validate:"gte=1,lte=1000"`
}

type TriggerRunRequest struct {
	DryRun bool `query:"dry_run" json:"dry_run"`
}

type UpdateSignalStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=ACKNOWLEDGED RESOLVED"`
}
