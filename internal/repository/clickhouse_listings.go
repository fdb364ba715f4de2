package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"PropRecon/internal/domain/models"
	"PropRecon/internal/domain/repository"
)

// ClickHouseObservedListings reads the crawl snapshot table. The ingestion
// subsystem owns writes; this side is strictly read-only.
type ClickHouseObservedListings struct {
	db    *sql.DB
	table string
}

// NewClickHouseObservedListings creates the observed snapshot reader.
func NewClickHouseObservedListings(db *sql.DB, table string) repository.ObservedListings {
	return &ClickHouseObservedListings{db: db, table: table}
}

func (r *ClickHouseObservedListings) List(ctx context.Context) ([]models.ObservedListing, error) {
	q := fmt.Sprintf(
		"SELECT id, title, address, price, created_at, confidence_score, source_name, source_trust_tier FROM %s ORDER BY id",
		r.table,
	)
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query observed listings: %w", err)
	}
	defer rows.Close()

	var out []models.ObservedListing
	for rows.Next() {
		var (
			o         models.ObservedListing
			price     sql.NullFloat64
			createdAt time.Time
		)
		if err := rows.Scan(&o.ID, &o.Title, &o.Address, &price, &createdAt, &o.ConfidenceScore, &o.Source.Name, &o.Source.TrustTier); err != nil {
			return nil, fmt.Errorf("scan observed listing: %w", err)
		}
		if price.Valid {
			p := price.Float64
			o.Price = &p
		}
		o.CreatedAt = createdAt
		out = append(out, o)
	}
	return out, rows.Err()
}

// ClickHouseCanonicalListings reads the authoritative inventory replica.
type ClickHouseCanonicalListings struct {
	db    *sql.DB
	table string
}

// NewClickHouseCanonicalListings creates the canonical snapshot reader.
func NewClickHouseCanonicalListings(db *sql.DB, table string) repository.CanonicalListings {
	return &ClickHouseCanonicalListings{db: db, table: table}
}

func (r *ClickHouseCanonicalListings) List(ctx context.Context) ([]models.CanonicalListing, error) {
	q := fmt.Sprintf("SELECT id, title, address, city, price FROM %s ORDER BY id", r.table)
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query canonical listings: %w", err)
	}
	defer rows.Close()

	var out []models.CanonicalListing
	for rows.Next() {
		var c models.CanonicalListing
		if err := rows.Scan(&c.ID, &c.Title, &c.Address, &c.City, &c.Price); err != nil {
			return nil, fmt.Errorf("scan canonical listing: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
