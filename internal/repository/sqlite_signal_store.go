package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"PropRecon/internal/domain/models"
	"PropRecon/internal/domain/repository"
)

const signalSchema = `
CREATE TABLE IF NOT EXISTS signals (
	id                  TEXT PRIMARY KEY,
	fingerprint         TEXT NOT NULL UNIQUE,
	type                TEXT NOT NULL,
	severity            TEXT NOT NULL,
	observed_listing_id TEXT NOT NULL,
	matched_listing_id  TEXT,
	payload             TEXT NOT NULL,
	status              TEXT NOT NULL DEFAULT 'OPEN',
	created_at          TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_signals_type ON signals(type);
CREATE INDEX IF NOT EXISTS idx_signals_status ON signals(status);
`

// SQLiteSignalStore implements SignalStore on SQLite. The write paths run in
// a single transaction, so a concurrent reader only ever sees the previous
// complete set or the new complete set.
type SQLiteSignalStore struct {
	db *sql.DB
}

// NewSQLiteSignalStore creates the store; call Init before first use.
func NewSQLiteSignalStore(db *sql.DB) repository.SignalStore {
	return &SQLiteSignalStore{db: db}
}

func (s *SQLiteSignalStore) Init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, signalSchema); err != nil {
		return fmt.Errorf("init signal schema: %w", err)
	}
	return nil
}

// Reconcile merges a run's output by condition fingerprint. Rows whose
// fingerprint the run reproduced keep their governance status; fingerprints
// the run no longer produces are retired; the rest are inserted as OPEN.
func (s *SQLiteSignalStore) Reconcile(ctx context.Context, signals []models.Signal) (models.ReconcileStats, error) {
	var stats models.ReconcileStats

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return stats, fmt.Errorf("begin reconcile: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	existing := make(map[string]struct{})
	rows, err := tx.QueryContext(ctx, "SELECT fingerprint FROM signals")
	if err != nil {
		return stats, fmt.Errorf("load fingerprints: %w", err)
	}
	for rows.Next() {
		var fp string
		if err := rows.Scan(&fp); err != nil {
			rows.Close()
			return stats, fmt.Errorf("scan fingerprint: %w", err)
		}
		existing[fp] = struct{}{}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return stats, fmt.Errorf("iterate fingerprints: %w", err)
	}

	produced := make(map[string]struct{}, len(signals))
	for _, sig := range signals {
		fp := sig.Fingerprint()
		if _, dup := produced[fp]; dup {
			continue // same condition surfaced twice in one run
		}
		produced[fp] = struct{}{}
		if _, ok := existing[fp]; ok {
			stats.Retained++
			continue
		}
		if err := insertSignal(ctx, tx, sig, fp); err != nil {
			return stats, err
		}
		stats.Inserted++
	}

	for fp := range existing {
		if _, ok := produced[fp]; ok {
			continue
		}
		res, err := tx.ExecContext(ctx, "DELETE FROM signals WHERE fingerprint = ?", fp)
		if err != nil {
			return stats, fmt.Errorf("retire signal: %w", err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			stats.Retired++
		}
	}

	if err := tx.Commit(); err != nil {
		return stats, fmt.Errorf("commit reconcile: %w", err)
	}
	return stats, nil
}

// ReplaceAll clears the prior set and inserts the new one atomically.
func (s *SQLiteSignalStore) ReplaceAll(ctx context.Context, signals []models.Signal) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM signals"); err != nil {
		return fmt.Errorf("clear signals: %w", err)
	}
	seen := make(map[string]struct{}, len(signals))
	for _, sig := range signals {
		fp := sig.Fingerprint()
		if _, dup := seen[fp]; dup {
			continue
		}
		seen[fp] = struct{}{}
		if err := insertSignal(ctx, tx, sig, fp); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace: %w", err)
	}
	return nil
}

func insertSignal(ctx context.Context, tx *sql.Tx, sig models.Signal, fp string) error {
	payload, err := json.Marshal(sig.Payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	var matched sql.NullString
	if sig.MatchedListingID != nil {
		matched = sql.NullString{String: *sig.MatchedListingID, Valid: true}
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO signals (id, fingerprint, type, severity, observed_listing_id, matched_listing_id, payload, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sig.ID, fp, string(sig.Type), string(sig.Severity), sig.ObservedListingID, matched, string(payload), string(models.StatusOpen), sig.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert signal: %w", err)
	}
	return nil
}

func (s *SQLiteSignalStore) List(ctx context.Context, f repository.SignalFilter) ([]models.Signal, error) {
	q := "SELECT id, type, severity, observed_listing_id, matched_listing_id, payload, status, created_at FROM signals"
	var conds []string
	var args []any
	if f.Type != "" {
		conds = append(conds, "type = ?")
		args = append(args, string(f.Type))
	}
	if f.Severity != "" {
		conds = append(conds, "severity = ?")
		args = append(args, string(f.Severity))
	}
	if f.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, string(f.Status))
	}
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY created_at DESC, id"
	if f.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list signals: %w", err)
	}
	defer rows.Close()

	var out []models.Signal
	for rows.Next() {
		var (
			sig       models.Signal
			typ       string
			severity  string
			matched   sql.NullString
			payload   string
			status    string
			createdAt time.Time
		)
		if err := rows.Scan(&sig.ID, &typ, &severity, &sig.ObservedListingID, &matched, &payload, &status, &createdAt); err != nil {
			return nil, fmt.Errorf("scan signal: %w", err)
		}
		sig.Type = models.SignalType(typ)
		sig.Severity = models.Severity(severity)
		sig.Status = models.SignalStatus(status)
		sig.CreatedAt = createdAt
		if matched.Valid {
			m := matched.String
			sig.MatchedListingID = &m
		}
		if err := json.Unmarshal([]byte(payload), &sig.Payload); err != nil {
			return nil, fmt.Errorf("unmarshal payload: %w", err)
		}
		out = append(out, sig)
	}
	return out, rows.Err()
}

func (s *SQLiteSignalStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM signals").Scan(&n); err != nil {
		return 0, fmt.Errorf("count signals: %w", err)
	}
	return n, nil
}

func (s *SQLiteSignalStore) CountByType(ctx context.Context) (map[models.SignalType]int, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT type, COUNT(*) FROM signals GROUP BY type")
	if err != nil {
		return nil, fmt.Errorf("count by type: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.SignalType]int)
	for rows.Next() {
		var typ string
		var n int
		if err := rows.Scan(&typ, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[models.SignalType(typ)] = n
	}
	return counts, rows.Err()
}

// UpdateStatus applies a governance transition after checking it is legal
// from the row's current status.
func (s *SQLiteSignalStore) UpdateStatus(ctx context.Context, id string, status models.SignalStatus) error {
	if !status.Valid() {
		return fmt.Errorf("invalid status %q", status)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin status update: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var current string
	err = tx.QueryRowContext(ctx, "SELECT status FROM signals WHERE id = ?", id).Scan(&current)
	if err == sql.ErrNoRows {
		return fmt.Errorf("signal %s: %w", id, repository.ErrSignalNotFound)
	}
	if err != nil {
		return fmt.Errorf("load signal status: %w", err)
	}
	if !models.SignalStatus(current).CanTransitionTo(status) {
		return fmt.Errorf("%w: %s -> %s", repository.ErrIllegalTransition, current, status)
	}
	if _, err := tx.ExecContext(ctx, "UPDATE signals SET status = ? WHERE id = ?", string(status), id); err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit status update: %w", err)
	}
	return nil
}

func (s *SQLiteSignalStore) Close() error {
	return s.db.Close()
}
