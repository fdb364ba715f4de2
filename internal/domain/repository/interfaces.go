package repository

import (
	"context"
	"errors"

	"PropRecon/internal/domain/models"
)

// ErrSignalNotFound is returned by SignalStore operations addressing a
// signal id that is no longer outstanding.
var ErrSignalNotFound = errors.New("signal not found")

// ErrIllegalTransition is returned by UpdateStatus when the requested status
// change violates the OPEN -> ACKNOWLEDGED -> RESOLVED lifecycle.
var ErrIllegalTransition = errors.New("illegal status transition")

// ObservedListings provides the snapshot of externally observed listings for
// one run. Implementations load the full set; the engine never pages.
type ObservedListings interface {
	List(ctx context.Context) ([]models.ObservedListing, error)
}

// CanonicalListings provides the authoritative inventory snapshot.
type CanonicalListings interface {
	List(ctx context.Context) ([]models.CanonicalListing, error)
}

// SignalFilter narrows SignalStore.List results. Zero values mean "any".
type SignalFilter struct {
	Type     models.SignalType
	Severity models.Severity
	Status   models.SignalStatus
	Limit    int
}

// SignalStore owns the outstanding signal set. Reconcile and ReplaceAll are
// atomic: a concurrent reader never observes a partially written set.
type SignalStore interface {
	Init(ctx context.Context) error
	// Reconcile merges a run's output by fingerprint: unseen fingerprints are
	// inserted as OPEN, outstanding ones are kept with their governance
	// status, and fingerprints absent from signals are retired.
	Reconcile(ctx context.Context, signals []models.Signal) (models.ReconcileStats, error)
	// ReplaceAll clears the prior set and inserts signals in one transaction.
	ReplaceAll(ctx context.Context, signals []models.Signal) error
	List(ctx context.Context, f SignalFilter) ([]models.Signal, error)
	Count(ctx context.Context) (int, error)
	CountByType(ctx context.Context) (map[models.SignalType]int, error)
	// UpdateStatus applies a governance transition; illegal transitions error.
	UpdateStatus(ctx context.Context, id string, status models.SignalStatus) error
	Close() error
}

// Publisher delivers a run's emitted signals to downstream consumers.
type Publisher interface {
	PublishSignals(ctx context.Context, signals []models.Signal) error
	Close() error
}

// RunLock enforces the one-run-in-flight rule. Acquire returns false when
// another run holds the lock; callers skip rather than queue.
type RunLock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

type Metrics interface {
	RecordRun(result string, seconds float64)
	RecordPass(pass string, seconds float64)
	RecordSignal(sigType, severity string)
	RecordError(kind string)
	SetOutstanding(sigType string, n float64)
}
