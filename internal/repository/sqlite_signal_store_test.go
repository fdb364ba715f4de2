package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PropRecon/internal/domain/models"
	domrepo "PropRecon/internal/domain/repository"
	pkgsqlite "PropRecon/pkg/sqlite"
)

func newTestStore(t *testing.T) domrepo.SignalStore {
	t.Helper()
	db, err := pkgsqlite.OpenMemory()
	require.NoError(t, err)
	store := NewSQLiteSignalStore(db)
	require.NoError(t, store.Init(context.Background()))
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testSignal(id string, t models.SignalType, obsID string, matched *string) models.Signal {
	return models.Signal{
		ID:                id,
		Type:              t,
		Severity:          models.SeverityInfo,
		ObservedListingID: obsID,
		MatchedListingID:  matched,
		Payload:           models.SignalPayload{Message: "msg " + id},
		Status:            models.StatusOpen,
		CreatedAt:         time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
	}
}

func sp(s string) *string { return &s }

func TestReconcileInsertRetainRetire(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := []models.Signal{
		testSignal("a", models.SignalNewListing, "obs-1", nil),
		testSignal("b", models.SignalPriceDiscrepancy, "obs-1", sp("can-1")),
	}
	stats, err := store.Reconcile(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, models.ReconcileStats{Inserted: 2}, stats)

	// second run reproduces one condition, drops one, adds one
	second := []models.Signal{
		testSignal("c", models.SignalPriceDiscrepancy, "obs-1", sp("can-1")), // same fingerprint as b
		testSignal("d", models.SignalPossibleDup, "obs-2", sp("can-2")),
	}
	stats, err = store.Reconcile(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, models.ReconcileStats{Inserted: 1, Retained: 1, Retired: 1}, stats)

	total, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	// the retained row keeps its original id, not the new run's
	signals, err := store.List(ctx, domrepo.SignalFilter{Type: models.SignalPriceDiscrepancy})
	require.NoError(t, err)
	require.Len(t, signals, 1)
	assert.Equal(t, "b", signals[0].ID)
}

func TestReconcilePreservesGovernanceStatus(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sig := testSignal("a", models.SignalNewListing, "obs-1", nil)
	_, err := store.Reconcile(ctx, []models.Signal{sig})
	require.NoError(t, err)
	require.NoError(t, store.UpdateStatus(ctx, "a", models.StatusResolved))

	// same fingerprint recurs under a fresh id; RESOLVED must survive
	recur := testSignal("z", models.SignalNewListing, "obs-1", nil)
	stats, err := store.Reconcile(ctx, []models.Signal{recur})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Retained)

	signals, err := store.List(ctx, domrepo.SignalFilter{})
	require.NoError(t, err)
	require.Len(t, signals, 1)
	assert.Equal(t, "a", signals[0].ID)
	assert.Equal(t, models.StatusResolved, signals[0].Status)
}

func TestReconcileDedupsWithinRun(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	dup1 := testSignal("a", models.SignalPossibleDup, "obs-1", sp("can-1"))
	dup2 := testSignal("b", models.SignalPossibleDup, "obs-1", sp("can-1"))
	stats, err := store.Reconcile(ctx, []models.Signal{dup1, dup2})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Inserted)
}

func TestReplaceAllClearsPriorSet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Reconcile(ctx, []models.Signal{
		testSignal("a", models.SignalNewListing, "obs-1", nil),
	})
	require.NoError(t, err)
	require.NoError(t, store.UpdateStatus(ctx, "a", models.StatusAcknowledged))

	err = store.ReplaceAll(ctx, []models.Signal{
		testSignal("b", models.SignalNewListing, "obs-1", nil),
		testSignal("c", models.SignalPossibleDup, "obs-2", sp("can-1")),
	})
	require.NoError(t, err)

	signals, err := store.List(ctx, domrepo.SignalFilter{})
	require.NoError(t, err)
	require.Len(t, signals, 2)
	for _, s := range signals {
		assert.Equal(t, models.StatusOpen, s.Status)
		assert.NotEqual(t, "a", s.ID)
	}
}

func TestListFiltersAndLimit(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	var signals []models.Signal
	for i := 0; i < 5; i++ {
		s := testSignal(fmt.Sprintf("n-%d", i), models.SignalNewListing, fmt.Sprintf("obs-%d", i), nil)
		signals = append(signals, s)
	}
	warn := testSignal("p-1", models.SignalPriceDiscrepancy, "obs-9", sp("can-1"))
	warn.Severity = models.SeverityWarning
	signals = append(signals, warn)
	_, err := store.Reconcile(ctx, signals)
	require.NoError(t, err)

	got, err := store.List(ctx, domrepo.SignalFilter{Type: models.SignalNewListing})
	require.NoError(t, err)
	assert.Len(t, got, 5)

	got, err = store.List(ctx, domrepo.SignalFilter{Severity: models.SeverityWarning})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "p-1", got[0].ID)
	require.NotNil(t, got[0].MatchedListingID)
	assert.Equal(t, "can-1", *got[0].MatchedListingID)
	assert.Equal(t, "msg p-1", got[0].Payload.Message)

	got, err = store.List(ctx, domrepo.SignalFilter{Limit: 3})
	require.NoError(t, err)
	assert.Len(t, got, 3)

	counts, err := store.CountByType(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, counts[models.SignalNewListing])
	assert.Equal(t, 1, counts[models.SignalPriceDiscrepancy])
}

func TestUpdateStatusTransitions(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Reconcile(ctx, []models.Signal{
		testSignal("a", models.SignalNewListing, "obs-1", nil),
	})
	require.NoError(t, err)

	require.NoError(t, store.UpdateStatus(ctx, "a", models.StatusAcknowledged))
	require.NoError(t, store.UpdateStatus(ctx, "a", models.StatusResolved))

	// RESOLVED is terminal
	err = store.UpdateStatus(ctx, "a", models.StatusAcknowledged)
	assert.ErrorIs(t, err, domrepo.ErrIllegalTransition)

	err = store.UpdateStatus(ctx, "missing", models.StatusResolved)
	assert.ErrorIs(t, err, domrepo.ErrSignalNotFound)

	err = store.UpdateStatus(ctx, "a", models.SignalStatus("NONSENSE"))
	assert.Error(t, err)
}
