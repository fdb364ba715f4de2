package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PropRecon/internal/domain/models"
	domrepo "PropRecon/internal/domain/repository"
	"PropRecon/internal/repository"
	applogger "PropRecon/pkg/logger"
)

func listAll() domrepo.SignalFilter { return domrepo.SignalFilter{} }

type runFixture struct {
	observed  *repository.MemoryObservedListings
	canonical *repository.MemoryCanonicalListings
	store     *repository.MemorySignalStore
	publisher *repository.NopPublisher
	uc        *RunUseCase
}

func newRunFixture(t *testing.T, observed []models.ObservedListing, canonical []models.CanonicalListing, replaceOnRun bool) *runFixture {
	t.Helper()
	f := &runFixture{
		observed:  repository.NewMemoryObservedListings(observed),
		canonical: repository.NewMemoryCanonicalListings(canonical),
		store:     repository.NewMemorySignalStore(),
		publisher: repository.NewNopPublisher(),
	}
	gen := newTestGenerator(t, DefaultLimits())
	f.uc = NewRunUseCase(
		f.observed,
		f.canonical,
		f.store,
		f.publisher,
		repository.NewLocalRunLock(),
		gen,
		nopMetrics{},
		applogger.Nop(),
		replaceOnRun,
	)
	return f
}

func matchedPair() ([]models.ObservedListing, []models.CanonicalListing) {
	obs := obsListing("obs-1", time.Hour)
	obs.Address = "Avenida Revolución 1450 Campestre"
	obs.Price = price(2900000)
	canonical := []models.CanonicalListing{
		{ID: "can-1", Title: "Depto", Address: "Av. Revolución 1450 Campestre", City: "Campestre", Price: 2000000},
	}
	return []models.ObservedListing{obs}, canonical
}

func TestRunPersistsAndPublishes(t *testing.T) {
	observed, canonical := matchedPair()
	f := newRunFixture(t, observed, canonical, false)

	report, err := f.uc.Run(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, 1, report.ObservedCount)
	assert.Equal(t, 1, report.CanonicalCount)
	assert.Equal(t, 1, report.NewListings)
	assert.Equal(t, 1, report.PriceDiscrepancies)
	assert.Equal(t, 1, report.PossibleDuplicates)
	assert.Equal(t, 0, report.Synthetic)
	assert.Equal(t, 3, report.TotalOutstanding)
	assert.Equal(t, 3, report.Reconcile.Inserted)

	stored, err := f.store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, stored)
	assert.Len(t, f.publisher.Published, 3)
}

func TestRunEmptyObservedLeavesStoreUntouched(t *testing.T) {
	observed, canonical := matchedPair()
	f := newRunFixture(t, observed, canonical, false)

	_, err := f.uc.Run(context.Background(), false)
	require.NoError(t, err)
	before, _ := f.store.Count(context.Background())
	require.Equal(t, 3, before)

	// next snapshot comes back empty: the run must fail before any write
	f.observed.Listings = nil
	_, err = f.uc.Run(context.Background(), false)
	assert.ErrorIs(t, err, ErrNoObservedData)

	after, _ := f.store.Count(context.Background())
	assert.Equal(t, before, after)
}

func TestRunDryRunPersistsNothing(t *testing.T) {
	observed, canonical := matchedPair()
	f := newRunFixture(t, observed, canonical, false)

	report, err := f.uc.Run(context.Background(), true)
	require.NoError(t, err)
	assert.True(t, report.DryRun)
	assert.Equal(t, 3, report.Emitted())

	stored, _ := f.store.Count(context.Background())
	assert.Zero(t, stored)
	assert.Empty(t, f.publisher.Published)
}

func TestRunWhileLockedSkips(t *testing.T) {
	observed, canonical := matchedPair()
	f := newRunFixture(t, observed, canonical, false)

	lock := repository.NewLocalRunLock()
	held, err := lock.Acquire(context.Background())
	require.NoError(t, err)
	require.True(t, held)
	f.uc.lock = lock

	_, err = f.uc.Run(context.Background(), false)
	assert.ErrorIs(t, err, ErrRunInProgress)
}

func TestRunReconcilePreservesGovernanceStatus(t *testing.T) {
	observed, canonical := matchedPair()
	f := newRunFixture(t, observed, canonical, false)

	_, err := f.uc.Run(context.Background(), false)
	require.NoError(t, err)

	signals, err := f.store.List(context.Background(), listAll())
	require.NoError(t, err)
	require.Len(t, signals, 3)
	acked := signals[0]
	require.NoError(t, f.store.UpdateStatus(context.Background(), acked.ID, models.StatusAcknowledged))

	// identical input: all three fingerprints recur, nothing is retired
	report, err := f.uc.Run(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Reconcile.Inserted)
	assert.Equal(t, 3, report.Reconcile.Retained)
	assert.Equal(t, 0, report.Reconcile.Retired)

	signals, err = f.store.List(context.Background(), listAll())
	require.NoError(t, err)
	statuses := map[string]models.SignalStatus{}
	for _, s := range signals {
		statuses[s.ID] = s.Status
	}
	assert.Equal(t, models.StatusAcknowledged, statuses[acked.ID])
}

func TestRunReconcileRetiresStaleSignals(t *testing.T) {
	observed, canonical := matchedPair()
	f := newRunFixture(t, observed, canonical, false)

	_, err := f.uc.Run(context.Background(), false)
	require.NoError(t, err)

	// observed listing ages out of the recency window; its NEW_LISTING
	// fingerprint stops recurring and gets retired
	f.observed.Listings[0].CreatedAt = testNow.Add(-10 * 24 * time.Hour)
	report, err := f.uc.Run(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Reconcile.Retired)
	assert.Equal(t, 2, report.Reconcile.Retained)
	assert.Equal(t, 2, report.TotalOutstanding)
}

func TestRunReplaceOnRunResetsStatus(t *testing.T) {
	observed, canonical := matchedPair()
	f := newRunFixture(t, observed, canonical, true)

	_, err := f.uc.Run(context.Background(), false)
	require.NoError(t, err)
	signals, _ := f.store.List(context.Background(), listAll())
	require.NotEmpty(t, signals)
	require.NoError(t, f.store.UpdateStatus(context.Background(), signals[0].ID, models.StatusResolved))

	_, err = f.uc.Run(context.Background(), false)
	require.NoError(t, err)
	signals, _ = f.store.List(context.Background(), listAll())
	for _, s := range signals {
		assert.Equal(t, models.StatusOpen, s.Status)
	}
}

func TestRunSyntheticSignalsNotPublished(t *testing.T) {
	// disjoint snapshots: every emitted comparison is a synthetic fallback
	obs := obsListing("obs-1", 30*24*time.Hour)
	obs.Price = price(500000)
	canonical := []models.CanonicalListing{
		{ID: "can-1", Title: "Far", Address: "Somewhere else", City: "Norte", Price: 1000000},
	}
	f := newRunFixture(t, []models.ObservedListing{obs}, canonical, false)

	report, err := f.uc.Run(context.Background(), false)
	require.NoError(t, err)
	require.Positive(t, report.Synthetic)

	stored, _ := f.store.Count(context.Background())
	assert.Positive(t, stored)
	assert.Empty(t, f.publisher.Published)
}
