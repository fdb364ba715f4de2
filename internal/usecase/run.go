package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"PropRecon/internal/domain/models"
	domrepo "PropRecon/internal/domain/repository"
	applogger "PropRecon/pkg/logger"
)

// ErrNoObservedData is the precondition failure: the observed snapshot is
// empty, so a run would wipe real signals on the back of missing input. It
// is distinct from a run that succeeded and found nothing to flag.
var ErrNoObservedData = errors.New("observed listing snapshot is empty; re-trigger ingestion before running")

// ErrRunInProgress is returned when another run holds the run lock.
var ErrRunInProgress = errors.New("a reconciliation run is already in flight")

// RunUseCase orchestrates one reconciliation run: lock, load, detect,
// persist, publish, report.
type RunUseCase struct {
	observed  domrepo.ObservedListings
	canonical domrepo.CanonicalListings
	store     domrepo.SignalStore
	publisher domrepo.Publisher
	lock      domrepo.RunLock
	gen       *SignalGenerator
	metrics   domrepo.Metrics
	logger    *applogger.Logger

	// replaceOnRun selects the full clear-and-regenerate write path instead
	// of fingerprint reconciliation.
	replaceOnRun bool
}

func NewRunUseCase(
	observed domrepo.ObservedListings,
	canonical domrepo.CanonicalListings,
	store domrepo.SignalStore,
	publisher domrepo.Publisher,
	lock domrepo.RunLock,
	gen *SignalGenerator,
	metrics domrepo.Metrics,
	lgr *applogger.Logger,
	replaceOnRun bool,
) *RunUseCase {
	return &RunUseCase{
		observed:     observed,
		canonical:    canonical,
		store:        store,
		publisher:    publisher,
		lock:         lock,
		gen:          gen,
		metrics:      metrics,
		logger:       lgr,
		replaceOnRun: replaceOnRun,
	}
}

// Run executes one reconciliation run. With dryRun the signal set is
// computed and reported but nothing is persisted or published.
func (uc *RunUseCase) Run(ctx context.Context, dryRun bool) (*models.RunReport, error) {
	ok, err := uc.lock.Acquire(ctx)
	if err != nil {
		uc.metrics.RecordError("lock")
		return nil, fmt.Errorf("acquire run lock: %w", err)
	}
	if !ok {
		return nil, ErrRunInProgress
	}
	defer func() {
		if rerr := uc.lock.Release(context.WithoutCancel(ctx)); rerr != nil {
			uc.logger.Warn("run lock release failed", applogger.Error(rerr))
		}
	}()

	start := time.Now()
	report := &models.RunReport{
		RunID:     uuid.NewString(),
		DryRun:    dryRun,
		StartedAt: start,
	}

	observed, err := uc.observed.List(ctx)
	if err != nil {
		uc.metrics.RecordError("load_observed")
		uc.metrics.RecordRun("error", time.Since(start).Seconds())
		return nil, fmt.Errorf("load observed listings: %w", err)
	}
	canonical, err := uc.canonical.List(ctx)
	if err != nil {
		uc.metrics.RecordError("load_canonical")
		uc.metrics.RecordRun("error", time.Since(start).Seconds())
		return nil, fmt.Errorf("load canonical listings: %w", err)
	}
	report.ObservedCount = len(observed)
	report.CanonicalCount = len(canonical)

	// Precondition check runs before any write so a failed run leaves the
	// prior signal set untouched.
	if len(observed) == 0 {
		uc.metrics.RecordRun("no_input", time.Since(start).Seconds())
		return nil, ErrNoObservedData
	}

	signals, err := uc.gen.Generate(ctx, observed, canonical)
	if err != nil {
		uc.metrics.RecordError("generate")
		uc.metrics.RecordRun("error", time.Since(start).Seconds())
		return nil, fmt.Errorf("generate signals: %w", err)
	}
	uc.tally(report, signals)

	if dryRun {
		report.Duration = time.Since(start)
		uc.metrics.RecordRun("dry_run", report.Duration.Seconds())
		uc.logger.Info("dry run complete",
			applogger.String("run_id", report.RunID),
			applogger.Int("emitted", report.Emitted()),
		)
		return report, nil
	}

	if uc.replaceOnRun {
		if err := uc.store.ReplaceAll(ctx, signals); err != nil {
			uc.metrics.RecordError("store")
			uc.metrics.RecordRun("error", time.Since(start).Seconds())
			return nil, fmt.Errorf("replace signal set: %w", err)
		}
		report.Reconcile = models.ReconcileStats{Inserted: len(signals)}
	} else {
		stats, err := uc.store.Reconcile(ctx, signals)
		if err != nil {
			uc.metrics.RecordError("store")
			uc.metrics.RecordRun("error", time.Since(start).Seconds())
			return nil, fmt.Errorf("reconcile signal set: %w", err)
		}
		report.Reconcile = stats
	}

	total, err := uc.store.Count(ctx)
	if err != nil {
		uc.metrics.RecordError("store")
		return nil, fmt.Errorf("count outstanding signals: %w", err)
	}
	report.TotalOutstanding = total

	uc.publish(ctx, signals)
	uc.observeGauges(ctx)

	for _, s := range signals {
		uc.metrics.RecordSignal(string(s.Type), string(s.Severity))
	}
	report.Duration = time.Since(start)
	uc.metrics.RecordRun("ok", report.Duration.Seconds())
	uc.logger.Info("run complete",
		applogger.String("run_id", report.RunID),
		applogger.Int("new_listings", report.NewListings),
		applogger.Int("price_discrepancies", report.PriceDiscrepancies),
		applogger.Int("possible_duplicates", report.PossibleDuplicates),
		applogger.Int("synthetic", report.Synthetic),
		applogger.Int("outstanding", report.TotalOutstanding),
		applogger.Duration("took", report.Duration),
	)
	return report, nil
}

func (uc *RunUseCase) tally(report *models.RunReport, signals []models.Signal) {
	for _, s := range signals {
		switch s.Type {
		case models.SignalNewListing:
			report.NewListings++
		case models.SignalPriceDiscrepancy:
			report.PriceDiscrepancies++
		case models.SignalPossibleDup:
			report.PossibleDuplicates++
		}
		if s.Payload.Synthetic {
			report.Synthetic++
		}
	}
}

// publish forwards the run's natural signals downstream. Synthetic
// placeholders stay local: they exist to keep reads non-empty, not to page
// anyone. Publish failures are logged, not fatal; the persisted set is the
// source of truth.
func (uc *RunUseCase) publish(ctx context.Context, signals []models.Signal) {
	natural := make([]models.Signal, 0, len(signals))
	for _, s := range signals {
		if !s.Payload.Synthetic {
			natural = append(natural, s)
		}
	}
	if len(natural) == 0 {
		return
	}
	if err := uc.publisher.PublishSignals(ctx, natural); err != nil {
		uc.metrics.RecordError("publish")
		uc.logger.Warn("signal publish failed", applogger.Error(err), applogger.Int("count", len(natural)))
	}
}

func (uc *RunUseCase) observeGauges(ctx context.Context) {
	counts, err := uc.store.CountByType(ctx)
	if err != nil {
		uc.logger.Warn("outstanding count failed", applogger.Error(err))
		return
	}
	for _, t := range []models.SignalType{models.SignalNewListing, models.SignalPriceDiscrepancy, models.SignalPossibleDup} {
		uc.metrics.SetOutstanding(string(t), float64(counts[t]))
	}
}
