package di

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"PropRecon/internal/handler/api"
	"PropRecon/internal/repository"
	"PropRecon/internal/service/recon"
	"PropRecon/internal/usecase"
	pkgch "PropRecon/pkg/clickhouse"
	"PropRecon/pkg/config"
	xhttp "PropRecon/pkg/http"
	pkgkafka "PropRecon/pkg/kafka"
	applogger "PropRecon/pkg/logger"
	pkgmetrics "PropRecon/pkg/metrics"
	"PropRecon/pkg/server"
	pkgsqlite "PropRecon/pkg/sqlite"

	domrepo "PropRecon/internal/domain/repository"
)

// ProvideLogger builds the application logger from config.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	return applogger.New(&applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
}

// ProvideMetrics builds the Prometheus recorder.
func ProvideMetrics() domrepo.Metrics {
	return pkgmetrics.New()
}

// ProvideClickHouseClient connects to ClickHouse. Returns nil for the
// memory backend; no connection is attempted.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if cfg.Storage.Backend != "clickhouse" {
		return nil, nil
	}
	return pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
}

// ProvideObservedListings selects the observed snapshot source by backend.
func ProvideObservedListings(cfg *config.Config, ch *pkgch.Client) (domrepo.ObservedListings, error) {
	if cfg.Storage.Backend == "memory" {
		return repository.LoadObservedFile(cfg.Storage.ObservedFile)
	}
	return repository.NewClickHouseObservedListings(ch.DB(), cfg.ClickHouse.ObservedTable), nil
}

// ProvideCanonicalListings selects the canonical snapshot source by backend.
func ProvideCanonicalListings(cfg *config.Config, ch *pkgch.Client) (domrepo.CanonicalListings, error) {
	if cfg.Storage.Backend == "memory" {
		return repository.LoadCanonicalFile(cfg.Storage.CanonicalFile)
	}
	return repository.NewClickHouseCanonicalListings(ch.DB(), cfg.ClickHouse.CanonicalTable), nil
}

// ProvideSignalStore opens the SQLite signal store and ensures the schema.
func ProvideSignalStore(cfg *config.Config) (domrepo.SignalStore, error) {
	db, err := pkgsqlite.Open(cfg.Signals.Path)
	if err != nil {
		return nil, fmt.Errorf("open signal store: %w", err)
	}
	store := repository.NewSQLiteSignalStore(db)
	if err := store.Init(context.Background()); err != nil {
		return nil, fmt.Errorf("init signal store: %w", err)
	}
	return store, nil
}

// ProvideKafkaProducer connects the producer. Returns nil when Kafka is
// disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	return pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.BatchBytes, cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
	)
}

// ProvidePublisher wraps the producer, or drops signals when Kafka is off.
func ProvidePublisher(cfg *config.Config, producer *pkgkafka.Producer) domrepo.Publisher {
	if producer == nil {
		return repository.NewNopPublisher()
	}
	return repository.NewKafkaSignalPublisher(producer, cfg.Kafka.Topic)
}

// ProvideRedisClient connects to Redis. Returns nil when Redis is disabled.
func ProvideRedisClient(cfg *config.Config) *redis.Client {
	if !cfg.Redis.Enabled {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

// ProvideRunLock selects the distributed lock when Redis is configured,
// otherwise a process-local one.
func ProvideRunLock(cfg *config.Config, rdb *redis.Client) domrepo.RunLock {
	if rdb == nil {
		return repository.NewLocalRunLock()
	}
	return repository.NewRedisRunLock(rdb, "proprecon:run_lock", cfg.Redis.LockTTL)
}

// ProvideMatcher builds the matcher from configured thresholds.
func ProvideMatcher(cfg *config.Config) *recon.Matcher {
	return recon.NewMatcher(recon.Thresholds{
		PriceDelta:               cfg.Recon.PriceDeltaThreshold,
		DuplicateMinSharedTokens: cfg.Recon.DuplicateMinTokens,
		DuplicateMinTokenLength:  cfg.Recon.DuplicateMinTokenLength,
	})
}

// ProvideClassifier builds the severity classifier.
func ProvideClassifier(cfg *config.Config) *recon.SeverityClassifier {
	return recon.NewSeverityClassifier(cfg.Recon.WarningPercent)
}

// ProvideLimits maps configured pass bounds.
func ProvideLimits(cfg *config.Config) usecase.Limits {
	return usecase.Limits{
		NewListingWindow:        cfg.Recon.NewListingWindow,
		NewListingCap:           cfg.Recon.NewListingCap,
		PriceScanLimit:          cfg.Recon.PriceScanLimit,
		PriceCap:                cfg.Recon.PriceCap,
		DuplicateScanLimit:      cfg.Recon.DuplicateScanLimit,
		DuplicateCap:            cfg.Recon.DuplicateCap,
		SyntheticFallback:       cfg.SyntheticEnabled(),
		SyntheticPricePairs:     cfg.Recon.SyntheticPricePairs,
		SyntheticDuplicatePairs: cfg.Recon.SyntheticDuplicatePairs,
	}
}

// ProvideSignalGenerator builds the detection pass runner.
func ProvideSignalGenerator(
	matcher *recon.Matcher,
	classifier *recon.SeverityClassifier,
	limits usecase.Limits,
	metrics domrepo.Metrics,
	logger *applogger.Logger,
) *usecase.SignalGenerator {
	return usecase.NewSignalGenerator(matcher, classifier, limits, metrics, logger)
}

// ProvideRunUseCase builds the run orchestrator.
func ProvideRunUseCase(
	cfg *config.Config,
	observed domrepo.ObservedListings,
	canonical domrepo.CanonicalListings,
	store domrepo.SignalStore,
	publisher domrepo.Publisher,
	lock domrepo.RunLock,
	gen *usecase.SignalGenerator,
	metrics domrepo.Metrics,
	logger *applogger.Logger,
) *usecase.RunUseCase {
	return usecase.NewRunUseCase(observed, canonical, store, publisher, lock, gen, metrics, logger, cfg.Signals.ReplaceOnRun)
}

// ProvideHandler builds the HTTP handler.
func ProvideHandler(logger *applogger.Logger, run *usecase.RunUseCase, store domrepo.SignalStore) xhttp.Handler {
	return api.NewSignalsHandler(logger, run, store)
}

// ProvideApp builds the application.
func ProvideApp(
	cfg *config.Config,
	logger *applogger.Logger,
	run *usecase.RunUseCase,
	handler xhttp.Handler,
	store domrepo.SignalStore,
	publisher domrepo.Publisher,
	ch *pkgch.Client,
	rdb *redis.Client,
) *server.App {
	return server.New(cfg, logger, run, handler, store, publisher, ch, rdb)
}
