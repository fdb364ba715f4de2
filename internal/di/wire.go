//go:build wireinject
// +build wireinject

package di

import (
	"PropRecon/pkg/config"
	"PropRecon/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideRedisClient,

		// Repositories
		ProvideObservedListings,
		ProvideCanonicalListings,
		ProvideSignalStore,
		ProvidePublisher,
		ProvideRunLock,

		// Detection services
		ProvideMatcher,
		ProvideClassifier,
		ProvideLimits,

		// Use cases
		ProvideSignalGenerator,
		ProvideRunUseCase,

		// HTTP and application
		ProvideHandler,
		ProvideApp,
	)
	return &server.App{}, nil
}
