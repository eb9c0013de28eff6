//go:build wireinject
// +build wireinject

package di

import (
	"Foresight/pkg/config"
	"Foresight/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Infrastructure clients
		ProvideKafkaProducer,
		ProvideLogger,
		ProvideMetrics,
		ProvideClickHouseClient,
		ProvideRedisCache,

		// Repositories
		ProvideCardStore,
		ProvideCardCache,
		ProvideEventPublisher,

		// Research collaborators
		ProvideEvidenceCollector,
		ProvideCritic,
		ProvideMarketCollector,

		// Pipeline and use cases
		ProvideOrchestrator,
		ProvideAnalysisUseCase,
		ProvideAnalysisRequestsHandler,

		// Transport
		ProvideForecastHandler,
		ProvideHTTPServer,
		ProvideKafkaConsumer,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
