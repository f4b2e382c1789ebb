//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"FinRisk/pkg/config"
	"FinRisk/pkg/server"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Engine
		ProvideRiskParams,
		ProvideEngine,
		ProvideTableStore,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvidePostgresPool,
		ProvideRedisClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,

		// Repositories
		ProvideBandStore,
		ProvidePriceSource,
		ProvideDistributionSource,
		ProvideBoundsStore,
		ProvideStateStore,
		ProvideScorePublisher,

		// Use cases
		ProvideBoundsResolver,
		ProvideCalibration,
		ProvideRiskScoring,
		ProvideDistributionHandler,

		// Transport
		ProvideRiskHandler,
		ProvideRateLimiter,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return nil, nil, nil
}
