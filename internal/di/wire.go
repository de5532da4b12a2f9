//go:build wireinject
// +build wireinject

package di

import (
	"CoinSim/pkg/config"
	"CoinSim/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Logging and metrics
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideRedisCache,
		ProvideCacheService,
		ProvideRawCache,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,

		// Repositories
		ProvideCandleStore,
		ProvideKafkaJournal,
		ProvideCHJournal,
		ProvideMarketFeed,
		ProvideMarketStream,
		ProvideStateStore,

		// Simulator core
		ProvideIDGenerator,
		ProvideAccount,
		ProvideSpotLedger,
		ProvideFuturesEngine,
		ProvideJournalProcessor,
		ProvideTradingService,

		// Market data and signals
		ProvideMarketDataService,
		ProvideCandlesUseCase,
		ProvideAnalyzer,
		ProvideSignalService,

		// Background jobs
		ProvideJobQueue,
		ProvideSignalScanner,
		ProvideScheduler,
		ProvideCandleBuilder,
		ProvidePriceCollector,
		ProvideKafkaJournalHandler,

		// HTTP handlers
		ProvideSignalsHandler,
		ProvideMarketsHandler,
		ProvideTradingHandler,
		ProvideRouter,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
