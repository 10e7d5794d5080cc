//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"TradeInfo/pkg/config"
	"TradeInfo/pkg/server"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Storage
		ProvideKVStore,
		ProvidePersister,

		// Change feed backends
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideChangeSink,
		ProvideChangeFeed,

		// Use cases
		ProvideWatchlistStore,
		ProvideStockSource,
		ProvideQuoteRefresher,
		ProvideKafkaConsumer,

		// Transport
		ProvideHTTPHandler,
		ProvideApp,
	)
	return &server.App{}, nil
}
