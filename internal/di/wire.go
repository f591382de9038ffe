//go:build wireinject
// +build wireinject

package di

import (
	"Conflux/pkg/config"
	"Conflux/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Domain services
		ProvideNormalizer,
		ProvideWeights,
		ProvideThresholds,
		ProvideScorer,
		ProvideSynthesizer,

		// State and persistence
		ProvideStore,
		ProvideStateStore,
		ProvideRedisCache,
		ProvideSnapshotter,

		// Archive path
		ProvideArchiveSink,
		ProvideJobQueue,
		ProvideArchive,

		// Inbound
		ProvideRecordStream,
		ProvideKafkaConsumer,

		// Use cases
		ProvideIngestor,
		ProvideQuery,
		ProvideRecordCollector,
		ProvideKafkaRecordsHandler,

		// HTTP
		ProvideEchoHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
