//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"CandleCast/pkg/config"
	"CandleCast/pkg/server"
)

var infraSet = wire.NewSet(
	ProvideLogger,
	ProvideMetrics,
	ProvideClickHouseClient,
	ProvideSnapshotMirror,
	ProvideSnapshotStore,
	ProvideKafkaProducer,
	ProvideStage,
	ProvideHealthChecks,
	ProvideHTTPServer,
)

// InitializeCollector wires the collector process.
func InitializeCollector(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		wire.Value(config.StageCollector),
		infraSet,
		ProvideHistory,
		ProvideKlineSource,
		ProvideCollector,
		ProvideCollectorOps,
		ProvideCollectorApp,
	)
	return nil, nil, nil
}

// InitializeAnalyst wires the analyst process.
func InitializeAnalyst(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		wire.Value(config.StageAnalyst),
		infraSet,
		ProvideHistory,
		ProvideEngine,
		ProvideAnalyst,
		ProvideFailureWatcher,
		ProvideKafkaConsumer,
		ProvideStageOps,
		ProvideAnalystApp,
	)
	return nil, nil, nil
}

// InitializeAdvisor wires the advisor process.
func InitializeAdvisor(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		wire.Value(config.StageAdvisor),
		infraSet,
		ProvideNarrativeService,
		ProvideAdvisor,
		ProvideFailureWatcher,
		ProvideKafkaConsumer,
		ProvideStageOps,
		ProvideAdvisorApp,
	)
	return nil, nil, nil
}
