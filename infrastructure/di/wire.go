//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"recommender/infrastructure/config"

	"github.com/google/wire"
)

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideAWSConfig,
	ProvideDynamoDBClient,
	ProvideEventBridgeClient,
	ProvideCloudWatchClient,
	ProvideBackendClient,
	ProvideGraphStore,
	ProvideGraphWriter,
	ProvideCatalog,
	ProvideEngine,
	ProvideRecommendationSource,
	ProvideRecommendationService,
	ProvideEventPublisher,
	ProvideCollector,
	ProvideMetrics,
	ProvideInMemoryCache,
	ProvideRateLimiter,
	ProvideTracing,
	ProvideCommandBus,
	ProvideQueryBus,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container. The cleanup closes stores,
// stops the cache janitor and flushes traces.
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, func(), error) {
	wire.Build(SuperSet)
	return nil, nil, nil // Wire will replace this
}
