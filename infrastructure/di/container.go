package di

import (
	"context"

	"recommender/application/commands/bus"
	"recommender/application/ports"
	querybus "recommender/application/queries/bus"
	"recommender/application/services"
	"recommender/domain/core/entities"
	"recommender/domain/recommendation"
	"recommender/infrastructure/backend"
	"recommender/infrastructure/config"
	"recommender/pkg/observability"
	"recommender/pkg/ratelimit"

	"go.uber.org/zap"
)

// Container holds all application dependencies
type Container struct {
	Config      *config.Config
	Logger      *zap.Logger
	Graph       ports.GraphStore
	Writer      ports.GraphWriter
	Catalog     *recommendation.Catalog
	Service     *services.RecommendationService
	Backend     *backend.Client
	CommandBus  *bus.CommandBus
	QueryBus    *querybus.QueryBus
	Cache       *InMemoryCache
	Collector   *observability.Collector
	RateLimiter ratelimit.RateLimiter
	Tracing     observability.ShutdownFunc
}

// Ready probes the graph store with a point read
func (c *Container) Ready(ctx context.Context) error {
	_, err := c.Graph.Node(ctx, entities.NodeUser, "__ready__")
	return err
}
