package di

import (
	"context"
	"fmt"
	"time"

	"recommender/application/commands"
	"recommender/application/commands/bus"
	commands_handlers "recommender/application/commands/handlers"
	"recommender/application/ports"
	"recommender/application/queries"
	querybus "recommender/application/queries/bus"
	queries_handlers "recommender/application/queries/handlers"
	"recommender/application/services"
	"recommender/application/traversal"
	"recommender/domain/events"
	"recommender/domain/recommendation"
	"recommender/infrastructure/backend"
	"recommender/infrastructure/config"
	"recommender/infrastructure/messaging/eventbridge"
	"recommender/infrastructure/messaging/logging"
	"recommender/infrastructure/persistence/dynamodb"
	"recommender/infrastructure/persistence/memory"
	"recommender/infrastructure/persistence/neo4j"
	"recommender/infrastructure/persistence/sqlite"
	"recommender/infrastructure/seed"
	"recommender/pkg/observability"
	"recommender/pkg/ratelimit"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscloudwatch "github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const cacheSweepInterval = time.Minute

// Engine runs strategies and the legacy course walk. Both the local traversal executor
// and the remote collaborator executor satisfy it.
type Engine interface {
	ports.StrategyExecutor
	ports.CourseRecommender
}

// ProvideLogger creates a new logger instance at the configured level
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Server.LogLevel, err)
	}

	var zapCfg zap.Config
	if cfg.IsProduction() {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, err
	}

	return logger.With(zap.String("environment", cfg.Server.Environment)), nil
}

// ProvideAWSConfig creates AWS configuration
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.DynamoDB.Region),
	)
}

// ProvideDynamoDBClient creates a DynamoDB client
func ProvideDynamoDBClient(awsCfg aws.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg)
}

// ProvideEventBridgeClient creates an EventBridge client
func ProvideEventBridgeClient(awsCfg aws.Config) *awseventbridge.Client {
	return awseventbridge.NewFromConfig(awsCfg)
}

// ProvideCloudWatchClient creates a CloudWatch client
func ProvideCloudWatchClient(awsCfg aws.Config) *awscloudwatch.Client {
	return awscloudwatch.NewFromConfig(awsCfg)
}

// ProvideBackendClient creates the collaborator client, or nil when no base URL is configured
func ProvideBackendClient(cfg *config.Config, logger *zap.Logger) *backend.Client {
	if cfg.Backend.BaseURL == "" {
		return nil
	}

	breaker := backend.DefaultBreakerConfig()
	if cfg.Backend.FailureThreshold > 0 {
		breaker.FailureThreshold = cfg.Backend.FailureThreshold
	}
	if cfg.Backend.MinRequests > 0 {
		breaker.MinRequests = cfg.Backend.MinRequests
	}
	if cfg.Backend.OpenTimeout > 0 {
		breaker.Timeout = cfg.Backend.OpenTimeout
	}

	return backend.NewClient(backend.Config{
		BaseURL: cfg.Backend.BaseURL,
		Timeout: cfg.Backend.Timeout,
		Breaker: breaker,
	}, nil, logger)
}

// ProvideGraphStore opens the store selected by the driver. The returned cleanup
// releases its connections.
func ProvideGraphStore(
	ctx context.Context,
	cfg *config.Config,
	dynamoClient *awsdynamodb.Client,
	client *backend.Client,
	logger *zap.Logger,
) (ports.GraphStore, func(), error) {
	noop := func() {}

	switch cfg.Store.Driver {
	case config.DriverNeo4j:
		neoClient, err := neo4j.NewClient(ctx, neo4j.Config{
			URI:      cfg.Neo4j.URI,
			Username: cfg.Neo4j.Username,
			Password: cfg.Neo4j.Password,
			Database: cfg.Neo4j.Database,
		}, logger)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to connect to neo4j: %w", err)
		}
		cleanup := func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := neoClient.Close(closeCtx); err != nil {
				logger.Warn("Failed to close neo4j driver", zap.Error(err))
			}
		}
		return neo4j.NewGraphStore(neoClient, logger), cleanup, nil

	case config.DriverDynamoDB:
		return dynamodb.NewGraphStore(dynamoClient, dynamodb.Config{
			TableName:     cfg.DynamoDB.Table,
			IncomingIndex: cfg.DynamoDB.IncomingIndex,
			KindIndex:     cfg.DynamoDB.KindIndex,
		}, logger), noop, nil

	case config.DriverSQLite:
		store, err := sqlite.Open(cfg.SQLite.Path, logger)
		if err != nil {
			return nil, noop, err
		}
		cleanup := func() {
			if err := store.Close(); err != nil {
				logger.Warn("Failed to close sqlite store", zap.Error(err))
			}
		}
		return store, cleanup, nil

	case config.DriverSnapshot:
		if client == nil {
			return nil, noop, fmt.Errorf("snapshot store needs a backend base URL")
		}
		store := memory.NewGraphStore()
		if _, err := backend.LoadSnapshot(ctx, client, store, logger); err != nil {
			return nil, noop, fmt.Errorf("failed to load snapshot: %w", err)
		}
		return store, noop, nil

	default:
		store := memory.NewGraphStore()
		if cfg.Store.SeedFile != "" {
			stats, err := seed.LoadFile(ctx, cfg.Store.SeedFile, store)
			if err != nil {
				return nil, noop, err
			}
			logger.Info("Seeded memory store",
				zap.String("file", cfg.Store.SeedFile),
				zap.Int("nodes", stats.Nodes),
				zap.Int("edges", stats.Edges),
			)
		}
		return store, noop, nil
	}
}

// ProvideGraphWriter picks where ingest commands land. In remote mode the collaborator
// owns the graph, so writes are forwarded to it.
func ProvideGraphWriter(cfg *config.Config, store ports.GraphStore, client *backend.Client) ports.GraphWriter {
	if cfg.Engine.Executor == config.ExecutorRemote && client != nil {
		return backend.NewWriter(client)
	}
	return store
}

// ProvideCatalog returns the strategy catalog
func ProvideCatalog() *recommendation.Catalog {
	return recommendation.DefaultCatalog()
}

// ProvideEngine creates the strategy executor for the configured mode
func ProvideEngine(cfg *config.Config, store ports.GraphStore, client *backend.Client, logger *zap.Logger) (Engine, error) {
	if cfg.Engine.Executor == config.ExecutorRemote {
		if client == nil {
			return nil, fmt.Errorf("remote executor needs a backend base URL")
		}
		return backend.NewRemoteExecutor(client, logger), nil
	}

	exclusion, err := recommendation.ParseExclusionPolicy(cfg.Engine.Exclusion)
	if err != nil {
		return nil, err
	}
	similarity, err := recommendation.ParseSimilarityDirection(cfg.Engine.SimilarityDirection)
	if err != nil {
		return nil, err
	}

	return traversal.NewExecutor(store, traversal.Options{
		Exclusion:  exclusion,
		Similarity: similarity,
		FanOut:     cfg.Engine.FanOut,
	}, logger), nil
}

// ProvideRecommendationSource returns the collaborator's combined recommendation when the
// engine is remote, and nil otherwise so the service assembles it locally
func ProvideRecommendationSource(engine Engine) ports.RecommendationSource {
	if source, ok := engine.(ports.RecommendationSource); ok {
		return source
	}
	return nil
}

// ProvideRecommendationService creates the query facade
func ProvideRecommendationService(
	cfg *config.Config,
	catalog *recommendation.Catalog,
	engine Engine,
	source ports.RecommendationSource,
	logger *zap.Logger,
) *services.RecommendationService {
	return services.NewRecommendationService(catalog, engine, engine, source, cfg.Engine.QueryTimeout, logger)
}

// ProvideEventPublisher creates the publisher selected by config
func ProvideEventPublisher(cfg *config.Config, client *awseventbridge.Client, logger *zap.Logger) ports.EventPublisher {
	switch cfg.Events.Publisher {
	case "eventbridge":
		return eventbridge.NewPublisher(client, cfg.Events.BusName, logger)
	case "none":
		return discardPublisher{}
	default:
		return logging.NewPublisher(logger)
	}
}

type discardPublisher struct{}

func (discardPublisher) Publish(context.Context, events.DomainEvent) error { return nil }

func (discardPublisher) PublishBatch(context.Context, []events.DomainEvent) error { return nil }

// ProvideCollector creates the Prometheus collector, or nil unless the prometheus sink is selected
func ProvideCollector(cfg *config.Config) *observability.Collector {
	if cfg.Metrics.Sink != "prometheus" {
		return nil
	}
	return observability.NewCollector(cfg.Metrics.Namespace)
}

// ProvideMetrics adapts the selected sink to the query bus. It returns nil for the none sink.
func ProvideMetrics(
	cfg *config.Config,
	collector *observability.Collector,
	client *awscloudwatch.Client,
	logger *zap.Logger,
) querybus.Metrics {
	switch cfg.Metrics.Sink {
	case "prometheus":
		return busMetrics{sink: collector}
	case "cloudwatch":
		namespace := fmt.Sprintf("%s/%s", cfg.Metrics.Namespace, cfg.Server.Environment)
		return busMetrics{sink: observability.NewCloudWatchMetrics(namespace, client, logger)}
	default:
		return nil
	}
}

type metricSink interface {
	Increment(metric, label string)
	StartTimer(metric, label string) observability.Timer
}

// busMetrics adapts observability sinks to querybus.Metrics
type busMetrics struct {
	sink metricSink
}

func (m busMetrics) Increment(metric, label string) {
	m.sink.Increment(metric, label)
}

func (m busMetrics) StartTimer(metric, label string) querybus.Timer {
	return m.sink.StartTimer(metric, label)
}

// ProvideInMemoryCache creates the query cache and stops its janitor on cleanup
func ProvideInMemoryCache() (*InMemoryCache, func()) {
	cache := NewInMemoryCache(cacheSweepInterval)
	return cache, cache.Stop
}

// ProvideRateLimiter creates the per-client limiter, or nil when limiting is disabled
func ProvideRateLimiter(cfg *config.Config) ratelimit.RateLimiter {
	if cfg.RateLimit.RPS <= 0 {
		return nil
	}
	return ratelimit.NewLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
}

// ProvideTracing installs the OTLP tracer provider and flushes it on cleanup
func ProvideTracing(ctx context.Context, cfg *config.Config, logger *zap.Logger) (observability.ShutdownFunc, func(), error) {
	shutdown, err := observability.InitTracing(ctx, observability.TracingConfig{
		ServiceName: cfg.Metrics.Namespace,
		Environment: cfg.Server.Environment,
		Endpoint:    cfg.Tracing.Endpoint,
		SampleRate:  cfg.Tracing.SampleRate,
		Insecure:    cfg.Tracing.Insecure,
	})
	if err != nil {
		return nil, func() {}, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	cleanup := func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(flushCtx); err != nil {
			logger.Warn("Failed to flush traces", zap.Error(err))
		}
	}
	return shutdown, cleanup, nil
}

// CommandHandlerAdapter adapts specific command handlers to the generic interface
type CommandHandlerAdapter struct {
	handler func(context.Context, bus.Command) error
}

func (a *CommandHandlerAdapter) Handle(ctx context.Context, cmd bus.Command) error {
	return a.handler(ctx, cmd)
}

// ProvideCommandBus creates a command bus with registered handlers
func ProvideCommandBus(
	writer ports.GraphWriter,
	publisher ports.EventPublisher,
	cache *InMemoryCache,
	logger *zap.Logger,
) (*bus.CommandBus, error) {
	commandBus := bus.NewCommandBus()

	ingestHandler := commands_handlers.NewIngestHandler(writer, publisher, cache, logger)
	pipeline := bus.NewPipeline(
		bus.LoggingMiddleware(bus.NewZapLogger(logger)),
		bus.ValidationMiddleware(),
	)
	handler := pipeline.Execute(&CommandHandlerAdapter{handler: ingestHandler.Handle})

	for _, cmd := range []bus.Command{
		commands.UpsertNodeCommand{},
		commands.UpsertEdgesCommand{},
		commands.LogRecommendationCommand{},
		commands.RecordProgressCommand{},
	} {
		if err := commandBus.Register(cmd, handler); err != nil {
			return nil, err
		}
	}

	return commandBus, nil
}

// QueryHandlerAdapter adapts specific query handlers to the generic interface
type QueryHandlerAdapter struct {
	handler func(context.Context, querybus.Query) (interface{}, error)
}

func (a *QueryHandlerAdapter) Handle(ctx context.Context, query querybus.Query) (interface{}, error) {
	return a.handler(ctx, query)
}

// ProvideQueryBus creates a query bus with registered handlers. Strategy and recommendation
// queries are cached for the configured TTL; dataset reads are not.
func ProvideQueryBus(
	cfg *config.Config,
	service *services.RecommendationService,
	store ports.GraphStore,
	cache *InMemoryCache,
	metrics querybus.Metrics,
	logger *zap.Logger,
) (*querybus.QueryBus, error) {
	queryBus := querybus.NewQueryBus()

	instrument := func(h querybus.QueryHandler) querybus.QueryHandler {
		if metrics == nil {
			return h
		}
		return querybus.NewMetricsMiddleware(metrics).Wrap(h)
	}

	strategyHandler := queries_handlers.NewStrategyQueryHandler(service, logger)
	var cached querybus.QueryHandler = &QueryHandlerAdapter{handler: strategyHandler.Handle}
	if cfg.Cache.TTL > 0 {
		cached = querybus.NewCachingMiddleware(cache, cfg.Cache.TTL).Wrap(cached)
	}
	cached = instrument(cached)

	for _, q := range []querybus.Query{
		queries.RunStrategyQuery{},
		queries.GetRecommendationsQuery{},
		queries.GetLegacyRecommendationsQuery{},
	} {
		if err := queryBus.Register(q, cached); err != nil {
			return nil, err
		}
	}

	if err := queryBus.Register(queries.ListStrategiesQuery{}, instrument(&QueryHandlerAdapter{handler: strategyHandler.Handle})); err != nil {
		return nil, err
	}

	datasetHandler := queries_handlers.NewDatasetQueryHandler(store, logger)
	if err := queryBus.Register(queries.ListDatasetQuery{}, instrument(&QueryHandlerAdapter{handler: datasetHandler.Handle})); err != nil {
		return nil, err
	}

	return queryBus, nil
}
