package di

import (
	"context"
	"testing"
	"time"

	"recommender/application/commands"
	"recommender/application/queries"
	"recommender/application/traversal"
	"recommender/domain/core/entities"
	"recommender/domain/recommendation"
	"recommender/infrastructure/backend"
	"recommender/infrastructure/config"
	"recommender/infrastructure/messaging/logging"
	"recommender/infrastructure/persistence/memory"
	"recommender/pkg/observability"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Metrics.Sink = "none"
	cfg.Events.Publisher = "none"
	return cfg
}

func TestProvideLogger_RejectsUnknownLevel(t *testing.T) {
	cfg := testConfig()
	cfg.Server.LogLevel = "loud"

	_, err := ProvideLogger(cfg)

	assert.Error(t, err)
}

func TestProvideLogger_BuildsAtConfiguredLevel(t *testing.T) {
	cfg := testConfig()
	cfg.Server.LogLevel = "warn"

	logger, err := ProvideLogger(cfg)

	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zap.InfoLevel))
	assert.True(t, logger.Core().Enabled(zap.WarnLevel))
}

func TestProvideEngine_SelectsByMode(t *testing.T) {
	logger := zap.NewNop()
	store := memory.NewGraphStore()

	t.Run("local", func(t *testing.T) {
		engine, err := ProvideEngine(testConfig(), store, nil, logger)

		require.NoError(t, err)
		assert.IsType(t, &traversal.Executor{}, engine)
		assert.Nil(t, ProvideRecommendationSource(engine))
	})

	t.Run("remote", func(t *testing.T) {
		cfg := testConfig()
		cfg.Engine.Executor = config.ExecutorRemote
		client := backend.NewClient(backend.Config{BaseURL: "http://collaborator", Timeout: time.Second, Breaker: backend.DefaultBreakerConfig()}, nil, logger)

		engine, err := ProvideEngine(cfg, store, client, logger)

		require.NoError(t, err)
		assert.IsType(t, &backend.RemoteExecutor{}, engine)
		assert.NotNil(t, ProvideRecommendationSource(engine))
	})

	t.Run("remote without client", func(t *testing.T) {
		cfg := testConfig()
		cfg.Engine.Executor = config.ExecutorRemote

		_, err := ProvideEngine(cfg, store, nil, logger)

		assert.Error(t, err)
	})

	t.Run("bad policy", func(t *testing.T) {
		cfg := testConfig()
		cfg.Engine.Exclusion = "everything"

		_, err := ProvideEngine(cfg, store, nil, logger)

		assert.Error(t, err)
	})
}

func TestProvideGraphWriter_ForwardsInRemoteMode(t *testing.T) {
	store := memory.NewGraphStore()
	client := backend.NewClient(backend.Config{BaseURL: "http://collaborator", Timeout: time.Second, Breaker: backend.DefaultBreakerConfig()}, nil, zap.NewNop())

	cfg := testConfig()
	assert.Same(t, store, ProvideGraphWriter(cfg, store, client))

	cfg.Engine.Executor = config.ExecutorRemote
	assert.IsType(t, &backend.Writer{}, ProvideGraphWriter(cfg, store, client))
}

func TestProvideEventPublisher_SelectsByConfig(t *testing.T) {
	cfg := testConfig()
	logger := zap.NewNop()

	assert.IsType(t, discardPublisher{}, ProvideEventPublisher(cfg, nil, logger))

	cfg.Events.Publisher = "log"
	assert.IsType(t, &logging.Publisher{}, ProvideEventPublisher(cfg, nil, logger))
}

func TestProvideMetrics_SelectsBySink(t *testing.T) {
	cfg := testConfig()
	logger := zap.NewNop()

	assert.Nil(t, ProvideCollector(cfg))
	assert.Nil(t, ProvideMetrics(cfg, nil, nil, logger))

	cfg.Metrics.Sink = "prometheus"
	collector := ProvideCollector(cfg)
	require.NotNil(t, collector)
	metrics := ProvideMetrics(cfg, collector, nil, logger)
	require.NotNil(t, metrics)
	assert.NotPanics(t, func() {
		metrics.Increment("query_count", "RunStrategyQuery")
		metrics.StartTimer("query_duration", "RunStrategyQuery").Stop()
	})
}

func TestProvideRateLimiter_DisabledAtZeroRPS(t *testing.T) {
	cfg := testConfig()
	assert.NotNil(t, ProvideRateLimiter(cfg))

	cfg.RateLimit.RPS = 0
	assert.Nil(t, ProvideRateLimiter(cfg))
}

func TestProvideGraphStore_SeedsMemoryStore(t *testing.T) {
	// Arrange
	cfg := testConfig()
	cfg.Store.SeedFile = "../seed/testdata/fixture.yaml"

	// Act
	store, cleanup, err := ProvideGraphStore(context.Background(), cfg, nil, nil, zap.NewNop())
	require.NoError(t, err)
	defer cleanup()

	// Assert
	users, err := store.Nodes(context.Background(), entities.NodeUser)
	require.NoError(t, err)
	assert.NotEmpty(t, users)
}

func TestProvideGraphStore_SnapshotNeedsClient(t *testing.T) {
	cfg := testConfig()
	cfg.Store.Driver = config.DriverSnapshot

	_, _, err := ProvideGraphStore(context.Background(), cfg, nil, nil, zap.NewNop())

	assert.Error(t, err)
}

func TestBuses_WriteThenReadThroughBothBuses(t *testing.T) {
	// Arrange
	ctx := context.Background()
	cfg := testConfig()
	logger := zap.NewNop()
	store := memory.NewGraphStore()
	cache := NewInMemoryCache(0)

	engine, err := ProvideEngine(cfg, store, nil, logger)
	require.NoError(t, err)
	service := ProvideRecommendationService(cfg, ProvideCatalog(), engine, nil, logger)
	commandBus, err := ProvideCommandBus(store, discardPublisher{}, cache, logger)
	require.NoError(t, err)
	queryBus, err := ProvideQueryBus(cfg, service, store, cache, nil, logger)
	require.NoError(t, err)

	// Act
	_, err = queryBus.Ask(ctx, queries.RunStrategyQuery{
		Strategy: string(recommendation.ByDifficulty),
		Params:   map[string]any{"user_id": "u1"},
	})
	require.NoError(t, err)
	cachedBefore := cache.Len()

	err = commandBus.Send(ctx, commands.UpsertNodeCommand{
		Node: entities.Node{Kind: entities.NodeUser, ID: "u1", Attrs: map[string]any{"name": "Ada"}},
	})
	require.NoError(t, err)

	result, err := queryBus.Ask(ctx, queries.ListDatasetQuery{Dataset: "users"})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 1, cachedBefore)
	assert.Zero(t, cache.Len(), "writes clear the query cache")
	dataset, ok := result.(queries.ListDatasetResult)
	require.True(t, ok)
	assert.Equal(t, 1, dataset.Count)
}

func TestProvideQueryBus_InstrumentsWhenMetricsPresent(t *testing.T) {
	// Arrange
	cfg := testConfig()
	cfg.Cache.TTL = 0
	logger := zap.NewNop()
	store := memory.NewGraphStore()
	collector := observability.NewCollector("test")
	engine, err := ProvideEngine(cfg, store, nil, logger)
	require.NoError(t, err)
	service := ProvideRecommendationService(cfg, ProvideCatalog(), engine, nil, logger)
	cache := NewInMemoryCache(0)

	queryBus, err := ProvideQueryBus(cfg, service, store, cache, busMetrics{sink: collector}, logger)
	require.NoError(t, err)

	// Act
	result, err := queryBus.Ask(context.Background(), queries.ListStrategiesQuery{})

	// Assert
	require.NoError(t, err)
	assert.Len(t, result, 5)
	assert.Zero(t, cache.Len(), "zero TTL disables caching")
}

func TestInitializeContainer_MemoryStore(t *testing.T) {
	// Arrange
	cfg := testConfig()

	// Act
	container, cleanup, err := InitializeContainer(context.Background(), cfg)

	// Assert
	require.NoError(t, err)
	defer cleanup()
	assert.NotNil(t, container.CommandBus)
	assert.NotNil(t, container.QueryBus)
	assert.Nil(t, container.Backend)
	assert.Nil(t, container.Collector)
	assert.Same(t, cfg, container.Config)
}
