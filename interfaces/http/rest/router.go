package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"recommender/domain/core/entities"
	"recommender/domain/recommendation"
	"recommender/interfaces/http/rest/handlers"
	"recommender/interfaces/http/rest/middleware"
	pkgerrors "recommender/pkg/errors"
	"recommender/pkg/observability"
	"recommender/pkg/ratelimit"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

const readinessTimeout = 2 * time.Second

// Options carries the optional collaborators of the router. Nil fields disable the
// feature they back.
type Options struct {
	CORSOrigins []string
	Collector   *observability.Collector
	RateLimiter ratelimit.RateLimiter
	Ready       func(ctx context.Context) error
	Debug       bool
}

// Router creates and configures the HTTP router
type Router struct {
	commandBus handlers.CommandSender
	queryBus   handlers.QueryAsker
	catalog    *recommendation.Catalog
	options    Options
	logger     *zap.Logger
}

// NewRouter creates a new router instance
func NewRouter(
	commandBus handlers.CommandSender,
	queryBus handlers.QueryAsker,
	catalog *recommendation.Catalog,
	logger *zap.Logger,
	options Options,
) *Router {
	return &Router{
		commandBus: commandBus,
		queryBus:   queryBus,
		catalog:    catalog,
		options:    options,
		logger:     logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()
	errorHandler := pkgerrors.NewErrorHandler(rt.logger, rt.options.Debug)

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(errorHandler.Middleware)
	router.Use(middleware.Logger(rt.logger))
	if rt.options.Collector != nil {
		router.Use(middleware.Metrics(rt.options.Collector))
	}

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   rt.options.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "X-Total-Count"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Probes and scraping stay outside the rate limit
	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)
	if rt.options.Collector != nil {
		router.Handle("/metrics", rt.options.Collector.Handler())
	}

	strategyHandler := handlers.NewStrategyHandler(rt.queryBus, rt.catalog, errorHandler, rt.logger)
	datasetHandler := handlers.NewDatasetHandler(rt.queryBus, errorHandler, rt.logger)
	ingestHandler := handlers.NewIngestHandler(rt.commandBus, errorHandler, rt.logger)

	router.Group(func(r chi.Router) {
		if rt.options.RateLimiter != nil {
			r.Use(middleware.RateLimit(rt.options.RateLimiter, errorHandler, rt.logger))
		}

		// Query surface
		r.Get("/strategies", strategyHandler.ListStrategies)
		r.Post("/strategies/{key}/run", strategyHandler.RunStrategy)
		r.Get("/patterns/{endpoint}", strategyHandler.RunPattern)
		r.Get("/recommend/{user_id}", strategyHandler.Recommend)
		r.Get("/recommend/{user_id}/legacy", strategyHandler.LegacyRecommend)
		r.Get("/data/{dataset}", datasetHandler.GetDataset)

		// Ingest surface
		for _, kind := range entities.NodeKinds() {
			r.Post("/"+entities.NodeResource(kind), ingestHandler.UpsertNode(kind))
		}
		for _, kind := range entities.EdgeKinds() {
			switch kind {
			case entities.EdgeRecommended, entities.EdgeCompleted:
				// typed bodies below
			default:
				r.Post("/"+kind.MustSpec().Resource, ingestHandler.UpsertEdges(kind))
			}
		}
		r.Post("/log", ingestHandler.LogRecommendation)
		r.Post("/progress", ingestHandler.RecordProgress)
		r.Post("/recommend/progress", ingestHandler.RecordProgress)
	})

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		errorHandler.Handle(w, r, pkgerrors.NewNotFoundError("route "+r.URL.Path))
	})

	return router
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	rt.writeStatus(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// readinessCheck reports whether the graph store answers
func (rt *Router) readinessCheck(w http.ResponseWriter, req *http.Request) {
	if rt.options.Ready != nil {
		ctx, cancel := context.WithTimeout(req.Context(), readinessTimeout)
		defer cancel()

		if err := rt.options.Ready(ctx); err != nil {
			rt.logger.Warn("Readiness check failed", zap.Error(err))
			rt.writeStatus(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable",
				"error":  err.Error(),
			})
			return
		}
	}
	rt.writeStatus(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (rt *Router) writeStatus(w http.ResponseWriter, status int, body map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		rt.logger.Error("Failed to encode response", zap.Error(err))
	}
}
