package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"recommender/application/ports"
	"recommender/domain/recommendation"
	pkgerrors "recommender/pkg/errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultTimeout bounds one facade call when none is configured
const DefaultTimeout = 3 * time.Second

// structuredStrategies feed the combined recommendation, in output order
var structuredStrategies = []recommendation.Key{
	recommendation.ByDifficulty,
	recommendation.BySimilarUsers,
	recommendation.ByErrors,
	recommendation.ByInterests,
}

// RecommendationService is the query facade: it validates inputs against the catalog,
// runs the traversal under a deadline and ranks the rows.
// It holds no mutable state and is safe for concurrent use.
type RecommendationService struct {
	catalog  *recommendation.Catalog
	executor ports.StrategyExecutor
	courses  ports.CourseRecommender
	source   ports.RecommendationSource
	timeout  time.Duration
	logger   *zap.Logger
	tracer   trace.Tracer
}

// NewRecommendationService creates the facade. A nil source makes Recommend assemble the
// structured shape locally from the executor.
func NewRecommendationService(
	catalog *recommendation.Catalog,
	executor ports.StrategyExecutor,
	courses ports.CourseRecommender,
	source ports.RecommendationSource,
	timeout time.Duration,
	logger *zap.Logger,
) *RecommendationService {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &RecommendationService{
		catalog:  catalog,
		executor: executor,
		courses:  courses,
		source:   source,
		timeout:  timeout,
		logger:   logger,
		tracer:   otel.Tracer("recommender/application/services"),
	}
}

// ListStrategies describes every strategy so a caller can render forms and tables generically
func (s *RecommendationService) ListStrategies() []recommendation.Descriptor {
	return s.catalog.Describe()
}

// RunStrategy validates raw parameters, runs the traversal and returns the ranked rows.
// Validation failures never reach the executor.
func (s *RecommendationService) RunStrategy(ctx context.Context, key string, raw map[string]any) (recommendation.Result, error) {
	strategy, err := s.catalog.Lookup(key)
	if err != nil {
		return recommendation.Result{}, err
	}
	params, err := strategy.Params.Bind(raw)
	if err != nil {
		return recommendation.Result{}, err
	}

	ctx, span := s.tracer.Start(ctx, "RecommendationService.RunStrategy", trace.WithAttributes(
		attribute.String("strategy", key),
		attribute.String("user_id", params.UserID()),
	))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	result, err := s.run(ctx, strategy, params)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Warn("Strategy failed",
			zap.String("strategy", key),
			zap.String("userID", params.UserID()),
			zap.Error(err),
		)
		return recommendation.Result{}, err
	}

	span.SetAttributes(attribute.Int("rows", len(result.Rows)), attribute.Bool("truncated", result.Truncated))
	return result, nil
}

func (s *RecommendationService) run(ctx context.Context, strategy recommendation.Strategy, params recommendation.Params) (recommendation.Result, error) {
	rows, err := s.executor.Execute(ctx, strategy, params)
	if err != nil {
		return recommendation.Result{}, s.classify(err, "strategy "+string(strategy.Key))
	}
	return recommendation.Rank(rows, strategy.ScoreField, params.Limit()), nil
}

// Recommend returns the combined recommendation for a user. With a remote source the
// payload may be either shape; locally it is always the structured one.
func (s *RecommendationService) Recommend(ctx context.Context, userID string) (recommendation.Recommendation, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return recommendation.Recommendation{}, pkgerrors.NewParamMissing(recommendation.ParamUserID)
	}

	ctx, span := s.tracer.Start(ctx, "RecommendationService.Recommend", trace.WithAttributes(
		attribute.String("user_id", userID),
		attribute.Bool("remote", s.source != nil),
	))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var (
		rec recommendation.Recommendation
		err error
	)
	if s.source != nil {
		rec, err = s.source.Recommend(ctx, userID)
		if err != nil {
			err = s.classify(err, "recommend")
		}
	} else {
		rec, err = s.recommendLocally(ctx, userID)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return recommendation.Recommendation{}, err
	}

	span.SetAttributes(attribute.String("shape", string(rec.Shape)))
	return rec, nil
}

func (s *RecommendationService) recommendLocally(ctx context.Context, userID string) (recommendation.Recommendation, error) {
	results := make([]recommendation.Result, len(structuredStrategies))

	g, gctx := errgroup.WithContext(ctx)
	for i, key := range structuredStrategies {
		g.Go(func() error {
			strategy, err := s.catalog.Lookup(string(key))
			if err != nil {
				return err
			}
			params, err := strategy.Params.Bind(map[string]any{recommendation.ParamUserID: userID})
			if err != nil {
				return err
			}
			results[i], err = s.run(gctx, strategy, params)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return recommendation.Recommendation{}, err
	}

	return recommendation.NewStructured(recommendation.BuildStructured(results[0], results[1], results[2], results[3])), nil
}

// LegacyRecommend returns the flat course list scored by co-completion
func (s *RecommendationService) LegacyRecommend(ctx context.Context, userID string, limit int) (recommendation.Recommendation, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return recommendation.Recommendation{}, pkgerrors.NewParamMissing(recommendation.ParamUserID)
	}
	if limit > 200 {
		return recommendation.Recommendation{}, pkgerrors.NewParamOutOfRange(recommendation.ParamLimit, float64(limit), 1, 200)
	}

	ctx, span := s.tracer.Start(ctx, "RecommendationService.LegacyRecommend", trace.WithAttributes(attribute.String("user_id", userID)))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	items, err := s.courses.RecommendCourses(ctx, userID, limit)
	if err != nil {
		err = s.classify(err, "legacy recommend")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return recommendation.Recommendation{}, err
	}
	return recommendation.NewLegacy(items), nil
}

// classify maps executor failures onto the error taxonomy. Domain errors pass through and
// an expired deadline is QUERY_TIMEOUT. Store and transport failures become
// BACKEND_UNAVAILABLE. Nothing is retried here.
func (s *RecommendationService) classify(err error, operation string) error {
	if pkgerrors.GetDomainError(err) != nil {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return pkgerrors.NewQueryTimeout(operation, s.timeout, err)
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", operation, err)
	}
	return pkgerrors.FromStoreError(err)
}
