// Package traversal walks the learning graph for each recommendation strategy.
//
// Every walk is a fixed number of hops from the anchor user, so no cycle detection is
// needed. Independent lookups run concurrently through errgroup and are joined in input
// order so that the rows handed to the ranker do not depend on scheduling.
package traversal

import (
	"context"

	"recommender/application/ports"
	"recommender/domain/core/entities"
	"recommender/domain/core/valueobjects"
	"recommender/domain/recommendation"
	pkgerrors "recommender/pkg/errors"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultFanOut bounds concurrent sub-lookups per call
const DefaultFanOut = 8

// Options tunes the open policies of the walks
type Options struct {
	Exclusion  recommendation.ExclusionPolicy
	Similarity recommendation.SimilarityDirection
	FanOut     int
}

// Executor runs strategy traversals against a GraphReader.
// It is stateless between calls and safe for concurrent use.
type Executor struct {
	graph  ports.GraphReader
	opts   Options
	logger *zap.Logger
}

// NewExecutor creates an executor, filling unset options with defaults
func NewExecutor(graph ports.GraphReader, opts Options, logger *zap.Logger) *Executor {
	if opts.Exclusion == "" {
		opts.Exclusion = recommendation.ExcludePerformed
	}
	if opts.Similarity == "" {
		opts.Similarity = recommendation.SimilarityBoth
	}
	if opts.FanOut < 1 {
		opts.FanOut = DefaultFanOut
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{graph: graph, opts: opts, logger: logger}
}

// Execute dispatches to the walk registered for the strategy key
func (x *Executor) Execute(ctx context.Context, strategy recommendation.Strategy, params recommendation.Params) ([]recommendation.Row, error) {
	var (
		rows []recommendation.Row
		err  error
	)

	switch strategy.Key {
	case recommendation.ByDifficulty:
		rows, err = x.byDifficulty(ctx, params)
	case recommendation.BySimilarUsers:
		rows, err = x.bySimilarUsers(ctx, params)
	case recommendation.ByErrors:
		rows, err = x.byErrors(ctx, params)
	case recommendation.ByInterests:
		rows, err = x.byInterests(ctx, params)
	case recommendation.MultiHop:
		rows, err = x.multiHop(ctx, params)
	default:
		return nil, pkgerrors.NewUnknownStrategy(string(strategy.Key))
	}
	if err != nil {
		return nil, err
	}

	x.logger.Debug("Traversal completed",
		zap.String("strategy", string(strategy.Key)),
		zap.String("userID", params.UserID()),
		zap.Int("rows", len(rows)),
	)
	return rows, nil
}

// collect runs fn for every key with bounded concurrency and concatenates the results in key order
func collect[K, T any](ctx context.Context, limit int, keys []K, fn func(ctx context.Context, key K) ([]T, error)) ([]T, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	results := make([][]T, len(keys))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, key := range keys {
		g.Go(func() error {
			out, err := fn(gctx, key)
			if err != nil {
				return err
			}
			results[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var flat []T
	for _, r := range results {
		flat = append(flat, r...)
	}
	return flat, nil
}

// meets applies an inclusive minimum threshold to a stored weight
func meets(weight, threshold float64) bool {
	return valueobjects.ClampScore(weight).AtLeast(threshold)
}

// outgoingAtLeast reads the anchor's edges of one kind whose weight meets the threshold
func (x *Executor) outgoingAtLeast(ctx context.Context, kind entities.EdgeKind, from string, threshold float64) ([]entities.Edge, error) {
	edges, err := x.graph.Outgoing(ctx, kind, from)
	if err != nil {
		return nil, err
	}
	var kept []entities.Edge
	for _, e := range edges {
		if meets(e.Weight, threshold) {
			kept = append(kept, e)
		}
	}
	return kept, nil
}

func stringSet(values ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
