package traversal

import (
	"context"

	"recommender/domain/core/entities"
	"recommender/domain/recommendation"
)

// byErrors walks User -MAKES_ERROR-> ErrorType <-TAGGED_AS- Exercise
func (x *Executor) byErrors(ctx context.Context, params recommendation.Params) ([]recommendation.Row, error) {
	errs, err := x.outgoingAtLeast(ctx, entities.EdgeMakesError, params.UserID(), params.Number(recommendation.ParamFrequencyThreshold))
	if err != nil {
		return nil, err
	}

	return collect(ctx, x.opts.FanOut, errs, func(ctx context.Context, me entities.Edge) ([]recommendation.Row, error) {
		tagged, err := x.graph.Incoming(ctx, entities.EdgeTaggedError, me.To)
		if err != nil {
			return nil, err
		}
		out := make([]recommendation.Row, 0, len(tagged))
		for _, t := range tagged {
			out = append(out, recommendation.Row{
				recommendation.ColExerciseID: t.From,
				recommendation.ColErrorID:    me.To,
				recommendation.ColFrequency:  me.Weight,
			})
		}
		return out, nil
	})
}
