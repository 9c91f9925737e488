package traversal

import (
	"context"

	"recommender/domain/core/entities"
	"recommender/domain/recommendation"
)

// byInterests walks User -INTERESTED_IN-> Interest <-TAGGED_AS- Exercise and keeps exercises
// that evaluate a skill the anchor has a difficulty with of at least min_error_score
func (x *Executor) byInterests(ctx context.Context, params recommendation.Params) ([]recommendation.Row, error) {
	userID := params.UserID()

	interests, err := x.outgoingAtLeast(ctx, entities.EdgeInterestedIn, userID, params.Number(recommendation.ParamWeightThreshold))
	if err != nil || len(interests) == 0 {
		return nil, err
	}

	difficulties, err := x.outgoingAtLeast(ctx, entities.EdgeHasDifficulty, userID, params.Number(recommendation.ParamMinErrorScore))
	if err != nil || len(difficulties) == 0 {
		return nil, err
	}
	errorScores := make(map[string]float64, len(difficulties))
	for _, d := range difficulties {
		errorScores[d.To] = d.Weight
	}

	return collect(ctx, x.opts.FanOut, interests, func(ctx context.Context, in entities.Edge) ([]recommendation.Row, error) {
		tagged, err := x.graph.Incoming(ctx, entities.EdgeTaggedAs, in.To)
		if err != nil {
			return nil, err
		}

		var rows []recommendation.Row
		for _, t := range tagged {
			skill, score, ok, err := x.weakestSkill(ctx, t.From, errorScores)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			rows = append(rows, recommendation.Row{
				recommendation.ColExerciseID:     t.From,
				recommendation.ColInterestID:     in.To,
				recommendation.ColInterestWeight: in.Weight,
				recommendation.ColErrorScore:     score,
				recommendation.ColSkillID:        skill,
			})
		}
		return rows, nil
	})
}

// weakestSkill picks the evaluated skill with the highest anchor error_score, lowest id on ties
func (x *Executor) weakestSkill(ctx context.Context, exerciseID string, errorScores map[string]float64) (string, float64, bool, error) {
	evaluates, err := x.graph.Outgoing(ctx, entities.EdgeEvaluates, exerciseID)
	if err != nil {
		return "", 0, false, err
	}

	var (
		skill string
		score float64
		found bool
	)
	for _, ev := range evaluates {
		s, ok := errorScores[ev.To]
		if !ok {
			continue
		}
		if !found || s > score || (s == score && ev.To < skill) {
			skill, score, found = ev.To, s, true
		}
	}
	return skill, score, found, nil
}
