package traversal

import (
	"context"
	"sort"

	"recommender/domain/core/entities"
	"recommender/domain/recommendation"
)

// byDifficulty walks User -HAS_DIFFICULTY-> Skill <-EVALUATES- Exercise
func (x *Executor) byDifficulty(ctx context.Context, params recommendation.Params) ([]recommendation.Row, error) {
	difficulties, err := x.outgoingAtLeast(ctx, entities.EdgeHasDifficulty, params.UserID(), params.Number(recommendation.ParamThreshold))
	if err != nil {
		return nil, err
	}

	rows, err := collect(ctx, x.opts.FanOut, difficulties, func(ctx context.Context, d entities.Edge) ([]recommendation.Row, error) {
		evaluators, err := x.graph.Incoming(ctx, entities.EdgeEvaluates, d.To)
		if err != nil {
			return nil, err
		}
		out := make([]recommendation.Row, 0, len(evaluators))
		for _, ev := range evaluators {
			out = append(out, recommendation.Row{
				recommendation.ColExerciseID: ev.From,
				recommendation.ColSkillID:    d.To,
				recommendation.ColErrorScore: d.Weight,
			})
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}

	if err := x.attachDifficulty(ctx, rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// attachDifficulty copies Exercise.difficulty onto rows whose exercise node carries it
func (x *Executor) attachDifficulty(ctx context.Context, rows []recommendation.Row) error {
	seen := make(map[string]struct{})
	var ids []string
	for _, r := range rows {
		id := r.ExerciseID()
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	type level struct {
		id    string
		value int64
	}
	levels, err := collect(ctx, x.opts.FanOut, ids, func(ctx context.Context, id string) ([]level, error) {
		node, err := x.graph.Node(ctx, entities.NodeExercise, id)
		if err != nil || node == nil {
			return nil, err
		}
		if v, ok := node.Int("difficulty"); ok {
			return []level{{id, v}}, nil
		}
		return nil, nil
	})
	if err != nil {
		return err
	}

	byID := make(map[string]int64, len(levels))
	for _, l := range levels {
		byID[l.id] = l.value
	}
	for _, r := range rows {
		if v, ok := byID[r.ExerciseID()]; ok {
			r[recommendation.ColExerciseDifficulty] = v
		}
	}
	return nil
}
