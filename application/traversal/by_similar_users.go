package traversal

import (
	"context"
	"sort"

	"recommender/domain/core/entities"
	"recommender/domain/recommendation"
)

type similarUser struct {
	id    string
	score float64
}

// bySimilarUsers walks User -SIMILAR_TO- User' -PERFORMED-> Exercise -EVALUATES-> Skill,
// keeping skills the anchor has a difficulty with
func (x *Executor) bySimilarUsers(ctx context.Context, params recommendation.Params) ([]recommendation.Row, error) {
	userID := params.UserID()
	perfThreshold := params.Number(recommendation.ParamPerformanceThreshold)

	similar, err := x.similarUsers(ctx, userID, params.Number(recommendation.ParamSimilarityThreshold))
	if err != nil || len(similar) == 0 {
		return nil, err
	}

	difficulties, err := x.graph.Outgoing(ctx, entities.EdgeHasDifficulty, userID)
	if err != nil || len(difficulties) == 0 {
		return nil, err
	}
	struggling := make(map[string]struct{}, len(difficulties))
	for _, d := range difficulties {
		struggling[d.To] = struct{}{}
	}

	return collect(ctx, x.opts.FanOut, similar, func(ctx context.Context, peer similarUser) ([]recommendation.Row, error) {
		performed, err := x.graph.Outgoing(ctx, entities.EdgePerformed, peer.id)
		if err != nil {
			return nil, err
		}

		var rows []recommendation.Row
		for _, p := range latestPerExercise(performed) {
			if !meets(p.Weight, perfThreshold) {
				continue
			}
			evaluates, err := x.graph.Outgoing(ctx, entities.EdgeEvaluates, p.To)
			if err != nil {
				return nil, err
			}
			for _, ev := range evaluates {
				if _, ok := struggling[ev.To]; !ok {
					continue
				}
				rows = append(rows, recommendation.Row{
					recommendation.ColExerciseID:  p.To,
					recommendation.ColSkillID:     ev.To,
					recommendation.ColPerformance: p.Weight,
					recommendation.ColSimilarity:  peer.score,
					recommendation.ColSimilarUser: peer.id,
				})
			}
		}
		return rows, nil
	})
}

// similarUsers resolves the anchor's neighbours above threshold, keeping the strongest score
// when both directions are stored
func (x *Executor) similarUsers(ctx context.Context, userID string, threshold float64) ([]similarUser, error) {
	best := make(map[string]float64)
	consider := func(other string, score float64) {
		if other == userID || !meets(score, threshold) {
			return
		}
		if cur, ok := best[other]; !ok || score > cur {
			best[other] = score
		}
	}

	out, err := x.graph.Outgoing(ctx, entities.EdgeSimilarTo, userID)
	if err != nil {
		return nil, err
	}
	for _, e := range out {
		consider(e.To, e.Weight)
	}

	if x.opts.Similarity == recommendation.SimilarityBoth {
		in, err := x.graph.Incoming(ctx, entities.EdgeSimilarTo, userID)
		if err != nil {
			return nil, err
		}
		for _, e := range in {
			consider(e.From, e.Weight)
		}
	}

	users := make([]similarUser, 0, len(best))
	for id, score := range best {
		users = append(users, similarUser{id: id, score: score})
	}
	sort.Slice(users, func(i, j int) bool { return users[i].id < users[j].id })
	return users, nil
}

// latestPerExercise keeps the most recent Performed edge of each exercise, ordered by exercise id
func latestPerExercise(performed []entities.Edge) []entities.Edge {
	latest := make(map[string]entities.Edge)
	for _, p := range performed {
		cur, ok := latest[p.To]
		if !ok || p.At.After(cur.At) || (p.At.Equal(cur.At) && p.ID > cur.ID) {
			latest[p.To] = p
		}
	}
	out := make([]entities.Edge, 0, len(latest))
	for _, p := range latest {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].To < out[j].To })
	return out
}
