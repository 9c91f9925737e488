package traversal

import (
	"context"
	"sort"

	"recommender/domain/core/entities"
	"recommender/domain/recommendation"

	"golang.org/x/sync/errgroup"
)

// via is how a peer was reached: through a skill, by performing well on an exercise
type via struct {
	peer  string
	skill string
}

// multiHop chains two stages:
//
//	A: User -HAS_DIFFICULTY-> Skill <-EVALUATES- Exercise
//	B: Exercise <-PERFORMED(>= threshold)- Peer -PERFORMED-> new Exercise
//
// The anchor's own performed set is read concurrently with stage A. A new exercise is
// dropped when it is the only exercise that led to its peer through that skill.
func (x *Executor) multiHop(ctx context.Context, params recommendation.Params) ([]recommendation.Row, error) {
	userID := params.UserID()
	threshold := params.Number(recommendation.ParamPerformanceThreshold)

	var (
		stageA    map[string][]string
		performed map[string]struct{}
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		stageA, err = x.exercisesForDifficulties(gctx, userID)
		return err
	})
	if x.opts.Exclusion == recommendation.ExcludePerformed {
		g.Go(func() error {
			edges, err := x.graph.Outgoing(gctx, entities.EdgePerformed, userID)
			if err != nil {
				return err
			}
			performed = make(map[string]struct{}, len(edges))
			for _, e := range edges {
				performed[e.To] = struct{}{}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if len(stageA) == 0 {
		return nil, nil
	}

	exercises := make([]string, 0, len(stageA))
	for id := range stageA {
		exercises = append(exercises, id)
	}
	sort.Strings(exercises)

	// Peers who performed well on a stage A exercise, and the exercises that led to them.
	type reach struct {
		via      via
		exercise string
	}
	reached, err := collect(ctx, x.opts.FanOut, exercises, func(ctx context.Context, exerciseID string) ([]reach, error) {
		edges, err := x.graph.Incoming(ctx, entities.EdgePerformed, exerciseID)
		if err != nil {
			return nil, err
		}
		var out []reach
		for _, p := range edges {
			if p.From == userID || !meets(p.Weight, threshold) {
				continue
			}
			for _, skill := range stageA[exerciseID] {
				out = append(out, reach{via: via{peer: p.From, skill: skill}, exercise: exerciseID})
			}
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}

	paths := make(map[via]map[string]struct{})
	peerSkills := make(map[string]map[string]struct{})
	for _, r := range reached {
		if paths[r.via] == nil {
			paths[r.via] = make(map[string]struct{})
		}
		paths[r.via][r.exercise] = struct{}{}
		if peerSkills[r.via.peer] == nil {
			peerSkills[r.via.peer] = make(map[string]struct{})
		}
		peerSkills[r.via.peer][r.via.skill] = struct{}{}
	}

	peers := make([]string, 0, len(peerSkills))
	for peer := range peerSkills {
		peers = append(peers, peer)
	}
	sort.Strings(peers)

	return collect(ctx, x.opts.FanOut, peers, func(ctx context.Context, peer string) ([]recommendation.Row, error) {
		edges, err := x.graph.Outgoing(ctx, entities.EdgePerformed, peer)
		if err != nil {
			return nil, err
		}

		skills := make([]string, 0, len(peerSkills[peer]))
		for s := range peerSkills[peer] {
			skills = append(skills, s)
		}
		sort.Strings(skills)

		var rows []recommendation.Row
		for _, avg := range averagePerExercise(edges) {
			if _, done := performed[avg.exercise]; done {
				continue
			}
			for _, skill := range skills {
				from := paths[via{peer, skill}]
				if _, self := from[avg.exercise]; self && len(from) == 1 {
					continue
				}
				rows = append(rows, recommendation.Row{
					recommendation.ColExerciseID:      avg.exercise,
					recommendation.ColSourceUser:      peer,
					recommendation.ColRelatedSkill:    skill,
					recommendation.ColAvgCorrectRatio: avg.ratio,
				})
			}
		}
		return rows, nil
	})
}

// exercisesForDifficulties maps each exercise evaluating one of the anchor's difficult skills
// to those skills, sorted
func (x *Executor) exercisesForDifficulties(ctx context.Context, userID string) (map[string][]string, error) {
	difficulties, err := x.graph.Outgoing(ctx, entities.EdgeHasDifficulty, userID)
	if err != nil {
		return nil, err
	}

	evaluations, err := collect(ctx, x.opts.FanOut, difficulties, func(ctx context.Context, d entities.Edge) ([]entities.Edge, error) {
		return x.graph.Incoming(ctx, entities.EdgeEvaluates, d.To)
	})
	if err != nil {
		return nil, err
	}

	out := make(map[string][]string)
	for _, ev := range evaluations {
		out[ev.From] = append(out[ev.From], ev.To)
	}
	for id, skills := range out {
		sort.Strings(skills)
		out[id] = dedupeSorted(skills)
	}
	return out, nil
}

type exerciseAverage struct {
	exercise string
	ratio    float64
}

// averagePerExercise folds repeated Performed edges into their mean correct_ratio
func averagePerExercise(performed []entities.Edge) []exerciseAverage {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, p := range performed {
		sums[p.To] += p.Weight
		counts[p.To]++
	}
	out := make([]exerciseAverage, 0, len(sums))
	for id, sum := range sums {
		out = append(out, exerciseAverage{exercise: id, ratio: sum / float64(counts[id])})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].exercise < out[j].exercise })
	return out
}

func dedupeSorted(values []string) []string {
	out := values[:0]
	for i, v := range values {
		if i == 0 || v != values[i-1] {
			out = append(out, v)
		}
	}
	return out
}
