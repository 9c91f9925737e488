package traversal

import (
	"context"
	"sort"

	"recommender/domain/core/entities"
	"recommender/domain/recommendation"
)

// DefaultCourseLimit caps the legacy course list
const DefaultCourseLimit = 5

// RecommendCourses scores courses the anchor has not completed by how many distinct users
// share a completed course with the anchor and completed them too
func (x *Executor) RecommendCourses(ctx context.Context, userID string, limit int) ([]recommendation.LegacyItem, error) {
	if limit < 1 {
		limit = DefaultCourseLimit
	}

	own, err := x.graph.Outgoing(ctx, entities.EdgeCompleted, userID)
	if err != nil || len(own) == 0 {
		return []recommendation.LegacyItem{}, err
	}
	completed := make(map[string]struct{}, len(own))
	for _, c := range own {
		completed[c.To] = struct{}{}
	}

	coUsers, err := collect(ctx, x.opts.FanOut, own, func(ctx context.Context, c entities.Edge) ([]string, error) {
		edges, err := x.graph.Incoming(ctx, entities.EdgeCompleted, c.To)
		if err != nil {
			return nil, err
		}
		var out []string
		for _, e := range edges {
			if e.From != userID {
				out = append(out, e.From)
			}
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(coUsers)
	coUsers = dedupeSorted(coUsers)

	type completion struct{ course, user string }
	completions, err := collect(ctx, x.opts.FanOut, coUsers, func(ctx context.Context, other string) ([]completion, error) {
		edges, err := x.graph.Outgoing(ctx, entities.EdgeCompleted, other)
		if err != nil {
			return nil, err
		}
		var out []completion
		for _, e := range edges {
			if _, mine := completed[e.To]; !mine {
				out = append(out, completion{course: e.To, user: other})
			}
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}

	users := make(map[string]map[string]struct{})
	for _, c := range completions {
		if users[c.course] == nil {
			users[c.course] = make(map[string]struct{})
		}
		users[c.course][c.user] = struct{}{}
	}

	items := make([]recommendation.LegacyItem, 0, len(users))
	for course, set := range users {
		items = append(items, recommendation.LegacyItem{CourseID: course, Score: float64(len(set))})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Score != items[j].Score {
			return items[i].Score > items[j].Score
		}
		return items[i].CourseID < items[j].CourseID
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}
