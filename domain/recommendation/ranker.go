package recommendation

import (
	"fmt"
	"sort"
)

// Row is one candidate produced by a strategy: an exercise plus the weights met along the path
type Row map[string]any

// ExerciseID returns the terminal exercise of the path
func (r Row) ExerciseID() string {
	s, _ := r[ColExerciseID].(string)
	return s
}

// Score reads a numeric field, treating absent or non-numeric values as 0
func (r Row) Score(field string) float64 {
	n, err := toNumber(r[field])
	if err != nil {
		return 0
	}
	return n
}

// Result is a ranked, capped list of rows
type Result struct {
	Rows      []Row `json:"rows"`
	Truncated bool  `json:"truncated"`
}

// EmptyResult is the answer for an anchor with no matching edges
func EmptyResult() Result {
	return Result{Rows: []Row{}}
}

// Rank orders rows descending by scoreField, ties by exercise_id ascending, then caps them at limit.
//
// Rows are not deduplicated: two paths to the same exercise are distinct rows. The cap is
// applied after sorting, and Truncated reports whether rows were dropped. A limit below 1
// means no cap.
func Rank(rows []Row, scoreField string, limit int) Result {
	ranked := make([]Row, len(rows))
	copy(ranked, rows)

	keys := make([]string, len(ranked))
	for i, r := range ranked {
		keys[i] = fmt.Sprint(map[string]any(r))
	}
	idx := make([]int, len(ranked))
	for i := range idx {
		idx[i] = i
	}

	sort.SliceStable(idx, func(a, b int) bool {
		ra, rb := ranked[idx[a]], ranked[idx[b]]
		sa, sb := ra.Score(scoreField), rb.Score(scoreField)
		if sa != sb {
			return sa > sb
		}
		if ea, eb := ra.ExerciseID(), rb.ExerciseID(); ea != eb {
			return ea < eb
		}
		// Full-row comparison keeps the order independent of how the store enumerated edges.
		return keys[idx[a]] < keys[idx[b]]
	})

	out := make([]Row, len(ranked))
	for i, j := range idx {
		out[i] = ranked[j]
	}

	truncated := false
	if limit > 0 && len(out) > limit {
		out = out[:limit]
		truncated = true
	}
	return Result{Rows: out, Truncated: truncated}
}
