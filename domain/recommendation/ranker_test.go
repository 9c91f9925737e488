package recommendation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRank_DescendingByScore(t *testing.T) {
	rows := []Row{
		{"exercise_id": "e2", "error_score": 0.7},
		{"exercise_id": "e1", "error_score": 0.9},
	}

	result := Rank(rows, ColErrorScore, 20)

	assert.Equal(t, "e1", result.Rows[0].ExerciseID())
	assert.Equal(t, "e2", result.Rows[1].ExerciseID())
	assert.False(t, result.Truncated)
}

func TestRank_TiesBrokenByExerciseID(t *testing.T) {
	rows := []Row{
		{"exercise_id": "e9", "frequency": 0.8},
		{"exercise_id": "e3", "frequency": 0.8},
		{"exercise_id": "e5", "frequency": 0.8},
	}

	result := Rank(rows, ColFrequency, 20)

	assert.Equal(t, []string{"e3", "e5", "e9"}, exerciseIDs(result))
}

func TestRank_LimitAppliedAfterSorting(t *testing.T) {
	rows := []Row{
		{"exercise_id": "e1", "performance": 0.1},
		{"exercise_id": "e2", "performance": 0.5},
		{"exercise_id": "e3", "performance": 0.95},
		{"exercise_id": "e4", "performance": 0.3},
		{"exercise_id": "e5", "performance": 0.7},
	}

	result := Rank(rows, ColPerformance, 1)

	assert.Len(t, result.Rows, 1)
	assert.Equal(t, "e3", result.Rows[0].ExerciseID())
	assert.True(t, result.Truncated)
}

func TestRank_KeepsDistinctPathsToSameExercise(t *testing.T) {
	rows := []Row{
		{"exercise_id": "e1", "skill_id": "s2", "error_score": 0.8},
		{"exercise_id": "e1", "skill_id": "s1", "error_score": 0.8},
	}

	result := Rank(rows, ColErrorScore, 20)

	assert.Len(t, result.Rows, 2)
	assert.Equal(t, "s1", result.Rows[0]["skill_id"])
}

func TestRank_IsDeterministicRegardlessOfInputOrder(t *testing.T) {
	a := []Row{
		{"exercise_id": "e1", "skill_id": "s2", "error_score": 0.8},
		{"exercise_id": "e1", "skill_id": "s1", "error_score": 0.8},
		{"exercise_id": "e0", "skill_id": "s1", "error_score": 0.6},
	}
	b := []Row{a[2], a[1], a[0]}

	assert.Equal(t, Rank(a, ColErrorScore, 20), Rank(b, ColErrorScore, 20))
}

func TestRank_EmptyInput(t *testing.T) {
	result := Rank(nil, ColErrorScore, 20)

	assert.NotNil(t, result.Rows)
	assert.Empty(t, result.Rows)
	assert.False(t, result.Truncated)
}

func exerciseIDs(r Result) []string {
	out := make([]string, len(r.Rows))
	for i, row := range r.Rows {
		out[i] = row.ExerciseID()
	}
	return out
}
