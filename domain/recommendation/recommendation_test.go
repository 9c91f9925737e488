package recommendation

import (
	"encoding/json"
	"testing"

	pkgerrors "recommender/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeRecommendation_LegacyArray(t *testing.T) {
	rec, err := DecodeRecommendation([]byte(`[{"course_id":"c1","score":0.8}]`))

	require.NoError(t, err)
	assert.Equal(t, ShapeLegacy, rec.Shape)
	assert.Equal(t, []LegacyItem{{CourseID: "c1", Score: 0.8}}, rec.Legacy)
}

func TestDecodeRecommendation_StructuredObject(t *testing.T) {
	body := `{
		"by_difficulty": [{"exercise_id":"e1","difficulty":3,"error_score":0.9}],
		"by_similar_users": [{"exercise_id":"e2","similarity":0.85,"performance":0.9}],
		"by_errors_and_interests": [{"exercise_id":"e3","error_weight":0.7,"interest_weight":0.6}]
	}`

	rec, err := DecodeRecommendation([]byte(body))

	require.NoError(t, err)
	assert.Equal(t, ShapeStructured, rec.Shape)
	require.Len(t, rec.Structured.ByDifficulty, 1)
	assert.Equal(t, "e1", rec.Structured.ByDifficulty[0].ExerciseID)
	assert.Equal(t, 3.0, *rec.Structured.ByDifficulty[0].Difficulty)
	assert.Equal(t, "e2", rec.Structured.BySimilarUsers[0].ExerciseID)
	assert.Equal(t, 0.7, rec.Structured.ByErrorsAndInterests[0].ErrorWeight)
}

func TestDecodeRecommendation_PartialObjectHasEmptyLists(t *testing.T) {
	rec, err := DecodeRecommendation([]byte(`{"by_difficulty":[]}`))

	require.NoError(t, err)
	assert.NotNil(t, rec.Structured.BySimilarUsers)
	assert.Empty(t, rec.Structured.ByErrorsAndInterests)
}

func TestDecodeRecommendation_Malformed(t *testing.T) {
	for _, body := range []string{``, `null`, `"text"`, `42`, `{"items":[]}`, `[{"course_id":1}]`, `{"by_difficulty":"x"}`} {
		_, err := DecodeRecommendation([]byte(body))
		assert.ErrorIs(t, err, pkgerrors.ErrMalformedResponse, body)
	}
}

func TestRecommendation_MarshalKeepsShape(t *testing.T) {
	legacy, err := json.Marshal(NewLegacy(nil))
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(legacy))

	structured, err := json.Marshal(NewStructured(Structured{}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"by_difficulty":[],"by_similar_users":[],"by_errors_and_interests":[]}`, string(structured))
}

func TestBuildStructured_MergesErrorsAndInterests(t *testing.T) {
	errs := Result{Rows: []Row{
		{"exercise_id": "e1", "error_id": "err1", "frequency": 0.9},
		{"exercise_id": "e1", "error_id": "err2", "frequency": 0.75},
	}}
	interests := Result{Rows: []Row{
		{"exercise_id": "e1", "interest_id": "i1", "interest_weight": 0.6},
		{"exercise_id": "e2", "interest_id": "i1", "interest_weight": 0.6},
	}}

	s := BuildStructured(EmptyResult(), EmptyResult(), errs, interests)

	require.Len(t, s.ByErrorsAndInterests, 2)
	assert.Equal(t, ErrorInterestRec{ExerciseID: "e1", ErrorWeight: 0.9, InterestWeight: 0.6}, s.ByErrorsAndInterests[0])
	assert.Equal(t, ErrorInterestRec{ExerciseID: "e2", InterestWeight: 0.6}, s.ByErrorsAndInterests[1])
}

func TestBuildStructured_DifficultyOnlyWhenKnown(t *testing.T) {
	difficulty := Result{Rows: []Row{
		{"exercise_id": "e1", "skill_id": "s1", "error_score": 0.9},
		{"exercise_id": "e2", "skill_id": "s1", "error_score": 0.9, "exercise_difficulty": int64(2)},
	}}

	s := BuildStructured(difficulty, EmptyResult(), EmptyResult(), EmptyResult())

	assert.Nil(t, s.ByDifficulty[0].Difficulty)
	require.NotNil(t, s.ByDifficulty[1].Difficulty)
	assert.Equal(t, 2.0, *s.ByDifficulty[1].Difficulty)
}
