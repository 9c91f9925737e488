package recommendation

import (
	"bytes"
	"encoding/json"
	"sort"

	pkgerrors "recommender/pkg/errors"
)

// Shape discriminates the two payloads GET /recommend/:user_id may carry
type Shape string

const (
	ShapeLegacy     Shape = "legacy"
	ShapeStructured Shape = "structured"
)

// LegacyItem is one entry of the flat course list
type LegacyItem struct {
	CourseID string  `json:"course_id"`
	Score    float64 `json:"score"`
}

// DifficultyRec is a by_difficulty entry of the structured shape
type DifficultyRec struct {
	ExerciseID string   `json:"exercise_id"`
	Difficulty *float64 `json:"difficulty,omitempty"`
	ErrorScore float64  `json:"error_score"`
}

// SimilarRec is a by_similar_users entry of the structured shape
type SimilarRec struct {
	ExerciseID  string  `json:"exercise_id"`
	Similarity  float64 `json:"similarity"`
	Performance float64 `json:"performance"`
}

// ErrorInterestRec merges by_errors and by_interests for one exercise
type ErrorInterestRec struct {
	ExerciseID     string  `json:"exercise_id"`
	ErrorWeight    float64 `json:"error_weight"`
	InterestWeight float64 `json:"interest_weight"`
}

// Structured is the per-strategy object shape
type Structured struct {
	ByDifficulty         []DifficultyRec    `json:"by_difficulty"`
	BySimilarUsers       []SimilarRec       `json:"by_similar_users"`
	ByErrorsAndInterests []ErrorInterestRec `json:"by_errors_and_interests"`
}

// Recommendation is LegacyRecommendation | StructuredRecommendation, tagged by Shape.
// Exactly one of Legacy and Structured is meaningful.
type Recommendation struct {
	Shape      Shape
	Legacy     []LegacyItem
	Structured Structured
}

// NewLegacy wraps a flat course list
func NewLegacy(items []LegacyItem) Recommendation {
	if items == nil {
		items = []LegacyItem{}
	}
	return Recommendation{Shape: ShapeLegacy, Legacy: items}
}

// NewStructured wraps a per-strategy object
func NewStructured(s Structured) Recommendation {
	return Recommendation{Shape: ShapeStructured, Structured: s.normalized()}
}

// MarshalJSON emits the bare array or the object, matching what was decoded
func (r Recommendation) MarshalJSON() ([]byte, error) {
	if r.Shape == ShapeLegacy {
		items := r.Legacy
		if items == nil {
			items = []LegacyItem{}
		}
		return json.Marshal(items)
	}
	return json.Marshal(r.Structured.normalized())
}

// DecodeRecommendation classifies a payload by its JSON shape: a top-level array is the
// legacy list, an object is the structured form. Anything else is MALFORMED_RESPONSE.
func DecodeRecommendation(data []byte) (Recommendation, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return Recommendation{}, pkgerrors.NewMalformedResponse("empty body", nil)
	}

	switch trimmed[0] {
	case '[':
		var items []LegacyItem
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return Recommendation{}, pkgerrors.NewMalformedResponse(snippet(trimmed), err)
		}
		return NewLegacy(items), nil
	case '{':
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &fields); err != nil {
			return Recommendation{}, pkgerrors.NewMalformedResponse(snippet(trimmed), err)
		}
		_, a := fields["by_difficulty"]
		_, b := fields["by_similar_users"]
		_, c := fields["by_errors_and_interests"]
		if !a && !b && !c {
			return Recommendation{}, pkgerrors.NewMalformedResponse(snippet(trimmed), nil)
		}
		var s Structured
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return Recommendation{}, pkgerrors.NewMalformedResponse(snippet(trimmed), err)
		}
		return NewStructured(s), nil
	default:
		return Recommendation{}, pkgerrors.NewMalformedResponse(snippet(trimmed), nil)
	}
}

// BuildStructured assembles the object shape from ranked strategy results.
// Errors and interests are merged per exercise keeping the strongest weight of each.
func BuildStructured(difficulty, similar, errs, interests Result) Structured {
	var s Structured

	for _, row := range difficulty.Rows {
		rec := DifficultyRec{ExerciseID: row.ExerciseID(), ErrorScore: row.Score(ColErrorScore)}
		if _, ok := row[ColExerciseDifficulty]; ok {
			d := row.Score(ColExerciseDifficulty)
			rec.Difficulty = &d
		}
		s.ByDifficulty = append(s.ByDifficulty, rec)
	}

	for _, row := range similar.Rows {
		s.BySimilarUsers = append(s.BySimilarUsers, SimilarRec{
			ExerciseID:  row.ExerciseID(),
			Similarity:  row.Score(ColSimilarity),
			Performance: row.Score(ColPerformance),
		})
	}

	merged := make(map[string]*ErrorInterestRec)
	entry := func(id string) *ErrorInterestRec {
		rec, ok := merged[id]
		if !ok {
			rec = &ErrorInterestRec{ExerciseID: id}
			merged[id] = rec
		}
		return rec
	}
	for _, row := range errs.Rows {
		rec := entry(row.ExerciseID())
		rec.ErrorWeight = max(rec.ErrorWeight, row.Score(ColFrequency))
	}
	for _, row := range interests.Rows {
		rec := entry(row.ExerciseID())
		rec.InterestWeight = max(rec.InterestWeight, row.Score(ColInterestWeight))
	}
	for _, rec := range merged {
		s.ByErrorsAndInterests = append(s.ByErrorsAndInterests, *rec)
	}
	sort.Slice(s.ByErrorsAndInterests, func(i, j int) bool {
		a, b := s.ByErrorsAndInterests[i], s.ByErrorsAndInterests[j]
		if sa, sb := a.ErrorWeight+a.InterestWeight, b.ErrorWeight+b.InterestWeight; sa != sb {
			return sa > sb
		}
		return a.ExerciseID < b.ExerciseID
	})

	return s.normalized()
}

func (s Structured) normalized() Structured {
	if s.ByDifficulty == nil {
		s.ByDifficulty = []DifficultyRec{}
	}
	if s.BySimilarUsers == nil {
		s.BySimilarUsers = []SimilarRec{}
	}
	if s.ByErrorsAndInterests == nil {
		s.ByErrorsAndInterests = []ErrorInterestRec{}
	}
	return s
}

func snippet(b []byte) string {
	const n = 200
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
