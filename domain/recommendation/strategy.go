package recommendation

// Key identifies a strategy in the catalog
type Key string

const (
	ByDifficulty   Key = "by_difficulty"
	BySimilarUsers Key = "by_similar_users"
	ByErrors       Key = "by_errors"
	ByInterests    Key = "by_interests"
	MultiHop       Key = "multi_hop"
)

// Parameter names shared by several strategies
const (
	ParamUserID               = "user_id"
	ParamLimit                = "limit"
	ParamThreshold            = "threshold"
	ParamSimilarityThreshold  = "similarity_threshold"
	ParamPerformanceThreshold = "performance_threshold"
	ParamFrequencyThreshold   = "frequency_threshold"
	ParamWeightThreshold      = "weight_threshold"
	ParamMinErrorScore        = "min_error_score"
)

// Result column names
const (
	ColExerciseID         = "exercise_id"
	ColSkillID            = "skill_id"
	ColErrorScore         = "error_score"
	ColExerciseDifficulty = "exercise_difficulty"
	ColPerformance        = "performance"
	ColSimilarity         = "similarity"
	ColSimilarUser        = "similar_user"
	ColErrorID            = "error_id"
	ColFrequency          = "frequency"
	ColInterestID         = "interest_id"
	ColInterestWeight     = "interest_weight"
	ColSourceUser         = "source_user"
	ColRelatedSkill       = "related_skill"
	ColAvgCorrectRatio    = "avg_correct_ratio"
)

// Column describes one field of a strategy's result rows
type Column struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// Strategy is a named, parameterized traversal producing scored exercise candidates
type Strategy struct {
	Key         Key
	Endpoint    string
	Title       string
	Description string
	Params      Schema
	Columns     []Column
	ScoreField  string
}

// Descriptor is the caller-facing description of a strategy, enough to render a form and a table
type Descriptor struct {
	Key           Key      `json:"key"`
	Endpoint      string   `json:"endpoint"`
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	ParamSchema   Schema   `json:"param_schema"`
	ResultColumns []Column `json:"result_columns"`
	ScoreField    string   `json:"score_field"`
}

// Describe returns a copy that callers may keep
func (s Strategy) Describe() Descriptor {
	params := make(Schema, len(s.Params))
	copy(params, s.Params)
	columns := make([]Column, len(s.Columns))
	copy(columns, s.Columns)

	return Descriptor{
		Key:           s.Key,
		Endpoint:      s.Endpoint,
		Title:         s.Title,
		Description:   s.Description,
		ParamSchema:   params,
		ResultColumns: columns,
		ScoreField:    s.ScoreField,
	}
}
