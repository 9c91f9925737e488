package recommendation

import (
	pkgerrors "recommender/pkg/errors"
)

// Catalog is the fixed, read-only registry of strategies. It is safe for concurrent use.
type Catalog struct {
	order      []Key
	byKey      map[Key]Strategy
	byEndpoint map[string]Key
}

var defaultCatalog = newCatalog(
	Strategy{
		Key:         ByDifficulty,
		Endpoint:    "by-difficulty",
		Title:       "Difficulty based",
		Description: "User -> skills with a high error_score -> exercises that evaluate them.",
		Params: Schema{
			userIDParam(),
			threshold(ParamThreshold, "minimum error_score", 0.6),
			limitParam(),
		},
		Columns:    columns(ColExerciseID, ColSkillID, ColErrorScore, ColExerciseDifficulty),
		ScoreField: ColErrorScore,
	},
	Strategy{
		Key:         BySimilarUsers,
		Endpoint:    "by-similar-users",
		Title:       "Collaborative (similar users)",
		Description: "Similar users -> exercises they performed well on, over skills where the user struggles.",
		Params: Schema{
			userIDParam(),
			threshold(ParamSimilarityThreshold, "minimum similarity score", 0.8),
			threshold(ParamPerformanceThreshold, "minimum correct_ratio", 0.8),
			limitParam(),
		},
		Columns:    columns(ColExerciseID, ColSkillID, ColPerformance, ColSimilarity),
		ScoreField: ColPerformance,
	},
	Strategy{
		Key:         ByErrors,
		Endpoint:    "by-errors",
		Title:       "Recurring errors",
		Description: "Frequent errors -> exercises tagged with that error.",
		Params: Schema{
			userIDParam(),
			threshold(ParamFrequencyThreshold, "minimum frequency", 0.7),
			limitParam(),
		},
		Columns:    columns(ColExerciseID, ColErrorID, ColFrequency),
		ScoreField: ColFrequency,
	},
	Strategy{
		Key:         ByInterests,
		Endpoint:    "by-interests",
		Title:       "Interests and reinforcement",
		Description: "The user's interests combined with skills that need reinforcement.",
		Params: Schema{
			userIDParam(),
			threshold(ParamWeightThreshold, "minimum interest weight", 0.5),
			threshold(ParamMinErrorScore, "minimum error_score", 0.0),
			limitParam(),
		},
		Columns:    columns(ColExerciseID, ColInterestID, ColInterestWeight, ColErrorScore),
		ScoreField: ColInterestWeight,
	},
	Strategy{
		Key:         MultiHop,
		Endpoint:    "multi-hop",
		Title:       "Combined multi-hop",
		Description: "Difficulties -> exercises -> other users -> new recommended exercises.",
		Params: Schema{
			userIDParam(),
			threshold(ParamPerformanceThreshold, "minimum correct_ratio", 0.75),
			limitParam(),
		},
		Columns:    columns(ColExerciseID, ColSourceUser, ColRelatedSkill, ColAvgCorrectRatio),
		ScoreField: ColAvgCorrectRatio,
	},
)

// DefaultCatalog returns the process-wide catalog of the five strategies
func DefaultCatalog() *Catalog {
	return defaultCatalog
}

func newCatalog(strategies ...Strategy) *Catalog {
	c := &Catalog{
		byKey:      make(map[Key]Strategy, len(strategies)),
		byEndpoint: make(map[string]Key, len(strategies)),
	}
	for _, s := range strategies {
		c.order = append(c.order, s.Key)
		c.byKey[s.Key] = s
		c.byEndpoint[s.Endpoint] = s.Key
	}
	return c
}

// Lookup resolves a strategy key, failing with UNKNOWN_STRATEGY
func (c *Catalog) Lookup(key string) (Strategy, error) {
	s, ok := c.byKey[Key(key)]
	if !ok {
		return Strategy{}, pkgerrors.NewUnknownStrategy(key)
	}
	return s, nil
}

// LookupEndpoint resolves an endpoint name such as "by-difficulty"
func (c *Catalog) LookupEndpoint(endpoint string) (Strategy, error) {
	key, ok := c.byEndpoint[endpoint]
	if !ok {
		return Strategy{}, pkgerrors.NewUnknownStrategy(endpoint)
	}
	return c.byKey[key], nil
}

// All returns the strategies in declaration order
func (c *Catalog) All() []Strategy {
	out := make([]Strategy, 0, len(c.order))
	for _, k := range c.order {
		out = append(out, c.byKey[k])
	}
	return out
}

// Describe lists caller-facing descriptors in declaration order
func (c *Catalog) Describe() []Descriptor {
	out := make([]Descriptor, 0, len(c.order))
	for _, s := range c.All() {
		out = append(out, s.Describe())
	}
	return out
}

func userIDParam() ParamSpec {
	return ParamSpec{Name: ParamUserID, Label: ParamUserID, Kind: ParamString, Required: true}
}

func threshold(name, label string, def float64) ParamSpec {
	return ParamSpec{
		Name:    name,
		Label:   label,
		Kind:    ParamNumber,
		Min:     float(0),
		Max:     float(1),
		Step:    float(0.05),
		Default: def,
	}
}

func limitParam() ParamSpec {
	return ParamSpec{
		Name:    ParamLimit,
		Label:   ParamLimit,
		Kind:    ParamNumber,
		Integer: true,
		Min:     float(1),
		Max:     float(200),
		Step:    float(1),
		Default: float64(20),
	}
}

func columns(keys ...string) []Column {
	out := make([]Column, len(keys))
	for i, k := range keys {
		out[i] = Column{Key: k, Label: k}
	}
	return out
}

func float(v float64) *float64 {
	return &v
}
