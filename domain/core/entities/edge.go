package entities

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	pkgerrors "recommender/pkg/errors"
)

// EdgeKind names a directed relationship between two node kinds
type EdgeKind string

const (
	EdgePerformed     EdgeKind = "PERFORMED"
	EdgeHasDifficulty EdgeKind = "HAS_DIFFICULTY"
	EdgeMakesError    EdgeKind = "MAKES_ERROR"
	EdgeInterestedIn  EdgeKind = "INTERESTED_IN"
	EdgeTaggedAs      EdgeKind = "TAGGED_AS"
	EdgeTaggedError   EdgeKind = "TAGGED_ERROR"
	EdgeEvaluates     EdgeKind = "EVALUATES"
	EdgeSimilarTo     EdgeKind = "SIMILAR_TO"
	EdgeRecommended   EdgeKind = "RECOMMENDED"
	EdgeCompleted     EdgeKind = "COMPLETED"
)

// EdgeSpec describes how an edge kind is stored and exchanged.
//
// RelType is the relationship type in a property graph; two kinds may share it when
// their end labels differ (TAGGED_AS towards Interest or ErrorType). FromField and
// ToField are the record keys of the two endpoints. Append kinds keep every write as a
// separate edge, the others keep one edge per (from, to) pair.
type EdgeSpec struct {
	Kind        EdgeKind
	From        NodeKind
	To          NodeKind
	RelType     string
	FromField   string
	ToField     string
	WeightField string
	TimeField   string
	Append      bool
	Resource    string
	Dataset     string
}

var edgeSpecs = map[EdgeKind]EdgeSpec{
	EdgePerformed: {
		Kind: EdgePerformed, From: NodeUser, To: NodeExercise, RelType: "PERFORMED",
		FromField: "user_id", ToField: "exercise_id", WeightField: "correct_ratio", TimeField: "performed_at",
		Append: true, Resource: "performed", Dataset: "performed",
	},
	EdgeHasDifficulty: {
		Kind: EdgeHasDifficulty, From: NodeUser, To: NodeSkill, RelType: "HAS_DIFFICULTY",
		FromField: "user_id", ToField: "skill_id", WeightField: "error_score", TimeField: "updated_at",
		Resource: "difficulties", Dataset: "difficulties",
	},
	EdgeMakesError: {
		Kind: EdgeMakesError, From: NodeUser, To: NodeErrorType, RelType: "MAKES_ERROR",
		FromField: "user_id", ToField: "error_id", WeightField: "frequency", TimeField: "updated_at",
		Resource: "errors", Dataset: "user-errors",
	},
	EdgeInterestedIn: {
		Kind: EdgeInterestedIn, From: NodeUser, To: NodeInterest, RelType: "INTERESTED_IN",
		FromField: "user_id", ToField: "interest_id", WeightField: "weight", TimeField: "updated_at",
		Resource: "interested-in", Dataset: "user-interests",
	},
	EdgeTaggedAs: {
		Kind: EdgeTaggedAs, From: NodeExercise, To: NodeInterest, RelType: "TAGGED_AS",
		FromField: "exercise_id", ToField: "interest_id",
		Resource: "tags", Dataset: "tags",
	},
	EdgeTaggedError: {
		Kind: EdgeTaggedError, From: NodeExercise, To: NodeErrorType, RelType: "TAGGED_AS",
		FromField: "exercise_id", ToField: "error_id",
		Resource: "error-tags", Dataset: "error-tags",
	},
	EdgeEvaluates: {
		Kind: EdgeEvaluates, From: NodeExercise, To: NodeSkill, RelType: "EVALUATES",
		FromField: "exercise_id", ToField: "skill_id",
		Resource: "evaluates", Dataset: "evaluates",
	},
	EdgeSimilarTo: {
		Kind: EdgeSimilarTo, From: NodeUser, To: NodeUser, RelType: "SIMILAR_TO",
		FromField: "user1", ToField: "user2", WeightField: "score", TimeField: "updated_at",
		Resource: "similarities", Dataset: "similarities",
	},
	EdgeRecommended: {
		Kind: EdgeRecommended, From: NodeUser, To: NodeExercise, RelType: "RECOMMENDED",
		FromField: "user_id", ToField: "exercise_id", TimeField: "timestamp",
		Append: true, Resource: "log", Dataset: "recommended",
	},
	EdgeCompleted: {
		Kind: EdgeCompleted, From: NodeUser, To: NodeCourse, RelType: "COMPLETED",
		FromField: "user_id", ToField: "course_id", TimeField: "created_at",
		Resource: "progress", Dataset: "progress",
	},
}

// EdgeKinds lists every edge kind in a stable order
func EdgeKinds() []EdgeKind {
	return []EdgeKind{
		EdgePerformed, EdgeHasDifficulty, EdgeMakesError, EdgeInterestedIn, EdgeTaggedAs,
		EdgeTaggedError, EdgeEvaluates, EdgeSimilarTo, EdgeRecommended, EdgeCompleted,
	}
}

// Spec returns the storage description of the kind
func (k EdgeKind) Spec() (EdgeSpec, bool) {
	s, ok := edgeSpecs[k]
	return s, ok
}

// MustSpec is Spec for kinds declared in this package
func (k EdgeKind) MustSpec() EdgeSpec {
	s, ok := edgeSpecs[k]
	if !ok {
		panic(fmt.Sprintf("entities: unknown edge kind %q", k))
	}
	return s
}

// Edge is a directed, optionally weighted relationship.
// Weight carries the kind's score (correct_ratio, error_score, frequency, weight or score).
type Edge struct {
	ID       string    `json:"id,omitempty"`
	Kind     EdgeKind  `json:"kind"`
	From     string    `json:"from"`
	To       string    `json:"to"`
	Weight   float64   `json:"weight"`
	Attempts int       `json:"attempts,omitempty"`
	Metric   string    `json:"metric,omitempty"`
	Strategy string    `json:"strategy,omitempty"`
	Accepted *bool     `json:"accepted,omitempty"`
	Level    *string   `json:"level,omitempty"`
	At       time.Time `json:"at"`
}

// EnsureID assigns a random identifier to append-only edges that lack one
func (e Edge) EnsureID() Edge {
	if e.ID == "" && e.Kind.MustSpec().Append {
		e.ID = uuid.New().String()
	}
	return e
}

// Record flattens the edge into the wire shape used by the REST collaborator
func (e Edge) Record() map[string]any {
	spec := e.Kind.MustSpec()
	out := map[string]any{
		spec.FromField: e.From,
		spec.ToField:   e.To,
	}
	for k, v := range e.Properties() {
		if t, ok := v.(time.Time); ok {
			out[k] = t.UTC().Format(time.RFC3339Nano)
			continue
		}
		out[k] = v
	}
	return out
}

// Properties returns the relationship properties, without the endpoints
func (e Edge) Properties() map[string]any {
	spec := e.Kind.MustSpec()
	out := make(map[string]any)
	if e.ID != "" {
		out["id"] = e.ID
	}
	if spec.WeightField != "" {
		out[spec.WeightField] = e.Weight
	}
	if spec.TimeField != "" && !e.At.IsZero() {
		out[spec.TimeField] = e.At.UTC()
	}
	switch e.Kind {
	case EdgePerformed:
		out["attempts"] = int64(e.Attempts)
	case EdgeSimilarTo:
		if e.Metric != "" {
			out["metric"] = e.Metric
		}
	case EdgeRecommended:
		out["strategy"] = e.Strategy
		if e.Accepted != nil {
			out["accepted"] = *e.Accepted
		}
	case EdgeCompleted:
		if e.Level != nil {
			out["level"] = *e.Level
		}
	}
	return out
}

// EdgeFromRecord decodes the wire shape. Values may come from JSON, YAML or a
// property-graph driver, so numbers, booleans and timestamps are read leniently.
func EdgeFromRecord(kind EdgeKind, record map[string]any) (Edge, error) {
	spec, ok := kind.Spec()
	if !ok {
		return Edge{}, pkgerrors.NewInvalidPayload(fmt.Sprintf("unknown edge kind %q", kind))
	}

	e := Edge{Kind: kind}
	e.From = stringValue(record[spec.FromField])
	e.To = stringValue(record[spec.ToField])
	e.ID = stringValue(record["id"])

	if spec.WeightField != "" {
		w, err := FloatValue(record[spec.WeightField])
		if err != nil {
			return Edge{}, pkgerrors.NewInvalidPayload(fmt.Sprintf("%s: %v", spec.WeightField, err))
		}
		e.Weight = w
	}
	if spec.TimeField != "" {
		at, err := timeValue(record[spec.TimeField])
		if err != nil {
			return Edge{}, pkgerrors.NewInvalidPayload(fmt.Sprintf("%s: %v", spec.TimeField, err))
		}
		e.At = at
	}

	switch kind {
	case EdgePerformed:
		if v, ok := record["attempts"]; ok && v != nil {
			n, err := FloatValue(v)
			if err != nil {
				return Edge{}, pkgerrors.NewInvalidPayload(fmt.Sprintf("attempts: %v", err))
			}
			e.Attempts = int(n)
		}
	case EdgeSimilarTo:
		e.Metric = stringValue(record["metric"])
	case EdgeRecommended:
		e.Strategy = stringValue(record["strategy"])
		accepted, err := optionalBool(record["accepted"])
		if err != nil {
			return Edge{}, pkgerrors.NewInvalidPayload(fmt.Sprintf("accepted: %v", err))
		}
		e.Accepted = accepted
	case EdgeCompleted:
		if level := stringValue(record["level"]); level != "" {
			e.Level = &level
		}
	}
	return e, nil
}

// SortEdges orders edges by endpoints, then time, then id
func SortEdges(edges []Edge) {
	sort.SliceStable(edges, func(i, j int) bool {
		a, b := edges[i], edges[j]
		if a.From != b.From {
			return a.From < b.From
		}
		if a.To != b.To {
			return a.To < b.To
		}
		if !a.At.Equal(b.At) {
			return a.At.Before(b.At)
		}
		return a.ID < b.ID
	})
}

// FloatValue reads a number from any of the representations the stores and wire formats produce.
// A nil value reads as zero.
func FloatValue(v any) (float64, error) {
	switch n := v.(type) {
	case nil:
		return 0, nil
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case json.Number:
		return n.Float64()
	case string:
		return strconv.ParseFloat(strings.TrimSpace(n), 64)
	default:
		return 0, fmt.Errorf("not a number: %v", v)
	}
}

func stringValue(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	default:
		return fmt.Sprint(s)
	}
}

func optionalBool(v any) (*bool, error) {
	switch b := v.(type) {
	case nil:
		return nil, nil
	case bool:
		return &b, nil
	case string:
		if strings.TrimSpace(b) == "" {
			return nil, nil
		}
		parsed, err := strconv.ParseBool(strings.TrimSpace(b))
		if err != nil {
			return nil, err
		}
		return &parsed, nil
	default:
		return nil, fmt.Errorf("not a boolean: %v", v)
	}
}

func timeValue(v any) (time.Time, error) {
	switch t := v.(type) {
	case nil:
		return time.Time{}, nil
	case time.Time:
		return t.UTC(), nil
	case string:
		if t == "" {
			return time.Time{}, nil
		}
		parsed, err := time.Parse(time.RFC3339Nano, t)
		if err != nil {
			return time.Time{}, err
		}
		return parsed.UTC(), nil
	default:
		return time.Time{}, fmt.Errorf("not a timestamp: %v", v)
	}
}
