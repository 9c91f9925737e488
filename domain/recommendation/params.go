package recommendation

import (
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"

	pkgerrors "recommender/pkg/errors"
)

// ParamKind is the declared type of a strategy input
type ParamKind string

const (
	ParamString ParamKind = "string"
	ParamNumber ParamKind = "number"
)

// ParamSpec describes one strategy input. Bounds are inclusive.
type ParamSpec struct {
	Name     string    `json:"name"`
	Label    string    `json:"label,omitempty"`
	Kind     ParamKind `json:"kind"`
	Required bool      `json:"required"`
	Integer  bool      `json:"integer,omitempty"`
	Min      *float64  `json:"min,omitempty"`
	Max      *float64  `json:"max,omitempty"`
	Step     *float64  `json:"step,omitempty"`
	Default  any       `json:"default,omitempty"`
}

// Schema is the ordered list of inputs a strategy accepts
type Schema []ParamSpec

// Params holds validated inputs: numbers as float64, strings trimmed.
type Params struct {
	values map[string]any
}

// NewParams builds Params directly, skipping validation. Intended for callers that already hold trusted values.
func NewParams(values map[string]any) Params {
	copied := make(map[string]any, len(values))
	for k, v := range values {
		copied[k] = v
	}
	return Params{values: copied}
}

// Bind validates raw inputs against the schema.
//
// Unknown names are ignored. A required parameter that is absent or blank after trimming
// fails with PARAM_MISSING; a number outside its bounds fails with PARAM_OUT_OF_RANGE.
// Schema defaults are trusted and never range-checked.
func (s Schema) Bind(raw map[string]any) (Params, error) {
	values := make(map[string]any, len(s))

	for _, spec := range s {
		v, present := raw[spec.Name]
		if present && isBlank(v) {
			present = false
		}

		if !present {
			if spec.Required {
				return Params{}, pkgerrors.NewParamMissing(spec.Name)
			}
			if spec.Default != nil {
				values[spec.Name] = spec.Default
			}
			continue
		}

		switch spec.Kind {
		case ParamString:
			values[spec.Name] = toText(v)
		case ParamNumber:
			n, err := toNumber(v)
			if err != nil {
				return Params{}, pkgerrors.NewParamInvalid(spec.Name, v, "must be a number")
			}
			if spec.Integer && n != math.Trunc(n) {
				return Params{}, pkgerrors.NewParamInvalid(spec.Name, v, "must be an integer")
			}
			if err := spec.checkBounds(n); err != nil {
				return Params{}, err
			}
			values[spec.Name] = n
		default:
			return Params{}, pkgerrors.NewParamInvalid(spec.Name, v, fmt.Sprintf("has unsupported kind %q", spec.Kind))
		}
	}

	return Params{values: values}, nil
}

// Spec returns the declaration of a named input
func (s Schema) Spec(name string) (ParamSpec, bool) {
	for _, spec := range s {
		if spec.Name == name {
			return spec, true
		}
	}
	return ParamSpec{}, false
}

func (p ParamSpec) checkBounds(n float64) error {
	lo, hi := math.Inf(-1), math.Inf(1)
	if p.Min != nil {
		lo = *p.Min
	}
	if p.Max != nil {
		hi = *p.Max
	}
	if n < lo || n > hi {
		return pkgerrors.NewParamOutOfRange(p.Name, n, lo, hi)
	}
	return nil
}

// String returns a string input, or "" when absent
func (p Params) String(name string) string {
	s, _ := p.values[name].(string)
	return s
}

// Number returns a numeric input, or 0 when absent
func (p Params) Number(name string) float64 {
	n, _ := toNumber(p.values[name])
	return n
}

// Int returns a numeric input truncated to an int
func (p Params) Int(name string) int {
	return int(p.Number(name))
}

// UserID is the anchor node of the traversal
func (p Params) UserID() string {
	return p.String(ParamUserID)
}

// Limit is the post-ranking cap on rows
func (p Params) Limit() int {
	return p.Int(ParamLimit)
}

// Has reports whether a value is set, either supplied or defaulted
func (p Params) Has(name string) bool {
	_, ok := p.values[name]
	return ok
}

// Values returns a copy of the validated inputs
func (p Params) Values() map[string]any {
	out := make(map[string]any, len(p.values))
	for k, v := range p.values {
		out[k] = v
	}
	return out
}

// Encode renders the inputs as a query string, keys sorted
func (p Params) Encode() string {
	q := url.Values{}
	keys := make([]string, 0, len(p.values))
	for k := range p.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		switch v := p.values[k].(type) {
		case float64:
			q.Set(k, strconv.FormatFloat(v, 'f', -1, 64))
		default:
			q.Set(k, fmt.Sprint(v))
		}
	}
	return q.Encode()
}

func isBlank(v any) bool {
	switch s := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(s) == ""
	case []string:
		return len(s) == 0 || strings.TrimSpace(s[0]) == ""
	default:
		return false
	}
}

func toText(v any) string {
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x)
	case []string:
		return strings.TrimSpace(x[0])
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return strings.TrimSpace(fmt.Sprint(x))
	}
}

func toNumber(v any) (float64, error) {
	var n float64
	switch x := v.(type) {
	case float64:
		n = x
	case float32:
		n = float64(x)
	case int:
		n = float64(x)
	case int32:
		n = float64(x)
	case int64:
		n = float64(x)
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return 0, err
		}
		n = f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, err
		}
		n = f
	case []string:
		if len(x) == 0 {
			return 0, fmt.Errorf("empty value")
		}
		return toNumber(x[0])
	default:
		return 0, fmt.Errorf("unsupported type %T", v)
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, fmt.Errorf("not a finite number")
	}
	return n, nil
}
