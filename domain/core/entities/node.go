package entities

import (
	"fmt"
	"sort"
	"strings"

	pkgerrors "recommender/pkg/errors"
)

// NodeKind is the label of a vertex in the learning graph
type NodeKind string

const (
	NodeUser      NodeKind = "User"
	NodeExercise  NodeKind = "Exercise"
	NodeSkill     NodeKind = "Skill"
	NodeInterest  NodeKind = "Interest"
	NodeErrorType NodeKind = "ErrorType"
	NodeCourse    NodeKind = "Course"
)

var nodeIDFields = map[NodeKind]string{
	NodeUser:      "user_id",
	NodeExercise:  "exercise_id",
	NodeSkill:     "skill_id",
	NodeInterest:  "interest_id",
	NodeErrorType: "error_id",
	NodeCourse:    "course_id",
}

// NodeKinds lists every node kind in a stable order
func NodeKinds() []NodeKind {
	return []NodeKind{NodeUser, NodeExercise, NodeSkill, NodeInterest, NodeErrorType, NodeCourse}
}

// Valid reports whether the kind is known
func (k NodeKind) Valid() bool {
	_, ok := nodeIDFields[k]
	return ok
}

// IDField is the property that holds the node identifier, e.g. "user_id"
func (k NodeKind) IDField() string {
	return nodeIDFields[k]
}

// Node is a vertex with opaque, case-sensitive identity and free-form attributes.
// Attribute values are strings, float64 or int64.
type Node struct {
	Kind  NodeKind       `json:"kind"`
	ID    string         `json:"id"`
	Attrs map[string]any `json:"attrs,omitempty"`
}

// NewNode creates a node after checking its kind and identifier
func NewNode(kind NodeKind, id string, attrs map[string]any) (Node, error) {
	if !kind.Valid() {
		return Node{}, pkgerrors.NewInvalidPayload(fmt.Sprintf("unknown node kind %q", kind))
	}
	if strings.TrimSpace(id) == "" {
		return Node{}, pkgerrors.NewInvalidPayload(kind.IDField() + " is required")
	}
	copied := make(map[string]any, len(attrs))
	for k, v := range attrs {
		if k != kind.IDField() {
			copied[k] = v
		}
	}
	return Node{Kind: kind, ID: id, Attrs: copied}, nil
}

// Int returns an integer attribute, accepting any numeric representation
func (n Node) Int(name string) (int64, bool) {
	switch v := n.Attrs[name].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case float64:
		return int64(v), true
	default:
		return 0, false
	}
}

// String returns a string attribute
func (n Node) String(name string) (string, bool) {
	v, ok := n.Attrs[name].(string)
	return v, ok
}

// Record flattens the node into the wire shape used by the bulk read endpoints
func (n Node) Record() map[string]any {
	out := make(map[string]any, len(n.Attrs)+1)
	for k, v := range n.Attrs {
		out[k] = v
	}
	out[n.Kind.IDField()] = n.ID
	return out
}

// NodeFromRecord is the inverse of Record
func NodeFromRecord(kind NodeKind, record map[string]any) (Node, error) {
	if !kind.Valid() {
		return Node{}, pkgerrors.NewInvalidPayload(fmt.Sprintf("unknown node kind %q", kind))
	}
	id, _ := record[kind.IDField()].(string)
	attrs := make(map[string]any, len(record))
	for k, v := range record {
		if k == kind.IDField() || v == nil {
			continue
		}
		attrs[k] = normalizeAttr(v)
	}
	return NewNode(kind, id, attrs)
}

// SortNodes orders nodes by identifier
func SortNodes(nodes []Node) {
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
}

// normalizeAttr maps JSON-decoded whole numbers onto int64 so integer attributes keep their type.
func normalizeAttr(v any) any {
	switch n := v.(type) {
	case float64:
		if n == float64(int64(n)) {
			return int64(n)
		}
		return n
	case int:
		return int64(n)
	case int32:
		return int64(n)
	default:
		return v
	}
}
