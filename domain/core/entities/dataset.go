package entities

// Dataset is one bulk-readable collection: either every node of a kind or every edge of a kind.
type Dataset struct {
	Name     string
	NodeKind NodeKind
	EdgeKind EdgeKind
}

// IsNodeSet reports whether the dataset lists nodes
func (d Dataset) IsNodeSet() bool {
	return d.NodeKind != ""
}

var nodeDatasets = map[string]NodeKind{
	"users":       NodeUser,
	"exercises":   NodeExercise,
	"skills":      NodeSkill,
	"interests":   NodeInterest,
	"error-types": NodeErrorType,
	"courses":     NodeCourse,
}

// LookupDataset resolves a dataset name such as "users" or "user-errors"
func LookupDataset(name string) (Dataset, bool) {
	if kind, ok := nodeDatasets[name]; ok {
		return Dataset{Name: name, NodeKind: kind}, true
	}
	for _, kind := range EdgeKinds() {
		if spec := kind.MustSpec(); spec.Dataset == name {
			return Dataset{Name: name, EdgeKind: kind}, true
		}
	}
	return Dataset{}, false
}

// Datasets lists every dataset, node sets first
func Datasets() []Dataset {
	out := make([]Dataset, 0, len(nodeDatasets)+len(edgeSpecs))
	for _, name := range []string{"users", "exercises", "skills", "interests", "error-types", "courses"} {
		out = append(out, Dataset{Name: name, NodeKind: nodeDatasets[name]})
	}
	for _, kind := range EdgeKinds() {
		out = append(out, Dataset{Name: kind.MustSpec().Dataset, EdgeKind: kind})
	}
	return out
}

// NodeResource maps a node kind to the upsert path segment used by the REST collaborator
func NodeResource(kind NodeKind) string {
	switch kind {
	case NodeUser:
		return "users"
	case NodeExercise:
		return "exercises"
	case NodeSkill:
		return "skills"
	case NodeInterest:
		return "interests"
	case NodeErrorType:
		return "error-types"
	case NodeCourse:
		return "courses"
	default:
		return ""
	}
}
