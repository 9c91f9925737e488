package validators

import (
	"fmt"
	"strings"

	"recommender/domain/core/entities"
	"recommender/domain/core/valueobjects"
	"recommender/pkg/errors"
)

// GraphValidator validates nodes and edges before they reach a graph store
type GraphValidator struct {
	idMaxLength    int
	nonNegativeInt []string
}

// NewGraphValidator creates a new validator with default rules
func NewGraphValidator() *GraphValidator {
	return &GraphValidator{
		idMaxLength:    256,
		nonNegativeInt: []string{"current_level", "streak", "difficulty", "level"},
	}
}

// ValidateNode checks identity and the integer attributes shared by the node kinds
func (v *GraphValidator) ValidateNode(node entities.Node) error {
	validationErrors := errors.NewValidationErrors()

	if !node.Kind.Valid() {
		validationErrors.Add("kind", fmt.Sprintf("unknown node kind %q", node.Kind))
		return validationErrors.AsDomainError()
	}

	v.validateID(validationErrors, node.Kind.IDField(), node.ID)

	for _, name := range v.nonNegativeInt {
		if _, present := node.Attrs[name]; !present {
			continue
		}
		n, ok := node.Int(name)
		if !ok {
			validationErrors.Add(name, name+" must be an integer")
			continue
		}
		if n < 0 {
			validationErrors.Add(name, name+" must not be negative")
		}
	}

	if validationErrors.HasErrors() {
		return validationErrors.AsDomainError()
	}
	return nil
}

// ValidateEdge checks endpoints and keeps every weight within [0,1]
func (v *GraphValidator) ValidateEdge(edge entities.Edge) error {
	validationErrors := errors.NewValidationErrors()

	spec, ok := edge.Kind.Spec()
	if !ok {
		validationErrors.Add("kind", fmt.Sprintf("unknown edge kind %q", edge.Kind))
		return validationErrors.AsDomainError()
	}

	v.validateID(validationErrors, spec.FromField, edge.From)
	v.validateID(validationErrors, spec.ToField, edge.To)

	if spec.WeightField != "" {
		if _, err := valueobjects.NewScore(edge.Weight); err != nil {
			validationErrors.Add(spec.WeightField, fmt.Sprintf("%s %v", spec.WeightField, err))
		}
	}

	switch edge.Kind {
	case entities.EdgePerformed:
		if edge.Attempts < 0 {
			validationErrors.Add("attempts", "attempts must not be negative")
		}
	case entities.EdgeSimilarTo:
		if edge.From != "" && edge.From == edge.To {
			validationErrors.Add(spec.ToField, "a user cannot be similar to itself")
		}
	case entities.EdgeRecommended:
		if strings.TrimSpace(edge.Strategy) == "" {
			validationErrors.Add("strategy", "strategy is required")
		}
	}

	if validationErrors.HasErrors() {
		return validationErrors.AsDomainError()
	}
	return nil
}

// ValidateEdges validates a batch, reporting the first invalid position
func (v *GraphValidator) ValidateEdges(edges []entities.Edge) error {
	if len(edges) == 0 {
		return errors.NewInvalidPayload("at least one edge is required")
	}
	for i, edge := range edges {
		if err := v.ValidateEdge(edge); err != nil {
			if domainErr := errors.GetDomainError(err); domainErr != nil {
				return domainErr.WithDetail("index", i)
			}
			return err
		}
	}
	return nil
}

func (v *GraphValidator) validateID(validationErrors *errors.ValidationErrors, field, id string) {
	switch {
	case strings.TrimSpace(id) == "":
		validationErrors.Add(field, field+" is required")
	case len(id) > v.idMaxLength:
		validationErrors.Add(field, fmt.Sprintf("%s exceeds %d characters", field, v.idMaxLength))
	}
}
