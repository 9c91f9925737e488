package validators

import (
	"testing"

	"recommender/domain/core/entities"
	pkgerrors "recommender/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGraphValidator_ValidateEdge(t *testing.T) {
	tests := []struct {
		name    string
		edge    entities.Edge
		wantErr bool
	}{
		{"valid difficulty", entities.Edge{Kind: entities.EdgeHasDifficulty, From: "u1", To: "s1", Weight: 0.9}, false},
		{"weight above one", entities.Edge{Kind: entities.EdgeHasDifficulty, From: "u1", To: "s1", Weight: 1.2}, true},
		{"negative weight", entities.Edge{Kind: entities.EdgeMakesError, From: "u1", To: "err1", Weight: -0.1}, true},
		{"missing endpoint", entities.Edge{Kind: entities.EdgeTaggedAs, From: "e1"}, true},
		{"self similarity", entities.Edge{Kind: entities.EdgeSimilarTo, From: "u1", To: "u1", Weight: 1}, true},
		{"negative attempts", entities.Edge{Kind: entities.EdgePerformed, From: "u1", To: "e1", Weight: 0.5, Attempts: -1}, true},
		{"log without strategy", entities.Edge{Kind: entities.EdgeRecommended, From: "u1", To: "e1"}, true},
		{"presence edge", entities.Edge{Kind: entities.EdgeEvaluates, From: "e1", To: "s1"}, false},
	}

	v := NewGraphValidator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateEdge(tt.edge)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, pkgerrors.ErrInvalidPayload)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestGraphValidator_ValidateEdgesReportsIndex(t *testing.T) {
	v := NewGraphValidator()
	err := v.ValidateEdges([]entities.Edge{
		{Kind: entities.EdgeSimilarTo, From: "u1", To: "u2", Weight: 0.8},
		{Kind: entities.EdgeSimilarTo, From: "u1", To: "u3", Weight: 2},
	})

	domainErr := pkgerrors.GetDomainError(err)
	require.NotNil(t, domainErr)
	assert.Equal(t, 1, domainErr.Details["index"])
}

func TestGraphValidator_ValidateNode(t *testing.T) {
	v := NewGraphValidator()

	ok := entities.Node{Kind: entities.NodeUser, ID: "u1", Attrs: map[string]any{"streak": int64(4)}}
	assert.NoError(t, v.ValidateNode(ok))

	negative := entities.Node{Kind: entities.NodeUser, ID: "u1", Attrs: map[string]any{"streak": int64(-1)}}
	assert.Error(t, v.ValidateNode(negative))

	blank := entities.Node{Kind: entities.NodeSkill, ID: "  "}
	assert.Error(t, v.ValidateNode(blank))
}
