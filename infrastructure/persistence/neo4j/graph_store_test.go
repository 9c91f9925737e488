package neo4j

import (
	"testing"
	"time"

	"recommender/domain/core/entities"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsertEdgesQuery(t *testing.T) {
	upsert := upsertEdgesQuery(entities.EdgeHasDifficulty.MustSpec())
	appendOnly := upsertEdgesQuery(entities.EdgePerformed.MustSpec())

	assert.Equal(t, "UNWIND $rows AS row MERGE (a:User {id: row.from}) MERGE (b:Skill {id: row.to}) MERGE (a)-[r:HAS_DIFFICULTY]->(b) SET r = row.props", upsert)
	assert.Contains(t, appendOnly, "CREATE (a)-[r:PERFORMED]->(b)")
}

func TestMatchEdgesQuery_DisambiguatesSharedRelType(t *testing.T) {
	interests := matchEdgesQuery(entities.EdgeTaggedAs.MustSpec(), "b")
	errorTags := matchEdgesQuery(entities.EdgeTaggedError.MustSpec(), "b")

	assert.Equal(t, "MATCH (a:Exercise)-[r:TAGGED_AS]->(b:Interest {id: $id}) RETURN a.id AS from, b.id AS to, properties(r) AS props", interests)
	assert.Contains(t, errorTags, "(b:ErrorType {id: $id})")
	assert.Contains(t, matchEdgesQuery(entities.EdgeSimilarTo.MustSpec(), "a"), "(a:User {id: $id})-[r:SIMILAR_TO]->(b:User)")
}

func TestEdgeFromProps_DriverTypes(t *testing.T) {
	at := time.Date(2024, 2, 1, 8, 0, 0, 0, time.UTC)

	edge, err := edgeFromProps(entities.EdgePerformed.MustSpec(), "u1", "e1", map[string]any{
		"id":            "p1",
		"correct_ratio": 0.75,
		"attempts":      int64(3),
		"performed_at":  at,
	})

	require.NoError(t, err)
	assert.Equal(t, entities.Edge{ID: "p1", Kind: entities.EdgePerformed, From: "u1", To: "e1", Weight: 0.75, Attempts: 3, At: at}, edge)
}

func TestNodeFromProps_MapsIDProperty(t *testing.T) {
	node, err := nodeFromProps(entities.NodeExercise, map[string]any{"id": "e1", "difficulty": int64(2), "language": "go"})

	require.NoError(t, err)
	assert.Equal(t, "e1", node.ID)
	assert.Equal(t, int64(2), node.Attrs["difficulty"])
	assert.NotContains(t, node.Attrs, "id")
}
