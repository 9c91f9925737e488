package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"recommender/domain/core/entities"
	pkgerrors "recommender/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func openTestStore(t *testing.T) *GraphStore {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "graph.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestGraphStore_PutNode_MergesAttrs(t *testing.T) {
	// Arrange
	store := openTestStore(t)
	ctx := context.Background()
	first, err := entities.NewNode(entities.NodeExercise, "e1", map[string]any{"title": "Loops", "difficulty": int64(2)})
	require.NoError(t, err)
	second, err := entities.NewNode(entities.NodeExercise, "e1", map[string]any{"difficulty": int64(3)})
	require.NoError(t, err)

	// Act
	require.NoError(t, store.PutNode(ctx, first))
	require.NoError(t, store.PutNode(ctx, second))
	node, err := store.Node(ctx, entities.NodeExercise, "e1")

	// Assert
	require.NoError(t, err)
	require.NotNil(t, node)
	assert.Equal(t, "Loops", node.Attrs["title"])
	difficulty, ok := node.Int("difficulty")
	assert.True(t, ok)
	assert.Equal(t, int64(3), difficulty)
}

func TestGraphStore_Node_Absent(t *testing.T) {
	store := openTestStore(t)

	node, err := store.Node(context.Background(), entities.NodeUser, "ghost")

	require.NoError(t, err)
	assert.Nil(t, node)
}

func TestGraphStore_PutEdges_UpsertAndAppend(t *testing.T) {
	// Arrange
	store := openTestStore(t)
	ctx := context.Background()
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	// Act
	require.NoError(t, store.PutEdges(ctx, []entities.Edge{
		{Kind: entities.EdgeHasDifficulty, From: "u1", To: "s1", Weight: 0.4},
		{Kind: entities.EdgeHasDifficulty, From: "u1", To: "s1", Weight: 0.9},
	}))
	require.NoError(t, store.PutEdges(ctx, []entities.Edge{
		{Kind: entities.EdgePerformed, From: "u1", To: "e1", Weight: 0.5, At: at},
		{Kind: entities.EdgePerformed, From: "u1", To: "e1", Weight: 0.7, At: at.Add(time.Hour)},
	}))

	// Assert
	difficulties, err := store.Outgoing(ctx, entities.EdgeHasDifficulty, "u1")
	require.NoError(t, err)
	require.Len(t, difficulties, 1)
	assert.Equal(t, 0.9, difficulties[0].Weight)

	performed, err := store.Incoming(ctx, entities.EdgePerformed, "e1")
	require.NoError(t, err)
	require.Len(t, performed, 2)
	assert.NotEmpty(t, performed[0].ID)
	assert.True(t, performed[0].At.Equal(at))
}

func TestGraphStore_Nodes_SortedByID(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	for _, id := range []string{"u2", "u10", "u1"} {
		node, err := entities.NewNode(entities.NodeUser, id, nil)
		require.NoError(t, err)
		require.NoError(t, store.PutNode(ctx, node))
	}

	nodes, err := store.Nodes(ctx, entities.NodeUser)

	require.NoError(t, err)
	require.Len(t, nodes, 3)
	assert.Equal(t, "u1", nodes[0].ID)
	assert.Equal(t, "u10", nodes[1].ID)
	assert.Equal(t, "u2", nodes[2].ID)
}

func TestGraphStore_Edges_ListsKind(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.PutEdges(ctx, []entities.Edge{
		{Kind: entities.EdgeEvaluates, From: "e2", To: "s1"},
		{Kind: entities.EdgeEvaluates, From: "e1", To: "s1"},
		{Kind: entities.EdgeTaggedAs, From: "e1", To: "i1"},
	}))

	edges, err := store.Edges(ctx, entities.EdgeEvaluates)

	require.NoError(t, err)
	require.Len(t, edges, 2)
	assert.Equal(t, "e1", edges[0].From)
}

func TestGraphStore_ClosedStoreReturnsStoreErrors(t *testing.T) {
	// Arrange
	store, err := Open(filepath.Join(t.TempDir(), "graph.db"), zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, store.Close())
	ctx := context.Background()

	// Act
	_, nodeErr := store.Node(ctx, entities.NodeUser, "u1")
	_, edgesErr := store.Outgoing(ctx, entities.EdgeHasDifficulty, "u1")

	// Assert
	assert.True(t, pkgerrors.IsDatabase(nodeErr))
	assert.True(t, pkgerrors.IsDatabase(edgesErr))
}
