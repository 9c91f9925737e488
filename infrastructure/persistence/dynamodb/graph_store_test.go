package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"recommender/domain/core/entities"
	pkgerrors "recommender/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeAPI records batch writes and answers queries from a fixed page set
type fakeAPI struct {
	batches     [][]types.WriteRequest
	queryInputs []*dynamodb.QueryInput
	pages       []*dynamodb.QueryOutput
	item        map[string]types.AttributeValue
	puts        []*dynamodb.PutItemInput
	err         error
}

func (f *fakeAPI) GetItem(ctx context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &dynamodb.GetItemOutput{Item: f.item}, nil
}

func (f *fakeAPI) PutItem(ctx context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.puts = append(f.puts, in)
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeAPI) Query(ctx context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.queryInputs = append(f.queryInputs, in)
	if f.err != nil {
		return nil, f.err
	}
	page := f.pages[0]
	f.pages = f.pages[1:]
	return page, nil
}

func (f *fakeAPI) BatchWriteItem(ctx context.Context, in *dynamodb.BatchWriteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	for _, reqs := range in.RequestItems {
		f.batches = append(f.batches, reqs)
	}
	return &dynamodb.BatchWriteItemOutput{}, nil
}

func newTestStore(api API) *GraphStore {
	return NewGraphStore(api, Config{TableName: "graph"}, zap.NewNop())
}

func TestToEdgeItem_Keys(t *testing.T) {
	upsert := toEdgeItem(entities.Edge{Kind: entities.EdgeHasDifficulty, From: "u1", To: "s1", Weight: 0.9})
	assert.Equal(t, "OUT#HAS_DIFFICULTY#u1", upsert.PK)
	assert.Equal(t, "s1", upsert.SK)
	assert.Equal(t, "IN#HAS_DIFFICULTY#s1", upsert.GSI1PK)
	assert.Equal(t, "EDGES#HAS_DIFFICULTY", upsert.GSI2PK)

	appended := toEdgeItem(entities.Edge{ID: "p1", Kind: entities.EdgePerformed, From: "u1", To: "e1"})
	assert.Equal(t, "e1#p1", appended.SK)
}

func TestEdgeItem_RoundTrip(t *testing.T) {
	// Arrange
	accepted := true
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	edge := entities.Edge{
		ID: "r1", Kind: entities.EdgeRecommended, From: "u1", To: "e1",
		Strategy: "by_errors", Accepted: &accepted, At: at,
	}

	// Act
	av, err := attributevalue.MarshalMap(toEdgeItem(edge))
	require.NoError(t, err)
	var item edgeItem
	require.NoError(t, attributevalue.UnmarshalMap(av, &item))
	got, err := item.toEdge()

	// Assert
	require.NoError(t, err)
	assert.Equal(t, edge, got)
}

func TestGraphStore_PutEdges_ChunksAndDeduplicates(t *testing.T) {
	// Arrange
	api := &fakeAPI{}
	store := newTestStore(api)
	var edges []entities.Edge
	for i := 0; i < 30; i++ {
		edges = append(edges, entities.Edge{Kind: entities.EdgeEvaluates, From: fmt.Sprintf("e%02d", i), To: "s1"})
	}
	edges = append(edges, entities.Edge{Kind: entities.EdgeEvaluates, From: "e00", To: "s1"})

	// Act
	err := store.PutEdges(context.Background(), edges)

	// Assert
	require.NoError(t, err)
	require.Len(t, api.batches, 2)
	assert.Len(t, api.batches[0], 25)
	assert.Len(t, api.batches[1], 5)
}

func TestGraphStore_PutEdges_AppendKindsKeepEveryWrite(t *testing.T) {
	api := &fakeAPI{}
	store := newTestStore(api)

	err := store.PutEdges(context.Background(), []entities.Edge{
		{Kind: entities.EdgePerformed, From: "u1", To: "e1", Weight: 0.5},
		{Kind: entities.EdgePerformed, From: "u1", To: "e1", Weight: 0.9},
	})

	require.NoError(t, err)
	require.Len(t, api.batches, 1)
	assert.Len(t, api.batches[0], 2)
}

func TestGraphStore_Incoming_PaginatesOverIndex(t *testing.T) {
	// Arrange
	first, err := attributevalue.MarshalMap(toEdgeItem(entities.Edge{Kind: entities.EdgeEvaluates, From: "e2", To: "s1"}))
	require.NoError(t, err)
	second, err := attributevalue.MarshalMap(toEdgeItem(entities.Edge{Kind: entities.EdgeEvaluates, From: "e1", To: "s1"}))
	require.NoError(t, err)
	api := &fakeAPI{pages: []*dynamodb.QueryOutput{
		{Items: []map[string]types.AttributeValue{first}, LastEvaluatedKey: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: "x"},
		}},
		{Items: []map[string]types.AttributeValue{second}},
	}}
	store := newTestStore(api)

	// Act
	edges, err := store.Incoming(context.Background(), entities.EdgeEvaluates, "s1")

	// Assert
	require.NoError(t, err)
	require.Len(t, edges, 2)
	assert.Equal(t, "e1", edges[0].From)
	assert.Equal(t, "e2", edges[1].From)
	require.Len(t, api.queryInputs, 2)
	assert.Equal(t, "GSI1", *api.queryInputs[0].IndexName)
}

func TestGraphStore_PutNode_MergesExistingAttrs(t *testing.T) {
	// Arrange
	existing, err := attributevalue.MarshalMap(nodeItem{
		PK: nodeKey(entities.NodeExercise, "e1"), SK: "META", Kind: "Exercise", NodeID: "e1",
		Attrs: map[string]interface{}{"title": "Loops", "difficulty": 2}, Version: 3,
	})
	require.NoError(t, err)
	api := &fakeAPI{item: existing}
	store := newTestStore(api)
	node, err := entities.NewNode(entities.NodeExercise, "e1", map[string]any{"difficulty": int64(4)})
	require.NoError(t, err)

	// Act
	err = store.PutNode(context.Background(), node)

	// Assert
	require.NoError(t, err)
	require.Len(t, api.puts, 1)
	var written nodeItem
	require.NoError(t, attributevalue.UnmarshalMap(api.puts[0].Item, &written))
	assert.Equal(t, 4, written.Version)
	assert.Equal(t, "Loops", written.Attrs["title"])
	assert.EqualValues(t, 4, written.Attrs["difficulty"])
}

func TestGraphStore_Node_Absent(t *testing.T) {
	store := newTestStore(&fakeAPI{})

	node, err := store.Node(context.Background(), entities.NodeUser, "ghost")

	require.NoError(t, err)
	assert.Nil(t, node)
}

func TestGraphStore_ReadFailuresAreStoreErrors(t *testing.T) {
	// Arrange
	cause := errors.New("ProvisionedThroughputExceededException")
	store := newTestStore(&fakeAPI{err: cause})
	ctx := context.Background()

	// Act
	_, nodeErr := store.Node(ctx, entities.NodeUser, "u1")
	_, edgesErr := store.Outgoing(ctx, entities.EdgeHasDifficulty, "u1")

	// Assert
	for _, err := range []error{nodeErr, edgesErr} {
		require.Error(t, err)
		assert.True(t, pkgerrors.IsDatabase(err))
		assert.ErrorIs(t, err, cause)
	}
}
