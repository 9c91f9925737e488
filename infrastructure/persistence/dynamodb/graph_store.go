package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"recommender/domain/core/entities"
	pkgerrors "recommender/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

const (
	batchWriteLimit  = 25
	maxWriteAttempts = 3
)

// API is the subset of the DynamoDB client the store uses
type API interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
}

// Config names the table and its two global secondary indexes
type Config struct {
	TableName     string
	IncomingIndex string // GSI1: edges by target
	KindIndex     string // GSI2: every node or edge of a kind
}

// GraphStore keeps the learning graph in a single DynamoDB table.
//
// Key layout:
//
//	node  PK=NODE#<kind>#<id>    SK=META                    GSI2PK=NODES#<kind>
//	edge  PK=OUT#<kind>#<from>   SK=<to>[#<edge id>]        GSI1PK=IN#<kind>#<to>  GSI2PK=EDGES#<kind>
//
// Append-only kinds carry the edge id in the sort key so repeated writes coexist.
type GraphStore struct {
	client API
	config Config
	logger *zap.Logger
}

// NewGraphStore creates a new DynamoDB graph store
func NewGraphStore(client API, config Config, logger *zap.Logger) *GraphStore {
	if config.IncomingIndex == "" {
		config.IncomingIndex = "GSI1"
	}
	if config.KindIndex == "" {
		config.KindIndex = "GSI2"
	}
	return &GraphStore{
		client: client,
		config: config,
		logger: logger,
	}
}

// nodeItem represents the DynamoDB item structure for a node
type nodeItem struct {
	PK         string                 `dynamodbav:"PK"`
	SK         string                 `dynamodbav:"SK"`
	GSI2PK     string                 `dynamodbav:"GSI2PK"`
	GSI2SK     string                 `dynamodbav:"GSI2SK"`
	EntityType string                 `dynamodbav:"EntityType"`
	Kind       string                 `dynamodbav:"Kind"`
	NodeID     string                 `dynamodbav:"NodeID"`
	Attrs      map[string]interface{} `dynamodbav:"Attrs"`
	Version    int                    `dynamodbav:"Version"`
	UpdatedAt  string                 `dynamodbav:"UpdatedAt"`
}

// edgeItem represents the DynamoDB item structure for an edge
type edgeItem struct {
	PK         string  `dynamodbav:"PK"`
	SK         string  `dynamodbav:"SK"`
	GSI1PK     string  `dynamodbav:"GSI1PK"`
	GSI1SK     string  `dynamodbav:"GSI1SK"`
	GSI2PK     string  `dynamodbav:"GSI2PK"`
	GSI2SK     string  `dynamodbav:"GSI2SK"`
	EntityType string  `dynamodbav:"EntityType"`
	Kind       string  `dynamodbav:"Kind"`
	From       string  `dynamodbav:"From"`
	To         string  `dynamodbav:"To"`
	EdgeID     string  `dynamodbav:"EdgeID,omitempty"`
	Weight     float64 `dynamodbav:"Weight"`
	Attempts   int     `dynamodbav:"Attempts,omitempty"`
	Metric     string  `dynamodbav:"Metric,omitempty"`
	Strategy   string  `dynamodbav:"Strategy,omitempty"`
	Accepted   *bool   `dynamodbav:"Accepted,omitempty"`
	Level      *string `dynamodbav:"Level,omitempty"`
	At         string  `dynamodbav:"At,omitempty"`
}

func nodeKey(kind entities.NodeKind, id string) string {
	return fmt.Sprintf("NODE#%s#%s", kind, id)
}

func outKey(kind entities.EdgeKind, from string) string {
	return fmt.Sprintf("OUT#%s#%s", kind, from)
}

func inKey(kind entities.EdgeKind, to string) string {
	return fmt.Sprintf("IN#%s#%s", kind, to)
}

func toEdgeItem(e entities.Edge) edgeItem {
	spec := e.Kind.MustSpec()
	sk := e.To
	if spec.Append {
		sk = e.To + "#" + e.ID
	}
	item := edgeItem{
		PK:         outKey(e.Kind, e.From),
		SK:         sk,
		GSI1PK:     inKey(e.Kind, e.To),
		GSI1SK:     e.From + "#" + e.ID,
		GSI2PK:     fmt.Sprintf("EDGES#%s", e.Kind),
		GSI2SK:     fmt.Sprintf("%s#%s#%s", e.From, e.To, e.ID),
		EntityType: "EDGE",
		Kind:       string(e.Kind),
		From:       e.From,
		To:         e.To,
		EdgeID:     e.ID,
		Weight:     e.Weight,
		Attempts:   e.Attempts,
		Metric:     e.Metric,
		Strategy:   e.Strategy,
		Accepted:   e.Accepted,
		Level:      e.Level,
	}
	if !e.At.IsZero() {
		item.At = e.At.UTC().Format(time.RFC3339Nano)
	}
	return item
}

func (i edgeItem) toEdge() (entities.Edge, error) {
	e := entities.Edge{
		ID:       i.EdgeID,
		Kind:     entities.EdgeKind(i.Kind),
		From:     i.From,
		To:       i.To,
		Weight:   i.Weight,
		Attempts: i.Attempts,
		Metric:   i.Metric,
		Strategy: i.Strategy,
		Accepted: i.Accepted,
		Level:    i.Level,
	}
	if i.At != "" {
		at, err := time.Parse(time.RFC3339Nano, i.At)
		if err != nil {
			return entities.Edge{}, fmt.Errorf("invalid edge timestamp %q: %w", i.At, err)
		}
		e.At = at.UTC()
	}
	return e, nil
}

// PutNode merges attrs into the stored vertex with an optimistic version check
func (s *GraphStore) PutNode(ctx context.Context, node entities.Node) error {
	for attempt := 1; ; attempt++ {
		err := s.putNodeOnce(ctx, node)
		var conflict *types.ConditionalCheckFailedException
		if err == nil || !errors.As(err, &conflict) || attempt == maxWriteAttempts {
			return err
		}
		s.logger.Debug("Node write conflict, retrying",
			zap.String("nodeID", node.ID),
			zap.Int("attempt", attempt),
		)
	}
}

func (s *GraphStore) putNodeOnce(ctx context.Context, node entities.Node) error {
	existing, err := s.getNodeItem(ctx, node.Kind, node.ID)
	if err != nil {
		return err
	}

	item := nodeItem{
		PK:         nodeKey(node.Kind, node.ID),
		SK:         "META",
		GSI2PK:     fmt.Sprintf("NODES#%s", node.Kind),
		GSI2SK:     node.ID,
		EntityType: "NODE",
		Kind:       string(node.Kind),
		NodeID:     node.ID,
		Attrs:      make(map[string]interface{}),
		Version:    1,
		UpdatedAt:  time.Now().UTC().Format(time.RFC3339),
	}
	condition := expression.AttributeNotExists(expression.Name("PK"))
	if existing != nil {
		for k, v := range existing.Attrs {
			item.Attrs[k] = v
		}
		item.Version = existing.Version + 1
		condition = expression.Equal(expression.Name("Version"), expression.Value(existing.Version))
	}
	for k, v := range node.Attrs {
		item.Attrs[k] = v
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("failed to marshal node: %w", err)
	}
	expr, err := expression.NewBuilder().WithCondition(condition).Build()
	if err != nil {
		return fmt.Errorf("failed to build expression: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                 aws.String(s.config.TableName),
		Item:                      av,
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		return pkgerrors.NewDatabaseError("save node", err)
	}
	return nil
}

// PutEdges writes the batch in chunks of 25. For upsert kinds the last element wins
// when the batch repeats a (from, to) pair.
func (s *GraphStore) PutEdges(ctx context.Context, edges []entities.Edge) error {
	requests := make([]types.WriteRequest, 0, len(edges))
	position := make(map[string]int)

	for _, e := range edges {
		item := toEdgeItem(e.EnsureID())
		av, err := attributevalue.MarshalMap(item)
		if err != nil {
			return fmt.Errorf("failed to marshal edge: %w", err)
		}
		req := types.WriteRequest{PutRequest: &types.PutRequest{Item: av}}

		key := item.PK + "|" + item.SK
		if i, dup := position[key]; dup {
			requests[i] = req
			continue
		}
		position[key] = len(requests)
		requests = append(requests, req)
	}

	for i := 0; i < len(requests); i += batchWriteLimit {
		end := min(i+batchWriteLimit, len(requests))
		if err := s.batchWrite(ctx, requests[i:end]); err != nil {
			return err
		}
	}
	return nil
}

func (s *GraphStore) batchWrite(ctx context.Context, batch []types.WriteRequest) error {
	pending := map[string][]types.WriteRequest{s.config.TableName: batch}

	for attempt := 1; attempt <= maxWriteAttempts; attempt++ {
		result, err := s.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{RequestItems: pending})
		if err != nil {
			return pkgerrors.NewDatabaseError("write edges batch", err)
		}
		if len(result.UnprocessedItems[s.config.TableName]) == 0 {
			return nil
		}
		pending = result.UnprocessedItems

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt*50) * time.Millisecond):
		}
	}
	return fmt.Errorf("failed to write %d edges after %d attempts", len(pending[s.config.TableName]), maxWriteAttempts)
}

// Node returns the vertex or nil
func (s *GraphStore) Node(ctx context.Context, kind entities.NodeKind, id string) (*entities.Node, error) {
	item, err := s.getNodeItem(ctx, kind, id)
	if err != nil || item == nil {
		return nil, err
	}
	node, err := item.toNode()
	if err != nil {
		return nil, err
	}
	return &node, nil
}

func (s *GraphStore) getNodeItem(ctx context.Context, kind entities.NodeKind, id string) (*nodeItem, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.config.TableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: nodeKey(kind, id)},
			"SK": &types.AttributeValueMemberS{Value: "META"},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("get node", err)
	}
	if len(result.Item) == 0 {
		return nil, nil
	}

	var item nodeItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal node: %w", err)
	}
	return &item, nil
}

func (i nodeItem) toNode() (entities.Node, error) {
	kind := entities.NodeKind(i.Kind)
	record := make(map[string]any, len(i.Attrs)+1)
	for k, v := range i.Attrs {
		record[k] = v
	}
	record[kind.IDField()] = i.NodeID
	return entities.NodeFromRecord(kind, record)
}

// Nodes lists every vertex of a kind
func (s *GraphStore) Nodes(ctx context.Context, kind entities.NodeKind) ([]entities.Node, error) {
	items, err := s.query(ctx, s.config.KindIndex, "GSI2PK", fmt.Sprintf("NODES#%s", kind))
	if err != nil {
		return nil, err
	}

	nodes := make([]entities.Node, 0, len(items))
	for _, av := range items {
		var item nodeItem
		if err := attributevalue.UnmarshalMap(av, &item); err != nil {
			return nil, fmt.Errorf("failed to unmarshal node: %w", err)
		}
		node, err := item.toNode()
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	entities.SortNodes(nodes)
	return nodes, nil
}

// Outgoing lists edges of a kind leaving from
func (s *GraphStore) Outgoing(ctx context.Context, kind entities.EdgeKind, from string) ([]entities.Edge, error) {
	return s.queryEdges(ctx, "", "PK", outKey(kind, from))
}

// Incoming lists edges of a kind arriving at to
func (s *GraphStore) Incoming(ctx context.Context, kind entities.EdgeKind, to string) ([]entities.Edge, error) {
	return s.queryEdges(ctx, s.config.IncomingIndex, "GSI1PK", inKey(kind, to))
}

// Edges lists every edge of a kind
func (s *GraphStore) Edges(ctx context.Context, kind entities.EdgeKind) ([]entities.Edge, error) {
	return s.queryEdges(ctx, s.config.KindIndex, "GSI2PK", fmt.Sprintf("EDGES#%s", kind))
}

func (s *GraphStore) queryEdges(ctx context.Context, index, keyName, keyValue string) ([]entities.Edge, error) {
	items, err := s.query(ctx, index, keyName, keyValue)
	if err != nil {
		return nil, err
	}

	edges := make([]entities.Edge, 0, len(items))
	for _, av := range items {
		var item edgeItem
		if err := attributevalue.UnmarshalMap(av, &item); err != nil {
			return nil, fmt.Errorf("failed to unmarshal edge: %w", err)
		}
		edge, err := item.toEdge()
		if err != nil {
			return nil, err
		}
		edges = append(edges, edge)
	}
	entities.SortEdges(edges)
	return edges, nil
}

// query reads every page of a partition, on the table or on a secondary index
func (s *GraphStore) query(ctx context.Context, index, keyName, keyValue string) ([]map[string]types.AttributeValue, error) {
	keyEx := expression.Key(keyName).Equal(expression.Value(keyValue))
	expr, err := expression.NewBuilder().WithKeyCondition(keyEx).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build expression: %w", err)
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(s.config.TableName),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}
	if index != "" {
		input.IndexName = aws.String(index)
	}

	var items []map[string]types.AttributeValue
	paginator := dynamodb.NewQueryPaginator(s.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, pkgerrors.NewDatabaseError("query "+keyValue, err)
		}
		items = append(items, page.Items...)
	}
	return items, nil
}
