package neo4j

import (
	"context"
	"fmt"

	"recommender/domain/core/entities"
	pkgerrors "recommender/pkg/errors"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"
)

// GraphStore reads and writes the learning graph in Neo4j.
// Every vertex carries its identifier in the "id" property; labels are the node kinds.
type GraphStore struct {
	client *Client
	logger *zap.Logger
}

// NewGraphStore creates a new Neo4j graph store
func NewGraphStore(client *Client, logger *zap.Logger) *GraphStore {
	return &GraphStore{
		client: client,
		logger: logger,
	}
}

// PutNode creates the vertex or merges attrs into it
func (s *GraphStore) PutNode(ctx context.Context, node entities.Node) error {
	if !node.Kind.Valid() {
		return fmt.Errorf("unknown node kind %q", node.Kind)
	}

	query := fmt.Sprintf("MERGE (n:%s {id: $id}) SET n += $attrs", node.Kind)
	_, err := s.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		_, err := tx.Run(ctx, query, map[string]any{
			"id":    node.ID,
			"attrs": nodeAttrs(node),
		})
		return nil, err
	})
	if err != nil {
		s.logger.Error("Failed to upsert node",
			zap.String("kind", string(node.Kind)),
			zap.String("nodeID", node.ID),
			zap.Error(err),
		)
		return pkgerrors.NewDatabaseError("upsert node", err)
	}
	return nil
}

// PutEdges writes a batch of one kind in a single transaction.
// Missing endpoints are created as bare vertices.
func (s *GraphStore) PutEdges(ctx context.Context, edges []entities.Edge) error {
	if len(edges) == 0 {
		return nil
	}
	kind := edges[0].Kind
	spec, ok := kind.Spec()
	if !ok {
		return fmt.Errorf("unknown edge kind %q", kind)
	}

	rows := make([]map[string]any, 0, len(edges))
	for _, e := range edges {
		if e.Kind != kind {
			return fmt.Errorf("mixed edge kinds in batch: %s and %s", kind, e.Kind)
		}
		e = e.EnsureID()
		rows = append(rows, map[string]any{
			"from":  e.From,
			"to":    e.To,
			"props": e.Properties(),
		})
	}

	query := upsertEdgesQuery(spec)
	_, err := s.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		_, err := tx.Run(ctx, query, map[string]any{"rows": rows})
		return nil, err
	})
	if err != nil {
		s.logger.Error("Failed to write edges",
			zap.String("kind", string(kind)),
			zap.Int("count", len(rows)),
			zap.Error(err),
		)
		return pkgerrors.NewDatabaseError("write "+string(kind)+" edges", err)
	}
	return nil
}

// Node returns the vertex or nil
func (s *GraphStore) Node(ctx context.Context, kind entities.NodeKind, id string) (*entities.Node, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown node kind %q", kind)
	}

	query := fmt.Sprintf("MATCH (n:%s {id: $id}) RETURN properties(n) AS props", kind)
	nodes, err := s.readNodes(ctx, kind, query, map[string]any{"id": id})
	if err != nil || len(nodes) == 0 {
		return nil, err
	}
	return &nodes[0], nil
}

// Nodes lists every vertex of a kind
func (s *GraphStore) Nodes(ctx context.Context, kind entities.NodeKind) ([]entities.Node, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown node kind %q", kind)
	}

	query := fmt.Sprintf("MATCH (n:%s) RETURN properties(n) AS props ORDER BY n.id", kind)
	return s.readNodes(ctx, kind, query, nil)
}

// Outgoing lists edges of a kind leaving from
func (s *GraphStore) Outgoing(ctx context.Context, kind entities.EdgeKind, from string) ([]entities.Edge, error) {
	return s.readEdges(ctx, kind, "a", map[string]any{"id": from})
}

// Incoming lists edges of a kind arriving at to
func (s *GraphStore) Incoming(ctx context.Context, kind entities.EdgeKind, to string) ([]entities.Edge, error) {
	return s.readEdges(ctx, kind, "b", map[string]any{"id": to})
}

// Edges lists every edge of a kind
func (s *GraphStore) Edges(ctx context.Context, kind entities.EdgeKind) ([]entities.Edge, error) {
	return s.readEdges(ctx, kind, "", nil)
}

func (s *GraphStore) readNodes(ctx context.Context, kind entities.NodeKind, query string, params map[string]any) ([]entities.Node, error) {
	result, err := s.client.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		res, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}

		var nodes []entities.Node
		for res.Next(ctx) {
			props, _ := res.Record().Values[0].(map[string]any)
			node, err := nodeFromProps(kind, props)
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, node)
		}
		return nodes, res.Err()
	})
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("read "+string(kind)+" nodes", err)
	}
	nodes, _ := result.([]entities.Node)
	return nodes, nil
}

// readEdges matches one relationship pattern, optionally anchored on the "a" or "b" end
func (s *GraphStore) readEdges(ctx context.Context, kind entities.EdgeKind, anchor string, params map[string]any) ([]entities.Edge, error) {
	spec, ok := kind.Spec()
	if !ok {
		return nil, fmt.Errorf("unknown edge kind %q", kind)
	}

	query := matchEdgesQuery(spec, anchor)
	result, err := s.client.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		res, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}

		var edges []entities.Edge
		for res.Next(ctx) {
			values := res.Record().Values
			from, _ := values[0].(string)
			to, _ := values[1].(string)
			props, _ := values[2].(map[string]any)
			edge, err := edgeFromProps(spec, from, to, props)
			if err != nil {
				return nil, err
			}
			edges = append(edges, edge)
		}
		return edges, res.Err()
	})
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("read "+string(kind)+" edges", err)
	}

	edges, _ := result.([]entities.Edge)
	entities.SortEdges(edges)
	return edges, nil
}

func upsertEdgesQuery(spec entities.EdgeSpec) string {
	write := "MERGE (a)-[r:%s]->(b) SET r = row.props"
	if spec.Append {
		write = "CREATE (a)-[r:%s]->(b) SET r = row.props"
	}
	return fmt.Sprintf(
		"UNWIND $rows AS row MERGE (a:%s {id: row.from}) MERGE (b:%s {id: row.to}) "+write,
		spec.From, spec.To, spec.RelType,
	)
}

func matchEdgesQuery(spec entities.EdgeSpec, anchor string) string {
	from, to := fmt.Sprintf("(a:%s)", spec.From), fmt.Sprintf("(b:%s)", spec.To)
	switch anchor {
	case "a":
		from = fmt.Sprintf("(a:%s {id: $id})", spec.From)
	case "b":
		to = fmt.Sprintf("(b:%s {id: $id})", spec.To)
	}
	return fmt.Sprintf("MATCH %s-[r:%s]->%s RETURN a.id AS from, b.id AS to, properties(r) AS props", from, spec.RelType, to)
}

func nodeAttrs(node entities.Node) map[string]any {
	attrs := make(map[string]any, len(node.Attrs))
	for k, v := range node.Attrs {
		attrs[k] = v
	}
	delete(attrs, "id")
	return attrs
}

func nodeFromProps(kind entities.NodeKind, props map[string]any) (entities.Node, error) {
	record := make(map[string]any, len(props))
	for k, v := range props {
		if k == "id" {
			record[kind.IDField()] = v
			continue
		}
		record[k] = v
	}
	return entities.NodeFromRecord(kind, record)
}

func edgeFromProps(spec entities.EdgeSpec, from, to string, props map[string]any) (entities.Edge, error) {
	record := make(map[string]any, len(props)+2)
	for k, v := range props {
		record[k] = v
	}
	record[spec.FromField] = from
	record[spec.ToField] = to
	return entities.EdgeFromRecord(spec.Kind, record)
}
