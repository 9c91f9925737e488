package backend

import (
	"context"
	"fmt"

	"recommender/domain/core/entities"
)

// Writer forwards graph writes to the collaborator's upsert endpoints
type Writer struct {
	client *Client
}

// NewWriter creates a writer
func NewWriter(client *Client) *Writer {
	return &Writer{client: client}
}

// PutNode posts the node record to /{resource}
func (w *Writer) PutNode(ctx context.Context, node entities.Node) error {
	resource := entities.NodeResource(node.Kind)
	if resource == "" {
		return fmt.Errorf("no upsert endpoint for node kind %q", node.Kind)
	}
	return w.client.Post(ctx, "/"+resource, node.Record())
}

// PutEdges posts similarities as one array and every other kind record by record
func (w *Writer) PutEdges(ctx context.Context, edges []entities.Edge) error {
	if len(edges) == 0 {
		return nil
	}
	spec := edges[0].Kind.MustSpec()

	if spec.Kind == entities.EdgeSimilarTo {
		records := make([]map[string]any, 0, len(edges))
		for _, e := range edges {
			records = append(records, e.Record())
		}
		return w.client.Post(ctx, "/"+spec.Resource, records)
	}

	for _, e := range edges {
		if e.Kind != spec.Kind {
			return fmt.Errorf("mixed edge kinds in one batch: %s and %s", spec.Kind, e.Kind)
		}
		if err := w.client.Post(ctx, "/"+spec.Resource, e.Record()); err != nil {
			return err
		}
	}
	return nil
}
