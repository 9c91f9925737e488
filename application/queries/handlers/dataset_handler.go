package handlers

import (
	"context"
	"fmt"

	"recommender/application/ports"
	"recommender/application/queries"
	"recommender/application/queries/bus"
	"recommender/domain/core/entities"
	pkgerrors "recommender/pkg/errors"

	"go.uber.org/zap"
)

// DatasetQueryHandler serves bulk reads of node and edge collections
type DatasetQueryHandler struct {
	graph  ports.GraphReader
	logger *zap.Logger
}

// NewDatasetQueryHandler creates a new dataset query handler
func NewDatasetQueryHandler(graph ports.GraphReader, logger *zap.Logger) *DatasetQueryHandler {
	return &DatasetQueryHandler{
		graph:  graph,
		logger: logger,
	}
}

// Handle implements bus.QueryHandler
func (h *DatasetQueryHandler) Handle(ctx context.Context, query bus.Query) (interface{}, error) {
	q, ok := query.(queries.ListDatasetQuery)
	if !ok {
		return nil, fmt.Errorf("unsupported query %T", query)
	}

	dataset, ok := entities.LookupDataset(q.Dataset)
	if !ok {
		return nil, pkgerrors.NewUnknownDataset(q.Dataset)
	}

	records := make([]map[string]any, 0)
	if dataset.IsNodeSet() {
		nodes, err := h.graph.Nodes(ctx, dataset.NodeKind)
		if err != nil {
			return nil, pkgerrors.FromStoreError(err)
		}
		for _, n := range nodes {
			records = append(records, n.Record())
		}
	} else {
		edges, err := h.graph.Edges(ctx, dataset.EdgeKind)
		if err != nil {
			return nil, pkgerrors.FromStoreError(err)
		}
		for _, e := range edges {
			records = append(records, e.Record())
		}
	}

	h.logger.Debug("Dataset listed",
		zap.String("dataset", q.Dataset),
		zap.Int("count", len(records)),
	)

	return queries.ListDatasetResult{
		Dataset: q.Dataset,
		Records: records,
		Count:   len(records),
	}, nil
}
