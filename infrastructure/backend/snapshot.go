package backend

import (
	"context"
	"encoding/json"
	"fmt"

	"recommender/application/ports"
	"recommender/domain/core/entities"
	pkgerrors "recommender/pkg/errors"

	"go.uber.org/zap"
)

// SnapshotStats counts what LoadSnapshot copied
type SnapshotStats struct {
	Nodes   int
	Edges   int
	Skipped []string
}

// LoadSnapshot copies every /data/{dataset} collection of the collaborator into dst.
// Datasets the collaborator does not serve (404) are skipped.
func LoadSnapshot(ctx context.Context, client *Client, dst ports.GraphWriter, logger *zap.Logger) (SnapshotStats, error) {
	var stats SnapshotStats

	for _, ds := range entities.Datasets() {
		body, err := client.Get(ctx, "/data/"+ds.Name, "")
		if err != nil {
			if IsNotFound(err) {
				logger.Warn("Dataset not served by backend, skipping", zap.String("dataset", ds.Name))
				stats.Skipped = append(stats.Skipped, ds.Name)
				continue
			}
			return stats, err
		}

		var records []map[string]any
		if err := json.Unmarshal(body, &records); err != nil {
			return stats, pkgerrors.NewMalformedResponse(truncate(string(body)), err).WithDetail("dataset", ds.Name)
		}

		if ds.IsNodeSet() {
			for _, record := range records {
				node, err := entities.NodeFromRecord(ds.NodeKind, record)
				if err != nil {
					return stats, fmt.Errorf("dataset %s: %w", ds.Name, err)
				}
				if err := dst.PutNode(ctx, node); err != nil {
					return stats, err
				}
				stats.Nodes++
			}
			continue
		}

		edges := make([]entities.Edge, 0, len(records))
		for _, record := range records {
			edge, err := entities.EdgeFromRecord(ds.EdgeKind, record)
			if err != nil {
				return stats, fmt.Errorf("dataset %s: %w", ds.Name, err)
			}
			edges = append(edges, edge)
		}
		if err := dst.PutEdges(ctx, edges); err != nil {
			return stats, err
		}
		stats.Edges += len(edges)
	}

	logger.Info("Snapshot loaded",
		zap.Int("nodes", stats.Nodes),
		zap.Int("edges", stats.Edges),
		zap.Strings("skipped", stats.Skipped),
	)
	return stats, nil
}
