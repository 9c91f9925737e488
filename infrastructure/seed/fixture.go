// Package seed loads YAML fixtures of nodes and edges into a graph store.
package seed

import (
	"context"
	"fmt"
	"io"
	"os"

	"recommender/application/ports"
	"recommender/domain/core/entities"
	"recommender/domain/core/validators"
	pkgerrors "recommender/pkg/errors"

	"gopkg.in/yaml.v3"
)

// Fixture maps dataset names ("users", "difficulties", ...) to their records
type Fixture map[string][]map[string]any

// Stats counts what was written
type Stats struct {
	Nodes int
	Edges int
}

// Parse decodes a fixture and checks every dataset name
func Parse(r io.Reader) (Fixture, error) {
	var f Fixture
	if err := yaml.NewDecoder(r).Decode(&f); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode fixture: %w", err)
	}
	for name := range f {
		if _, ok := entities.LookupDataset(name); !ok {
			return nil, pkgerrors.NewUnknownDataset(name)
		}
	}
	return f, nil
}

// LoadFile parses the file at path and writes it to dst
func LoadFile(ctx context.Context, path string, dst ports.GraphWriter) (Stats, error) {
	file, err := os.Open(path)
	if err != nil {
		return Stats{}, fmt.Errorf("open fixture: %w", err)
	}
	defer file.Close()

	f, err := Parse(file)
	if err != nil {
		return Stats{}, err
	}
	return f.Apply(ctx, dst)
}

// Apply validates and writes node sets first, then edge sets, in dataset order.
// Nothing of a dataset is written when one of its records is invalid.
func (f Fixture) Apply(ctx context.Context, dst ports.GraphWriter) (Stats, error) {
	var stats Stats
	validator := validators.NewGraphValidator()

	for _, ds := range entities.Datasets() {
		records := f[ds.Name]
		if len(records) == 0 {
			continue
		}

		if ds.IsNodeSet() {
			nodes := make([]entities.Node, 0, len(records))
			for i, record := range records {
				node, err := entities.NodeFromRecord(ds.NodeKind, record)
				if err == nil {
					err = validator.ValidateNode(node)
				}
				if err != nil {
					return stats, fmt.Errorf("%s[%d]: %w", ds.Name, i, err)
				}
				nodes = append(nodes, node)
			}
			for _, node := range nodes {
				if err := dst.PutNode(ctx, node); err != nil {
					return stats, err
				}
			}
			stats.Nodes += len(nodes)
			continue
		}

		edges := make([]entities.Edge, 0, len(records))
		for i, record := range records {
			edge, err := entities.EdgeFromRecord(ds.EdgeKind, record)
			if err != nil {
				return stats, fmt.Errorf("%s[%d]: %w", ds.Name, i, err)
			}
			edges = append(edges, edge)
		}
		if err := validator.ValidateEdges(edges); err != nil {
			return stats, fmt.Errorf("%s: %w", ds.Name, err)
		}
		if err := dst.PutEdges(ctx, edges); err != nil {
			return stats, err
		}
		stats.Edges += len(edges)
	}
	return stats, nil
}
