package queries

import (
	"recommender/domain/core/entities"
	pkgerrors "recommender/pkg/errors"
)

// ListDatasetQuery reads one bulk dataset such as "users" or "performed"
type ListDatasetQuery struct {
	Dataset string
}

// Validate validates the ListDatasetQuery
func (q ListDatasetQuery) Validate() error {
	if _, ok := entities.LookupDataset(q.Dataset); !ok {
		return pkgerrors.NewUnknownDataset(q.Dataset)
	}
	return nil
}

// ListDatasetResult carries the records in their wire shape
type ListDatasetResult struct {
	Dataset string           `json:"dataset"`
	Records []map[string]any `json:"records"`
	Count   int              `json:"count"`
}
