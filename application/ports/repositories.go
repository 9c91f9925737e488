package ports

import (
	"context"
	"time"

	"recommender/domain/core/entities"
	"recommender/domain/events"
	"recommender/domain/recommendation"
)

// GraphReader is the read side of the learning graph.
// This is a port in hexagonal architecture - traversals don't know which store answers them.
type GraphReader interface {
	// Node returns the vertex, or nil without error when it does not exist
	Node(ctx context.Context, kind entities.NodeKind, id string) (*entities.Node, error)

	// Nodes lists every vertex of a kind, sorted by id
	Nodes(ctx context.Context, kind entities.NodeKind) ([]entities.Node, error)

	// Outgoing lists edges of a kind leaving from
	Outgoing(ctx context.Context, kind entities.EdgeKind, from string) ([]entities.Edge, error)

	// Incoming lists edges of a kind arriving at to
	Incoming(ctx context.Context, kind entities.EdgeKind, to string) ([]entities.Edge, error)

	// Edges lists every edge of a kind, sorted
	Edges(ctx context.Context, kind entities.EdgeKind) ([]entities.Edge, error)
}

// GraphWriter is the ingest side of the learning graph
type GraphWriter interface {
	// PutNode creates the vertex or merges attrs into the existing one
	PutNode(ctx context.Context, node entities.Node) error

	// PutEdges stores a batch of edges of one kind. Append kinds add a new edge per element,
	// the others replace the edge with the same (from, to).
	PutEdges(ctx context.Context, edges []entities.Edge) error
}

// GraphStore is both sides of a store
type GraphStore interface {
	GraphReader
	GraphWriter
}

// StrategyExecutor runs one strategy's traversal and returns unranked rows.
// An absent anchor user yields no rows, not an error.
type StrategyExecutor interface {
	Execute(ctx context.Context, strategy recommendation.Strategy, params recommendation.Params) ([]recommendation.Row, error)
}

// CourseRecommender produces the flat course list of the legacy shape
type CourseRecommender interface {
	RecommendCourses(ctx context.Context, userID string, limit int) ([]recommendation.LegacyItem, error)
}

// RecommendationSource fetches a combined recommendation from an external collaborator,
// which may answer in either shape
type RecommendationSource interface {
	Recommend(ctx context.Context, userID string) (recommendation.Recommendation, error)
}

// EventPublisher defines the interface for publishing domain events
type EventPublisher interface {
	// Publish sends a single event
	Publish(ctx context.Context, event events.DomainEvent) error

	// PublishBatch sends multiple events
	PublishBatch(ctx context.Context, events []events.DomainEvent) error
}

// Cache defines the interface for caching
type Cache interface {
	// Get retrieves a value from cache
	Get(ctx context.Context, key string) (interface{}, bool)

	// Set stores a value in cache for ttl
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error

	// Clear removes all values from cache
	Clear(ctx context.Context) error
}
