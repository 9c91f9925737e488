package events

import (
	"time"

	"recommender/domain/core/entities"
)

// Source is the EventBridge source of every event this service emits
const Source = "recommender.engine"

// DomainEvent is the base interface for all domain events
// Events represent something that has happened in the past
type DomainEvent interface {
	GetAggregateID() string
	GetEventType() string
	GetTimestamp() time.Time
	GetVersion() int
}

// BaseEvent provides common event fields
type BaseEvent struct {
	AggregateID string    `json:"aggregate_id"`
	EventType   string    `json:"event_type"`
	Timestamp   time.Time `json:"timestamp"`
	Version     int       `json:"version"`
}

func (e BaseEvent) GetAggregateID() string  { return e.AggregateID }
func (e BaseEvent) GetEventType() string    { return e.EventType }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }
func (e BaseEvent) GetVersion() int         { return e.Version }

// Graph Events

// NodeUpserted is raised when a vertex is created or its attributes merged
type NodeUpserted struct {
	BaseEvent
	Kind   entities.NodeKind `json:"kind"`
	NodeID string            `json:"node_id"`
}

// NewNodeUpserted creates a NodeUpserted event
func NewNodeUpserted(node entities.Node, timestamp time.Time) NodeUpserted {
	return NodeUpserted{
		BaseEvent: BaseEvent{
			AggregateID: string(node.Kind) + ":" + node.ID,
			EventType:   "node.upserted",
			Timestamp:   timestamp,
			Version:     1,
		},
		Kind:   node.Kind,
		NodeID: node.ID,
	}
}

// EdgesUpserted is raised once per accepted batch of edges of one kind
type EdgesUpserted struct {
	BaseEvent
	Kind  entities.EdgeKind `json:"kind"`
	Count int               `json:"count"`
}

// NewEdgesUpserted creates an EdgesUpserted event
func NewEdgesUpserted(kind entities.EdgeKind, count int, timestamp time.Time) EdgesUpserted {
	return EdgesUpserted{
		BaseEvent: BaseEvent{
			AggregateID: string(kind),
			EventType:   "edges.upserted",
			Timestamp:   timestamp,
			Version:     1,
		},
		Kind:  kind,
		Count: count,
	}
}

// Recommendation Events

// RecommendationLogged is raised when a shown recommendation is recorded
type RecommendationLogged struct {
	BaseEvent
	UserID     string `json:"user_id"`
	ExerciseID string `json:"exercise_id"`
	Strategy   string `json:"strategy"`
	Accepted   *bool  `json:"accepted,omitempty"`
}

// NewRecommendationLogged creates a RecommendationLogged event from the stored edge
func NewRecommendationLogged(edge entities.Edge, timestamp time.Time) RecommendationLogged {
	return RecommendationLogged{
		BaseEvent: BaseEvent{
			AggregateID: edge.ID,
			EventType:   "recommendation.logged",
			Timestamp:   timestamp,
			Version:     1,
		},
		UserID:     edge.From,
		ExerciseID: edge.To,
		Strategy:   edge.Strategy,
		Accepted:   edge.Accepted,
	}
}

// ProgressRecorded is raised when a user completes a course
type ProgressRecorded struct {
	BaseEvent
	UserID   string  `json:"user_id"`
	CourseID string  `json:"course_id"`
	Level    *string `json:"level,omitempty"`
}

// NewProgressRecorded creates a ProgressRecorded event
func NewProgressRecorded(edge entities.Edge, timestamp time.Time) ProgressRecorded {
	return ProgressRecorded{
		BaseEvent: BaseEvent{
			AggregateID: edge.From,
			EventType:   "progress.recorded",
			Timestamp:   timestamp,
			Version:     1,
		},
		UserID:   edge.From,
		CourseID: edge.To,
		Level:    edge.Level,
	}
}
