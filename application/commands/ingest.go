package commands

import (
	"errors"
	"strings"
	"time"

	"recommender/domain/core/entities"
)

// UpsertNodeCommand creates a vertex or merges its attributes
type UpsertNodeCommand struct {
	Node entities.Node
}

// Validate validates the UpsertNodeCommand
func (c UpsertNodeCommand) Validate() error {
	if !c.Node.Kind.Valid() {
		return errors.New("node kind is required")
	}
	if strings.TrimSpace(c.Node.ID) == "" {
		return errors.New("node id is required")
	}
	return nil
}

// UpsertEdgesCommand stores a batch of edges of one kind
type UpsertEdgesCommand struct {
	Kind  entities.EdgeKind
	Edges []entities.Edge
}

// Validate validates the UpsertEdgesCommand
func (c UpsertEdgesCommand) Validate() error {
	if _, ok := c.Kind.Spec(); !ok {
		return errors.New("edge kind is required")
	}
	if len(c.Edges) == 0 {
		return errors.New("at least one edge is required")
	}
	return nil
}

// LogRecommendationCommand records that an exercise was shown to a user.
// ID is assigned by the caller so it can be echoed back.
type LogRecommendationCommand struct {
	ID         string
	UserID     string
	ExerciseID string
	Strategy   string
	Accepted   *bool
	Timestamp  time.Time
}

// Validate validates the LogRecommendationCommand
func (c LogRecommendationCommand) Validate() error {
	if c.ID == "" {
		return errors.New("log id is required")
	}
	if strings.TrimSpace(c.UserID) == "" || strings.TrimSpace(c.ExerciseID) == "" {
		return errors.New("user id and exercise id are required")
	}
	return nil
}

// Edge converts the command to the stored RECOMMENDED edge
func (c LogRecommendationCommand) Edge() entities.Edge {
	return entities.Edge{
		ID:       c.ID,
		Kind:     entities.EdgeRecommended,
		From:     c.UserID,
		To:       c.ExerciseID,
		Strategy: c.Strategy,
		Accepted: c.Accepted,
		At:       c.Timestamp,
	}
}

// RecordProgressCommand records a completed course
type RecordProgressCommand struct {
	UserID    string
	CourseID  string
	Level     *string
	Timestamp time.Time
}

// Validate validates the RecordProgressCommand
func (c RecordProgressCommand) Validate() error {
	if strings.TrimSpace(c.UserID) == "" || strings.TrimSpace(c.CourseID) == "" {
		return errors.New("user id and course id are required")
	}
	return nil
}

// Edge converts the command to the stored COMPLETED edge
func (c RecordProgressCommand) Edge() entities.Edge {
	return entities.Edge{
		Kind:  entities.EdgeCompleted,
		From:  c.UserID,
		To:    c.CourseID,
		Level: c.Level,
		At:    c.Timestamp,
	}
}
