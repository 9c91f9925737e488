package handlers

import (
	"context"
	"fmt"
	"time"

	"recommender/application/commands"
	"recommender/application/commands/bus"
	"recommender/application/ports"
	"recommender/domain/core/entities"
	"recommender/domain/core/validators"
	"recommender/domain/events"
	pkgerrors "recommender/pkg/errors"

	"go.uber.org/zap"
)

// IngestHandler applies graph writes and announces them.
// Writes invalidate the query cache since any edge may change a strategy's rows.
type IngestHandler struct {
	writer    ports.GraphWriter
	publisher ports.EventPublisher
	cache     ports.Cache
	validator *validators.GraphValidator
	logger    *zap.Logger
	now       func() time.Time
}

// NewIngestHandler creates a new ingest handler. cache may be nil.
func NewIngestHandler(
	writer ports.GraphWriter,
	publisher ports.EventPublisher,
	cache ports.Cache,
	logger *zap.Logger,
) *IngestHandler {
	return &IngestHandler{
		writer:    writer,
		publisher: publisher,
		cache:     cache,
		validator: validators.NewGraphValidator(),
		logger:    logger,
		now:       time.Now,
	}
}

// Handle implements bus.CommandHandler
func (h *IngestHandler) Handle(ctx context.Context, cmd bus.Command) error {
	switch c := cmd.(type) {
	case commands.UpsertNodeCommand:
		return h.upsertNode(ctx, c)
	case commands.UpsertEdgesCommand:
		return h.upsertEdges(ctx, c)
	case commands.LogRecommendationCommand:
		return h.logRecommendation(ctx, c)
	case commands.RecordProgressCommand:
		return h.recordProgress(ctx, c)
	default:
		return fmt.Errorf("unsupported command %T", cmd)
	}
}

func (h *IngestHandler) upsertNode(ctx context.Context, cmd commands.UpsertNodeCommand) error {
	if err := h.validator.ValidateNode(cmd.Node); err != nil {
		return err
	}
	if err := h.writer.PutNode(ctx, cmd.Node); err != nil {
		return pkgerrors.FromStoreError(err)
	}

	h.afterWrite(ctx, events.NewNodeUpserted(cmd.Node, h.now()))
	return nil
}

func (h *IngestHandler) upsertEdges(ctx context.Context, cmd commands.UpsertEdgesCommand) error {
	now := h.now()
	edges := make([]entities.Edge, len(cmd.Edges))
	for i, e := range cmd.Edges {
		if e.Kind != cmd.Kind {
			return pkgerrors.NewInvalidPayload(fmt.Sprintf("edge %d has kind %s, expected %s", i, e.Kind, cmd.Kind))
		}
		if e.At.IsZero() && cmd.Kind.MustSpec().TimeField != "" {
			e.At = now
		}
		edges[i] = e.EnsureID()
	}

	if err := h.validator.ValidateEdges(edges); err != nil {
		return err
	}
	if err := h.writer.PutEdges(ctx, edges); err != nil {
		return pkgerrors.FromStoreError(err)
	}

	h.afterWrite(ctx, events.NewEdgesUpserted(cmd.Kind, len(edges), now))
	return nil
}

func (h *IngestHandler) logRecommendation(ctx context.Context, cmd commands.LogRecommendationCommand) error {
	if cmd.Timestamp.IsZero() {
		cmd.Timestamp = h.now()
	}
	edge := cmd.Edge()

	if err := h.validator.ValidateEdge(edge); err != nil {
		return err
	}
	if err := h.writer.PutEdges(ctx, []entities.Edge{edge}); err != nil {
		return pkgerrors.FromStoreError(err)
	}

	h.afterWrite(ctx, events.NewRecommendationLogged(edge, cmd.Timestamp))
	return nil
}

func (h *IngestHandler) recordProgress(ctx context.Context, cmd commands.RecordProgressCommand) error {
	if cmd.Timestamp.IsZero() {
		cmd.Timestamp = h.now()
	}
	edge := cmd.Edge()

	if err := h.validator.ValidateEdge(edge); err != nil {
		return err
	}
	if err := h.writer.PutEdges(ctx, []entities.Edge{edge}); err != nil {
		return pkgerrors.FromStoreError(err)
	}

	h.afterWrite(ctx, events.NewProgressRecorded(edge, cmd.Timestamp))
	return nil
}

// afterWrite clears cached query results and publishes the event. Both are best effort:
// the write already happened and must not be reported as failed.
func (h *IngestHandler) afterWrite(ctx context.Context, event events.DomainEvent) {
	if h.cache != nil {
		if err := h.cache.Clear(ctx); err != nil {
			h.logger.Warn("Failed to clear query cache", zap.Error(err))
		}
	}

	if h.publisher == nil {
		return
	}
	if err := h.publisher.Publish(ctx, event); err != nil {
		h.logger.Warn("Failed to publish event",
			zap.String("eventType", event.GetEventType()),
			zap.String("aggregateID", event.GetAggregateID()),
			zap.Error(err),
		)
	}
}
