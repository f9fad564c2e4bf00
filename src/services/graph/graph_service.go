package graph

import (
	"context"
	"log/slog"
	"time"

	"coachgraph/src/domain"
	"coachgraph/src/domain/entities"
	"coachgraph/src/helper/clock"
)

type GraphService struct {
	logger      *slog.Logger
	graphReader domain.GraphReader
	graphWriter domain.GraphWriter
	publisher   domain.EventPublisher
	clock       clock.Clock
}

// NewGraphService builds the mutation service. publisher may be nil when no
// broker is configured.
func NewGraphService(
	logger *slog.Logger,
	graphReader domain.GraphReader,
	graphWriter domain.GraphWriter,
	publisher domain.EventPublisher,
	clk clock.Clock,
) *GraphService {
	return &GraphService{
		logger:      logger,
		graphReader: graphReader,
		graphWriter: graphWriter,
		publisher:   publisher,
		clock:       clk,
	}
}

// now is truncated to the precision Postgres keeps, so optimistic checks on
// updated_at compare equal after a round trip.
func (s *GraphService) now() time.Time {
	return s.clock.Now().UTC().Truncate(time.Microsecond)
}

// loadOwnedNode returns the live node only when userID owns it.
func (s *GraphService) loadOwnedNode(ctx context.Context, op, userID, nodeID string) (*entities.Node, error) {
	if userID == "" {
		return nil, domain.NewValidationError(op, "user_id is required")
	}
	if nodeID == "" {
		return nil, domain.NewValidationError(op, "node_id is required")
	}

	node, err := s.graphReader.GetNode(ctx, nodeID)
	if err != nil {
		return nil, err
	}
	if node.UserID != userID {
		return nil, domain.NewAuthorizationError(op, "node %s is not owned by the acting user", nodeID)
	}
	if node.IsDeleted() {
		return nil, domain.NewNotFoundError(op, "node %s not found", nodeID)
	}
	return node, nil
}

func (s *GraphService) loadOwnedEdge(ctx context.Context, op, userID, edgeID string) (*entities.Edge, error) {
	if userID == "" {
		return nil, domain.NewValidationError(op, "user_id is required")
	}
	if edgeID == "" {
		return nil, domain.NewValidationError(op, "edge_id is required")
	}

	edge, err := s.graphReader.GetEdge(ctx, edgeID)
	if err != nil {
		return nil, err
	}
	if edge.UserID != userID {
		return nil, domain.NewAuthorizationError(op, "edge %s is not owned by the acting user", edgeID)
	}
	if edge.IsInvalidated() {
		return nil, domain.NewNotFoundError(op, "edge %s not found", edgeID)
	}
	return edge, nil
}

// apply persists the mutation and, once committed, hands its event to the
// publisher. Publishing failures are logged only: the write already happened.
func (s *GraphService) apply(ctx context.Context, mutation domain.Mutation) error {
	if err := s.graphWriter.ApplyMutation(ctx, mutation); err != nil {
		return err
	}

	if s.publisher == nil {
		return nil
	}
	if err := s.publisher.Publish(ctx, []entities.Event{mutation.Event}); err != nil {
		s.logger.Error("Failed to publish graph event",
			"error", err,
			"event_id", mutation.Event.ID,
			"event_type", mutation.Event.EventType,
			"user_id", mutation.Event.UserID)
	}
	return nil
}
