package event_log

import (
	"context"
	"encoding/json"

	"coachgraph/src/domain"
	"coachgraph/src/domain/entities"
)

// RecordEvent appends a standalone event, e.g. session markers sent by the
// conversation layer. Referenced nodes and edges must belong to userID.
func (s *EventLogService) RecordEvent(ctx context.Context, userID string, eventType entities.EventType, newState json.RawMessage, opts domain.EventOptions) (string, error) {
	const op = "EventLogService.RecordEvent"

	event, err := domain.NewEvent(userID, eventType, newState, opts, s.now())
	if err != nil {
		return "", err
	}

	if event.NodeID != nil {
		node, err := s.graphReader.GetNode(ctx, *event.NodeID)
		if err != nil {
			return "", err
		}
		if node.UserID != userID {
			return "", domain.NewAuthorizationError(op, "node %s is not owned by the acting user", *event.NodeID)
		}
	}
	if event.EdgeID != nil {
		edge, err := s.graphReader.GetEdge(ctx, *event.EdgeID)
		if err != nil {
			return "", err
		}
		if edge.UserID != userID {
			return "", domain.NewAuthorizationError(op, "edge %s is not owned by the acting user", *event.EdgeID)
		}
	}

	if err := s.graphWriter.AppendEvent(ctx, event); err != nil {
		return "", err
	}

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, []entities.Event{event}); err != nil {
			s.logger.Error("Failed to publish recorded event", "error", err, "event_id", event.ID)
		}
	}
	return event.ID, nil
}
