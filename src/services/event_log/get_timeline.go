package event_log

import (
	"context"

	"coachgraph/src/domain"
	"coachgraph/src/domain/entities"
)

// GetTimeline lists the user's events newest first. Limit defaults to 100 and
// never exceeds 1000.
func (s *EventLogService) GetTimeline(ctx context.Context, userID string, filter domain.TimelineFilter) ([]entities.Event, error) {
	const op = "EventLogService.GetTimeline"

	if userID == "" {
		return nil, domain.NewValidationError(op, "user_id is required")
	}
	if filter.StartDate != nil && filter.EndDate != nil && filter.EndDate.Before(*filter.StartDate) {
		return nil, domain.NewValidationError(op, "end_date must not be before start_date")
	}

	return s.eventReader.ListEvents(ctx, userID, filter.Normalized())
}

// GetNodeEvolution lists every event of a node, oldest first. Deleted nodes
// still have a history; nodes of other users do not exist for the caller.
func (s *EventLogService) GetNodeEvolution(ctx context.Context, userID, nodeID string) ([]entities.Event, error) {
	const op = "EventLogService.GetNodeEvolution"

	if userID == "" {
		return nil, domain.NewValidationError(op, "user_id is required")
	}

	node, err := s.graphReader.GetNode(ctx, nodeID)
	if err != nil {
		return nil, err
	}
	if node.UserID != userID {
		return nil, domain.NewNotFoundError(op, "node %s not found", nodeID)
	}

	return s.eventReader.ListNodeEvents(ctx, userID, nodeID)
}
