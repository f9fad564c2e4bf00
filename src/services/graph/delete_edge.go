package graph

import (
	"context"

	"coachgraph/src/domain"
	"coachgraph/src/domain/entities"
)

// DeleteEdge closes the edge's validity window at now.
func (s *GraphService) DeleteEdge(ctx context.Context, userID, edgeID string, sessionID string) error {
	const op = "GraphService.DeleteEdge"

	edge, err := s.loadOwnedEdge(ctx, op, userID, edgeID)
	if err != nil {
		return err
	}
	previousState := edge.State()

	now := s.now()
	edge.ValidTo = &now
	edge.UpdatedAt = now

	event, err := domain.NewEvent(userID, entities.EventEdgeDeleted, edge.State(), domain.EventOptions{
		EdgeID:        &edge.ID,
		SessionID:     &sessionID,
		PreviousState: previousState,
	}, now)
	if err != nil {
		return err
	}

	return s.apply(ctx, domain.Mutation{Op: domain.MutationUpdate, Edge: edge, Event: event})
}
