package graph

import (
	"context"

	"coachgraph/src/domain"
	"coachgraph/src/domain/entities"
)

// DeleteNode is a soft delete. Edges touching the node are left as they are,
// snapshots drop them while an endpoint is gone.
func (s *GraphService) DeleteNode(ctx context.Context, userID, nodeID string, sessionID string) error {
	const op = "GraphService.DeleteNode"

	node, err := s.loadOwnedNode(ctx, op, userID, nodeID)
	if err != nil {
		return err
	}
	previousState := node.State()

	now := s.now()
	node.DeletedAt = &now
	node.UpdatedAt = now

	event, err := domain.NewEvent(userID, entities.EventNodeDeleted, node.State(), domain.EventOptions{
		NodeID:        &node.ID,
		SessionID:     &sessionID,
		PreviousState: previousState,
	}, now)
	if err != nil {
		return err
	}

	return s.apply(ctx, domain.Mutation{Op: domain.MutationUpdate, Node: node, Event: event})
}
