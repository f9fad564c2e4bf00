package graph

import (
	"context"

	"coachgraph/src/domain"
	"coachgraph/src/domain/entities"
)

// UpdateNodeStatus moves a node between draft_verbal and curated, in either
// direction. Every call is recorded, also when the status does not change.
func (s *GraphService) UpdateNodeStatus(ctx context.Context, userID, nodeID string, status entities.NodeStatus, sessionID string) (*entities.Node, error) {
	const op = "GraphService.UpdateNodeStatus"

	if !status.IsValid() {
		return nil, domain.NewValidationError(op, "status must be one of: %s %s", entities.NodeStatusDraftVerbal, entities.NodeStatusCurated)
	}

	node, err := s.loadOwnedNode(ctx, op, userID, nodeID)
	if err != nil {
		return nil, err
	}
	previousState := node.State()
	oldStatus := node.Status

	now := s.now()
	node.Status = status
	node.UpdatedAt = now

	event, err := domain.NewEvent(userID, entities.EventStatusChanged, node.State(), domain.EventOptions{
		NodeID:        &node.ID,
		SessionID:     &sessionID,
		PreviousState: previousState,
		Metadata: entities.Properties{
			"old_status": string(oldStatus),
			"new_status": string(status),
		},
	}, now)
	if err != nil {
		return nil, err
	}

	if err := s.apply(ctx, domain.Mutation{Op: domain.MutationUpdate, Node: node, Event: event}); err != nil {
		return nil, err
	}

	s.logger.Debug("Node status changed",
		"user_id", userID,
		"node_id", nodeID,
		"old_status", oldStatus,
		"new_status", status)
	return node, nil
}
