package graph

import (
	"context"

	"coachgraph/src/domain"
	"coachgraph/src/domain/entities"
)

// UpdateGoalProgress sets properties.progress (0..100) on a goal node.
func (s *GraphService) UpdateGoalProgress(ctx context.Context, userID, nodeID string, progress float64, sessionID string) (*entities.Node, error) {
	const op = "GraphService.UpdateGoalProgress"

	if progress < 0 || progress > 100 {
		return nil, domain.NewValidationError(op, "progress must be between 0 and 100")
	}

	node, err := s.loadOwnedNode(ctx, op, userID, nodeID)
	if err != nil {
		return nil, err
	}
	if node.NodeType != entities.NodeTypeGoal {
		return nil, domain.NewValidationError(op, "node %s is a %s, progress only applies to goals", nodeID, node.NodeType)
	}

	goal, err := node.Properties.Goal()
	if err != nil {
		return nil, domain.NewValidationError(op, "stored goal properties are malformed: %v", err)
	}
	var oldProgress any
	if goal.Progress != nil {
		oldProgress = *goal.Progress
	}

	previousState := node.State()
	now := s.now()
	node.Properties = node.Properties.Merge(entities.Properties{"progress": progress})
	node.UpdatedAt = now
	node.LastDiscussedAt = now

	event, err := domain.NewEvent(userID, entities.EventProgressChanged, node.State(), domain.EventOptions{
		NodeID:        &node.ID,
		SessionID:     &sessionID,
		PreviousState: previousState,
		Metadata: entities.Properties{
			"old_progress": oldProgress,
			"new_progress": progress,
		},
	}, now)
	if err != nil {
		return nil, err
	}

	if err := s.apply(ctx, domain.Mutation{Op: domain.MutationUpdate, Node: node, Event: event}); err != nil {
		return nil, err
	}
	return node, nil
}
