package graph

import (
	"context"

	"coachgraph/src/domain"
	"coachgraph/src/domain/entities"
)

func (s *GraphService) GetNode(ctx context.Context, userID, nodeID string) (*entities.Node, error) {
	return s.loadOwnedNode(ctx, "GraphService.GetNode", userID, nodeID)
}

// ListSessions returns the user's live session nodes, oldest first.
func (s *GraphService) ListSessions(ctx context.Context, userID string) ([]entities.Node, error) {
	const op = "GraphService.ListSessions"

	if userID == "" {
		return nil, domain.NewValidationError(op, "user_id is required")
	}

	nodes, err := s.graphReader.ListNodes(ctx, userID)
	if err != nil {
		return nil, err
	}

	sessions := make([]entities.Node, 0)
	for _, node := range nodes {
		if node.NodeType == entities.NodeTypeSession && !node.IsDeleted() {
			sessions = append(sessions, node)
		}
	}
	return sessions, nil
}
