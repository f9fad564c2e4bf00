package graph

import (
	"context"

	"coachgraph/src/domain"
	"coachgraph/src/domain/entities"

	"github.com/google/uuid"
)

// CreateNode inserts a node (draft_verbal unless told otherwise) together with
// its node_created event.
func (s *GraphService) CreateNode(ctx context.Context, userID string, input domain.CreateNodeInput, sessionID string) (*entities.Node, error) {
	const op = "GraphService.CreateNode"

	if userID == "" {
		return nil, domain.NewValidationError(op, "user_id is required")
	}
	if err := domain.Validate(op, input); err != nil {
		return nil, err
	}

	status := input.Status
	if status == "" {
		status = entities.NodeStatusDraftVerbal
	}

	now := s.now()
	node := entities.Node{
		ID:               uuid.NewString(),
		UserID:           userID,
		NodeType:         input.NodeType,
		Label:            input.Label,
		Description:      input.Description,
		Status:           status,
		Properties:       input.Properties.Clone(),
		CreatedAt:        now,
		UpdatedAt:        now,
		FirstMentionedAt: now,
		LastDiscussedAt:  now,
	}
	if node.Properties == nil {
		node.Properties = entities.Properties{}
	}

	event, err := domain.NewEvent(userID, entities.EventNodeCreated, node.State(), domain.EventOptions{
		NodeID:    &node.ID,
		SessionID: &sessionID,
		Metadata:  entities.Properties{"node_type": string(node.NodeType)},
	}, now)
	if err != nil {
		return nil, err
	}

	mutation := domain.Mutation{Op: domain.MutationInsert, Node: &node, Event: event}
	if err := s.apply(ctx, mutation); err != nil {
		return nil, err
	}

	s.logger.Debug("Node created", "user_id", userID, "node_id", node.ID, "node_type", node.NodeType)
	return &node, nil
}
