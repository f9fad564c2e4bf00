package graph

import (
	"context"
	"reflect"

	"coachgraph/src/domain"
	"coachgraph/src/domain/entities"
)

// UpdateNode applies a partial update and records node_updated with the list
// of fields that actually changed in metadata.changed_fields.
func (s *GraphService) UpdateNode(ctx context.Context, userID, nodeID string, input domain.UpdateNodeInput, sessionID string) (*entities.Node, error) {
	const op = "GraphService.UpdateNode"

	if err := domain.Validate(op, input); err != nil {
		return nil, err
	}

	node, err := s.loadOwnedNode(ctx, op, userID, nodeID)
	if err != nil {
		return nil, err
	}
	previousState := node.State()

	changedFields := make([]string, 0, 3)
	if input.Label != nil && *input.Label != node.Label {
		node.Label = *input.Label
		changedFields = append(changedFields, "label")
	}
	if input.Description != nil && (node.Description == nil || *node.Description != *input.Description) {
		description := *input.Description
		node.Description = &description
		changedFields = append(changedFields, "description")
	}
	if len(input.Properties) > 0 {
		merged := node.Properties.Merge(input.Properties)
		if !reflect.DeepEqual(merged, node.Properties) {
			node.Properties = merged
			changedFields = append(changedFields, "properties")
		}
	}

	now := s.now()
	node.UpdatedAt = now
	node.LastDiscussedAt = now

	event, err := domain.NewEvent(userID, entities.EventNodeUpdated, node.State(), domain.EventOptions{
		NodeID:        &node.ID,
		SessionID:     &sessionID,
		PreviousState: previousState,
		Metadata:      entities.Properties{"changed_fields": changedFields},
	}, now)
	if err != nil {
		return nil, err
	}

	mutation := domain.Mutation{
		Op:                domain.MutationUpdate,
		Node:              node,
		ExpectedUpdatedAt: input.ExpectedUpdatedAt,
		Event:             event,
	}
	if err := s.apply(ctx, mutation); err != nil {
		return nil, err
	}
	return node, nil
}
