package graph

import (
	"context"
	"reflect"

	"coachgraph/src/domain"
	"coachgraph/src/domain/entities"
)

// UpdateEdge changes label, weight or properties and reinforces the edge.
func (s *GraphService) UpdateEdge(ctx context.Context, userID, edgeID string, input domain.UpdateEdgeInput, sessionID string) (*entities.Edge, error) {
	const op = "GraphService.UpdateEdge"

	if err := domain.Validate(op, input); err != nil {
		return nil, err
	}

	edge, err := s.loadOwnedEdge(ctx, op, userID, edgeID)
	if err != nil {
		return nil, err
	}
	previousState := edge.State()

	changedFields := make([]string, 0, 3)
	if input.Label != nil && (edge.Label == nil || *edge.Label != *input.Label) {
		label := *input.Label
		edge.Label = &label
		changedFields = append(changedFields, "label")
	}
	if input.Weight != nil && *input.Weight != edge.Weight {
		edge.Weight = *input.Weight
		changedFields = append(changedFields, "weight")
	}
	if len(input.Properties) > 0 {
		merged := edge.Properties.Merge(input.Properties)
		if !reflect.DeepEqual(merged, edge.Properties) {
			edge.Properties = merged
			changedFields = append(changedFields, "properties")
		}
	}

	now := s.now()
	edge.UpdatedAt = now
	edge.LastReinforcedAt = now

	event, err := domain.NewEvent(userID, entities.EventEdgeUpdated, edge.State(), domain.EventOptions{
		EdgeID:        &edge.ID,
		SessionID:     &sessionID,
		PreviousState: previousState,
		Metadata:      entities.Properties{"changed_fields": changedFields},
	}, now)
	if err != nil {
		return nil, err
	}

	mutation := domain.Mutation{
		Op:                domain.MutationUpdate,
		Edge:              edge,
		ExpectedUpdatedAt: input.ExpectedUpdatedAt,
		Event:             event,
	}
	if err := s.apply(ctx, mutation); err != nil {
		return nil, err
	}
	return edge, nil
}
