package graph

import (
	"context"

	"coachgraph/src/domain"
	"coachgraph/src/domain/entities"

	"github.com/google/uuid"
)

// CreateEdge connects two live nodes of the same user. Endpoint problems are
// validation errors that also match ErrNotFound or ErrAuthorization.
func (s *GraphService) CreateEdge(ctx context.Context, userID string, input domain.CreateEdgeInput, sessionID string) (*entities.Edge, error) {
	const op = "GraphService.CreateEdge"

	if userID == "" {
		return nil, domain.NewValidationError(op, "user_id is required")
	}
	if err := domain.Validate(op, input); err != nil {
		return nil, err
	}

	for _, endpointID := range []string{input.SourceNodeID, input.TargetNodeID} {
		if err := s.checkEndpoint(ctx, op, userID, endpointID); err != nil {
			return nil, err
		}
	}

	weight := entities.DefaultEdgeWeight
	if input.Weight != nil {
		weight = *input.Weight
	}

	now := s.now()
	edge := entities.Edge{
		ID:               uuid.NewString(),
		UserID:           userID,
		EdgeType:         input.EdgeType,
		SourceNodeID:     input.SourceNodeID,
		TargetNodeID:     input.TargetNodeID,
		Label:            input.Label,
		Weight:           weight,
		Properties:       input.Properties.Clone(),
		CreatedAt:        now,
		UpdatedAt:        now,
		DiscoveredAt:     now,
		LastReinforcedAt: now,
	}
	if edge.Properties == nil {
		edge.Properties = entities.Properties{}
	}

	event, err := domain.NewEvent(userID, entities.EventEdgeCreated, edge.State(), domain.EventOptions{
		EdgeID:    &edge.ID,
		SessionID: &sessionID,
		Metadata: entities.Properties{
			"edge_type":      string(edge.EdgeType),
			"source_node_id": edge.SourceNodeID,
			"target_node_id": edge.TargetNodeID,
		},
	}, now)
	if err != nil {
		return nil, err
	}

	if err := s.apply(ctx, domain.Mutation{Op: domain.MutationInsert, Edge: &edge, Event: event}); err != nil {
		return nil, err
	}
	return &edge, nil
}

func (s *GraphService) checkEndpoint(ctx context.Context, op, userID, nodeID string) error {
	node, err := s.graphReader.GetNode(ctx, nodeID)
	if err != nil {
		if domain.IsNotFound(err) {
			return domain.NewEndpointError(op, domain.ErrNotFound, "endpoint node %s does not exist", nodeID)
		}
		return err
	}
	if node.UserID != userID {
		return domain.NewEndpointError(op, domain.ErrAuthorization, "endpoint node %s is not owned by the acting user", nodeID)
	}
	if node.IsDeleted() {
		return domain.NewEndpointError(op, domain.ErrNotFound, "endpoint node %s was deleted", nodeID)
	}
	return nil
}
