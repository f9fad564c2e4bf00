package graph

import (
	"context"

	"coachgraph/src/domain"
	"coachgraph/src/domain/entities"
)

// SetNodeEmbedding stores a vector produced by the embedding subsystem. The
// contents are opaque here, only the dimension is recorded in the event.
func (s *GraphService) SetNodeEmbedding(ctx context.Context, userID, nodeID string, embedding []float32) (*entities.Node, error) {
	const op = "GraphService.SetNodeEmbedding"

	if len(embedding) == 0 {
		return nil, domain.NewValidationError(op, "embedding must not be empty")
	}

	node, err := s.loadOwnedNode(ctx, op, userID, nodeID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	node.Embedding = append([]float32(nil), embedding...)
	node.UpdatedAt = now

	event, err := domain.NewEvent(userID, entities.EventEmbeddingGenerated, node.State(), domain.EventOptions{
		NodeID:   &node.ID,
		Metadata: entities.Properties{"dimensions": len(embedding)},
	}, now)
	if err != nil {
		return nil, err
	}

	if err := s.apply(ctx, domain.Mutation{Op: domain.MutationUpdate, Node: node, Event: event}); err != nil {
		return nil, err
	}
	return node, nil
}
