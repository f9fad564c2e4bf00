package snapshot

import (
	"context"
	"time"

	"coachgraph/src/domain"
	"coachgraph/src/domain/entities"
)

// CurrentStateReconstructor filters the current rows by their own timestamps.
// It knows whether an entity existed at t, not what its fields looked like.
type CurrentStateReconstructor struct {
	graphReader domain.GraphReader
}

func NewCurrentStateReconstructor(graphReader domain.GraphReader) *CurrentStateReconstructor {
	return &CurrentStateReconstructor{graphReader: graphReader}
}

func (r *CurrentStateReconstructor) LiveAt(ctx context.Context, userID string, at time.Time) ([]entities.Node, []entities.Edge, error) {
	// Sem filtro de data na query: deleted rows are needed to answer past instants.
	nodes, err := r.graphReader.ListNodes(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	edges, err := r.graphReader.ListEdges(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	liveNodes, liveEdges := filterLive(nodes, edges, at)
	return liveNodes, liveEdges, nil
}
