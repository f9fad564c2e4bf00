package snapshot

import (
	"context"
	"log/slog"
	"time"

	"coachgraph/src/domain"
)

type SnapshotService struct {
	logger        *slog.Logger
	reconstructor Reconstructor
}

func NewSnapshotService(logger *slog.Logger, reconstructor Reconstructor) *SnapshotService {
	return &SnapshotService{logger: logger, reconstructor: reconstructor}
}

// GetSnapshot returns the user's graph as of at. Same store contents and same
// instant always give the same snapshot.
func (s *SnapshotService) GetSnapshot(ctx context.Context, userID string, at time.Time) (*domain.Snapshot, error) {
	const op = "SnapshotService.GetSnapshot"

	if userID == "" {
		return nil, domain.NewValidationError(op, "user_id is required")
	}
	if at.IsZero() {
		return nil, domain.NewValidationError(op, "timestamp is required")
	}
	at = at.UTC()

	nodes, edges, err := s.reconstructor.LiveAt(ctx, userID, at)
	if err != nil {
		return nil, err
	}

	snapshot := &domain.Snapshot{
		At:    at,
		Nodes: make([]domain.TemporalNode, 0, len(nodes)),
		Edges: make([]domain.TemporalEdge, 0, len(edges)),
	}
	for _, node := range nodes {
		snapshot.Nodes = append(snapshot.Nodes, annotateNode(node, at))
	}
	for _, edge := range edges {
		snapshot.Edges = append(snapshot.Edges, annotateEdge(edge, at))
	}

	s.logger.Debug("Snapshot reconstructed",
		"user_id", userID,
		"at", at,
		"nodes", len(snapshot.Nodes),
		"edges", len(snapshot.Edges))
	return snapshot, nil
}
