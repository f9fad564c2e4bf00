package snapshot

import (
	"context"
	"fmt"
	"sort"
	"time"

	"coachgraph/src/domain"
	"coachgraph/src/domain/entities"
)

const (
	StrategyCurrentState = "current"
	StrategyReplay       = "replay"
)

// Reconstructor returns the nodes and edges that were live for userID at the
// given instant. Implementations must not keep state between calls.
type Reconstructor interface {
	LiveAt(ctx context.Context, userID string, at time.Time) ([]entities.Node, []entities.Edge, error)
}

// NewReconstructor picks the implementation named by strategy. Empty means
// current-state filtering.
func NewReconstructor(strategy string, graphReader domain.GraphReader, eventReader domain.EventReader) (Reconstructor, error) {
	switch strategy {
	case "", StrategyCurrentState:
		return NewCurrentStateReconstructor(graphReader), nil
	case StrategyReplay:
		return NewEventReplayReconstructor(eventReader), nil
	}
	return nil, fmt.Errorf("unknown snapshot strategy %q", strategy)
}

// filterLive keeps the nodes live at t and the edges live at t whose both
// endpoints are kept too. Results are ordered by creation time then id.
func filterLive(nodes []entities.Node, edges []entities.Edge, t time.Time) ([]entities.Node, []entities.Edge) {
	liveNodes := make([]entities.Node, 0, len(nodes))
	liveIDs := make(map[string]struct{}, len(nodes))
	for _, node := range nodes {
		if node.LiveAt(t) {
			liveNodes = append(liveNodes, node)
			liveIDs[node.ID] = struct{}{}
		}
	}

	liveEdges := make([]entities.Edge, 0, len(edges))
	for _, edge := range edges {
		if !edge.LiveAt(t) {
			continue
		}
		_, sourceLive := liveIDs[edge.SourceNodeID]
		_, targetLive := liveIDs[edge.TargetNodeID]
		if sourceLive && targetLive {
			liveEdges = append(liveEdges, edge)
		}
	}

	sort.SliceStable(liveNodes, func(i, j int) bool {
		if liveNodes[i].CreatedAt.Equal(liveNodes[j].CreatedAt) {
			return liveNodes[i].ID < liveNodes[j].ID
		}
		return liveNodes[i].CreatedAt.Before(liveNodes[j].CreatedAt)
	})
	sort.SliceStable(liveEdges, func(i, j int) bool {
		a, b := liveEdges[i].ActiveSince(), liveEdges[j].ActiveSince()
		if a.Equal(b) {
			return liveEdges[i].ID < liveEdges[j].ID
		}
		return a.Before(b)
	})
	return liveNodes, liveEdges
}
