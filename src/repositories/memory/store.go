// Package memory holds an in-process implementation of the graph ports, used
// by tests and by the replay tool when no database is configured.
package memory

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"coachgraph/src/domain"
	"coachgraph/src/domain/entities"
)

type Store struct {
	mu     sync.RWMutex
	nodes  map[string]entities.Node
	edges  map[string]entities.Edge
	events []entities.Event
	// failure, when set, is returned by every operation.
	failure error
}

func NewStore() *Store {
	return &Store{
		nodes: make(map[string]entities.Node),
		edges: make(map[string]entities.Edge),
	}
}

// SetFailure makes every following call fail with err until called with nil.
func (s *Store) SetFailure(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failure = err
}

func (s *Store) GetNode(ctx context.Context, nodeID string) (*entities.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.failure != nil {
		return nil, s.failure
	}

	node, ok := s.nodes[nodeID]
	if !ok {
		return nil, domain.NewNotFoundError("memory.Store.GetNode", "node %s not found", nodeID)
	}
	out := cloneNode(node)
	return &out, nil
}

func (s *Store) GetEdge(ctx context.Context, edgeID string) (*entities.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.failure != nil {
		return nil, s.failure
	}

	edge, ok := s.edges[edgeID]
	if !ok {
		return nil, domain.NewNotFoundError("memory.Store.GetEdge", "edge %s not found", edgeID)
	}
	out := cloneEdge(edge)
	return &out, nil
}

func (s *Store) ListNodes(ctx context.Context, userID string) ([]entities.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.failure != nil {
		return nil, s.failure
	}

	nodes := make([]entities.Node, 0)
	for _, node := range s.nodes {
		if node.UserID == userID {
			nodes = append(nodes, cloneNode(node))
		}
	}
	sort.Slice(nodes, func(i, j int) bool {
		if nodes[i].CreatedAt.Equal(nodes[j].CreatedAt) {
			return nodes[i].ID < nodes[j].ID
		}
		return nodes[i].CreatedAt.Before(nodes[j].CreatedAt)
	})
	return nodes, nil
}

func (s *Store) ListEdges(ctx context.Context, userID string) ([]entities.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.failure != nil {
		return nil, s.failure
	}

	edges := make([]entities.Edge, 0)
	for _, edge := range s.edges {
		if edge.UserID == userID {
			edges = append(edges, cloneEdge(edge))
		}
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].DiscoveredAt.Equal(edges[j].DiscoveredAt) {
			return edges[i].ID < edges[j].ID
		}
		return edges[i].DiscoveredAt.Before(edges[j].DiscoveredAt)
	})
	return edges, nil
}

// ApplyMutation validates everything before touching the maps, so a failed
// mutation leaves neither the row nor the event behind.
func (s *Store) ApplyMutation(ctx context.Context, mutation domain.Mutation) error {
	const op = "memory.Store.ApplyMutation"

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failure != nil {
		return s.failure
	}

	switch {
	case mutation.Node != nil:
		node := *mutation.Node
		existing, exists := s.nodes[node.ID]
		if mutation.Op == domain.MutationInsert {
			if exists {
				return domain.NewConflictError(op, "node %s already exists", node.ID)
			}
		} else {
			if !exists || existing.UserID != node.UserID || existing.IsDeleted() {
				return domain.NewNotFoundError(op, "node %s not found", node.ID)
			}
			if mutation.ExpectedUpdatedAt != nil && !existing.UpdatedAt.Equal(*mutation.ExpectedUpdatedAt) {
				return domain.NewConflictError(op, "node %s was modified concurrently", node.ID)
			}
		}
		s.nodes[node.ID] = cloneNode(node)

	case mutation.Edge != nil:
		edge := *mutation.Edge
		existing, exists := s.edges[edge.ID]
		if mutation.Op == domain.MutationInsert {
			if exists {
				return domain.NewConflictError(op, "edge %s already exists", edge.ID)
			}
			for _, endpointID := range []string{edge.SourceNodeID, edge.TargetNodeID} {
				endpoint, ok := s.nodes[endpointID]
				if !ok || endpoint.UserID != edge.UserID || endpoint.IsDeleted() {
					return domain.NewEndpointError(op, domain.ErrNotFound, "edge endpoints are no longer available")
				}
			}
		} else {
			if !exists || existing.UserID != edge.UserID || existing.IsInvalidated() {
				return domain.NewNotFoundError(op, "edge %s not found", edge.ID)
			}
			if mutation.ExpectedUpdatedAt != nil && !existing.UpdatedAt.Equal(*mutation.ExpectedUpdatedAt) {
				return domain.NewConflictError(op, "edge %s was modified concurrently", edge.ID)
			}
		}
		s.edges[edge.ID] = cloneEdge(edge)

	default:
		return domain.NewValidationError(op, "mutation without node or edge")
	}

	s.events = append(s.events, cloneEvent(mutation.Event))
	return nil
}

func (s *Store) AppendEvent(ctx context.Context, event entities.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failure != nil {
		return s.failure
	}

	s.events = append(s.events, cloneEvent(event))
	return nil
}

func (s *Store) ListEvents(ctx context.Context, userID string, filter domain.TimelineFilter) ([]entities.Event, error) {
	filter = filter.Normalized()

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.failure != nil {
		return nil, s.failure
	}

	events := make([]entities.Event, 0)
	// Mais recentes primeiro; append order breaks created_at ties.
	for i := len(s.events) - 1; i >= 0; i-- {
		event := s.events[i]
		if event.UserID != userID {
			continue
		}
		if filter.StartDate != nil && event.CreatedAt.Before(*filter.StartDate) {
			continue
		}
		if filter.EndDate != nil && event.CreatedAt.After(*filter.EndDate) {
			continue
		}
		events = append(events, cloneEvent(event))
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].CreatedAt.After(events[j].CreatedAt)
	})
	if len(events) > filter.Limit {
		events = events[:filter.Limit]
	}
	return events, nil
}

func (s *Store) ListNodeEvents(ctx context.Context, userID string, nodeID string) ([]entities.Event, error) {
	return s.listOrdered(userID, func(event entities.Event) bool {
		return event.NodeID != nil && *event.NodeID == nodeID
	})
}

func (s *Store) ListEventsUntil(ctx context.Context, userID string, until time.Time) ([]entities.Event, error) {
	return s.listOrdered(userID, func(event entities.Event) bool {
		return !event.CreatedAt.After(until)
	})
}

func (s *Store) listOrdered(userID string, keep func(entities.Event) bool) ([]entities.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.failure != nil {
		return nil, s.failure
	}

	events := make([]entities.Event, 0)
	for _, event := range s.events {
		if event.UserID == userID && keep(event) {
			events = append(events, cloneEvent(event))
		}
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].CreatedAt.Before(events[j].CreatedAt)
	})
	return events, nil
}

func cloneNode(n entities.Node) entities.Node {
	n.Properties = n.Properties.Clone()
	if n.Embedding != nil {
		n.Embedding = append([]float32(nil), n.Embedding...)
	}
	n.Description = cloneString(n.Description)
	n.DeletedAt = cloneTime(n.DeletedAt)
	return n
}

func cloneEdge(e entities.Edge) entities.Edge {
	e.Properties = e.Properties.Clone()
	e.Label = cloneString(e.Label)
	e.ValidTo = cloneTime(e.ValidTo)
	return e
}

func cloneEvent(e entities.Event) entities.Event {
	e.NodeID = cloneString(e.NodeID)
	e.EdgeID = cloneString(e.EdgeID)
	e.SessionID = cloneString(e.SessionID)
	e.PreviousState = append(json.RawMessage(nil), e.PreviousState...)
	e.NewState = append(json.RawMessage(nil), e.NewState...)
	e.Metadata = e.Metadata.Clone()
	return e
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
