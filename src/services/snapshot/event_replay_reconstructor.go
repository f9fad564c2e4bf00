package snapshot

import (
	"context"
	"encoding/json"
	"maps"
	"time"

	"coachgraph/src/domain"
	"coachgraph/src/domain/entities"
)

// EventReplayReconstructor folds the new_state of every event up to t, the
// latest state per entity wins. Unlike the current-state filter it shows
// field values as they were at t.
type EventReplayReconstructor struct {
	eventReader domain.EventReader
}

func NewEventReplayReconstructor(eventReader domain.EventReader) *EventReplayReconstructor {
	return &EventReplayReconstructor{eventReader: eventReader}
}

func (r *EventReplayReconstructor) LiveAt(ctx context.Context, userID string, at time.Time) ([]entities.Node, []entities.Edge, error) {
	events, err := r.eventReader.ListEventsUntil(ctx, userID, at)
	if err != nil {
		return nil, nil, err
	}

	nodesByID := make(map[string]entities.Node)
	edgesByID := make(map[string]entities.Edge)
	for _, event := range events {
		switch event.EventType.Scope() {
		case entities.ScopeNode:
			if node, ok := foldNode(nodesByID, event); ok {
				nodesByID[node.ID] = node
			}
		case entities.ScopeEdge:
			if edge, ok := foldEdge(edgesByID, event); ok {
				edgesByID[edge.ID] = edge
			}
		}
	}

	nodes := make([]entities.Node, 0, len(nodesByID))
	for _, node := range nodesByID {
		nodes = append(nodes, node)
	}
	edges := make([]entities.Edge, 0, len(edgesByID))
	for _, edge := range edgesByID {
		edges = append(edges, edge)
	}

	liveNodes, liveEdges := filterLive(nodes, edges, at)
	return liveNodes, liveEdges, nil
}

// stateFields decodes the top level of an event state. ok is false when the
// state is not an object or names an entity other than the event's one.
func stateFields(event entities.Event, entityID string) (map[string]json.RawMessage, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(event.NewState, &fields); err != nil || fields == nil {
		return nil, false
	}
	if raw, found := fields["id"]; found {
		var stateID string
		if err := json.Unmarshal(raw, &stateID); err != nil || stateID != entityID {
			return nil, false
		}
	}
	return fields, true
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// foldNode applies a node event to the state folded so far. A state with
// created_at replaces it, anything else is merged on top. Partial states of a
// node never seen before and states that do not decode are skipped.
func foldNode(folded map[string]entities.Node, event entities.Event) (entities.Node, bool) {
	if event.NodeID == nil {
		return entities.Node{}, false
	}
	id := *event.NodeID
	fields, ok := stateFields(event, id)
	if !ok {
		return entities.Node{}, false
	}

	previous, seen := folded[id]
	var node entities.Node
	if _, full := fields["created_at"]; !full {
		if !seen {
			return node, false
		}
		node = previous
		node.Description = clonePtr(previous.Description)
		node.DeletedAt = clonePtr(previous.DeletedAt)
		node.Properties = maps.Clone(previous.Properties)
		if _, found := fields["embedding"]; found {
			node.Embedding = nil
		}
	}
	if err := json.Unmarshal(event.NewState, &node); err != nil || node.CreatedAt.IsZero() {
		return node, false
	}
	if node.Embedding == nil {
		node.Embedding = previous.Embedding
	}
	node.ID = id
	node.UserID = event.UserID
	return node, true
}

func foldEdge(folded map[string]entities.Edge, event entities.Event) (entities.Edge, bool) {
	if event.EdgeID == nil {
		return entities.Edge{}, false
	}
	id := *event.EdgeID
	fields, ok := stateFields(event, id)
	if !ok {
		return entities.Edge{}, false
	}

	var edge entities.Edge
	if _, full := fields["created_at"]; !full {
		previous, seen := folded[id]
		if !seen {
			return edge, false
		}
		edge = previous
		edge.Label = clonePtr(previous.Label)
		edge.ValidTo = clonePtr(previous.ValidTo)
		edge.Properties = maps.Clone(previous.Properties)
	}
	if err := json.Unmarshal(event.NewState, &edge); err != nil || edge.CreatedAt.IsZero() {
		return edge, false
	}
	edge.ID = id
	edge.UserID = event.UserID
	return edge, true
}
