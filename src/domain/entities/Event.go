package entities

import (
	"encoding/json"
	"time"
)

type EventType string

const (
	EventNodeCreated        EventType = "node_created"
	EventNodeUpdated        EventType = "node_updated"
	EventStatusChanged      EventType = "status_changed"
	EventNodeDeleted        EventType = "node_deleted"
	EventEdgeCreated        EventType = "edge_created"
	EventEdgeUpdated        EventType = "edge_updated"
	EventEdgeDeleted        EventType = "edge_deleted"
	EventProgressChanged    EventType = "progress_changed"
	EventEmbeddingGenerated EventType = "embedding_generated"
	EventSessionStarted     EventType = "session_started"
	EventSessionEnded       EventType = "session_ended"
)

// Scope tells which identifier an event of this type must carry.
type EventScope int

const (
	ScopeUnknown EventScope = iota
	ScopeNode
	ScopeEdge
	ScopeMetadata
)

func (t EventType) Scope() EventScope {
	switch t {
	case EventNodeCreated, EventNodeUpdated, EventStatusChanged, EventNodeDeleted,
		EventProgressChanged, EventEmbeddingGenerated:
		return ScopeNode
	case EventEdgeCreated, EventEdgeUpdated, EventEdgeDeleted:
		return ScopeEdge
	case EventSessionStarted, EventSessionEnded:
		return ScopeMetadata
	}
	return ScopeUnknown
}

func (t EventType) IsValid() bool {
	return t.Scope() != ScopeUnknown
}

// Event é o registro imutável de uma mutação no grafo. Never updated once written.
type Event struct {
	ID            string          `json:"id"`
	UserID        string          `json:"user_id"`
	EventType     EventType       `json:"event_type"`
	NodeID        *string         `json:"node_id,omitempty"`
	EdgeID        *string         `json:"edge_id,omitempty"`
	SessionID     *string         `json:"session_id,omitempty"`
	PreviousState json.RawMessage `json:"previous_state,omitempty"`
	NewState      json.RawMessage `json:"new_state"`
	Metadata      Properties      `json:"metadata,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}
