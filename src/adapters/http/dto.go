package http

import (
	"encoding/json"

	"coachgraph/src/domain/entities"
)

type UpdateStatusRequest struct {
	Status entities.NodeStatus `json:"status"`
}

type UpdateProgressRequest struct {
	Progress *float64 `json:"progress"`
}

type SetEmbeddingRequest struct {
	Embedding []float32 `json:"embedding"`
}

type RecordEventRequest struct {
	EventType     entities.EventType  `json:"event_type"`
	NodeID        *string             `json:"node_id,omitempty"`
	EdgeID        *string             `json:"edge_id,omitempty"`
	SessionID     *string             `json:"session_id,omitempty"`
	PreviousState json.RawMessage     `json:"previous_state,omitempty"`
	NewState      json.RawMessage     `json:"new_state,omitempty"`
	Metadata      entities.Properties `json:"metadata,omitempty"`
}

type RecordEventResponse struct {
	ID string `json:"id"`
}

type EventsResponse struct {
	Events []entities.Event `json:"events"`
}
