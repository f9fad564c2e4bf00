package domain

import (
	"encoding/json"
	"time"

	"coachgraph/src/domain/entities"

	"github.com/google/uuid"
)

// NewEvent validates and builds an event row. It does not persist anything.
func NewEvent(userID string, eventType entities.EventType, newState json.RawMessage, opts EventOptions, now time.Time) (entities.Event, error) {
	const op = "domain.NewEvent"

	if userID == "" {
		return entities.Event{}, NewValidationError(op, "user_id is required")
	}

	switch eventType.Scope() {
	case entities.ScopeUnknown:
		return entities.Event{}, NewValidationError(op, "unrecognized event_type %q", eventType)
	case entities.ScopeNode:
		if isBlank(opts.NodeID) {
			return entities.Event{}, NewValidationError(op, "event_type %s requires node_id", eventType)
		}
	case entities.ScopeEdge:
		if isBlank(opts.EdgeID) {
			return entities.Event{}, NewValidationError(op, "event_type %s requires edge_id", eventType)
		}
	}

	if len(newState) == 0 {
		newState = json.RawMessage(`{}`)
	}
	if !json.Valid(newState) {
		return entities.Event{}, NewValidationError(op, "new_state must be valid JSON")
	}
	if len(opts.PreviousState) > 0 && !json.Valid(opts.PreviousState) {
		return entities.Event{}, NewValidationError(op, "previous_state must be valid JSON")
	}

	metadata := opts.Metadata
	if metadata == nil {
		metadata = entities.Properties{}
	}

	return entities.Event{
		ID:            uuid.NewString(),
		UserID:        userID,
		EventType:     eventType,
		NodeID:        nilIfBlank(opts.NodeID),
		EdgeID:        nilIfBlank(opts.EdgeID),
		SessionID:     nilIfBlank(opts.SessionID),
		PreviousState: opts.PreviousState,
		NewState:      newState,
		Metadata:      metadata,
		CreatedAt:     now,
	}, nil
}

func isBlank(s *string) bool {
	return s == nil || *s == ""
}

func nilIfBlank(s *string) *string {
	if isBlank(s) {
		return nil
	}
	v := *s
	return &v
}
