package stubs

import (
	"encoding/json"
	"time"

	"coachgraph/src/domain/entities"

	"github.com/brianvoe/gofakeit/v6"
)

type EventStub struct {
	event entities.Event
}

// NewEventStub builds a session_started event, which needs no node or edge.
func NewEventStub() EventStub {
	sessionID := gofakeit.UUID()

	event := entities.Event{
		ID:        gofakeit.UUID(),
		UserID:    gofakeit.UUID(),
		EventType: entities.EventSessionStarted,
		SessionID: &sessionID,
		NewState:  json.RawMessage(`{}`),
		Metadata:  entities.Properties{"channel": gofakeit.RandomString([]string{"voice", "chat"})},
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}

	return EventStub{event: event}
}

func (es EventStub) WithUserID(userID string) EventStub {
	es.event.UserID = userID
	return es
}

func (es EventStub) WithType(eventType entities.EventType) EventStub {
	es.event.EventType = eventType
	return es
}

// ForNode makes it a node event carrying the node as new_state.
func (es EventStub) ForNode(node entities.Node, eventType entities.EventType) EventStub {
	nodeID := node.ID
	es.event.UserID = node.UserID
	es.event.EventType = eventType
	es.event.NodeID = &nodeID
	es.event.NewState = node.State()
	return es
}

func (es EventStub) ForEdge(edge entities.Edge, eventType entities.EventType) EventStub {
	edgeID := edge.ID
	es.event.UserID = edge.UserID
	es.event.EventType = eventType
	es.event.EdgeID = &edgeID
	es.event.NewState = edge.State()
	return es
}

func (es EventStub) WithCreatedAt(createdAt time.Time) EventStub {
	es.event.CreatedAt = createdAt
	return es
}

func (es EventStub) Get() entities.Event {
	return es.event
}
