package domain

import (
	"context"
	"time"

	"coachgraph/src/domain/entities"
)

// GraphReader reads current-state rows. Lookups by id return the row whatever
// its owner or deletion state, callers decide what the caller may see.
type GraphReader interface {
	GetNode(ctx context.Context, nodeID string) (*entities.Node, error)
	GetEdge(ctx context.Context, edgeID string) (*entities.Edge, error)
	// ListNodes and ListEdges include soft-deleted and invalidated rows.
	ListNodes(ctx context.Context, userID string) ([]entities.Node, error)
	ListEdges(ctx context.Context, userID string) ([]entities.Edge, error)
}

type GraphWriter interface {
	ApplyMutation(ctx context.Context, mutation Mutation) error
	AppendEvent(ctx context.Context, event entities.Event) error
}

type EventReader interface {
	// ListEvents returns newest first.
	ListEvents(ctx context.Context, userID string, filter TimelineFilter) ([]entities.Event, error)
	// ListNodeEvents returns oldest first.
	ListNodeEvents(ctx context.Context, userID string, nodeID string) ([]entities.Event, error)
	// ListEventsUntil returns every event with created_at <= until, oldest first.
	ListEventsUntil(ctx context.Context, userID string, until time.Time) ([]entities.Event, error)
}

// EventPublisher is notified after a mutation has been committed.
type EventPublisher interface {
	Publish(ctx context.Context, events []entities.Event) error
}
