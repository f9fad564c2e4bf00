package timeline

import (
	"context"

	"coachgraph/src/domain"
	"coachgraph/src/domain/entities"
	"coachgraph/src/helper/clock"
)

const recentEventsLimit = 50

// View is what a viewer needs before the first snapshot: the scrubbable
// range, the sessions to jump to and the latest events.
type View struct {
	UserID    string           `json:"user_id"`
	TimeRange TimeRange        `json:"time_range"`
	Sessions  []entities.Node  `json:"sessions"`
	Events    []entities.Event `json:"events"`
}

type Loader struct {
	graphReader domain.GraphReader
	eventReader domain.EventReader
	clock       clock.Clock
}

func NewLoader(graphReader domain.GraphReader, eventReader domain.EventReader, clk clock.Clock) *Loader {
	return &Loader{graphReader: graphReader, eventReader: eventReader, clock: clk}
}

// Load builds the view. The range goes from the oldest node (deleted ones
// included) or event to now.
func (l *Loader) Load(ctx context.Context, userID string) (*View, error) {
	const op = "Loader.Load"

	if userID == "" {
		return nil, domain.NewValidationError(op, "user_id is required")
	}

	nodes, err := l.graphReader.ListNodes(ctx, userID)
	if err != nil {
		return nil, err
	}
	events, err := l.eventReader.ListEvents(ctx, userID, domain.TimelineFilter{Limit: recentEventsLimit})
	if err != nil {
		return nil, err
	}

	now := l.clock.Now().UTC()
	view := &View{
		UserID:    userID,
		TimeRange: TimeRange{Start: now, End: now},
		Sessions:  make([]entities.Node, 0),
		Events:    events,
	}

	for _, node := range nodes {
		if node.CreatedAt.Before(view.TimeRange.Start) {
			view.TimeRange.Start = node.CreatedAt
		}
		if node.NodeType == entities.NodeTypeSession && !node.IsDeleted() {
			view.Sessions = append(view.Sessions, node)
		}
	}
	// ListEvents is newest first, so the last one is the oldest returned.
	if len(events) > 0 {
		oldest := events[len(events)-1].CreatedAt
		if oldest.Before(view.TimeRange.Start) {
			view.TimeRange.Start = oldest
		}
	}
	return view, nil
}
