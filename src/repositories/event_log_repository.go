package repositories

import (
	"context"
	"time"

	"coachgraph/src/domain"
	"coachgraph/src/domain/entities"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const eventColumns = `
	id, user_id, event_type, node_id, edge_id, session_id,
	previous_state, new_state, metadata, created_at`

type EventLogRepository struct {
	pool *pgxpool.Pool
}

func NewEventLogRepository(pool *pgxpool.Pool) *EventLogRepository {
	return &EventLogRepository{pool: pool}
}

func (r *EventLogRepository) ListEvents(ctx context.Context, userID string, filter domain.TimelineFilter) ([]entities.Event, error) {
	filter = filter.Normalized()

	query := `
		SELECT ` + eventColumns + `
		FROM
			graph_events
		WHERE
			user_id = $1
			AND ($2::timestamptz IS NULL OR created_at >= $2)
			AND ($3::timestamptz IS NULL OR created_at <= $3)
		ORDER BY
			created_at DESC, seq DESC
		LIMIT $4`

	rows, err := r.pool.Query(ctx, query, userID, filter.StartDate, filter.EndDate, filter.Limit)
	if err != nil {
		return nil, storeError("EventLogRepository.ListEvents", "events query failed", err)
	}
	return collectEvents("EventLogRepository.ListEvents", rows)
}

func (r *EventLogRepository) ListNodeEvents(ctx context.Context, userID string, nodeID string) ([]entities.Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM
			graph_events
		WHERE
			user_id = $1 AND node_id = $2
		ORDER BY
			created_at, seq`

	rows, err := r.pool.Query(ctx, query, userID, nodeID)
	if err != nil {
		return nil, storeError("EventLogRepository.ListNodeEvents", "events query failed", err)
	}
	return collectEvents("EventLogRepository.ListNodeEvents", rows)
}

func (r *EventLogRepository) ListEventsUntil(ctx context.Context, userID string, until time.Time) ([]entities.Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM
			graph_events
		WHERE
			user_id = $1 AND created_at <= $2
		ORDER BY
			created_at, seq`

	rows, err := r.pool.Query(ctx, query, userID, until)
	if err != nil {
		return nil, storeError("EventLogRepository.ListEventsUntil", "events query failed", err)
	}
	return collectEvents("EventLogRepository.ListEventsUntil", rows)
}

func collectEvents(op string, rows pgx.Rows) ([]entities.Event, error) {
	defer rows.Close()

	events := make([]entities.Event, 0)
	for rows.Next() {
		var event entities.Event
		err := rows.Scan(
			&event.ID,
			&event.UserID,
			&event.EventType,
			&event.NodeID,
			&event.EdgeID,
			&event.SessionID,
			&event.PreviousState,
			&event.NewState,
			&event.Metadata,
			&event.CreatedAt,
		)
		if err != nil {
			return nil, storeError(op, "failed to scan event", err)
		}
		event.CreatedAt = event.CreatedAt.UTC()
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, storeError(op, "error iterating event rows", err)
	}

	return events, nil
}
