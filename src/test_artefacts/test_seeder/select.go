package test_seeder

import (
	"context"
)

func (ts TestSeeder) CountEvents(ctx context.Context, userID string) (int, error) {
	var count int
	err := ts.pool.QueryRow(ctx, `SELECT COUNT(*) FROM graph_events WHERE user_id = $1`, userID).Scan(&count)
	return count, err
}

func (ts TestSeeder) CountNodes(ctx context.Context, userID string) (int, error) {
	var count int
	err := ts.pool.QueryRow(ctx, `SELECT COUNT(*) FROM graph_nodes WHERE user_id = $1`, userID).Scan(&count)
	return count, err
}

// RewriteEventType tries to edit a stored event; the append-only trigger must
// reject it.
func (ts TestSeeder) RewriteEventType(ctx context.Context, eventID string, eventType string) error {
	_, err := ts.pool.Exec(ctx, `UPDATE graph_events SET event_type = $2 WHERE id = $1`, eventID, eventType)
	return err
}

func (ts TestSeeder) DeleteEvent(ctx context.Context, eventID string) error {
	_, err := ts.pool.Exec(ctx, `DELETE FROM graph_events WHERE id = $1`, eventID)
	return err
}
