package repositories

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"coachgraph/src/domain"
	"coachgraph/src/domain/entities"
	"coachgraph/src/infra/postgres"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// graphCacheInvalidator is satisfied by CachedGraphQueryRepository.
type graphCacheInvalidator interface {
	InvalidateUser(ctx context.Context, userID string) error
}

type GraphWriteRepository struct {
	logger    *slog.Logger
	writePool *pgxpool.Pool
	cache     graphCacheInvalidator
}

func NewGraphWriteRepository(logger *slog.Logger, writePool *pgxpool.Pool, cache graphCacheInvalidator) *GraphWriteRepository {
	return &GraphWriteRepository{logger: logger, writePool: writePool, cache: cache}
}

// ApplyMutation writes the node or edge row and its event in one transaction,
// so the log can never diverge from current state.
func (r *GraphWriteRepository) ApplyMutation(ctx context.Context, mutation domain.Mutation) error {
	const op = "GraphWriteRepository.ApplyMutation"

	tx, err := r.writePool.Begin(ctx)
	if err != nil {
		return storeError(op, "failed to begin transaction", err)
	}
	defer tx.Rollback(ctx)

	switch {
	case mutation.Node != nil:
		err = r.writeNode(ctx, tx, mutation)
	case mutation.Edge != nil:
		err = r.writeEdge(ctx, tx, mutation)
	default:
		err = fmt.Errorf("%s - mutation without node or edge", op)
	}
	if err != nil {
		return err
	}

	if err := insertEvent(ctx, tx, mutation.Event); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return storeError(op, "failed to commit transaction", err)
	}

	r.invalidate(ctx, mutation.Event.UserID)
	return nil
}

// AppendEvent stores an event that has no current-state counterpart
// (session markers, events recorded directly by other subsystems).
func (r *GraphWriteRepository) AppendEvent(ctx context.Context, event entities.Event) error {
	if err := insertEvent(ctx, r.writePool, event); err != nil {
		return err
	}
	r.invalidate(ctx, event.UserID)
	return nil
}

func (r *GraphWriteRepository) invalidate(ctx context.Context, userID string) {
	if r.cache == nil {
		return
	}
	if err := r.cache.InvalidateUser(ctx, userID); err != nil {
		r.logger.Error("Failed to invalidate graph cache", "user_id", userID, "error", err)
	}
}

func (r *GraphWriteRepository) writeNode(ctx context.Context, tx pgx.Tx, mutation domain.Mutation) error {
	const op = "GraphWriteRepository.writeNode"
	node := mutation.Node

	if mutation.Op == domain.MutationInsert {
		query := `
			INSERT INTO graph_nodes (
				id, user_id, node_type, label, description, status, properties, embedding,
				created_at, updated_at, first_mentioned_at, last_discussed_at, deleted_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

		_, err := tx.Exec(ctx, query,
			node.ID,
			node.UserID,
			node.NodeType,
			node.Label,
			postgres.NewNullString(node.Description),
			node.Status,
			propertiesOrEmpty(node.Properties),
			node.Embedding,
			node.CreatedAt,
			node.UpdatedAt,
			node.FirstMentionedAt,
			node.LastDiscussedAt,
			postgres.NewNullTime(node.DeletedAt),
		)
		if err != nil {
			if postgres.IsUniqueViolation(err) {
				return domain.NewConflictError(op, "node %s already exists", node.ID)
			}
			return storeError(op, "failed to insert node", err)
		}
		return nil
	}

	query := `
		UPDATE graph_nodes SET
			node_type = $3,
			label = $4,
			description = $5,
			status = $6,
			properties = $7,
			embedding = $8,
			updated_at = $9,
			last_discussed_at = $10,
			deleted_at = $11
		WHERE
			id = $1 AND user_id = $2 AND deleted_at IS NULL AND ($12::timestamptz IS NULL OR updated_at = $12)`

	tag, err := tx.Exec(ctx, query,
		node.ID,
		node.UserID,
		node.NodeType,
		node.Label,
		postgres.NewNullString(node.Description),
		node.Status,
		propertiesOrEmpty(node.Properties),
		node.Embedding,
		node.UpdatedAt,
		node.LastDiscussedAt,
		postgres.NewNullTime(node.DeletedAt),
		postgres.NewNullTime(mutation.ExpectedUpdatedAt),
	)
	if err != nil {
		return storeError(op, "failed to update node", err)
	}
	if tag.RowsAffected() == 0 {
		return missedUpdate(ctx, tx, op, `SELECT deleted_at IS NULL FROM graph_nodes WHERE id = $1 AND user_id = $2`, mutation.ExpectedUpdatedAt, "node", node.ID, node.UserID)
	}
	return nil
}

func (r *GraphWriteRepository) writeEdge(ctx context.Context, tx pgx.Tx, mutation domain.Mutation) error {
	const op = "GraphWriteRepository.writeEdge"
	edge := mutation.Edge

	if mutation.Op == domain.MutationInsert {
		// Revalida os endpoints dentro da transação: a node deleted between the
		// service check and this insert must not receive a new edge.
		var live int
		err := tx.QueryRow(ctx, `
			SELECT COUNT(*) FROM (
				SELECT id FROM graph_nodes
				WHERE id = ANY($1::uuid[]) AND user_id = $2 AND deleted_at IS NULL
				FOR SHARE
			) live_endpoints`,
			[]string{edge.SourceNodeID, edge.TargetNodeID}, edge.UserID,
		).Scan(&live)
		if err != nil {
			return storeError(op, "failed to lock edge endpoints", err)
		}
		if live != 2 {
			return domain.NewEndpointError(op, domain.ErrNotFound, "edge endpoints are no longer available")
		}

		query := `
			INSERT INTO graph_edges (
				id, user_id, edge_type, source_node_id, target_node_id, label, weight, properties,
				created_at, updated_at, discovered_at, last_reinforced_at, valid_to
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

		_, err = tx.Exec(ctx, query,
			edge.ID,
			edge.UserID,
			edge.EdgeType,
			edge.SourceNodeID,
			edge.TargetNodeID,
			postgres.NewNullString(edge.Label),
			edge.Weight,
			propertiesOrEmpty(edge.Properties),
			edge.CreatedAt,
			edge.UpdatedAt,
			edge.DiscoveredAt,
			edge.LastReinforcedAt,
			postgres.NewNullTime(edge.ValidTo),
		)
		if err != nil {
			if postgres.IsUniqueViolation(err) {
				return domain.NewConflictError(op, "edge %s already exists", edge.ID)
			}
			return storeError(op, "failed to insert edge", err)
		}
		return nil
	}

	query := `
		UPDATE graph_edges SET
			edge_type = $3,
			label = $4,
			weight = $5,
			properties = $6,
			updated_at = $7,
			last_reinforced_at = $8,
			valid_to = $9
		WHERE
			id = $1 AND user_id = $2 AND valid_to IS NULL AND ($10::timestamptz IS NULL OR updated_at = $10)`

	tag, err := tx.Exec(ctx, query,
		edge.ID,
		edge.UserID,
		edge.EdgeType,
		postgres.NewNullString(edge.Label),
		edge.Weight,
		propertiesOrEmpty(edge.Properties),
		edge.UpdatedAt,
		edge.LastReinforcedAt,
		postgres.NewNullTime(edge.ValidTo),
		postgres.NewNullTime(mutation.ExpectedUpdatedAt),
	)
	if err != nil {
		return storeError(op, "failed to update edge", err)
	}
	if tag.RowsAffected() == 0 {
		return missedUpdate(ctx, tx, op, `SELECT valid_to IS NULL FROM graph_edges WHERE id = $1 AND user_id = $2`, mutation.ExpectedUpdatedAt, "edge", edge.ID, edge.UserID)
	}
	return nil
}

// missedUpdate explains an UPDATE that matched no row: a missing, deleted or
// invalidated row is NotFound, a live one only moved its updated_at.
func missedUpdate(ctx context.Context, tx pgx.Tx, op string, liveQuery string, expectedUpdatedAt *time.Time, kind string, id string, userID string) error {
	var live bool
	err := tx.QueryRow(ctx, liveQuery, id, userID).Scan(&live)
	if err != nil && !postgres.IsNoRows(err) {
		return storeError(op, "failed to check "+kind+" liveness", err)
	}
	if err == nil && live && expectedUpdatedAt != nil {
		return domain.NewConflictError(op, "%s %s was modified concurrently", kind, id)
	}
	return domain.NewNotFoundError(op, "%s %s not found", kind, id)
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func insertEvent(ctx context.Context, db execer, event entities.Event) error {
	query := `
		INSERT INTO graph_events (
			id, user_id, event_type, node_id, edge_id, session_id,
			previous_state, new_state, metadata, created_at
		) VALUES ($1, $2, $3, $4::uuid, $5::uuid, $6, $7, $8, $9, $10)`

	_, err := db.Exec(ctx, query,
		event.ID,
		event.UserID,
		event.EventType,
		postgres.NewNullUUID(event.NodeID),
		postgres.NewNullUUID(event.EdgeID),
		postgres.NewNullString(event.SessionID),
		nullableJSON(event.PreviousState),
		event.NewState,
		propertiesOrEmpty(event.Metadata),
		event.CreatedAt,
	)
	if err != nil {
		return storeError("GraphWriteRepository.insertEvent", "failed to append event", err)
	}
	return nil
}

func propertiesOrEmpty(p entities.Properties) entities.Properties {
	if p == nil {
		return entities.Properties{}
	}
	return p
}

func nullableJSON(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
