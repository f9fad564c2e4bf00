package repositories

import (
	"context"
	"fmt"

	"coachgraph/src/domain"
	"coachgraph/src/domain/entities"
	"coachgraph/src/infra/postgres"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const nodeColumns = `
	id, user_id, node_type, label, description, status, properties, embedding,
	created_at, updated_at, first_mentioned_at, last_discussed_at, deleted_at`

const edgeColumns = `
	id, user_id, edge_type, source_node_id, target_node_id, label, weight, properties,
	created_at, updated_at, discovered_at, last_reinforced_at, valid_to`

type GraphQueryRepository struct {
	pool *pgxpool.Pool
}

func NewGraphQueryRepository(pool *pgxpool.Pool) *GraphQueryRepository {
	return &GraphQueryRepository{pool: pool}
}

func (r *GraphQueryRepository) GetNode(ctx context.Context, nodeID string) (*entities.Node, error) {
	return getNode(ctx, r.pool, nodeID)
}

func (r *GraphQueryRepository) GetEdge(ctx context.Context, edgeID string) (*entities.Edge, error) {
	return getEdge(ctx, r.pool, edgeID)
}

// ListNodes busca todos os nós do usuário, inclusive os removidos: the
// reconstructor needs the full picture to decide what was live at T.
func (r *GraphQueryRepository) ListNodes(ctx context.Context, userID string) ([]entities.Node, error) {
	query := `SELECT ` + nodeColumns + ` FROM graph_nodes WHERE user_id = $1 ORDER BY created_at, id`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, storeError("GraphQueryRepository.ListNodes", "nodes query failed", err)
	}
	defer rows.Close()

	nodes := make([]entities.Node, 0)
	for rows.Next() {
		node, err := scanNode(rows)
		if err != nil {
			return nil, storeError("GraphQueryRepository.ListNodes", "failed to scan node", err)
		}
		nodes = append(nodes, *node)
	}

	if err := rows.Err(); err != nil {
		return nil, storeError("GraphQueryRepository.ListNodes", "error iterating node rows", err)
	}

	return nodes, nil
}

func (r *GraphQueryRepository) ListEdges(ctx context.Context, userID string) ([]entities.Edge, error) {
	query := `SELECT ` + edgeColumns + ` FROM graph_edges WHERE user_id = $1 ORDER BY discovered_at, id`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, storeError("GraphQueryRepository.ListEdges", "edges query failed", err)
	}
	defer rows.Close()

	edges := make([]entities.Edge, 0)
	for rows.Next() {
		edge, err := scanEdge(rows)
		if err != nil {
			return nil, storeError("GraphQueryRepository.ListEdges", "failed to scan edge", err)
		}
		edges = append(edges, *edge)
	}

	if err := rows.Err(); err != nil {
		return nil, storeError("GraphQueryRepository.ListEdges", "error iterating edge rows", err)
	}

	return edges, nil
}

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func getNode(ctx context.Context, q querier, nodeID string) (*entities.Node, error) {
	query := `SELECT ` + nodeColumns + ` FROM graph_nodes WHERE id = $1`

	node, err := scanNode(q.QueryRow(ctx, query, nodeID))
	if err != nil {
		if postgres.IsNoRows(err) || postgres.IsInvalidInput(err) {
			return nil, domain.NewNotFoundError("GraphQueryRepository.GetNode", "node %s not found", nodeID)
		}
		return nil, storeError("GraphQueryRepository.GetNode", "node query failed", err)
	}
	return node, nil
}

func getEdge(ctx context.Context, q querier, edgeID string) (*entities.Edge, error) {
	query := `SELECT ` + edgeColumns + ` FROM graph_edges WHERE id = $1`

	edge, err := scanEdge(q.QueryRow(ctx, query, edgeID))
	if err != nil {
		if postgres.IsNoRows(err) || postgres.IsInvalidInput(err) {
			return nil, domain.NewNotFoundError("GraphQueryRepository.GetEdge", "edge %s not found", edgeID)
		}
		return nil, storeError("GraphQueryRepository.GetEdge", "edge query failed", err)
	}
	return edge, nil
}

func scanNode(row pgx.Row) (*entities.Node, error) {
	var node entities.Node
	err := row.Scan(
		&node.ID,
		&node.UserID,
		&node.NodeType,
		&node.Label,
		&node.Description,
		&node.Status,
		&node.Properties,
		&node.Embedding,
		&node.CreatedAt,
		&node.UpdatedAt,
		&node.FirstMentionedAt,
		&node.LastDiscussedAt,
		&node.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	normalizeNodeTimes(&node)
	return &node, nil
}

func scanEdge(row pgx.Row) (*entities.Edge, error) {
	var edge entities.Edge
	err := row.Scan(
		&edge.ID,
		&edge.UserID,
		&edge.EdgeType,
		&edge.SourceNodeID,
		&edge.TargetNodeID,
		&edge.Label,
		&edge.Weight,
		&edge.Properties,
		&edge.CreatedAt,
		&edge.UpdatedAt,
		&edge.DiscoveredAt,
		&edge.LastReinforcedAt,
		&edge.ValidTo,
	)
	if err != nil {
		return nil, err
	}
	normalizeEdgeTimes(&edge)
	return &edge, nil
}

// O driver devolve timestamptz no fuso da sessão; everything in the domain is UTC.
func normalizeNodeTimes(n *entities.Node) {
	n.CreatedAt = n.CreatedAt.UTC()
	n.UpdatedAt = n.UpdatedAt.UTC()
	n.FirstMentionedAt = n.FirstMentionedAt.UTC()
	n.LastDiscussedAt = n.LastDiscussedAt.UTC()
	if n.DeletedAt != nil {
		t := n.DeletedAt.UTC()
		n.DeletedAt = &t
	}
}

func normalizeEdgeTimes(e *entities.Edge) {
	e.CreatedAt = e.CreatedAt.UTC()
	e.UpdatedAt = e.UpdatedAt.UTC()
	e.DiscoveredAt = e.DiscoveredAt.UTC()
	e.LastReinforcedAt = e.LastReinforcedAt.UTC()
	if e.ValidTo != nil {
		t := e.ValidTo.UTC()
		e.ValidTo = &t
	}
}

// storeError classifies driver failures: transient I/O problems become
// TransientStoreError, the rest are wrapped as is.
func storeError(op string, msg string, err error) error {
	if postgres.IsTransient(err) {
		return domain.NewTransientStoreError(op, fmt.Errorf("%s: %w", msg, err))
	}
	return fmt.Errorf("%s - %s: %w", op, msg, err)
}
