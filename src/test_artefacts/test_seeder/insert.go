package test_seeder

import (
	"context"
	"fmt"

	"coachgraph/src/domain/entities"
	"coachgraph/src/infra/postgres"
)

// InsertNode writes a node row directly, bypassing the event log, so tests can
// place rows at arbitrary instants.
func (ts TestSeeder) InsertNode(ctx context.Context, node entities.Node) {
	query := `
		INSERT INTO graph_nodes (
			id, user_id, node_type, label, description, status, properties, embedding,
			created_at, updated_at, first_mentioned_at, last_discussed_at, deleted_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	properties := node.Properties
	if properties == nil {
		properties = entities.Properties{}
	}

	_, err := ts.pool.Exec(ctx, query,
		node.ID,
		node.UserID,
		node.NodeType,
		node.Label,
		postgres.NewNullString(node.Description),
		node.Status,
		properties,
		node.Embedding,
		node.CreatedAt,
		node.UpdatedAt,
		node.FirstMentionedAt,
		node.LastDiscussedAt,
		postgres.NewNullTime(node.DeletedAt),
	)
	if err != nil {
		panic(fmt.Sprintf("Seeder.InsertNode failed: %v", err))
	}
}

func (ts TestSeeder) InsertEdge(ctx context.Context, edge entities.Edge) {
	query := `
		INSERT INTO graph_edges (
			id, user_id, edge_type, source_node_id, target_node_id, label, weight, properties,
			created_at, updated_at, discovered_at, last_reinforced_at, valid_to
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	properties := edge.Properties
	if properties == nil {
		properties = entities.Properties{}
	}

	_, err := ts.pool.Exec(ctx, query,
		edge.ID,
		edge.UserID,
		edge.EdgeType,
		edge.SourceNodeID,
		edge.TargetNodeID,
		postgres.NewNullString(edge.Label),
		edge.Weight,
		properties,
		edge.CreatedAt,
		edge.UpdatedAt,
		edge.DiscoveredAt,
		edge.LastReinforcedAt,
		postgres.NewNullTime(edge.ValidTo),
	)
	if err != nil {
		panic(fmt.Sprintf("Seeder.InsertEdge failed: %v", err))
	}
}
