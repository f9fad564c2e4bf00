package domain

import (
	"encoding/json"
	"time"

	"coachgraph/src/domain/entities"
)

// ############################################################
// ############ PROCESSO DE ESCRITA DO GRAFO ##################
// ############################################################

type CreateNodeInput struct {
	NodeType    entities.NodeType   `json:"node_type" validate:"required,max=64"`
	Label       string              `json:"label" validate:"required,max=500"`
	Description *string             `json:"description,omitempty"`
	Properties  entities.Properties `json:"properties,omitempty"`
	// Defaults to draft_verbal.
	Status entities.NodeStatus `json:"status,omitempty" validate:"omitempty,oneof=draft_verbal curated"`
}

type UpdateNodeInput struct {
	Label       *string             `json:"label,omitempty" validate:"omitempty,min=1,max=500"`
	Description *string             `json:"description,omitempty"`
	Properties  entities.Properties `json:"properties,omitempty"`
	// When set the update only applies if the stored updated_at still matches.
	ExpectedUpdatedAt *time.Time `json:"expected_updated_at,omitempty"`
}

type CreateEdgeInput struct {
	EdgeType     entities.EdgeType   `json:"edge_type" validate:"required,max=64"`
	SourceNodeID string              `json:"source_node_id" validate:"required"`
	TargetNodeID string              `json:"target_node_id" validate:"required,nefield=SourceNodeID"`
	Label        *string             `json:"label,omitempty"`
	Weight       *float64            `json:"weight,omitempty" validate:"omitempty,gt=0"`
	Properties   entities.Properties `json:"properties,omitempty"`
}

type UpdateEdgeInput struct {
	Label             *string             `json:"label,omitempty"`
	Weight            *float64            `json:"weight,omitempty" validate:"omitempty,gt=0"`
	Properties        entities.Properties `json:"properties,omitempty"`
	ExpectedUpdatedAt *time.Time          `json:"expected_updated_at,omitempty"`
}

type EventOptions struct {
	NodeID        *string             `json:"node_id,omitempty"`
	EdgeID        *string             `json:"edge_id,omitempty"`
	SessionID     *string             `json:"session_id,omitempty"`
	PreviousState json.RawMessage     `json:"previous_state,omitempty"`
	Metadata      entities.Properties `json:"metadata,omitempty"`
}

type MutationOp string

const (
	MutationInsert MutationOp = "insert"
	MutationUpdate MutationOp = "update"
)

// Mutation is one Graph Store write paired with the event describing it.
// Repositories apply both atomically or neither.
type Mutation struct {
	Op   MutationOp
	Node *entities.Node
	Edge *entities.Edge
	// Optimistic check on the row being updated, nil means last write wins.
	ExpectedUpdatedAt *time.Time
	Event             entities.Event
}

// ############################################################
// ############ PROCESSO DE LEITURA DO HISTÓRICO ##############
// ############################################################

const (
	DefaultTimelineLimit = 100
	MaxTimelineLimit     = 1000
)

type TimelineFilter struct {
	StartDate *time.Time
	EndDate   *time.Time
	Limit     int
}

// Normalized returns the filter with the limit clamped to (0, MaxTimelineLimit].
func (f TimelineFilter) Normalized() TimelineFilter {
	if f.Limit <= 0 {
		f.Limit = DefaultTimelineLimit
	}
	if f.Limit > MaxTimelineLimit {
		f.Limit = MaxTimelineLimit
	}
	return f
}

// TemporalNode is a node of a snapshot annotated for display.
type TemporalNode struct {
	entities.Node
	Age        time.Duration `json:"age"`
	IsNew      bool          `json:"is_new"`
	IsRecent   bool          `json:"is_recent"`
	Visibility float64       `json:"visibility"`
}

type TemporalEdge struct {
	entities.Edge
	Age             time.Duration `json:"age"`
	IsNew           bool          `json:"is_new"`
	IsRecent        bool          `json:"is_recent"`
	Visibility      float64       `json:"visibility"`
	CurrentStrength float64       `json:"current_strength"`
}

// Snapshot is the set of live nodes and edges as of At.
type Snapshot struct {
	At    time.Time      `json:"at"`
	Nodes []TemporalNode `json:"nodes"`
	Edges []TemporalEdge `json:"edges"`
}
