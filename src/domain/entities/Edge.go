package entities

import (
	"encoding/json"
	"time"
)

type EdgeType string

const (
	EdgeTypeWorksOn     EdgeType = "works_on"
	EdgeTypeHasSkill    EdgeType = "has_skill"
	EdgeTypeDerivedFrom EdgeType = "derived_from"
	EdgeTypeFeels       EdgeType = "feels"
	EdgeTypeAchieves    EdgeType = "achieves"
	EdgeTypeRelatesTo   EdgeType = "relates_to"
)

const DefaultEdgeWeight = 1.0

// É a "aresta" direcionada entre dois nós do mesmo usuário.
type Edge struct {
	ID               string     `json:"id"`
	UserID           string     `json:"user_id"`
	EdgeType         EdgeType   `json:"edge_type"`
	SourceNodeID     string     `json:"source_node_id"`
	TargetNodeID     string     `json:"target_node_id"`
	Label            *string    `json:"label,omitempty"`
	Weight           float64    `json:"weight"`
	Properties       Properties `json:"properties,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	DiscoveredAt     time.Time  `json:"discovered_at"`
	LastReinforcedAt time.Time  `json:"last_reinforced_at"`
	ValidTo          *time.Time `json:"valid_to,omitempty"`
}

func (e Edge) IsInvalidated() bool {
	return e.ValidTo != nil
}

// ActiveSince is the instant the edge starts to appear in snapshots.
func (e Edge) ActiveSince() time.Time {
	if !e.DiscoveredAt.IsZero() {
		return e.DiscoveredAt
	}
	return e.CreatedAt
}

// LiveAt ignores endpoint liveness; the reconstructor checks that separately.
func (e Edge) LiveAt(t time.Time) bool {
	if e.ActiveSince().After(t) {
		return false
	}
	return e.ValidTo == nil || e.ValidTo.After(t)
}

func (e Edge) State() json.RawMessage {
	raw, _ := json.Marshal(e)
	return raw
}
