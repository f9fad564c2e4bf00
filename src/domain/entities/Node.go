package entities

import (
	"encoding/json"
	"time"
)

type NodeType string

const (
	NodeTypeGoal           NodeType = "goal"
	NodeTypeSkill          NodeType = "skill"
	NodeTypeEmotion        NodeType = "emotion"
	NodeTypeSession        NodeType = "session"
	NodeTypeAccomplishment NodeType = "accomplishment"
	NodeTypeInsight        NodeType = "insight"
)

type NodeStatus string

const (
	NodeStatusDraftVerbal NodeStatus = "draft_verbal"
	NodeStatusCurated     NodeStatus = "curated"
)

// IsValid reports whether s is one of the two lifecycle states.
func (s NodeStatus) IsValid() bool {
	return s == NodeStatusDraftVerbal || s == NodeStatusCurated
}

// Node is a typed vertex of a user's personal graph.
type Node struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	NodeType    NodeType   `json:"node_type"`
	Label       string     `json:"label"`
	Description *string    `json:"description,omitempty"`
	Status      NodeStatus `json:"status"`
	// Shape depends on NodeType, see Properties.Goal / Skill / ...
	Properties Properties `json:"properties,omitempty"`
	// Written by the embedding subsystem, never interpreted here.
	Embedding        []float32  `json:"embedding,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	FirstMentionedAt time.Time  `json:"first_mentioned_at"`
	LastDiscussedAt  time.Time  `json:"last_discussed_at"`
	DeletedAt        *time.Time `json:"deleted_at,omitempty"`
}

func (n Node) IsDeleted() bool {
	return n.DeletedAt != nil
}

// LiveAt reports whether the node existed and was not yet deleted at t.
func (n Node) LiveAt(t time.Time) bool {
	if n.CreatedAt.After(t) {
		return false
	}
	return n.DeletedAt == nil || n.DeletedAt.After(t)
}

// State returns the JSON document stored as previous_state/new_state in events.
// The embedding is left out, it is large and owned elsewhere.
func (n Node) State() json.RawMessage {
	n.Embedding = nil
	raw, _ := json.Marshal(n)
	return raw
}
