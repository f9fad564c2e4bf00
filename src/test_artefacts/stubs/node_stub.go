package stubs

import (
	"time"

	"coachgraph/src/domain/entities"

	"github.com/brianvoe/gofakeit/v6"
)

type NodeStub struct {
	node entities.Node
}

func NewNodeStub() NodeStub {
	now := time.Now().UTC().Truncate(time.Microsecond)

	node := entities.Node{
		ID:       gofakeit.UUID(),
		UserID:   gofakeit.UUID(),
		NodeType: entities.NodeTypeGoal,
		Label:    gofakeit.Sentence(4),
		Status:   entities.NodeStatusDraftVerbal,
		Properties: entities.Properties{
			"priority": gofakeit.RandomString([]string{"low", "medium", "high"}),
		},
		CreatedAt:        now,
		UpdatedAt:        now,
		FirstMentionedAt: now,
		LastDiscussedAt:  now,
	}

	return NodeStub{node: node}
}

func (ns NodeStub) WithID(id string) NodeStub {
	ns.node.ID = id
	return ns
}

func (ns NodeStub) WithUserID(userID string) NodeStub {
	ns.node.UserID = userID
	return ns
}

func (ns NodeStub) WithType(nodeType entities.NodeType) NodeStub {
	ns.node.NodeType = nodeType
	return ns
}

func (ns NodeStub) WithLabel(label string) NodeStub {
	ns.node.Label = label
	return ns
}

func (ns NodeStub) WithStatus(status entities.NodeStatus) NodeStub {
	ns.node.Status = status
	return ns
}

func (ns NodeStub) WithProperties(properties entities.Properties) NodeStub {
	ns.node.Properties = properties
	return ns
}

// WithCreatedAt moves every timestamp of the node to createdAt.
func (ns NodeStub) WithCreatedAt(createdAt time.Time) NodeStub {
	ns.node.CreatedAt = createdAt
	ns.node.UpdatedAt = createdAt
	ns.node.FirstMentionedAt = createdAt
	ns.node.LastDiscussedAt = createdAt
	return ns
}

func (ns NodeStub) WithDeletedAt(deletedAt time.Time) NodeStub {
	ns.node.DeletedAt = &deletedAt
	return ns
}

func (ns NodeStub) Get() entities.Node {
	return ns.node
}
