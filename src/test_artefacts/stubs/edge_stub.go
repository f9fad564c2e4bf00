package stubs

import (
	"time"

	"coachgraph/src/domain/entities"

	"github.com/brianvoe/gofakeit/v6"
)

type EdgeStub struct {
	edge entities.Edge
}

func NewEdgeStub() EdgeStub {
	now := time.Now().UTC().Truncate(time.Microsecond)

	edge := entities.Edge{
		ID:               gofakeit.UUID(),
		UserID:           gofakeit.UUID(),
		EdgeType:         entities.EdgeTypeRelatesTo,
		SourceNodeID:     gofakeit.UUID(),
		TargetNodeID:     gofakeit.UUID(),
		Weight:           entities.DefaultEdgeWeight,
		Properties:       entities.Properties{},
		CreatedAt:        now,
		UpdatedAt:        now,
		DiscoveredAt:     now,
		LastReinforcedAt: now,
	}

	return EdgeStub{edge: edge}
}

// Between sets user and endpoints from the two nodes.
func (es EdgeStub) Between(source, target entities.Node) EdgeStub {
	es.edge.UserID = source.UserID
	es.edge.SourceNodeID = source.ID
	es.edge.TargetNodeID = target.ID
	return es
}

func (es EdgeStub) WithType(edgeType entities.EdgeType) EdgeStub {
	es.edge.EdgeType = edgeType
	return es
}

func (es EdgeStub) WithWeight(weight float64) EdgeStub {
	es.edge.Weight = weight
	return es
}

func (es EdgeStub) WithCreatedAt(createdAt time.Time) EdgeStub {
	es.edge.CreatedAt = createdAt
	es.edge.UpdatedAt = createdAt
	es.edge.DiscoveredAt = createdAt
	es.edge.LastReinforcedAt = createdAt
	return es
}

func (es EdgeStub) WithValidTo(validTo time.Time) EdgeStub {
	es.edge.ValidTo = &validTo
	return es
}

func (es EdgeStub) Get() entities.Edge {
	return es.edge
}
