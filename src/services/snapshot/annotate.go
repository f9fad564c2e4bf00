package snapshot

import (
	"math"
	"time"

	"coachgraph/src/domain"
	"coachgraph/src/domain/entities"
)

const (
	newWindow     = time.Hour
	recentWindow  = 24 * time.Hour
	fadeHours     = 168.0
	minVisibility = 0.3
)

// Visibility fades linearly from 1 to 0.3 over one week of age and stays at
// 0.3 afterwards.
func Visibility(age time.Duration) float64 {
	if age < 0 {
		age = 0
	}
	v := 1 - age.Hours()/fadeHours
	return math.Min(1, math.Max(minVisibility, v))
}

func annotateNode(node entities.Node, at time.Time) domain.TemporalNode {
	age := at.Sub(node.CreatedAt)
	return domain.TemporalNode{
		Node:       node,
		Age:        age,
		IsNew:      age < newWindow,
		IsRecent:   age < recentWindow,
		Visibility: Visibility(age),
	}
}

// annotateEdge measures age from ActiveSince, the same instant that decides
// whether the edge is in the snapshot.
func annotateEdge(edge entities.Edge, at time.Time) domain.TemporalEdge {
	age := at.Sub(edge.ActiveSince())
	strength := edge.Weight
	if strength == 0 {
		strength = entities.DefaultEdgeWeight
	}
	return domain.TemporalEdge{
		Edge:            edge,
		Age:             age,
		IsNew:           age < newWindow,
		IsRecent:        age < recentWindow,
		Visibility:      Visibility(age),
		CurrentStrength: strength,
	}
}
