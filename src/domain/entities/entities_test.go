package entities_test

import (
	"encoding/json"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"coachgraph/src/domain/entities"
)

var _ = Describe("Node", func() {
	created := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	deleted := created.Add(48 * time.Hour)

	DescribeTable("LiveAt",
		func(deletedAt *time.Time, at time.Time, want bool) {
			node := entities.Node{CreatedAt: created, DeletedAt: deletedAt}
			Expect(node.LiveAt(at)).To(Equal(want))
		},
		Entry("before creation", nil, created.Add(-time.Millisecond), false),
		Entry("at creation", nil, created, true),
		Entry("long after creation", nil, created.Add(365*24*time.Hour), true),
		Entry("just before deletion", &deleted, deleted.Add(-time.Microsecond), true),
		Entry("at deletion", &deleted, deleted, false),
		Entry("after deletion", &deleted, deleted.Add(time.Hour), false),
	)

	It("leaves the embedding out of its state", func() {
		node := entities.Node{ID: "n1", Label: "Public speaking", Embedding: []float32{0.1, 0.2}}

		var state map[string]any
		Expect(json.Unmarshal(node.State(), &state)).To(Succeed())
		Expect(state).NotTo(HaveKey("embedding"))
		Expect(state).To(HaveKeyWithValue("label", "Public speaking"))
		Expect(node.Embedding).To(HaveLen(2))
	})
})

var _ = Describe("Edge", func() {
	created := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)

	It("is active from discovered_at when set", func() {
		discovered := created.Add(time.Hour)
		edge := entities.Edge{CreatedAt: created, DiscoveredAt: discovered}

		Expect(edge.ActiveSince()).To(Equal(discovered))
		Expect(edge.LiveAt(created.Add(30 * time.Minute))).To(BeFalse())
		Expect(edge.LiveAt(discovered)).To(BeTrue())
	})

	It("falls back to created_at", func() {
		edge := entities.Edge{CreatedAt: created}
		Expect(edge.ActiveSince()).To(Equal(created))
	})

	It("stops being live at valid_to", func() {
		validTo := created.Add(time.Hour)
		edge := entities.Edge{CreatedAt: created, ValidTo: &validTo}

		Expect(edge.IsInvalidated()).To(BeTrue())
		Expect(edge.LiveAt(validTo.Add(-time.Nanosecond))).To(BeTrue())
		Expect(edge.LiveAt(validTo)).To(BeFalse())
	})
})

var _ = Describe("EventType", func() {
	It("knows the scope of every type", func() {
		Expect(entities.EventStatusChanged.Scope()).To(Equal(entities.ScopeNode))
		Expect(entities.EventEmbeddingGenerated.Scope()).To(Equal(entities.ScopeNode))
		Expect(entities.EventEdgeDeleted.Scope()).To(Equal(entities.ScopeEdge))
		Expect(entities.EventSessionEnded.Scope()).To(Equal(entities.ScopeMetadata))
		Expect(entities.EventType("something").IsValid()).To(BeFalse())
	})
})

var _ = Describe("Properties", func() {
	It("decodes the goal view and keeps unknown keys in the map", func() {
		props := entities.Properties{"progress": 40, "priority": "high", "coach_note": "weekly"}

		goal, err := props.Goal()
		Expect(err).NotTo(HaveOccurred())
		Expect(*goal.Progress).To(Equal(40.0))
		Expect(goal.Priority).To(Equal("high"))
		Expect(props).To(HaveKey("coach_note"))
	})

	It("returns the typed view matching the node type", func() {
		props := entities.Properties{"valence": -0.5, "intensity": 0.8}

		view, err := props.Typed(entities.NodeTypeEmotion)
		Expect(err).NotTo(HaveOccurred())
		emotion, ok := view.(entities.EmotionProperties)
		Expect(ok).To(BeTrue())
		Expect(*emotion.Valence).To(Equal(-0.5))
	})

	It("returns the open map for unknown node types", func() {
		props := entities.Properties{"anything": true}

		view, err := props.Typed(entities.NodeType("habit"))
		Expect(err).NotTo(HaveOccurred())
		Expect(view).To(Equal(props))
	})

	It("reports a shape mismatch", func() {
		_, err := entities.Properties{"progress": "half"}.Typed(entities.NodeTypeGoal)
		Expect(err).To(MatchError(ContainSubstring("goal")))
	})

	It("merges without touching the receiver", func() {
		base := entities.Properties{"level": "beginner", "evidence": []string{"talk"}}
		merged := base.Merge(entities.Properties{"level": "intermediate"})

		Expect(merged["level"]).To(Equal("intermediate"))
		Expect(merged).To(HaveKey("evidence"))
		Expect(base["level"]).To(Equal("beginner"))
	})
})
