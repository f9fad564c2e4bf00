package graph_test

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"coachgraph/src/domain"
	"coachgraph/src/domain/entities"
	"coachgraph/src/helper/clock"
	"coachgraph/src/repositories/memory"
	"coachgraph/src/services/graph"
)

var _ = Describe("GraphService node operations", func() {
	var (
		ctx          context.Context
		store        *memory.Store
		fakeClock    *clock.Fake
		publisher    *recordingPublisher
		graphService *graph.GraphService
		userID       string
		t0           time.Time
	)

	BeforeEach(func() {
		ctx = context.Background()
		store = memory.NewStore()
		t0 = time.Date(2025, 4, 7, 14, 30, 0, 0, time.UTC)
		fakeClock = clock.NewFake(t0)
		publisher = &recordingPublisher{}
		graphService = graph.NewGraphService(discardLogger(), store, store, publisher, fakeClock)
		userID = "user-ana"
	})

	Context("CreateNode", func() {
		It("creates a draft node and records node_created with the session", func() {
			node, err := graphService.CreateNode(ctx, userID, domain.CreateNodeInput{
				NodeType: entities.NodeTypeGoal,
				Label:    "Run a 5K",
			}, "session-1")

			Expect(err).NotTo(HaveOccurred())
			Expect(node.Status).To(Equal(entities.NodeStatusDraftVerbal))
			Expect(node.CreatedAt).To(Equal(t0))
			Expect(node.FirstMentionedAt).To(Equal(t0))

			events, err := store.ListNodeEvents(ctx, userID, node.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(events).To(HaveLen(1))
			Expect(events[0].EventType).To(Equal(entities.EventNodeCreated))
			Expect(*events[0].SessionID).To(Equal("session-1"))
			Expect(events[0].PreviousState).To(BeEmpty())

			var state entities.Node
			Expect(json.Unmarshal(events[0].NewState, &state)).To(Succeed())
			Expect(state.Label).To(Equal("Run a 5K"))

			Expect(publisher.Published()).To(HaveLen(1))
		})

		It("accepts an explicit curated status", func() {
			node, err := graphService.CreateNode(ctx, userID, domain.CreateNodeInput{
				NodeType: entities.NodeTypeInsight,
				Label:    "Mornings are my best time",
				Status:   entities.NodeStatusCurated,
			}, "")

			Expect(err).NotTo(HaveOccurred())
			Expect(node.Status).To(Equal(entities.NodeStatusCurated))
		})

		DescribeTable("rejects invalid input without writing anything",
			func(user string, input domain.CreateNodeInput) {
				_, err := graphService.CreateNode(ctx, user, input, "")
				Expect(domain.IsValidation(err)).To(BeTrue())

				events, _ := store.ListEvents(ctx, user, domain.TimelineFilter{})
				Expect(events).To(BeEmpty())
			},
			Entry("missing node type", "user-ana", domain.CreateNodeInput{Label: "Run"}),
			Entry("missing label", "user-ana", domain.CreateNodeInput{NodeType: entities.NodeTypeGoal}),
			Entry("missing user", "", domain.CreateNodeInput{NodeType: entities.NodeTypeGoal, Label: "Run"}),
		)

		It("does not fail when publishing fails after the commit", func() {
			publisher.err = errors.New("broker down")

			node, err := graphService.CreateNode(ctx, userID, domain.CreateNodeInput{NodeType: entities.NodeTypeSkill, Label: "Negotiation"}, "")
			Expect(err).NotTo(HaveOccurred())

			_, err = store.GetNode(ctx, node.ID)
			Expect(err).NotTo(HaveOccurred())
		})

		It("writes neither row nor event when the store fails", func() {
			store.SetFailure(domain.NewTransientStoreError("memory", errors.New("unavailable")))

			_, err := graphService.CreateNode(ctx, userID, domain.CreateNodeInput{NodeType: entities.NodeTypeGoal, Label: "Run"}, "")
			Expect(domain.IsTransientStore(err)).To(BeTrue())

			store.SetFailure(nil)
			nodes, _ := store.ListNodes(ctx, userID)
			events, _ := store.ListEvents(ctx, userID, domain.TimelineFilter{})
			Expect(nodes).To(BeEmpty())
			Expect(events).To(BeEmpty())
			Expect(publisher.Published()).To(BeEmpty())
		})
	})

	Context("UpdateNode", func() {
		var node *entities.Node

		BeforeEach(func() {
			var err error
			node, err = graphService.CreateNode(ctx, userID, domain.CreateNodeInput{
				NodeType:   entities.NodeTypeGoal,
				Label:      "Run a 5K",
				Properties: entities.Properties{"priority": "high"},
			}, "")
			Expect(err).NotTo(HaveOccurred())
			fakeClock.Advance(time.Hour)
		})

		It("applies the changes, touches last_discussed_at and lists the changed fields", func() {
			label := "Run a 10K"
			updated, err := graphService.UpdateNode(ctx, userID, node.ID, domain.UpdateNodeInput{
				Label:      &label,
				Properties: entities.Properties{"priority": "high", "target_date": "2025-10-01T00:00:00Z"},
			}, "session-2")

			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Label).To(Equal("Run a 10K"))
			Expect(updated.LastDiscussedAt).To(Equal(t0.Add(time.Hour)))
			Expect(updated.UpdatedAt).To(Equal(t0.Add(time.Hour)))
			Expect(updated.CreatedAt).To(Equal(t0))
			Expect(updated.Properties).To(HaveKeyWithValue("priority", "high"))

			events, _ := store.ListNodeEvents(ctx, userID, node.ID)
			Expect(events).To(HaveLen(2))
			last := events[1]
			Expect(last.EventType).To(Equal(entities.EventNodeUpdated))
			Expect(last.Metadata["changed_fields"]).To(ConsistOf("label", "properties"))

			var previous entities.Node
			Expect(json.Unmarshal(last.PreviousState, &previous)).To(Succeed())
			Expect(previous.Label).To(Equal("Run a 5K"))
		})

		It("returns not found for a missing node", func() {
			label := "x"
			_, err := graphService.UpdateNode(ctx, userID, "00000000-0000-0000-0000-000000000000", domain.UpdateNodeInput{Label: &label}, "")
			Expect(domain.IsNotFound(err)).To(BeTrue())
		})

		It("refuses to update another user's node", func() {
			label := "x"
			_, err := graphService.UpdateNode(ctx, "user-bruno", node.ID, domain.UpdateNodeInput{Label: &label}, "")
			Expect(domain.IsAuthorization(err)).To(BeTrue())

			stored, _ := store.GetNode(ctx, node.ID)
			Expect(stored.Label).To(Equal("Run a 5K"))
		})

		It("detects a concurrent modification", func() {
			stale := node.UpdatedAt
			first := "first"
			_, err := graphService.UpdateNode(ctx, userID, node.ID, domain.UpdateNodeInput{Label: &first, ExpectedUpdatedAt: &stale}, "")
			Expect(err).NotTo(HaveOccurred())

			fakeClock.Advance(time.Minute)
			second := "second"
			_, err = graphService.UpdateNode(ctx, userID, node.ID, domain.UpdateNodeInput{Label: &second, ExpectedUpdatedAt: &stale}, "")
			Expect(domain.IsConflict(err)).To(BeTrue())

			stored, _ := store.GetNode(ctx, node.ID)
			Expect(stored.Label).To(Equal("first"))
		})
	})

	Context("DeleteNode", func() {
		It("soft deletes and keeps the history", func() {
			node, err := graphService.CreateNode(ctx, userID, domain.CreateNodeInput{NodeType: entities.NodeTypeEmotion, Label: "Anxious"}, "")
			Expect(err).NotTo(HaveOccurred())
			fakeClock.Advance(2 * time.Hour)

			Expect(graphService.DeleteNode(ctx, userID, node.ID, "")).To(Succeed())

			stored, err := store.GetNode(ctx, node.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(*stored.DeletedAt).To(Equal(t0.Add(2 * time.Hour)))

			_, err = graphService.GetNode(ctx, userID, node.ID)
			Expect(domain.IsNotFound(err)).To(BeTrue())

			err = graphService.DeleteNode(ctx, userID, node.ID, "")
			Expect(domain.IsNotFound(err)).To(BeTrue())

			events, _ := store.ListNodeEvents(ctx, userID, node.ID)
			Expect(events).To(HaveLen(2))
			Expect(events[1].EventType).To(Equal(entities.EventNodeDeleted))
		})
	})

	Context("UpdateNodeStatus", func() {
		var node *entities.Node

		BeforeEach(func() {
			var err error
			node, err = graphService.CreateNode(ctx, userID, domain.CreateNodeInput{NodeType: entities.NodeTypeGoal, Label: "Run a 5K"}, "")
			Expect(err).NotTo(HaveOccurred())
		})

		It("promotes a draft and records old and new status", func() {
			updated, err := graphService.UpdateNodeStatus(ctx, userID, node.ID, entities.NodeStatusCurated, "session-9")
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Status).To(Equal(entities.NodeStatusCurated))

			stored, _ := store.GetNode(ctx, node.ID)
			Expect(stored.Status).To(Equal(entities.NodeStatusCurated))

			events, _ := store.ListNodeEvents(ctx, userID, node.ID)
			Expect(events).To(HaveLen(2))
			Expect(events[1].EventType).To(Equal(entities.EventStatusChanged))
			Expect(events[1].Metadata).To(HaveKeyWithValue("old_status", "draft_verbal"))
			Expect(events[1].Metadata).To(HaveKeyWithValue("new_status", "curated"))
		})

		It("records one event per call even when the status does not change", func() {
			_, err := graphService.UpdateNodeStatus(ctx, userID, node.ID, entities.NodeStatusCurated, "")
			Expect(err).NotTo(HaveOccurred())
			_, err = graphService.UpdateNodeStatus(ctx, userID, node.ID, entities.NodeStatusCurated, "")
			Expect(err).NotTo(HaveOccurred())

			stored, _ := store.GetNode(ctx, node.ID)
			Expect(stored.Status).To(Equal(entities.NodeStatusCurated))

			events, _ := store.ListNodeEvents(ctx, userID, node.ID)
			Expect(events).To(HaveLen(3))
			Expect(events[2].Metadata).To(HaveKeyWithValue("old_status", "curated"))
			Expect(events[2].Metadata).To(HaveKeyWithValue("new_status", "curated"))
		})

		It("can revert a curated node to draft", func() {
			_, err := graphService.UpdateNodeStatus(ctx, userID, node.ID, entities.NodeStatusCurated, "")
			Expect(err).NotTo(HaveOccurred())

			reverted, err := graphService.UpdateNodeStatus(ctx, userID, node.ID, entities.NodeStatusDraftVerbal, "")
			Expect(err).NotTo(HaveOccurred())
			Expect(reverted.Status).To(Equal(entities.NodeStatusDraftVerbal))
		})

		It("rejects an unknown status", func() {
			_, err := graphService.UpdateNodeStatus(ctx, userID, node.ID, entities.NodeStatus("archived"), "")
			Expect(domain.IsValidation(err)).To(BeTrue())

			events, _ := store.ListNodeEvents(ctx, userID, node.ID)
			Expect(events).To(HaveLen(1))
		})

		It("refuses another user's node", func() {
			_, err := graphService.UpdateNodeStatus(ctx, "user-bruno", node.ID, entities.NodeStatusCurated, "")
			Expect(domain.IsAuthorization(err)).To(BeTrue())
		})
	})

	Context("UpdateGoalProgress", func() {
		It("stores the progress and records old and new values", func() {
			goal, err := graphService.CreateNode(ctx, userID, domain.CreateNodeInput{
				NodeType:   entities.NodeTypeGoal,
				Label:      "Read 12 books",
				Properties: entities.Properties{"progress": 25.0},
			}, "")
			Expect(err).NotTo(HaveOccurred())

			updated, err := graphService.UpdateGoalProgress(ctx, userID, goal.ID, 50, "")
			Expect(err).NotTo(HaveOccurred())

			props, err := updated.Properties.Goal()
			Expect(err).NotTo(HaveOccurred())
			Expect(*props.Progress).To(Equal(50.0))

			events, _ := store.ListNodeEvents(ctx, userID, goal.ID)
			Expect(events[1].EventType).To(Equal(entities.EventProgressChanged))
			Expect(events[1].Metadata).To(HaveKeyWithValue("old_progress", 25.0))
			Expect(events[1].Metadata).To(HaveKeyWithValue("new_progress", 50.0))
		})

		It("only applies to goals and to values between 0 and 100", func() {
			skill, err := graphService.CreateNode(ctx, userID, domain.CreateNodeInput{NodeType: entities.NodeTypeSkill, Label: "Cooking"}, "")
			Expect(err).NotTo(HaveOccurred())

			_, err = graphService.UpdateGoalProgress(ctx, userID, skill.ID, 10, "")
			Expect(domain.IsValidation(err)).To(BeTrue())

			_, err = graphService.UpdateGoalProgress(ctx, userID, skill.ID, 101, "")
			Expect(domain.IsValidation(err)).To(BeTrue())
		})
	})

	Context("SetNodeEmbedding", func() {
		It("stores the vector and records only its dimension", func() {
			node, err := graphService.CreateNode(ctx, userID, domain.CreateNodeInput{NodeType: entities.NodeTypeInsight, Label: "Sleep matters"}, "")
			Expect(err).NotTo(HaveOccurred())

			_, err = graphService.SetNodeEmbedding(ctx, userID, node.ID, []float32{0.12, -0.4, 0.9})
			Expect(err).NotTo(HaveOccurred())

			stored, _ := store.GetNode(ctx, node.ID)
			Expect(stored.Embedding).To(Equal([]float32{0.12, -0.4, 0.9}))

			events, _ := store.ListNodeEvents(ctx, userID, node.ID)
			Expect(events[1].EventType).To(Equal(entities.EventEmbeddingGenerated))
			Expect(events[1].Metadata).To(HaveKeyWithValue("dimensions", 3))
			Expect(string(events[1].NewState)).NotTo(ContainSubstring("embedding"))
		})

		It("rejects an empty vector", func() {
			_, err := graphService.SetNodeEmbedding(ctx, userID, "any", nil)
			Expect(domain.IsValidation(err)).To(BeTrue())
		})
	})

	Context("ListSessions", func() {
		It("returns live session nodes oldest first", func() {
			first, err := graphService.CreateNode(ctx, userID, domain.CreateNodeInput{NodeType: entities.NodeTypeSession, Label: "Kickoff"}, "")
			Expect(err).NotTo(HaveOccurred())
			fakeClock.Advance(24 * time.Hour)
			second, err := graphService.CreateNode(ctx, userID, domain.CreateNodeInput{NodeType: entities.NodeTypeSession, Label: "Check-in"}, "")
			Expect(err).NotTo(HaveOccurred())
			dropped, err := graphService.CreateNode(ctx, userID, domain.CreateNodeInput{NodeType: entities.NodeTypeSession, Label: "Cancelled"}, "")
			Expect(err).NotTo(HaveOccurred())
			_, err = graphService.CreateNode(ctx, userID, domain.CreateNodeInput{NodeType: entities.NodeTypeGoal, Label: "Run"}, "")
			Expect(err).NotTo(HaveOccurred())
			Expect(graphService.DeleteNode(ctx, userID, dropped.ID, "")).To(Succeed())

			sessions, err := graphService.ListSessions(ctx, userID)
			Expect(err).NotTo(HaveOccurred())
			Expect(sessions).To(HaveLen(2))
			Expect(sessions[0].ID).To(Equal(first.ID))
			Expect(sessions[1].ID).To(Equal(second.ID))
		})
	})
})
