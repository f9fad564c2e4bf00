package event_log_test

import (
	"context"
	"encoding/json"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"coachgraph/src/domain"
	"coachgraph/src/domain/entities"
	"coachgraph/src/helper/clock"
	"coachgraph/src/repositories/memory"
	"coachgraph/src/services/event_log"
	"coachgraph/src/services/graph"
)

var _ = Describe("EventLogService", func() {
	var (
		ctx             context.Context
		store           *memory.Store
		fakeClock       *clock.Fake
		graphService    *graph.GraphService
		eventLogService *event_log.EventLogService
		userID          string
		t0              time.Time
	)

	BeforeEach(func() {
		ctx = context.Background()
		store = memory.NewStore()
		t0 = time.Date(2025, 5, 12, 8, 0, 0, 0, time.UTC)
		fakeClock = clock.NewFake(t0)
		graphService = graph.NewGraphService(discardLogger(), store, store, nil, fakeClock)
		eventLogService = event_log.NewEventLogService(discardLogger(), store, store, store, nil, fakeClock)
		userID = "user-ana"
	})

	Context("RecordEvent", func() {
		It("records a session marker without node or edge", func() {
			sessionID := "session-42"
			id, err := eventLogService.RecordEvent(ctx, userID, entities.EventSessionStarted, nil, domain.EventOptions{
				SessionID: &sessionID,
				Metadata:  entities.Properties{"channel": "voice"},
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(id).NotTo(BeEmpty())

			events, _ := eventLogService.GetTimeline(ctx, userID, domain.TimelineFilter{})
			Expect(events).To(HaveLen(1))
			Expect(events[0].ID).To(Equal(id))
			Expect(events[0].CreatedAt).To(Equal(t0))
			Expect(string(events[0].NewState)).To(Equal("{}"))
			Expect(events[0].Metadata).To(HaveKeyWithValue("channel", "voice"))
		})

		DescribeTable("rejects malformed events",
			func(user string, eventType entities.EventType, opts domain.EventOptions) {
				_, err := eventLogService.RecordEvent(ctx, user, eventType, json.RawMessage(`{}`), opts)
				Expect(domain.IsValidation(err)).To(BeTrue())
			},
			Entry("unknown type", "user-ana", entities.EventType("node_exploded"), domain.EventOptions{}),
			Entry("node event without node id", "user-ana", entities.EventNodeUpdated, domain.EventOptions{}),
			Entry("edge event without edge id", "user-ana", entities.EventEdgeUpdated, domain.EventOptions{}),
			Entry("missing user", "", entities.EventSessionEnded, domain.EventOptions{}),
		)

		It("refuses to attach an event to another user's node", func() {
			node, err := graphService.CreateNode(ctx, "user-bruno", domain.CreateNodeInput{NodeType: entities.NodeTypeGoal, Label: "Learn piano"}, "")
			Expect(err).NotTo(HaveOccurred())

			_, err = eventLogService.RecordEvent(ctx, userID, entities.EventNodeUpdated, node.State(), domain.EventOptions{NodeID: &node.ID})
			Expect(domain.IsAuthorization(err)).To(BeTrue())
		})

		It("refuses an event about a node that does not exist", func() {
			missing := "00000000-0000-0000-0000-000000000000"
			_, err := eventLogService.RecordEvent(ctx, userID, entities.EventNodeUpdated, nil, domain.EventOptions{NodeID: &missing})
			Expect(domain.IsNotFound(err)).To(BeTrue())
		})
	})

	Context("GetTimeline", func() {
		BeforeEach(func() {
			for i := 0; i < 5; i++ {
				_, err := eventLogService.RecordEvent(ctx, userID, entities.EventSessionStarted, nil, domain.EventOptions{})
				Expect(err).NotTo(HaveOccurred())
				fakeClock.Advance(time.Hour)
			}
		})

		It("returns events newest first", func() {
			events, err := eventLogService.GetTimeline(ctx, userID, domain.TimelineFilter{})
			Expect(err).NotTo(HaveOccurred())
			Expect(events).To(HaveLen(5))
			for i := 1; i < len(events); i++ {
				Expect(events[i-1].CreatedAt).To(BeTemporally(">", events[i].CreatedAt))
			}
			Expect(events[0].CreatedAt).To(Equal(t0.Add(4 * time.Hour)))
		})

		It("applies the limit and the date bounds", func() {
			limited, err := eventLogService.GetTimeline(ctx, userID, domain.TimelineFilter{Limit: 2})
			Expect(err).NotTo(HaveOccurred())
			Expect(limited).To(HaveLen(2))

			start := t0.Add(time.Hour)
			end := t0.Add(3 * time.Hour)
			bounded, err := eventLogService.GetTimeline(ctx, userID, domain.TimelineFilter{StartDate: &start, EndDate: &end})
			Expect(err).NotTo(HaveOccurred())
			Expect(bounded).To(HaveLen(3))
		})

		It("rejects an inverted range", func() {
			start := t0.Add(time.Hour)
			end := t0
			_, err := eventLogService.GetTimeline(ctx, userID, domain.TimelineFilter{StartDate: &start, EndDate: &end})
			Expect(domain.IsValidation(err)).To(BeTrue())
		})

		It("does not leak other users' events", func() {
			events, err := eventLogService.GetTimeline(ctx, "user-bruno", domain.TimelineFilter{})
			Expect(err).NotTo(HaveOccurred())
			Expect(events).To(BeEmpty())
		})
	})

	Context("GetNodeEvolution", func() {
		It("lists the node history oldest first, including after deletion", func() {
			node, err := graphService.CreateNode(ctx, userID, domain.CreateNodeInput{NodeType: entities.NodeTypeGoal, Label: "Run a 5K"}, "")
			Expect(err).NotTo(HaveOccurred())
			fakeClock.Advance(time.Minute)
			_, err = graphService.UpdateNodeStatus(ctx, userID, node.ID, entities.NodeStatusCurated, "")
			Expect(err).NotTo(HaveOccurred())
			fakeClock.Advance(time.Minute)
			Expect(graphService.DeleteNode(ctx, userID, node.ID, "")).To(Succeed())

			events, err := eventLogService.GetNodeEvolution(ctx, userID, node.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(events).To(HaveLen(3))
			Expect(events[0].EventType).To(Equal(entities.EventNodeCreated))
			Expect(events[1].EventType).To(Equal(entities.EventStatusChanged))
			Expect(events[1].Metadata).To(HaveKeyWithValue("old_status", "draft_verbal"))
			Expect(events[1].Metadata).To(HaveKeyWithValue("new_status", "curated"))
			Expect(events[2].EventType).To(Equal(entities.EventNodeDeleted))
		})

		It("hides nodes of other users", func() {
			node, err := graphService.CreateNode(ctx, "user-bruno", domain.CreateNodeInput{NodeType: entities.NodeTypeGoal, Label: "Learn piano"}, "")
			Expect(err).NotTo(HaveOccurred())

			_, err = eventLogService.GetNodeEvolution(ctx, userID, node.ID)
			Expect(domain.IsNotFound(err)).To(BeTrue())
		})

		It("returns not found for an unknown node", func() {
			_, err := eventLogService.GetNodeEvolution(ctx, userID, "00000000-0000-0000-0000-000000000000")
			Expect(domain.IsNotFound(err)).To(BeTrue())
		})
	})
})
