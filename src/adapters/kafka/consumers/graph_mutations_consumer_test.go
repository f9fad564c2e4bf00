package consumers_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"coachgraph/src/adapters/kafka/consumers"
	"coachgraph/src/domain"
	"coachgraph/src/domain/entities"
	"coachgraph/src/helper/clock"
	"coachgraph/src/infra/kafka"
	"coachgraph/src/repositories/memory"
	"coachgraph/src/services/graph"
)

func toMessage(command consumers.KafkaMutationMessage) kafka.Message {
	raw, err := json.Marshal(command)
	Expect(err).NotTo(HaveOccurred())
	return kafka.Message{Key: command.UserID, Value: raw}
}

var _ = Describe("GraphMutationsConsumer", func() {
	var (
		ctx      context.Context
		store    *memory.Store
		consumer *consumers.GraphMutationsConsumer
	)

	BeforeEach(func() {
		ctx = context.Background()
		store = memory.NewStore()
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		fakeClock := clock.NewFake(time.Date(2025, 8, 4, 10, 0, 0, 0, time.UTC))
		consumer = consumers.NewGraphMutationsConsumer(logger, graph.NewGraphService(logger, store, store, nil, fakeClock))
	})

	It("applies the commands of a batch in order", func() {
		err := consumer.HandleMessages(ctx, []kafka.Message{
			toMessage(consumers.KafkaMutationMessage{
				Command:   consumers.CommandCreateNode,
				UserID:    "user-ana",
				SessionID: "session-7",
				Node:      &domain.CreateNodeInput{NodeType: entities.NodeTypeGoal, Label: "Run a 5K"},
			}),
			toMessage(consumers.KafkaMutationMessage{
				Command: consumers.CommandCreateNode,
				UserID:  "user-ana",
				Node:    &domain.CreateNodeInput{NodeType: entities.NodeTypeSkill, Label: "Pacing"},
			}),
		})
		Expect(err).NotTo(HaveOccurred())

		nodes, _ := store.ListNodes(ctx, "user-ana")
		Expect(nodes).To(HaveLen(2))

		progress := 40.0
		err = consumer.HandleMessages(ctx, []kafka.Message{
			toMessage(consumers.KafkaMutationMessage{
				Command: consumers.CommandUpdateNodeStatus,
				UserID:  "user-ana",
				NodeID:  nodes[0].ID,
				Status:  entities.NodeStatusCurated,
			}),
			toMessage(consumers.KafkaMutationMessage{
				Command:  consumers.CommandUpdateGoalProgress,
				UserID:   "user-ana",
				NodeID:   goalID(nodes),
				Progress: &progress,
			}),
		})
		Expect(err).NotTo(HaveOccurred())

		events, _ := store.ListEvents(ctx, "user-ana", domain.TimelineFilter{})
		Expect(events).To(HaveLen(4))
	})

	It("skips malformed and rejected commands without failing the batch", func() {
		err := consumer.HandleMessages(ctx, []kafka.Message{
			{Key: "user-ana", Value: []byte("not json")},
			toMessage(consumers.KafkaMutationMessage{Command: "rename_everything", UserID: "user-ana"}),
			toMessage(consumers.KafkaMutationMessage{Command: consumers.CommandCreateNode, UserID: "user-ana"}),
			toMessage(consumers.KafkaMutationMessage{Command: consumers.CommandDeleteNode, UserID: "user-ana", NodeID: "missing"}),
			toMessage(consumers.KafkaMutationMessage{
				Command: consumers.CommandCreateNode,
				UserID:  "user-ana",
				Node:    &domain.CreateNodeInput{NodeType: entities.NodeTypeInsight, Label: "Mornings work best"},
			}),
		})
		Expect(err).NotTo(HaveOccurred())

		nodes, _ := store.ListNodes(ctx, "user-ana")
		Expect(nodes).To(HaveLen(1))
	})

	It("returns storage failures so the batch is redelivered", func() {
		store.SetFailure(domain.NewTransientStoreError("memory", errors.New("connection reset")))

		err := consumer.HandleMessages(ctx, []kafka.Message{
			toMessage(consumers.KafkaMutationMessage{
				Command: consumers.CommandCreateNode,
				UserID:  "user-ana",
				Node:    &domain.CreateNodeInput{NodeType: entities.NodeTypeGoal, Label: "Run"},
			}),
		})
		Expect(domain.IsTransientStore(err)).To(BeTrue())
	})
})

func goalID(nodes []entities.Node) string {
	for _, n := range nodes {
		if n.NodeType == entities.NodeTypeGoal {
			return n.ID
		}
	}
	return ""
}
