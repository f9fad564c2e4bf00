package events_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"coachgraph/src/domain/entities"
	"coachgraph/src/infra/kafka"
	"coachgraph/src/services/events"
	"coachgraph/src/test_artefacts/stubs"
)

type capturingProducer struct {
	topic    string
	messages []kafka.Message
	err      error
}

func (p *capturingProducer) Producer(messages []kafka.Message, topic string) error {
	p.topic = topic
	p.messages = append(p.messages, messages...)
	return p.err
}

var _ = Describe("DomainEventPublisher", func() {
	var (
		producer  *capturingProducer
		publisher *events.DomainEventPublisher
		ctx       context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		producer = &capturingProducer{}
		publisher = events.NewDomainEventPublisher(slog.New(slog.NewTextHandler(io.Discard, nil)), producer, "graph-events")
	})

	It("keys messages by user and describes them in headers", func() {
		node := stubs.NewNodeStub().Get()
		event := stubs.NewEventStub().ForNode(node, entities.EventStatusChanged).Get()
		event.Metadata = entities.Properties{"old_status": "draft_verbal", "new_status": "curated"}

		Expect(publisher.Publish(ctx, []entities.Event{event})).To(Succeed())

		Expect(producer.topic).To(Equal("graph-events"))
		Expect(producer.messages).To(HaveLen(1))
		message := producer.messages[0]
		Expect(message.Key).To(Equal(node.UserID))
		Expect(message.Headers).To(HaveKeyWithValue("event_type", "status_changed"))
		Expect(message.Headers).To(HaveKeyWithValue("node_id", node.ID))
		Expect(message.Headers).To(HaveKeyWithValue("new_status", "curated"))
		Expect(message.Headers).To(HaveKeyWithValue("source_service", "coachgraph"))
		Expect(message.Headers).NotTo(HaveKey("edge_id"))

		var decoded entities.Event
		Expect(json.Unmarshal(message.Value, &decoded)).To(Succeed())
		Expect(decoded.ID).To(Equal(event.ID))
	})

	It("lists changed fields in a header", func() {
		node := stubs.NewNodeStub().Get()
		event := stubs.NewEventStub().ForNode(node, entities.EventNodeUpdated).Get()
		event.Metadata = entities.Properties{"changed_fields": []any{"label", "properties"}}

		Expect(publisher.Publish(ctx, []entities.Event{event})).To(Succeed())
		Expect(producer.messages[0].Headers).To(HaveKeyWithValue("fields_changed", "label,properties"))
	})

	It("does nothing for an empty batch", func() {
		Expect(publisher.Publish(ctx, nil)).To(Succeed())
		Expect(producer.messages).To(BeEmpty())
	})

	It("wraps producer failures", func() {
		producer.err = errors.New("leader not available")

		err := publisher.Publish(ctx, []entities.Event{stubs.NewEventStub().Get()})
		Expect(err).To(MatchError(ContainSubstring("graph-events")))
		Expect(errors.Is(err, producer.err)).To(BeTrue())
	})
})
