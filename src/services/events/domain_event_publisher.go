package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"coachgraph/src/domain/entities"
	"coachgraph/src/infra/kafka"
)

// messageProducer is satisfied by *kafka.KafkaClient.
type messageProducer interface {
	Producer(messages []kafka.Message, topic string) error
}

// DomainEventPublisher sends committed graph events to Kafka, keyed by user so
// that one user's events stay ordered within a partition.
type DomainEventPublisher struct {
	logger   *slog.Logger
	producer messageProducer
	topic    string
}

func NewDomainEventPublisher(
	logger *slog.Logger,
	producer messageProducer,
	topic string,
) *DomainEventPublisher {
	return &DomainEventPublisher{
		logger:   logger,
		producer: producer,
		topic:    topic,
	}
}

// Publish sends a batch of events. Events that fail to serialize are skipped.
func (p *DomainEventPublisher) Publish(ctx context.Context, events []entities.Event) error {
	if len(events) == 0 {
		return nil
	}

	p.logger.Debug("Publishing graph events batch", "count", len(events))

	kafkaMessages := make([]kafka.Message, 0, len(events))
	for _, event := range events {
		eventBytes, err := json.Marshal(event)
		if err != nil {
			p.logger.Error("Failed to marshal graph event",
				"error", err,
				"event_id", event.ID,
				"user_id", event.UserID)
			continue
		}

		kafkaMessages = append(kafkaMessages, kafka.Message{
			Key:     event.UserID,
			Value:   eventBytes,
			Headers: p.createEventHeaders(event),
		})
	}

	if len(kafkaMessages) == 0 {
		return nil
	}

	if err := p.producer.Producer(kafkaMessages, p.topic); err != nil {
		p.logger.Error("Failed to publish graph events to Kafka",
			"error", err,
			"topic", p.topic,
			"events_count", len(kafkaMessages))
		return fmt.Errorf("failed to publish graph events to topic %s: %w", p.topic, err)
	}

	p.logger.Info("Successfully published graph events",
		"topic", p.topic,
		"events_count", len(kafkaMessages))

	return nil
}

// createEventHeaders lets consumers filter without decoding the payload.
func (p *DomainEventPublisher) createEventHeaders(event entities.Event) map[string]string {
	headers := map[string]string{
		"event_type":     string(event.EventType),
		"source_service": "coachgraph",
		"schema_version": "v1",
		"event_id":       event.ID,
		"user_id":        event.UserID,
	}

	if event.NodeID != nil {
		headers["node_id"] = *event.NodeID
	}
	if event.EdgeID != nil {
		headers["edge_id"] = *event.EdgeID
	}
	if event.SessionID != nil {
		headers["session_id"] = *event.SessionID
	}

	if fields := changedFields(event.Metadata); len(fields) > 0 {
		headers["fields_changed"] = strings.Join(fields, ",")
	}
	if newStatus, ok := event.Metadata["new_status"]; ok {
		headers["new_status"] = fmt.Sprintf("%v", newStatus)
	}

	return headers
}

// changedFields accepts both []string (fresh events) and []any (decoded ones).
func changedFields(metadata entities.Properties) []string {
	switch fields := metadata["changed_fields"].(type) {
	case []string:
		return fields
	case []any:
		out := make([]string, 0, len(fields))
		for _, f := range fields {
			out = append(out, fmt.Sprintf("%v", f))
		}
		return out
	}
	return nil
}
