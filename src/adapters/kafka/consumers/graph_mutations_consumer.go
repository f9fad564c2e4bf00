package consumers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"coachgraph/src/domain"
	"coachgraph/src/domain/entities"
	"coachgraph/src/infra/kafka"
	"coachgraph/src/services/graph"
)

type MutationCommand string

const (
	CommandCreateNode         MutationCommand = "create_node"
	CommandUpdateNode         MutationCommand = "update_node"
	CommandDeleteNode         MutationCommand = "delete_node"
	CommandCreateEdge         MutationCommand = "create_edge"
	CommandUpdateEdge         MutationCommand = "update_edge"
	CommandDeleteEdge         MutationCommand = "delete_edge"
	CommandUpdateNodeStatus   MutationCommand = "update_node_status"
	CommandUpdateGoalProgress MutationCommand = "update_goal_progress"
)

// KafkaMutationMessage representa o schema da mensagem Kafka enviada pela
// camada de conversação. Only the fields of the command are read.
type KafkaMutationMessage struct {
	Command    MutationCommand         `json:"command"`
	UserID     string                  `json:"user_id"`
	SessionID  string                  `json:"session_id,omitempty"`
	NodeID     string                  `json:"node_id,omitempty"`
	EdgeID     string                  `json:"edge_id,omitempty"`
	Node       *domain.CreateNodeInput `json:"node,omitempty"`
	NodeUpdate *domain.UpdateNodeInput `json:"node_update,omitempty"`
	Edge       *domain.CreateEdgeInput `json:"edge,omitempty"`
	EdgeUpdate *domain.UpdateEdgeInput `json:"edge_update,omitempty"`
	Status     entities.NodeStatus     `json:"status,omitempty"`
	Progress   *float64                `json:"progress,omitempty"`
}

type GraphMutationsConsumer struct {
	logger       *slog.Logger
	graphService *graph.GraphService
}

func NewGraphMutationsConsumer(
	logger *slog.Logger,
	graphService *graph.GraphService,
) *GraphMutationsConsumer {
	return &GraphMutationsConsumer{
		logger:       logger,
		graphService: graphService,
	}
}

func (c *GraphMutationsConsumer) Start(ctx context.Context, kafkaClient *kafka.KafkaClient, topic string) error {
	c.logger.Info("Starting graph mutations consumer", "topic", topic)

	return kafkaClient.Consumer(ctx, c.HandleMessages, topic)
}

// HandleMessages applies the batch in order. Commands rejected by the graph
// (validation, ownership, missing entities, conflicts) are logged and skipped;
// storage failures abort the batch so it is redelivered.
// TODO: accept a client supplied node/edge id so redelivered create commands
// do not insert duplicates.
func (c *GraphMutationsConsumer) HandleMessages(ctx context.Context, messages []kafka.Message) error {
	if len(messages) == 0 {
		return nil
	}

	c.logger.Info("Processing mutations batch", "count", len(messages))

	applied := 0
	for _, msg := range messages {
		var command KafkaMutationMessage
		if err := json.Unmarshal(msg.Value, &command); err != nil {
			c.logger.Error("Skipping malformed mutation message",
				"error", err,
				"key", msg.Key,
				"value", string(msg.Value))
			continue
		}

		if err := c.apply(ctx, command); err != nil {
			if domain.IsTransientStore(err) || ctx.Err() != nil {
				return fmt.Errorf("failed to apply %s for user %s: %w", command.Command, command.UserID, err)
			}
			c.logger.Warn("Mutation rejected",
				"command", command.Command,
				"user_id", command.UserID,
				"key", msg.Key,
				"error", err)
			continue
		}
		applied++
	}

	c.logger.Info("Mutations batch processed", "count", len(messages), "applied", applied)
	return nil
}

func (c *GraphMutationsConsumer) apply(ctx context.Context, command KafkaMutationMessage) error {
	const op = "GraphMutationsConsumer.apply"

	switch command.Command {
	case CommandCreateNode:
		if command.Node == nil {
			return domain.NewValidationError(op, "node is required for %s", command.Command)
		}
		_, err := c.graphService.CreateNode(ctx, command.UserID, *command.Node, command.SessionID)
		return err

	case CommandUpdateNode:
		if command.NodeUpdate == nil {
			return domain.NewValidationError(op, "node_update is required for %s", command.Command)
		}
		_, err := c.graphService.UpdateNode(ctx, command.UserID, command.NodeID, *command.NodeUpdate, command.SessionID)
		return err

	case CommandDeleteNode:
		return c.graphService.DeleteNode(ctx, command.UserID, command.NodeID, command.SessionID)

	case CommandCreateEdge:
		if command.Edge == nil {
			return domain.NewValidationError(op, "edge is required for %s", command.Command)
		}
		_, err := c.graphService.CreateEdge(ctx, command.UserID, *command.Edge, command.SessionID)
		return err

	case CommandUpdateEdge:
		if command.EdgeUpdate == nil {
			return domain.NewValidationError(op, "edge_update is required for %s", command.Command)
		}
		_, err := c.graphService.UpdateEdge(ctx, command.UserID, command.EdgeID, *command.EdgeUpdate, command.SessionID)
		return err

	case CommandDeleteEdge:
		return c.graphService.DeleteEdge(ctx, command.UserID, command.EdgeID, command.SessionID)

	case CommandUpdateNodeStatus:
		_, err := c.graphService.UpdateNodeStatus(ctx, command.UserID, command.NodeID, command.Status, command.SessionID)
		return err

	case CommandUpdateGoalProgress:
		if command.Progress == nil {
			return domain.NewValidationError(op, "progress is required for %s", command.Command)
		}
		_, err := c.graphService.UpdateGoalProgress(ctx, command.UserID, command.NodeID, *command.Progress, command.SessionID)
		return err
	}

	return domain.NewValidationError(op, "unknown command %q", command.Command)
}
