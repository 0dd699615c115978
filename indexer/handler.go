// Package indexer turns entity writes into search-index notifications.
//
// It consumes the entity table's DynamoDB stream so the request path never
// blocks on indexing: the store writes, the stream delivers, the handler
// publishes. A failed record is returned to the stream for retry.
package indexer

import (
	"context"
	"fmt"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"
)

// Action describes what happened to an entity.
type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionDeleted Action = "deleted"
)

// Notification is the message published for one entity write.
type Notification struct {
	Action Action `json:"action"`
	Kind   string `json:"kind"`
	ID     string `json:"id"`
	// Path is the entity's encoded key path.
	Path string `json:"path"`
}

// Publisher delivers notifications to the search indexing collaborator.
type Publisher interface {
	Publish(ctx context.Context, n Notification) error
}

// Handler processes DynamoDB stream events for the entity table.
type Handler struct {
	publisher Publisher
	logger    *zap.Logger
}

// NewHandler creates a stream handler.
func NewHandler(p Publisher, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{publisher: p, logger: logger}
}

// HandleStream processes a batch of stream records. Designed to be used as an
// AWS Lambda handler. The first failing record aborts the batch so the stream
// redelivers it.
func (h *Handler) HandleStream(ctx context.Context, event events.DynamoDBEvent) error {
	for _, record := range event.Records {
		if err := h.processRecord(ctx, record); err != nil {
			h.logger.Error("failed to process stream record",
				zap.String("event_id", record.EventID),
				zap.Error(err),
			)
			return err // will retry, eventually DLQ
		}
	}
	return nil
}

func (h *Handler) processRecord(ctx context.Context, record events.DynamoDBEventRecord) error {
	var action Action
	image := record.Change.NewImage
	switch record.EventName {
	case "INSERT":
		action = ActionCreated
	case "MODIFY":
		action = ActionUpdated
	case "REMOVE":
		action = ActionDeleted
		image = record.Change.OldImage
	default:
		return nil
	}

	n := Notification{
		Action: action,
		Kind:   stringAttr(image, "kind"),
		ID:     stringAttr(image, "id"),
		Path:   stringAttr(image, "sk"),
	}
	if n.Path == "" {
		// Not an entity record; nothing to index.
		return nil
	}

	if err := h.publisher.Publish(ctx, n); err != nil {
		return fmt.Errorf("publish %s %s: %w", n.Action, n.Path, err)
	}

	h.logger.Info("published index notification",
		zap.String("action", string(n.Action)),
		zap.String("kind", n.Kind),
		zap.String("path", n.Path),
	)
	return nil
}

// stringAttr extracts a string attribute from a stream image.
func stringAttr(image map[string]events.DynamoDBAttributeValue, key string) string {
	if v, ok := image[key]; ok && v.DataType() == events.DataTypeString {
		return v.String()
	}
	return ""
}
