package observability

import (
	"context"
	"log"
)

// Publisher is satisfied by the rabbitmq package.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
}

// EventEnvelope wraps operational events published to the message broker.
type EventEnvelope struct {
	EventType string `json:"event_type"`
	EventName string `json:"event_name"`
	Payload   any    `json:"payload"`
}

var defaultPublisher Publisher

// SetPublisher installs the process-wide event publisher.
func SetPublisher(publisher Publisher) {
	defaultPublisher = publisher
}

// PublishEvent sends an operational event through the configured publisher.
// A missing publisher is not an error; publish failures are counted and
// logged but never propagate into request handling.
func PublishEvent(ctx context.Context, routingKey string, envelope EventEnvelope) {
	if defaultPublisher == nil {
		return
	}
	if err := defaultPublisher.Publish(ctx, routingKey, envelope); err != nil {
		IncAMQPPublishError()
		log.Printf("event publish failed routing_key=%s: %v", routingKey, err)
	}
}
