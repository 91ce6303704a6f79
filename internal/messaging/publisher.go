package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

// MetadataTopic is the message metadata key carrying the topic an event was published to.
const MetadataTopic = "topic"

// Publish is a function that publishes a typed event.
type Publish[T any] func(ctx context.Context, event *T) error

// NewPublishFunc creates a typed publish function for a specific topic.
func NewPublishFunc[T any](publisher message.Publisher, topic string) Publish[T] {
	return func(ctx context.Context, event *T) error {
		payload, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("marshal %s event: %w", topic, err)
		}

		msg := message.NewMessage(watermill.NewUUID(), payload)
		msg.Metadata.Set(MetadataTopic, topic)
		msg.SetContext(ctx)

		if err := publisher.Publish(topic, msg); err != nil {
			return fmt.Errorf("publish %s event: %w", topic, err)
		}

		return nil
	}
}

// Discard returns a Publish that drops every event.
func Discard[T any]() Publish[T] {
	return func(context.Context, *T) error { return nil }
}

// PublisherGroup manages the underlying publisher lifecycle.
// A group without a publisher hands out Discard functions.
type PublisherGroup struct {
	publisher message.Publisher
}

// NewPublisherGroup creates a new publisher group. publisher may be nil.
func NewPublisherGroup(publisher message.Publisher) *PublisherGroup {
	return &PublisherGroup{publisher: publisher}
}

// Publisher returns the underlying message publisher, or nil when events are disabled.
func (g *PublisherGroup) Publisher() message.Publisher {
	return g.publisher
}

// Enabled reports whether events leave the process.
func (g *PublisherGroup) Enabled() bool {
	return g.publisher != nil
}

// PublishFor returns a typed publish function for topic backed by the group.
func PublishFor[T any](g *PublisherGroup, topic string) Publish[T] {
	if !g.Enabled() {
		return Discard[T]()
	}

	return NewPublishFunc[T](g.publisher, topic)
}

// Shutdown closes the underlying publisher.
func (g *PublisherGroup) Shutdown() error {
	if g.publisher == nil {
		return nil
	}

	return g.publisher.Close()
}
