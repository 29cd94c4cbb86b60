// Package pubsub fans session progress out to Server-Sent Events clients.
package pubsub

import (
	"context"
	"encoding/json"
)

// Event represents a pub/sub event
type Event struct {
	Topic   string          `json:"topic"`   // e.g. "session/<id>"
	Type    string          `json:"type"`    // e.g. "started", "progress", "ended"
	Data    json.RawMessage `json:"data"`    // Event payload
	Version int             `json:"version"` // Per-topic sequence number
}

// Subscription represents a client subscription to a topic
type Subscription interface {
	Topic() string

	// Events returns a channel for receiving events. It is closed when the
	// topic is dropped or the publisher shuts down.
	Events() <-chan Event

	Close() error
}

// Publisher manages pub/sub subscriptions and event publishing
type Publisher interface {
	// Subscribe creates a new subscription to a topic
	// Context cancellation will close the subscription
	Subscribe(ctx context.Context, topic string) (Subscription, error)

	// Publish sends an event to all subscribers of a topic
	Publish(topic string, eventType string, data any) error

	// Drop forgets a topic and ends all of its subscriptions.
	Drop(topic string)

	// Close shuts down the publisher and all subscriptions
	Close() error
}

// SessionTopic is the topic carrying progress of one collection session.
func SessionTopic(id string) string {
	return "session/" + id
}
