// Package consumer reads planner events from Kafka and hands them to handlers.
package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	platformevents "example.com/planner/pkg/platform/events"
)

// Message is a planner event decoded from a Kafka record.
type Message struct {
	Topic         string
	Partition     int
	Offset        int64
	Timestamp     time.Time
	EventType     string
	TenantID      string
	SchemaSubject string
	SchemaID      int
	Payload       json.RawMessage
}

// Envelope decodes the fields shared by every planner event.
func (m Message) Envelope() (platformevents.Envelope, error) {
	var env platformevents.Envelope
	if err := json.Unmarshal(m.Payload, &env); err != nil {
		return env, fmt.Errorf("decode %s envelope: %w", m.EventType, err)
	}
	return env, nil
}

// Handler receives decoded messages.
type Handler interface {
	Handle(context.Context, Message) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(context.Context, Message) error

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, msg Message) error { return f(ctx, msg) }

// Chain runs handlers in order and stops at the first error.
type Chain []Handler

// Handle implements Handler.
func (c Chain) Handle(ctx context.Context, msg Message) error {
	for _, h := range c {
		if err := h.Handle(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}
