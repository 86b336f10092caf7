package consumer

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/segmentio/kafka-go"

	platformevents "example.com/planner/pkg/platform/events"
)

// ErrMalformed marks records that can never be handled and are skipped.
var ErrMalformed = errors.New("malformed planner record")

func decode(record kafka.Message) (Message, error) {
	schemaID, payload, err := platformevents.Unframe(record.Value)
	if err != nil {
		return Message{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	headers := make(map[string]string, len(record.Headers))
	for _, h := range record.Headers {
		headers[h.Key] = string(h.Value)
	}
	eventType := headers[platformevents.HeaderEventType]
	if eventType == "" {
		return Message{}, fmt.Errorf("%w: missing %s header", ErrMalformed, platformevents.HeaderEventType)
	}
	if !json.Valid(payload) {
		return Message{}, fmt.Errorf("%w: %s payload is not JSON", ErrMalformed, eventType)
	}

	return Message{
		Topic:         record.Topic,
		Partition:     record.Partition,
		Offset:        record.Offset,
		Timestamp:     record.Time,
		EventType:     eventType,
		TenantID:      headers[platformevents.HeaderTenantID],
		SchemaSubject: headers[platformevents.HeaderSchemaSubject],
		SchemaID:      schemaID,
		Payload:       payload,
	}, nil
}
