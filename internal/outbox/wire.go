package outbox

import (
	"time"

	"github.com/segmentio/kafka-go"

	platformevents "example.com/planner/pkg/platform/events"
)

// buildRecord frames msg for Kafka. The key is the couple-and-partner
// partition key; consumers route on the headers.
func buildRecord(msg Message, schemaID int, at time.Time) kafka.Message {
	return kafka.Message{
		Key:   []byte(msg.PartitionKey),
		Value: platformevents.Frame(schemaID, msg.Payload),
		Time:  at,
		Headers: []kafka.Header{
			{Key: platformevents.HeaderEventType, Value: []byte(msg.EventType)},
			{Key: platformevents.HeaderTenantID, Value: []byte(msg.TenantID)},
			{Key: platformevents.HeaderSchemaSubject, Value: []byte(msg.SchemaSubject)},
		},
	}
}
