package events

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Kafka header keys carried by every planner record.
const (
	HeaderEventType     = "event_type"
	HeaderTenantID      = "tenant_id"
	HeaderSchemaSubject = "schema_subject"
)

const (
	magicByte   = 0
	frameHeader = 5
)

// ErrBadFrame reports a record value that is not Confluent-framed.
var ErrBadFrame = errors.New("malformed schema registry frame")

// Frame prefixes payload with the Confluent wire header: a zero magic byte
// and the big-endian schema id.
func Frame(schemaID int, payload []byte) []byte {
	out := make([]byte, frameHeader+len(payload))
	out[0] = magicByte
	binary.BigEndian.PutUint32(out[1:frameHeader], uint32(schemaID))
	copy(out[frameHeader:], payload)
	return out
}

// Unframe splits a Confluent-framed value. The returned payload is a copy.
func Unframe(value []byte) (schemaID int, payload []byte, err error) {
	if len(value) < frameHeader {
		return 0, nil, fmt.Errorf("%w: %d bytes", ErrBadFrame, len(value))
	}
	if value[0] != magicByte {
		return 0, nil, fmt.Errorf("%w: magic byte %d", ErrBadFrame, value[0])
	}
	schemaID = int(binary.BigEndian.Uint32(value[1:frameHeader]))
	return schemaID, append([]byte(nil), value[frameHeader:]...), nil
}
