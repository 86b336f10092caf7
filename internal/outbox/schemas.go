package outbox

import platformevents "example.com/planner/pkg/platform/events"

const activitySnapshotProperties = `
    "activity_id": {"type": "string"},
    "tenant_id": {"type": "string"},
    "user_id": {"type": "string"},
    "title": {"type": "string"},
    "date": {"type": "string", "format": "date"},
    "start_time": {"type": "string", "pattern": "^[0-2][0-9]:[0-5][0-9]$"},
    "end_time": {"type": "string", "pattern": "^[0-2][0-9]:[0-5][0-9]$"},
    "category": {"type": "string", "enum": ["personal", "couple"]},
    "tag": {"type": "string"},
    "with_partner": {"type": "boolean"},
    "lead_time_min": {"type": "integer", "enum": [0, 15, 30, 60, 120, 1440]},
    "version": {"type": "integer"},
    "occurred_at": {"type": "string", "format": "date-time"}`

const activitySnapshotRequired = `["activity_id", "tenant_id", "user_id", "title", "date", "start_time", "end_time", "category", "with_partner", "lead_time_min", "version", "occurred_at"]`

const activityScheduledSchema = `{
  "type": "object",
  "title": "ActivityScheduled",
  "properties": {` + activitySnapshotProperties + `
  },
  "required": ` + activitySnapshotRequired + `,
  "additionalProperties": false
}`

const activityUpdatedSchema = `{
  "type": "object",
  "title": "ActivityUpdated",
  "properties": {` + activitySnapshotProperties + `
  },
  "required": ` + activitySnapshotRequired + `,
  "additionalProperties": false
}`

const activityReviewedSchema = `{
  "type": "object",
  "title": "ActivityReviewed",
  "properties": {
    "activity_id": {"type": "string"},
    "tenant_id": {"type": "string"},
    "user_id": {"type": "string"},
    "date": {"type": "string", "format": "date"},
    "rating": {"type": "integer", "minimum": 1, "maximum": 5},
    "mood": {"type": "string", "enum": ["Happy", "Relaxed", "Excited", "Romantic", "Tired", "Bored"]},
    "version": {"type": "integer"},
    "reviewed_at": {"type": "string", "format": "date-time"}
  },
  "required": ["activity_id", "tenant_id", "user_id", "date", "rating", "version", "reviewed_at"],
  "additionalProperties": false
}`

const activityDeletedSchema = `{
  "type": "object",
  "title": "ActivityDeleted",
  "properties": {
    "activity_id": {"type": "string"},
    "tenant_id": {"type": "string"},
    "user_id": {"type": "string"},
    "date": {"type": "string", "format": "date"},
    "deleted_at": {"type": "string", "format": "date-time"}
  },
  "required": ["activity_id", "tenant_id", "user_id", "date", "deleted_at"],
  "additionalProperties": false
}`

// SchemaCatalogEntry maps event type to schema definition.
type SchemaCatalogEntry struct {
	Schema string
}

var schemaCatalog = map[string]SchemaCatalogEntry{
	platformevents.ActivityScheduledType: {Schema: activityScheduledSchema},
	platformevents.ActivityUpdatedType:   {Schema: activityUpdatedSchema},
	platformevents.ActivityReviewedType:  {Schema: activityReviewedSchema},
	platformevents.ActivityDeletedType:   {Schema: activityDeletedSchema},
}
