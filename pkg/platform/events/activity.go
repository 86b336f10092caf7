// Package events defines shared cross-service event payloads.
package events

import "time"

// Event types recorded in the outbox.
const (
	ActivityScheduledType = "activity.scheduled"
	ActivityUpdatedType   = "activity.updated"
	ActivityReviewedType  = "activity.reviewed"
	ActivityDeletedType   = "activity.deleted"
)

// Topics.
const (
	ActivityEventsTopic  = "planner_activity_events"
	ActivityReviewsTopic = "planner_activity_reviews"
)

// Route says where an event type is published.
type Route struct {
	Topic         string
	SchemaSubject string
}

// Routes maps event types to their topic and Schema Registry subject.
var Routes = map[string]Route{
	ActivityScheduledType: {Topic: ActivityEventsTopic, SchemaSubject: ActivityEventsTopic + "-activity.scheduled"},
	ActivityUpdatedType:   {Topic: ActivityEventsTopic, SchemaSubject: ActivityEventsTopic + "-activity.updated"},
	ActivityDeletedType:   {Topic: ActivityEventsTopic, SchemaSubject: ActivityEventsTopic + "-activity.deleted"},
	ActivityReviewedType:  {Topic: ActivityReviewsTopic, SchemaSubject: ActivityReviewsTopic + "-value"},
}

// ActivitySnapshot is the full state of a planned activity. Dates are
// YYYY-MM-DD and times HH:MM in the couple's local calendar.
type ActivitySnapshot struct {
	ActivityID  string    `json:"activity_id"`
	TenantID    string    `json:"tenant_id"`
	UserID      string    `json:"user_id"`
	Title       string    `json:"title"`
	Date        string    `json:"date"`
	StartTime   string    `json:"start_time"`
	EndTime     string    `json:"end_time"`
	Category    string    `json:"category"`
	Tag         string    `json:"tag,omitempty"`
	WithPartner bool      `json:"with_partner"`
	LeadTimeMin int       `json:"lead_time_min"`
	Version     int       `json:"version"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// ActivityScheduled is emitted when an activity is added to the calendar.
type ActivityScheduled ActivitySnapshot

// ActivityUpdated is emitted when an activity's details change.
type ActivityUpdated ActivitySnapshot

// ActivityReviewed is emitted when a partner rates a past activity.
type ActivityReviewed struct {
	ActivityID string    `json:"activity_id"`
	TenantID   string    `json:"tenant_id"`
	UserID     string    `json:"user_id"`
	Date       string    `json:"date"`
	Rating     int       `json:"rating"`
	Mood       string    `json:"mood,omitempty"`
	Version    int       `json:"version"`
	ReviewedAt time.Time `json:"reviewed_at"`
}

// ActivityDeleted is emitted when an activity is removed.
type ActivityDeleted struct {
	ActivityID string    `json:"activity_id"`
	TenantID   string    `json:"tenant_id"`
	UserID     string    `json:"user_id"`
	Date       string    `json:"date"`
	DeletedAt  time.Time `json:"deleted_at"`
}

// Envelope holds the fields every planner event carries.
type Envelope struct {
	ActivityID string `json:"activity_id"`
	TenantID   string `json:"tenant_id"`
	UserID     string `json:"user_id"`
	Date       string `json:"date"`
}
