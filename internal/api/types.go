package api

import (
	"time"

	"cloud.google.com/go/civil"

	"example.com/planner/internal/calendar"
	"example.com/planner/internal/domain"
)

// ActivityRequest is the payload for POST /v1/activities and PUT /v1/activities/{id}.
type ActivityRequest struct {
	UserID      string             `json:"user_id,omitempty"`
	Title       string             `json:"title"`
	Description string             `json:"description,omitempty"`
	Location    string             `json:"location,omitempty"`
	Date        civil.Date         `json:"date"`
	StartTime   calendar.TimeOfDay `json:"start_time"`
	EndTime     calendar.TimeOfDay `json:"end_time"`
	Category    calendar.Category  `json:"category,omitempty"`
	Tag         string             `json:"tag,omitempty"`
	Emoji       string             `json:"emoji,omitempty"`
	WithPartner bool               `json:"with_partner"`
	LeadTimeMin *int               `json:"lead_time_min,omitempty"`
	// Version is the version the client last saw; updates only.
	Version int `json:"version,omitempty"`
}

func (r ActivityRequest) details() domain.ActivityDetails {
	return domain.ActivityDetails{
		Title:       r.Title,
		Description: r.Description,
		Location:    r.Location,
		Date:        r.Date,
		StartTime:   r.StartTime,
		EndTime:     r.EndTime,
		Category:    r.Category,
		Tag:         r.Tag,
		Emoji:       r.Emoji,
		WithPartner: r.WithPartner,
		LeadTimeMin: r.LeadTimeMin,
	}
}

// ReviewRequest is the payload for POST /v1/activities/{id}/review.
type ReviewRequest struct {
	Rating int    `json:"rating"`
	Review string `json:"review,omitempty"`
	Mood   string `json:"mood,omitempty"`
}

// CreateActivityResponse describes the response body for create.
type CreateActivityResponse struct {
	Activity ActivityView `json:"activity"`
	Replay   bool         `json:"idempotent_replay"`
}

// ActivityView exposes full details about an activity.
type ActivityView struct {
	ActivityID    string             `json:"activity_id"`
	TenantID      string             `json:"tenant_id"`
	UserID        string             `json:"user_id"`
	Title         string             `json:"title"`
	Description   string             `json:"description,omitempty"`
	Location      string             `json:"location,omitempty"`
	Date          civil.Date         `json:"date"`
	StartTime     calendar.TimeOfDay `json:"start_time"`
	EndTime       calendar.TimeOfDay `json:"end_time"`
	Category      calendar.Category  `json:"category"`
	Tag           string             `json:"tag,omitempty"`
	Emoji         string             `json:"emoji,omitempty"`
	WithPartner   bool               `json:"with_partner"`
	LeadTimeMin   int                `json:"lead_time_min"`
	ReminderLabel string             `json:"reminder_label"`
	Reviewed      bool               `json:"reviewed"`
	Rating        int                `json:"rating,omitempty"`
	Review        string             `json:"review,omitempty"`
	Mood          domain.Mood        `json:"mood,omitempty"`
	Version       int                `json:"version"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

// ListActivitiesResponse packages list results.
type ListActivitiesResponse struct {
	Items      []ActivityView `json:"items"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

// GridResponse is a Sunday-start month grid.
type GridResponse struct {
	Year     int                 `json:"year"`
	Month    int                 `json:"month"`
	Weekdays []string            `json:"weekdays"`
	Cells    []calendar.GridCell `json:"cells"`
}

// LeadTimesResponse lists the reminder lead times in one language.
type LeadTimesResponse struct {
	Language string                    `json:"language"`
	Default  int                       `json:"default"`
	Options  []calendar.LeadTimeOption `json:"options"`
}

func toActivityView(agg domain.ActivityAggregate, labels calendar.LeadTimeLabels) ActivityView {
	return ActivityView{
		ActivityID:    agg.ID,
		TenantID:      agg.TenantID,
		UserID:        agg.UserID,
		Title:         agg.Title,
		Description:   agg.Description,
		Location:      agg.Location,
		Date:          agg.Date,
		StartTime:     agg.StartTime,
		EndTime:       agg.EndTime,
		Category:      agg.Category,
		Tag:           agg.Tag,
		Emoji:         agg.Emoji,
		WithPartner:   agg.WithPartner,
		LeadTimeMin:   agg.LeadTimeMin,
		ReminderLabel: labels.Resolve(agg.LeadTimeMin),
		Reviewed:      agg.Reviewed,
		Rating:        agg.Rating,
		Review:        agg.Review,
		Mood:          agg.Mood,
		Version:       agg.Version,
		CreatedAt:     agg.CreatedAt,
		UpdatedAt:     agg.UpdatedAt,
	}
}
