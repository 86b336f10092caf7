package domain

import (
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"

	"example.com/planner/internal/calendar"
)

// Mood captures how an activity felt, recorded with its review.
type Mood string

const (
	MoodHappy    Mood = "Happy"
	MoodRelaxed  Mood = "Relaxed"
	MoodExcited  Mood = "Excited"
	MoodRomantic Mood = "Romantic"
	MoodTired    Mood = "Tired"
	MoodBored    Mood = "Bored"
)

var moods = []Mood{MoodHappy, MoodRelaxed, MoodExcited, MoodRomantic, MoodTired, MoodBored}

// Moods lists the accepted review moods in display order.
func Moods() []Mood {
	return append([]Mood(nil), moods...)
}

// ParseMood matches raw against the known moods, ignoring case.
func ParseMood(raw string) (Mood, error) {
	raw = strings.TrimSpace(raw)
	for _, m := range moods {
		if strings.EqualFold(raw, string(m)) {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: unknown mood %q", ErrInvalidActivity, raw)
}

// ActivityAggregate is the planned activity stored in Postgres and replayed to downstream consumers.
type ActivityAggregate struct {
	ID          string
	TenantID    string // the shared couple space
	UserID      string // the partner who planned it
	Title       string
	Description string
	Location    string
	Date        civil.Date
	StartTime   calendar.TimeOfDay
	EndTime     calendar.TimeOfDay
	Category    calendar.Category
	Tag         string
	Emoji       string
	WithPartner bool
	LeadTimeMin int
	Reviewed    bool
	Rating      int
	Review      string
	Mood        Mood
	Version     int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// View projects the aggregate onto the read model used by the calendar aggregator.
func (a ActivityAggregate) View() calendar.Activity {
	return calendar.Activity{
		ID:        a.ID,
		Title:     a.Title,
		Date:      a.Date,
		StartTime: a.StartTime,
		EndTime:   a.EndTime,
		Category:  a.Category,
		Tag:       a.Tag,
		Emoji:     a.Emoji,
		Reviewed:  a.Reviewed,
		Rating:    a.Rating,
	}
}

// ReminderLabel is the English lead time label shown next to the activity.
func (a ActivityAggregate) ReminderLabel() string {
	return calendar.ResolveLeadTimeLabel(a.LeadTimeMin)
}

// Views projects a slice of aggregates.
func Views(aggs []ActivityAggregate) []calendar.Activity {
	out := make([]calendar.Activity, len(aggs))
	for i, a := range aggs {
		out[i] = a.View()
	}
	return out
}

// ActivityDetails carries the user-editable fields shared by create and update.
type ActivityDetails struct {
	Title       string
	Description string
	Location    string
	Date        civil.Date
	StartTime   calendar.TimeOfDay
	EndTime     calendar.TimeOfDay
	Category    calendar.Category // optional; derived from WithPartner when empty
	Tag         string
	Emoji       string
	WithPartner bool
	LeadTimeMin *int // nil selects calendar.DefaultLeadTime
}

// normalize validates the details and fills derived fields.
func (d ActivityDetails) normalize() (ActivityDetails, error) {
	d.Title = strings.TrimSpace(d.Title)
	if d.Title == "" {
		return d, fmt.Errorf("%w: title is required", ErrInvalidActivity)
	}
	if !d.Date.IsValid() {
		return d, fmt.Errorf("%w: date is invalid", ErrInvalidActivity)
	}
	if d.EndTime.Compare(d.StartTime) < 0 {
		return d, fmt.Errorf("%w: end_time %s is before start_time %s", ErrInvalidActivity, d.EndTime, d.StartTime)
	}

	switch {
	case d.Category == "" && d.WithPartner:
		d.Category = calendar.CategoryCouple
	case d.Category == "":
		d.Category = calendar.CategoryPersonal
	case !d.Category.Valid():
		return d, fmt.Errorf("%w: unknown category %q", ErrInvalidActivity, d.Category)
	}
	if d.WithPartner && d.Category != calendar.CategoryCouple {
		return d, fmt.Errorf("%w: activities with a partner must be in the couple category", ErrInvalidActivity)
	}

	lead := calendar.DefaultLeadTime
	if d.LeadTimeMin != nil && calendar.IsLeadTimeOption(*d.LeadTimeMin) {
		lead = *d.LeadTimeMin
	}
	d.LeadTimeMin = &lead

	d.Tag = strings.TrimSpace(d.Tag)
	return d, nil
}

func (d ActivityDetails) apply(a *ActivityAggregate) {
	a.Title = d.Title
	a.Description = d.Description
	a.Location = d.Location
	a.Date = d.Date
	a.StartTime = d.StartTime
	a.EndTime = d.EndTime
	a.Category = d.Category
	a.Tag = d.Tag
	a.Emoji = d.Emoji
	a.WithPartner = d.WithPartner
	a.LeadTimeMin = *d.LeadTimeMin
}
