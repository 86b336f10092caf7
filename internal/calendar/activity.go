// Package calendar derives calendar view models (day markers, windowed
// activity lists, reminder labels) from a snapshot of planned activities.
package calendar

import (
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

// Category groups activities for marker coloring.
type Category string

const (
	CategoryPersonal Category = "personal"
	CategoryCouple   Category = "couple"
)

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	return c == CategoryPersonal || c == CategoryCouple
}

// ParseCategory normalises and validates a category name.
func ParseCategory(raw string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(raw)))
	if !c.Valid() {
		return "", fmt.Errorf("unknown category %q", raw)
	}
	return c, nil
}

// Activity is the aggregator's read-only view of a planned activity.
type Activity struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Date      civil.Date `json:"date"`
	StartTime TimeOfDay  `json:"start_time"`
	EndTime   TimeOfDay  `json:"end_time"`
	Category  Category   `json:"category"`
	Tag       string     `json:"tag"`
	Emoji     string     `json:"emoji"`
	Reviewed  bool       `json:"reviewed,omitempty"`
	Rating    int        `json:"rating,omitempty"`
}

// TimeOfDay is a wall-clock time on an activity's date, rendered as HH:MM.
type TimeOfDay struct {
	civil.Time
}

// Clock builds a TimeOfDay from hour and minute.
func Clock(hour, minute int) TimeOfDay {
	return TimeOfDay{civil.Time{Hour: hour, Minute: minute}}
}

// ParseTimeOfDay accepts "15:04" or "15:04:05".
func ParseTimeOfDay(raw string) (TimeOfDay, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range []string{"15:04", "15:04:05"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return TimeOfDay{civil.TimeOf(t)}, nil
		}
	}
	return TimeOfDay{}, fmt.Errorf("invalid time of day %q", raw)
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Compare returns -1, 0 or +1 depending on whether t is before, equal to or after u.
func (t TimeOfDay) Compare(u TimeOfDay) int {
	a, b := t.nanos(), u.nanos()
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func (t TimeOfDay) nanos() int64 {
	secs := int64(t.Hour)*3600 + int64(t.Minute)*60 + int64(t.Second)
	return secs*int64(time.Second) + int64(t.Nanosecond)
}

// MarshalText implements encoding.TextMarshaler.
func (t TimeOfDay) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *TimeOfDay) UnmarshalText(data []byte) error {
	parsed, err := ParseTimeOfDay(string(data))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// On combines a civil date and time of day into an instant in loc.
func (t TimeOfDay) On(d civil.Date, loc *time.Location) time.Time {
	return civil.DateTime{Date: d, Time: t.Time}.In(loc)
}

// Weekday returns the day of the week for d.
func Weekday(d civil.Date) time.Weekday {
	return d.In(time.UTC).Weekday()
}

// DaysInMonth returns the number of days in the given month.
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
