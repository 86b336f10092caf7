package calendar

import (
	"slices"

	"cloud.google.com/go/civil"
)

// ColorResolver maps a category to a color token.
type ColorResolver func(Category) string

// Marker is a single dot drawn on a calendar day.
type Marker struct {
	Key           string `json:"key"`
	Color         string `json:"color"`
	SelectedColor string `json:"selected_dot_color"`
}

// DayMarks collects the markers for one calendar day.
type DayMarks struct {
	Dots     []Marker `json:"dots"`
	Selected bool     `json:"selected,omitempty"`
}

// MarkerMap maps calendar days to their markers.
type MarkerMap map[civil.Date]DayMarks

// MarkerKey is the composite key that keeps markers on one day distinct.
func MarkerKey(category Category, activityID string) string {
	return string(category) + "-" + activityID
}

// BuildMarkerMap accumulates one marker per usable activity, appended to its
// date in source order. The focal date is always present and selected, even
// when it carries no markers.
func (a *Aggregator) BuildMarkerMap(activities []Activity, focal civil.Date, colors ColorResolver) MarkerMap {
	if colors == nil {
		colors = LightPalette.Resolve
	}

	out := make(MarkerMap)
	for _, act := range activities {
		if !a.usable(act) {
			continue
		}
		color := colors(act.Category)
		day := out[act.Date]
		day.Dots = append(day.Dots, Marker{
			Key:           MarkerKey(act.Category, act.ID),
			Color:         color,
			SelectedColor: color,
		})
		out[act.Date] = day
	}

	day := out[focal]
	if day.Dots == nil {
		day.Dots = []Marker{}
	}
	day.Selected = true
	out[focal] = day
	return out
}

// Count returns the total number of markers across all days.
func (m MarkerMap) Count() int {
	total := 0
	for _, day := range m {
		total += len(day.Dots)
	}
	return total
}

// Dates returns the days present in the map in ascending order.
func (m MarkerMap) Dates() []civil.Date {
	dates := make([]civil.Date, 0, len(m))
	for d := range m {
		dates = append(dates, d)
	}
	slices.SortFunc(dates, func(a, b civil.Date) int {
		switch {
		case a.Before(b):
			return -1
		case a.After(b):
			return 1
		default:
			return 0
		}
	})
	return dates
}
