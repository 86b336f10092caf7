package calendar

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

// WindowMode is the granularity of the activity list around a focal date.
type WindowMode string

const (
	WindowDay   WindowMode = "day"
	WindowWeek  WindowMode = "week"
	WindowMonth WindowMode = "month"
)

// ParseWindowMode validates a window mode name. An empty string selects day.
func ParseWindowMode(raw string) (WindowMode, error) {
	switch mode := WindowMode(strings.ToLower(strings.TrimSpace(raw))); mode {
	case "":
		return WindowDay, nil
	case WindowDay, WindowWeek, WindowMonth:
		return mode, nil
	default:
		return "", fmt.Errorf("unknown window mode %q", raw)
	}
}

// StartOfWeek returns the most recent Sunday at or before d.
func StartOfWeek(d civil.Date) civil.Date {
	return d.AddDays(-int(Weekday(d)))
}

// Window returns the inclusive date range covered by mode around focal.
// Weeks start on Sunday.
func Window(focal civil.Date, mode WindowMode) (from, to civil.Date, err error) {
	switch mode {
	case WindowDay:
		return focal, focal, nil
	case WindowWeek:
		start := StartOfWeek(focal)
		return start, start.AddDays(6), nil
	case WindowMonth:
		first := civil.Date{Year: focal.Year, Month: focal.Month, Day: 1}
		last := civil.DateOf(first.In(time.UTC).AddDate(0, 1, -1))
		return first, last, nil
	default:
		return civil.Date{}, civil.Date{}, fmt.Errorf("unknown window mode %q", mode)
	}
}

// FilterByWindow returns the usable activities that fall inside the window
// implied by focal and mode, stable-sorted by start time. The result is a new,
// non-nil slice; an empty window yields a zero-length slice. An unknown mode
// applies no date restriction.
func (a *Aggregator) FilterByWindow(activities []Activity, focal civil.Date, mode WindowMode) []Activity {
	match := windowMatcher(focal, mode)

	out := make([]Activity, 0, len(activities))
	for _, act := range activities {
		if !a.usable(act) {
			continue
		}
		if match(act.Date) {
			out = append(out, act)
		}
	}

	slices.SortStableFunc(out, func(x, y Activity) int {
		return x.StartTime.Compare(y.StartTime)
	})
	return out
}

func windowMatcher(focal civil.Date, mode WindowMode) func(civil.Date) bool {
	switch mode {
	case WindowDay:
		return func(d civil.Date) bool { return d == focal }
	case WindowWeek:
		from, to, _ := Window(focal, WindowWeek)
		return func(d civil.Date) bool { return !d.Before(from) && !d.After(to) }
	case WindowMonth:
		return func(d civil.Date) bool { return d.Year == focal.Year && d.Month == focal.Month }
	default:
		return func(civil.Date) bool { return true }
	}
}
