package main

import (
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/charmbracelet/lipgloss"

	"example.com/planner/internal/calendar"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true)
	mutedStyle   = lipgloss.NewStyle().Faint(true)
	cellStyle    = lipgloss.NewStyle().Width(7)
	defaultStyle = lipgloss.NewStyle().Bold(true)
)

const dot = "•"

// renderMonth draws the focal date's month as a Sunday-start grid with one
// colored dot per marker. The focal day is drawn reversed in the palette's
// selection color.
func renderMonth(w io.Writer, focal civil.Date, markers calendar.MarkerMap, palette calendar.Palette) {
	title := fmt.Sprintf("%s %d", focal.Month, focal.Year)
	fmt.Fprintln(w, headerStyle.Render(title))

	header := make([]string, 0, 7)
	for _, name := range []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"} {
		header = append(header, cellStyle.Render(mutedStyle.Render(name)))
	}
	fmt.Fprintln(w, lipgloss.JoinHorizontal(lipgloss.Top, header...))

	selected := lipgloss.NewStyle().Reverse(true).Foreground(lipgloss.Color(palette.Primary))
	cells := calendar.MonthGrid(focal.Year, focal.Month)
	row := make([]string, 0, 7)
	for i, cell := range cells {
		text := ""
		if cell.InMonth {
			date := civil.Date{Year: focal.Year, Month: focal.Month, Day: cell.Day}
			day := fmt.Sprintf("%2d", cell.Day)
			if date == focal {
				day = selected.Render(day)
			}
			text = day + dots(markers[date])
		}
		row = append(row, cellStyle.Render(text))
		if len(row) == 7 || i == len(cells)-1 {
			fmt.Fprintln(w, lipgloss.JoinHorizontal(lipgloss.Top, row...))
			row = row[:0]
		}
	}
}

func dots(day calendar.DayMarks) string {
	if len(day.Dots) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(" ")
	for _, m := range day.Dots {
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(m.Color)).Render(dot))
	}
	return b.String()
}

func renderAgenda(w io.Writer, items []calendar.Activity, reminders map[string]string) {
	if len(items) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("No activities"))
		return
	}
	for _, act := range items {
		when := fmt.Sprintf("%s  %s-%s", act.Date, act.StartTime, act.EndTime)
		title := strings.TrimSpace(act.Emoji + " " + act.Title)
		line := fmt.Sprintf("%s  %s  [%s]", when, headerStyle.Render(title), act.Category)
		if label := reminders[act.ID]; label != "" {
			line += "  " + mutedStyle.Render(label)
		}
		fmt.Fprintln(w, line)
	}
}

func renderLeadTimes(w io.Writer, labels calendar.LeadTimeLabels) {
	fmt.Fprintln(w, headerStyle.Render("Reminder ("+labels.Language().String()+")"))
	for _, opt := range labels.Options() {
		line := fmt.Sprintf("%5d  %s", opt.Minutes, opt.Label)
		if opt.Minutes == calendar.DefaultLeadTime {
			line = defaultStyle.Render(line + "  (default)")
		}
		fmt.Fprintln(w, line)
	}
}
