package calendar

import (
	"time"

	"cloud.google.com/go/civil"
)

// GridCell is one slot of a Sunday-start month grid. Leading cells before the
// first of the month have Day == 0 and InMonth == false.
type GridCell struct {
	Day     int  `json:"day"`
	InMonth bool `json:"in_month"`
}

// MonthGrid lays out a month as a Sunday-start grid, padding the first week
// with blank cells.
func MonthGrid(year int, month time.Month) []GridCell {
	first := civil.Date{Year: year, Month: month, Day: 1}
	lead := int(Weekday(first))
	days := DaysInMonth(year, month)

	cells := make([]GridCell, 0, lead+days)
	for i := 0; i < lead; i++ {
		cells = append(cells, GridCell{})
	}
	for d := 1; d <= days; d++ {
		cells = append(cells, GridCell{Day: d, InMonth: true})
	}
	return cells
}
