package calendar

import (
	"testing"

	"cloud.google.com/go/civil"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func ids(activities []Activity) []string {
	out := make([]string, 0, len(activities))
	for _, a := range activities {
		out = append(out, a.ID)
	}
	return out
}

func TestFilterByWindowDayScenario(t *testing.T) {
	d := date(t, "2023-06-15")
	activities := []Activity{
		{ID: "2", Date: d, StartTime: Clock(19, 0), EndTime: Clock(21, 0), Category: CategoryCouple},
		{ID: "1", Date: d, StartTime: Clock(7, 0), EndTime: Clock(8, 0), Category: CategoryPersonal},
	}

	got := FilterByWindow(activities, d, WindowDay)

	require.Equal(t, []string{"1", "2"}, ids(got))
	require.Equal(t, "2", activities[0].ID, "source must not be reordered")

	markers := BuildMarkerMap(activities, d, LightPalette.Resolve)
	keys := []string{}
	for _, m := range markers[d].Dots {
		keys = append(keys, m.Key)
	}
	require.ElementsMatch(t, []string{"personal-1", "couple-2"}, keys)
}

func TestFilterByWindowDayMatchesExactDate(t *testing.T) {
	got := FilterByWindow(demoActivities(t), date(t, "2023-06-15"), WindowDay)
	require.Equal(t, []string{"1", "2", "3"}, ids(got))

	got = FilterByWindow(demoActivities(t), date(t, "2023-06-14"), WindowDay)
	require.NotNil(t, got)
	require.Empty(t, got)
}

func TestFilterByWindowWeekIsSundayStart(t *testing.T) {
	// 2023-06-14 is a Wednesday; its week runs Sunday 06-11 .. Saturday 06-17.
	activities := []Activity{
		{ID: "sat-before", Date: date(t, "2023-06-10"), Category: CategoryPersonal},
		{ID: "sun", Date: date(t, "2023-06-11"), StartTime: Clock(9, 0), EndTime: Clock(10, 0), Category: CategoryPersonal},
		{ID: "wed", Date: date(t, "2023-06-14"), StartTime: Clock(8, 0), EndTime: Clock(9, 0), Category: CategoryCouple},
		{ID: "sat", Date: date(t, "2023-06-17"), StartTime: Clock(10, 0), EndTime: Clock(11, 0), Category: CategoryCouple},
		{ID: "sun-after", Date: date(t, "2023-06-18"), Category: CategoryPersonal},
	}

	got := FilterByWindow(activities, date(t, "2023-06-14"), WindowWeek)

	require.Equal(t, []string{"wed", "sun", "sat"}, ids(got))
}

func TestFilterByWindowWeekCrossesMonthBoundary(t *testing.T) {
	// 2024-01-02 is a Tuesday; the week starts on Sunday 2023-12-31.
	from, to, err := Window(date(t, "2024-01-02"), WindowWeek)
	require.NoError(t, err)
	require.Equal(t, "2023-12-31", from.String())
	require.Equal(t, "2024-01-06", to.String())

	activities := []Activity{
		{ID: "nye", Date: date(t, "2023-12-31"), Category: CategoryCouple},
		{ID: "before", Date: date(t, "2023-12-30"), Category: CategoryCouple},
	}
	require.Equal(t, []string{"nye"}, ids(FilterByWindow(activities, date(t, "2024-01-02"), WindowWeek)))
}

func TestFilterByWindowSundayFocalStartsItsOwnWeek(t *testing.T) {
	from, to, err := Window(date(t, "2023-06-18"), WindowWeek)
	require.NoError(t, err)
	require.Equal(t, "2023-06-18", from.String())
	require.Equal(t, "2023-06-24", to.String())
}

func TestFilterByWindowMonthMatchesMonthAndYear(t *testing.T) {
	activities := append(demoActivities(t),
		Activity{ID: "last-year", Date: date(t, "2022-06-15"), Category: CategoryPersonal},
		Activity{ID: "july", Date: date(t, "2023-07-01"), Category: CategoryPersonal},
	)

	got := FilterByWindow(activities, date(t, "2023-06-30"), WindowMonth)

	require.Equal(t, []string{"1", "4", "5", "6", "2", "3"}, ids(got))
}

func TestFilterByWindowStableOnEqualStartTimes(t *testing.T) {
	d := date(t, "2023-06-15")
	activities := []Activity{
		{ID: "b", Date: d, StartTime: Clock(9, 0), EndTime: Clock(10, 0), Category: CategoryPersonal},
		{ID: "a", Date: d, StartTime: Clock(9, 0), EndTime: Clock(10, 0), Category: CategoryCouple},
		{ID: "c", Date: d, StartTime: Clock(8, 59), EndTime: Clock(9, 59), Category: CategoryCouple},
	}

	require.Equal(t, []string{"c", "b", "a"}, ids(FilterByWindow(activities, d, WindowDay)))
}

func TestFilterByWindowIsIdempotent(t *testing.T) {
	activities := demoActivities(t)
	focal := date(t, "2023-06-16")
	for _, mode := range []WindowMode{WindowDay, WindowWeek, WindowMonth} {
		first := FilterByWindow(activities, focal, mode)
		second := FilterByWindow(activities, focal, mode)
		if diff := cmp.Diff(first, second); diff != "" {
			t.Fatalf("%s results differ (-first +second):\n%s", mode, diff)
		}
	}
}

func TestWindowMonthHandlesDecemberAndLeapYears(t *testing.T) {
	from, to, err := Window(civil.Date{Year: 2023, Month: 12, Day: 9}, WindowMonth)
	require.NoError(t, err)
	require.Equal(t, "2023-12-01", from.String())
	require.Equal(t, "2023-12-31", to.String())

	_, to, err = Window(civil.Date{Year: 2024, Month: 2, Day: 3}, WindowMonth)
	require.NoError(t, err)
	require.Equal(t, "2024-02-29", to.String())
}

func TestParseWindowMode(t *testing.T) {
	mode, err := ParseWindowMode(" Week ")
	require.NoError(t, err)
	require.Equal(t, WindowWeek, mode)

	mode, err = ParseWindowMode("")
	require.NoError(t, err)
	require.Equal(t, WindowDay, mode)

	_, err = ParseWindowMode("year")
	require.Error(t, err)

	_, _, err = Window(date(t, "2023-06-15"), WindowMode("year"))
	require.Error(t, err)
}
