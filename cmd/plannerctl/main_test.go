package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"example.com/planner/internal/calendar"
	authlib "example.com/planner/pkg/platform/auth"
)

const sampleYAML = `activities:
  - id: jog
    title: Morning Jog
    user: alex
    date: 2023-06-15
    start: "07:00"
    end: "08:00"
    category: personal
    emoji: "🏃"
  - id: dinner
    title: Dinner Date
    user: alex
    date: 2023-06-15
    start: "19:00"
    end: "21:00"
    category: couple
    lead_time: 60
  - id: movie
    title: Movie Night
    user: sam
    date: 2023-06-15
    start: "06:30"
    end: "08:30"
    category: couple
    lead_time: 45
  - id: gym
    title: Gym Session
    user: sam
    date: 2023-06-18
    start: "18:00"
    end: "19:30"
  - id: broken
    title: Mystery
    date: someday
    start: "10:00"
  - id: hobby
    title: Pottery
    date: 2023-06-16
    start: "10:00"
    category: hobby
`

func writeSample(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "activities.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, string) {
	t.Helper()
	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	require.NoError(t, cmd.Execute())
	return stdout.String(), stderr.String()
}

func TestLoadActivities(t *testing.T) {
	entries, err := loadActivities(strings.NewReader(sampleYAML), zerolog.Nop())
	require.NoError(t, err)
	require.Len(t, entries, 6)

	require.Equal(t, "07:00", entries[0].StartTime.String())
	require.Equal(t, calendar.DefaultLeadTime, entries[0].LeadTime)
	require.Equal(t, 60, entries[1].LeadTime)
	require.Equal(t, calendar.CategoryPersonal, entries[3].Category, "category defaults to personal")
	require.False(t, entries[4].Date.IsValid())

	require.Len(t, activitiesOf(entries, "sam"), 2)

	empty, err := loadActivities(strings.NewReader(""), zerolog.Nop())
	require.NoError(t, err)
	require.Empty(t, empty)

	_, err = loadActivities(strings.NewReader("activities: [1, 2"), zerolog.Nop())
	require.Error(t, err)
}

func TestListDayOrdersByStartAndLabelsReminders(t *testing.T) {
	out, _ := run(t, "list", "--file", writeSample(t), "--date", "2023-06-15", "--lang", "en")

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	require.Contains(t, lines[0], "Movie Night")
	require.Contains(t, lines[0], "At time of event", "unknown lead time falls back to the first option")
	require.Contains(t, lines[1], "Morning Jog")
	require.Contains(t, lines[1], "30 minutes before")
	require.Contains(t, lines[2], "Dinner Date")
	require.Contains(t, lines[2], "1 hour before")
}

func TestListWeekReportsSkippedRecords(t *testing.T) {
	out, stderr := run(t, "list", "--file", writeSample(t), "--date", "2023-06-15", "--mode", "week", "--lang", "es")

	require.Contains(t, out, "30 minutos antes")
	require.NotContains(t, out, "Gym Session", "weeks start on Sunday")
	require.NotContains(t, out, "Pottery")
	require.Contains(t, stderr, "unknown category")
	require.Contains(t, stderr, "invalid date")
	require.Contains(t, stderr, "unparseable date")
}

func TestListForOnePartner(t *testing.T) {
	out, _ := run(t, "list", "--file", writeSample(t), "--date", "2023-06-15", "--mode", "month", "--user", "sam")
	require.Contains(t, out, "Movie Night")
	require.Contains(t, out, "Gym Session")
	require.NotContains(t, out, "Morning Jog")
}

func TestCalendarDrawsMarkers(t *testing.T) {
	out, _ := run(t, "calendar", "--file", writeSample(t), "--date", "2023-06-15")

	require.Contains(t, out, "June 2023")
	require.Contains(t, out, "Sun")
	require.Equal(t, 4, strings.Count(out, dot), "three on the 15th and one on the 18th")

	lines := strings.Split(out, "\n")
	require.Contains(t, lines[2], " 1", "June 2023 starts on a Thursday")
	require.NotContains(t, lines[2], "31")
}

func TestLeadTimesCommand(t *testing.T) {
	out, _ := run(t, "lead-times", "--lang", "th")
	require.Contains(t, out, "1 วันก่อน")
	require.Contains(t, out, "(default)")

	out, _ = run(t, "lead-times", "--lang", "xx")
	require.Contains(t, out, "At time of event")
}

func TestTokenCommand(t *testing.T) {
	t.Setenv("JWT_SECRET", "cli-secret")
	t.Setenv("JWT_ISSUER", "planner.cli")
	out, _ := run(t, "token", "--subject", "sam", "--tenant", "couple-9", "--ttl", "5m")

	claims, err := authlib.Parse(strings.TrimSpace(out), authlib.Config{Secret: "cli-secret", Issuer: "planner.cli"})
	require.NoError(t, err)
	require.Equal(t, "sam", claims.Subject)
	require.Equal(t, "couple-9", claims.TenantID)
	require.True(t, claims.HasScope("planner:write"))
	require.WithinDuration(t, time.Now().Add(5*time.Minute), claims.ExpiresAt, 5*time.Second)
}

func TestBadFlags(t *testing.T) {
	for _, args := range [][]string{
		{"list", "--file", writeSample(t), "--mode", "year"},
		{"calendar", "--file", writeSample(t), "--date", "15-06-2023"},
		{"calendar", "--file", writeSample(t), "--theme", "sepia"},
		{"calendar", "--file", filepath.Join(t.TempDir(), "missing.yaml")},
	} {
		cmd := newRootCmd()
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs(args)
		require.Error(t, cmd.Execute(), args)
	}
}
