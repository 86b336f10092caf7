package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"example.com/planner/internal/calendar"
)

// activityFile is the YAML layout plannerctl reads:
//
//	activities:
//	  - id: jog-1
//	    title: Morning Jog
//	    date: 2023-06-15
//	    start: "07:00"
//	    end: "08:00"
//	    category: personal
type activityFile struct {
	Activities []activityRecord `yaml:"activities"`
}

type activityRecord struct {
	ID       string `yaml:"id"`
	Title    string `yaml:"title"`
	User     string `yaml:"user"`
	Date     string `yaml:"date"`
	Start    string `yaml:"start"`
	End      string `yaml:"end"`
	Category string `yaml:"category"`
	Tag      string `yaml:"tag"`
	Emoji    string `yaml:"emoji"`
	LeadTime *int   `yaml:"lead_time"`
}

// entry is one loaded activity plus the fields the aggregator does not carry.
type entry struct {
	calendar.Activity
	User     string
	LeadTime int
}

func loadFile(path string, logger zerolog.Logger) ([]entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return loadActivities(f, logger)
}

// loadActivities decodes records. Malformed dates and times are kept as zero
// values so the aggregator skips and reports them like any other bad record.
func loadActivities(r io.Reader, logger zerolog.Logger) ([]entry, error) {
	var file activityFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode activities: %w", err)
	}

	out := make([]entry, 0, len(file.Activities))
	for i, rec := range file.Activities {
		id := rec.ID
		if id == "" {
			id = fmt.Sprintf("activity-%d", i+1)
		}
		log := logger.With().Str("activity_id", id).Logger()

		act := calendar.Activity{
			ID:       id,
			Title:    rec.Title,
			Category: calendar.Category(strings.ToLower(strings.TrimSpace(rec.Category))),
			Tag:      rec.Tag,
			Emoji:    rec.Emoji,
		}
		if act.Category == "" {
			act.Category = calendar.CategoryPersonal
		}
		if d, err := civil.ParseDate(strings.TrimSpace(rec.Date)); err == nil {
			act.Date = d
		} else {
			log.Warn().Str("date", rec.Date).Msg("unparseable date")
		}
		if t, err := calendar.ParseTimeOfDay(rec.Start); err == nil {
			act.StartTime = t
		} else if rec.Start != "" {
			log.Warn().Str("start", rec.Start).Msg("unparseable start time, using 00:00")
		}
		if t, err := calendar.ParseTimeOfDay(rec.End); err == nil {
			act.EndTime = t
		}

		lead := calendar.DefaultLeadTime
		if rec.LeadTime != nil {
			lead = *rec.LeadTime
		}
		out = append(out, entry{Activity: act, User: rec.User, LeadTime: lead})
	}
	return out, nil
}

func activitiesOf(entries []entry, user string) []calendar.Activity {
	out := make([]calendar.Activity, 0, len(entries))
	for _, e := range entries {
		if user == "" || e.User == user {
			out = append(out, e.Activity)
		}
	}
	return out
}
