package calendar

import (
	"slices"

	"golang.org/x/text/language"
)

// DefaultLeadTime is the reminder lead time preselected for new activities.
const DefaultLeadTime = 30

// leadTimeMinutes lists the supported lead times. The first entry is the
// fallback for unrecognized values.
var leadTimeMinutes = []int{0, 15, 30, 60, 120, 1440}

// LeadTimeOption pairs a lead time with its display label.
type LeadTimeOption struct {
	Minutes int    `json:"minutes"`
	Label   string `json:"label"`
}

// LeadTimeOptions returns the supported lead times in display order.
func LeadTimeOptions() []int {
	return slices.Clone(leadTimeMinutes)
}

// IsLeadTimeOption reports whether minutes is a supported lead time.
func IsLeadTimeOption(minutes int) bool {
	return slices.Contains(leadTimeMinutes, minutes)
}

// ResolveLeadTimeLabel returns the English label for minutes, falling back to
// the first option's label when minutes is not a supported lead time.
func ResolveLeadTimeLabel(minutes int) string {
	return englishLabels.Resolve(minutes)
}

var supportedLanguages = []language.Tag{
	language.English,
	language.Thai,
	language.Spanish,
	language.French,
}

var languageMatcher = language.NewMatcher(supportedLanguages)

// labels are indexed like supportedLanguages, entries like leadTimeMinutes.
var labels = [][]string{
	{"At time of event", "15 minutes before", "30 minutes before", "1 hour before", "2 hours before", "1 day before"},
	{"เมื่อถึงเวลา", "15 นาทีก่อน", "30 นาทีก่อน", "1 ชั่วโมงก่อน", "2 ชั่วโมงก่อน", "1 วันก่อน"},
	{"En el momento del evento", "15 minutos antes", "30 minutos antes", "1 hora antes", "2 horas antes", "1 día antes"},
	{"Au moment de l'événement", "15 minutes avant", "30 minutes avant", "1 heure avant", "2 heures avant", "1 jour avant"},
}

var englishLabels = LeadTimeLabels{tag: language.English, labels: labels[0]}

// LeadTimeLabels resolves lead times to labels in one language.
type LeadTimeLabels struct {
	tag    language.Tag
	labels []string
}

// LabelsFor returns the labels for the supported language closest to tag.
// Unsupported languages get English.
func LabelsFor(tag language.Tag) LeadTimeLabels {
	_, idx, conf := languageMatcher.Match(tag)
	if conf == language.No {
		idx = 0
	}
	return LeadTimeLabels{tag: supportedLanguages[idx], labels: labels[idx]}
}

// Language returns the language the labels are written in.
func (l LeadTimeLabels) Language() language.Tag {
	return l.tag
}

// Resolve returns the label for minutes, or the first option's label when
// minutes is not a supported lead time.
func (l LeadTimeLabels) Resolve(minutes int) string {
	idx := slices.Index(leadTimeMinutes, minutes)
	if idx < 0 {
		idx = 0
	}
	return l.labels[idx]
}

// Options returns every lead time with its label.
func (l LeadTimeLabels) Options() []LeadTimeOption {
	out := make([]LeadTimeOption, len(leadTimeMinutes))
	for i, m := range leadTimeMinutes {
		out[i] = LeadTimeOption{Minutes: m, Label: l.labels[i]}
	}
	return out
}

// MatchLanguage picks the best supported language for an Accept-Language
// header value. Malformed or empty headers yield English.
func MatchLanguage(acceptLanguage string) language.Tag {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return language.English
	}
	_, idx, conf := languageMatcher.Match(tags...)
	if conf == language.No {
		return language.English
	}
	return supportedLanguages[idx]
}

// SupportedLanguage parses raw and reports the supported language it maps to.
func SupportedLanguage(raw string) (language.Tag, bool) {
	tag, err := language.Parse(raw)
	if err != nil {
		return language.Und, false
	}
	_, idx, conf := languageMatcher.Match(tag)
	if conf == language.No {
		return language.Und, false
	}
	return supportedLanguages[idx], true
}
