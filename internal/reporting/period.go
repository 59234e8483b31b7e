package reporting

import (
	"strings"
	"time"
)

const (
	DateLayout        = "2006-01-02"
	DefaultWindowDays = 30
)

const (
	WarnInvalidDate    = "Invalid date format. Using default date range."
	WarnEndBeforeStart = "End date cannot be before start date."
)

// Period is an inclusive range of calendar dates. From and To are midnight
// in the reporting location.
type Period struct {
	From time.Time
	To   time.Time
}

// StartOfDay truncates t to midnight of its calendar date in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// DefaultPeriod is the trailing window ending today.
func DefaultPeriod(now time.Time, loc *time.Location) Period {
	today := StartOfDay(now, loc)
	return Period{From: today.AddDate(0, 0, -DefaultWindowDays), To: today}
}

// ParsePeriod reads YYYY-MM-DD bounds. Empty bounds take the default window's
// value; an unparsable bound falls back to the whole default window, and an
// end before the start is clamped to the start. Each correction adds a
// warning.
func ParsePeriod(from, to string, now time.Time, loc *time.Location) (Period, []string) {
	def := DefaultPeriod(now, loc)
	from, to = strings.TrimSpace(from), strings.TrimSpace(to)

	p := def
	var warnings []string

	if from != "" {
		d, err := time.ParseInLocation(DateLayout, from, loc)
		if err != nil {
			return def, []string{WarnInvalidDate}
		}
		p.From = d
	}
	if to != "" {
		d, err := time.ParseInLocation(DateLayout, to, loc)
		if err != nil {
			return def, []string{WarnInvalidDate}
		}
		p.To = d
	}

	if p.To.Before(p.From) {
		p.To = p.From
		warnings = append(warnings, WarnEndBeforeStart)
	}

	return p, warnings
}

// Days is the number of calendar days covered, both ends included.
func (p Period) Days() int {
	from := time.Date(p.From.Year(), p.From.Month(), p.From.Day(), 0, 0, 0, 0, time.UTC)
	to := time.Date(p.To.Year(), p.To.Month(), p.To.Day(), 0, 0, 0, 0, time.UTC)
	return int((to.Unix()-from.Unix())/86400) + 1
}

// Previous is the window of equal length ending the day before From.
func (p Period) Previous() Period {
	days := p.Days()
	return Period{
		From: p.From.AddDate(0, 0, -days),
		To:   p.From.AddDate(0, 0, -1),
	}
}

// Bounds returns the half-open instant range [From, To+1day).
func (p Period) Bounds() (time.Time, time.Time) {
	return p.From, p.To.AddDate(0, 0, 1)
}

func (p Period) FromString() string { return p.From.Format(DateLayout) }
func (p Period) ToString() string   { return p.To.Format(DateLayout) }

// Presets are the quick-pick range starts offered next to a report.
type Presets struct {
	Today      string `json:"today"`
	Last7Days  string `json:"last_7_days"`
	Last30Days string `json:"last_30_days"`
	Last90Days string `json:"last_90_days"`
}

func PresetsFor(now time.Time, loc *time.Location) Presets {
	today := StartOfDay(now, loc)
	return Presets{
		Today:      today.Format(DateLayout),
		Last7Days:  today.AddDate(0, 0, -7).Format(DateLayout),
		Last30Days: today.AddDate(0, 0, -30).Format(DateLayout),
		Last90Days: today.AddDate(0, 0, -90).Format(DateLayout),
	}
}
