// Package aggregation turns ordered sensor readings into chart-ready series:
// time bucketing, per-bucket statistics, tail downsampling, label thinning and
// metric-specific axis bounds. Everything here is pure and safe to memoize.
package aggregation

import (
	"fmt"
	"strings"
	"time"

	// Display zones must resolve on hosts without a zoneinfo database.
	_ "time/tzdata"
)

// Timeframe is the charting granularity
type Timeframe string

// Supported timeframes
const (
	Raw    Timeframe = "raw"
	Hourly Timeframe = "hourly"
	Daily  Timeframe = "daily"
	Weekly Timeframe = "weekly"
)

// ParseTimeframe parses a timeframe name, case-insensitively
func ParseTimeframe(s string) (Timeframe, error) {
	switch tf := Timeframe(strings.ToLower(strings.TrimSpace(s))); tf {
	case Raw, Hourly, Daily, Weekly:
		return tf, nil
	default:
		return "", fmt.Errorf("unknown timeframe %q", s)
	}
}

// groupsByTimestamp reports whether every reading forms its own bucket
func (tf Timeframe) groupsByTimestamp() bool {
	return tf == Raw || tf == Hourly || tf == ""
}

// BucketKey returns the display key for ts: HH:MM for raw and hourly,
// D/M/YYYY for daily and the ISO-8601 week (YYYY-Www) for weekly, all in loc.
func BucketKey(ts time.Time, tf Timeframe, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	local := ts.In(loc)

	switch tf {
	case Daily:
		return fmt.Sprintf("%d/%d/%d", local.Day(), int(local.Month()), local.Year())
	case Weekly:
		year, week := local.ISOWeek()
		return fmt.Sprintf("%d-W%02d", year, week)
	default:
		return local.Format("15:04")
	}
}

// StartOfDay returns local midnight of the calendar day containing t in loc
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

// Window returns the half-open [start, end) reading range charted for date:
// the day itself for raw and hourly, the seven days ending on date for daily,
// and the four weeks ending on date for weekly.
func Window(date time.Time, tf Timeframe, loc *time.Location) (time.Time, time.Time) {
	day := StartOfDay(date, loc)
	end := day.AddDate(0, 0, 1)

	switch tf {
	case Daily:
		return day.AddDate(0, 0, -6), end
	case Weekly:
		return day.AddDate(0, 0, -27), end
	default:
		return day, end
	}
}

// Preset names for relative reading windows
const (
	PresetLastHour    = "last_hour"
	PresetToday       = "today"
	PresetLast24Hours = "last_24_hours"
	PresetLastWeek    = "last_week"
)

// PresetWindow resolves a relative window ending at now
func PresetWindow(name string, now time.Time, loc *time.Location) (time.Time, time.Time, error) {
	switch name {
	case PresetLastHour:
		return now.Add(-time.Hour), now, nil
	case PresetToday:
		return StartOfDay(now, loc), now, nil
	case PresetLast24Hours:
		return now.Add(-24 * time.Hour), now, nil
	case PresetLastWeek:
		return now.AddDate(0, 0, -7), now, nil
	default:
		return time.Time{}, time.Time{}, fmt.Errorf("unknown window preset %q", name)
	}
}
