// Package interval implements the calendar grid math used by the timeline:
// flooring instants to grid boundaries, shifting by whole units, and
// enumerating the boundaries inside a window.
//
// All functions are pure. Week boundaries start on Monday.
package interval

import (
	"fmt"
	"strings"
	"time"
)

// Scale is the calendar granularity of the timeline grid.
type Scale int

const (
	Day Scale = iota
	Week
	Month
)

func (s Scale) String() string {
	switch s {
	case Day:
		return "day"
	case Week:
		return "week"
	case Month:
		return "month"
	default:
		return fmt.Sprintf("scale(%d)", int(s))
	}
}

// ParseScale parses a config/user value into a Scale.
func ParseScale(raw string) (Scale, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "day", "d":
		return Day, nil
	case "week", "w":
		return Week, nil
	case "month", "m":
		return Month, nil
	default:
		return Day, fmt.Errorf("unknown scale %q", raw)
	}
}

// Floor returns the largest grid boundary that is not after t:
// start of day, start of ISO week (Monday), or first of month.
// The result keeps t's location.
func Floor(s Scale, t time.Time) time.Time {
	y, m, d := t.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	switch s {
	case Week:
		// Weekday() has Sunday == 0; shift so Monday == 0.
		back := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -back)
	case Month:
		return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
	default:
		return day
	}
}

// Offset returns t shifted by n whole units of the scale. n may be negative.
func Offset(s Scale, t time.Time, n int) time.Time {
	switch s {
	case Week:
		return t.AddDate(0, 0, 7*n)
	case Month:
		return t.AddDate(0, n, 0)
	default:
		return t.AddDate(0, 0, n)
	}
}

// Range returns every grid boundary in [Floor(start), end), ascending.
// It is empty when end is not after Floor(start).
func Range(s Scale, start, end time.Time) []time.Time {
	var out []time.Time
	for b := Floor(s, start); b.Before(end); b = Offset(s, b, 1) {
		out = append(out, b)
	}
	return out
}

// Unit returns the nominal duration of one grid unit. Months are modeled as
// 30 days; use Offset for exact calendar arithmetic.
func Unit(s Scale) time.Duration {
	switch s {
	case Week:
		return 7 * 24 * time.Hour
	case Month:
		return 30 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}
