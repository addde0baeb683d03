// Package geometry computes the render-ready outputs of the engine: column
// headers, bar positions and the cursor marker, all expressed as fractions
// (or percentages) of the viewport width. The actual SVG/DOM technique lives
// outside the engine; only these numbers cross the boundary.
package geometry

import (
	"time"

	"loadboard/internal/interval"
	"loadboard/internal/schedule"
)

// Column is one grid column header in the visible window.
type Column struct {
	Label           string
	LeftPct         float64
	WidthPct        float64
	IsCurrentPeriod bool
}

// Bar is one visible order bar. Fractions are relative to the viewport width
// and clipped to [0, 1]; orders fully outside the window are omitted.
type Bar struct {
	OrderID      string
	WorkCenterID string
	Name         string
	LeftFrac     float64
	WidthFrac    float64
	StatusClass  string
}

// Columns lays out the grid headers for [start, end) at the given scale.
// The column containing cursor is flagged as the current period.
func Columns(start, end time.Time, scale interval.Scale, cursor time.Time) []Column {
	span := float64(end.Sub(start))
	if span <= 0 {
		return nil
	}
	bounds := interval.Range(scale, start, end)
	out := make([]Column, 0, len(bounds))
	for _, b := range bounds {
		next := interval.Offset(scale, b, 1)
		left := fraction(start, span, b)
		right := fraction(start, span, next)
		out = append(out, Column{
			Label:           label(scale, b),
			LeftPct:         100 * left,
			WidthPct:        100 * (right - left),
			IsCurrentPeriod: !cursor.Before(b) && cursor.Before(next),
		})
	}
	return out
}

// Bars projects orders into the window. filter selects which statuses are
// drawn; nil draws everything.
func Bars(start, end time.Time, orders []schedule.WorkOrder, filter func(schedule.Status) bool) []Bar {
	span := float64(end.Sub(start))
	if span <= 0 {
		return nil
	}
	var out []Bar
	for _, o := range orders {
		if filter != nil && !filter(o.Status) {
			continue
		}
		if !schedule.Overlaps(o.Start, o.End, start, end) {
			continue
		}
		left := clamp01(fraction(start, span, o.Start))
		right := clamp01(fraction(start, span, o.End))
		out = append(out, Bar{
			OrderID:      o.ID,
			WorkCenterID: o.WorkCenterID,
			Name:         o.Name,
			LeftFrac:     left,
			WidthFrac:    right - left,
			StatusClass:  "status-" + string(o.Status),
		})
	}
	return out
}

// CursorFraction maps the cursor to a fraction of the viewport width,
// clamped to [0, 1].
func CursorFraction(start, end, cursor time.Time) float64 {
	span := float64(end.Sub(start))
	if span <= 0 {
		return 0
	}
	return clamp01(fraction(start, span, cursor))
}

func fraction(start time.Time, span float64, t time.Time) float64 {
	return float64(t.Sub(start)) / span
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func label(scale interval.Scale, t time.Time) string {
	switch scale {
	case interval.Week:
		return "Wk of " + t.Format("Jan 2")
	case interval.Month:
		return t.Format("Jan 2006")
	default:
		return t.Format("Jan 2")
	}
}
