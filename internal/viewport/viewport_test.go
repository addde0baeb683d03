package viewport

import (
	"testing"
	"time"

	"loadboard/internal/interval"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func fixedNow(t time.Time) Option {
	return WithNow(func() time.Time { return t })
}

func TestFitToDataEmptyAnchorsOnNow(t *testing.T) {
	t.Parallel()
	now := date(2026, 3, 15)
	c := New(interval.Day, fixedNow(now))
	c.FitToData(nil)

	start, end := c.Span()
	// Empty data: the window starts at "now" floored and pulled back one day.
	want := date(2026, 3, 14)
	if !start.Equal(want) {
		t.Fatalf("start = %v, want %v", start, want)
	}
	if got := end.Sub(start); got < 30*24*time.Hour {
		t.Fatalf("span = %v, want >= 30 days", got)
	}
}

func TestFitToDataCoversOrdersWithPadding(t *testing.T) {
	t.Parallel()
	c := New(interval.Day, fixedNow(date(2026, 1, 1)))
	c.FitToData([]Span{
		{Start: date(2026, 2, 10), End: date(2026, 2, 20)},
		{Start: date(2026, 2, 1), End: date(2026, 2, 5)},
	})

	start, end := c.Span()
	if !start.Equal(date(2026, 1, 31)) {
		t.Fatalf("start = %v, want 2026-01-31 (earliest floored minus one day)", start)
	}
	// Latest end (Feb 20) plus one week = Feb 27, but min span wins: Jan 31 + 30d = Mar 2.
	if !end.Equal(date(2026, 3, 2)) {
		t.Fatalf("end = %v, want 2026-03-02", end)
	}
}

func TestFitToDataMinSpanNotAppliedToWideData(t *testing.T) {
	t.Parallel()
	c := New(interval.Day, fixedNow(date(2026, 1, 1)))
	c.FitToData([]Span{{Start: date(2026, 1, 1), End: date(2026, 6, 1)}})
	_, end := c.Span()
	if !end.Equal(date(2026, 6, 8)) {
		t.Fatalf("end = %v, want latest + one week", end)
	}
}

func TestCenterOnWindowSizes(t *testing.T) {
	t.Parallel()
	anchor := date(2026, 6, 17) // a Wednesday
	tests := []struct {
		scale interval.Scale
		start time.Time
		end   time.Time
	}{
		{scale: interval.Day, start: date(2026, 6, 7), end: date(2026, 6, 27)},
		// ±5 weeks from Wed Jun 17: May 13 floored to Mon May 11; Jul 22 ceiled to Mon Jul 27.
		{scale: interval.Week, start: date(2026, 5, 11), end: date(2026, 7, 27)},
		// ±6 months: Dec 17 floored to Dec 1; Dec 17 next ceiled to Jan 1.
		{scale: interval.Month, start: date(2025, 12, 1), end: date(2027, 1, 1)},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.scale.String(), func(t *testing.T) {
			c := New(tt.scale, fixedNow(anchor))
			c.CenterOn(anchor)
			start, end := c.Span()
			if !start.Equal(tt.start) || !end.Equal(tt.end) {
				t.Fatalf("window = [%v, %v), want [%v, %v)", start, end, tt.start, tt.end)
			}
		})
	}
}

func TestPanPreservesSpan(t *testing.T) {
	t.Parallel()
	c := New(interval.Day, fixedNow(date(2026, 1, 15)))
	start0, end0 := c.Span()
	span := end0.Sub(start0)

	// 100px at one hour per pixel.
	c.Pan(100, time.Hour)
	start, end := c.Span()
	if got := end.Sub(start); got != span {
		t.Fatalf("span changed: %v -> %v", span, got)
	}
	if !start.Equal(start0.Add(100 * time.Hour)) {
		t.Fatalf("start = %v, want %v", start, start0.Add(100*time.Hour))
	}

	// Negative delta pans earlier.
	c.Pan(-100, time.Hour)
	start, _ = c.Span()
	if !start.Equal(start0) {
		t.Fatalf("round-trip pan: start = %v, want %v", start, start0)
	}

	// Degenerate ratio is ignored.
	c.Pan(50, 0)
	start, _ = c.Span()
	if !start.Equal(start0) {
		t.Fatal("pan with zero ratio applied")
	}
}

func TestExpand(t *testing.T) {
	t.Parallel()
	c := New(interval.Day, fixedNow(date(2026, 1, 15)))
	start0, end0 := c.Span()

	c.ExpandRight(3)
	_, end := c.Span()
	if !end.Equal(end0.AddDate(0, 0, 3)) {
		t.Fatalf("ExpandRight: end = %v", end)
	}

	c.ExpandLeft(2, date(2025, 1, 1))
	start, _ := c.Span()
	if !start.Equal(start0.AddDate(0, 0, -2)) {
		t.Fatalf("ExpandLeft: start = %v", start)
	}
}

func TestExpandLeftClampsToFloor(t *testing.T) {
	t.Parallel()
	c := New(interval.Day, fixedNow(date(2026, 1, 15)))
	start0, _ := c.Span()

	floor := start0.AddDate(0, 0, -1)
	c.ExpandLeft(10, floor)
	start, _ := c.Span()
	if !start.Equal(floor) {
		t.Fatalf("start = %v, want clamp at floor %v", start, floor)
	}

	// A second expand cannot cross the floor either.
	c.ExpandLeft(10, floor)
	start, _ = c.Span()
	if !start.Equal(floor) {
		t.Fatalf("start moved past floor: %v", start)
	}
}

func TestZoomRecenters(t *testing.T) {
	t.Parallel()
	c := New(interval.Day, fixedNow(date(2026, 6, 17)))
	cursor := date(2026, 6, 17)
	c.Zoom(interval.Month, cursor)

	if c.Scale() != interval.Month {
		t.Fatalf("scale = %v", c.Scale())
	}
	start, end := c.Span()
	if !start.Equal(date(2025, 12, 1)) || !end.Equal(date(2027, 1, 1)) {
		t.Fatalf("window = [%v, %v)", start, end)
	}
}

func TestInvariantStartBeforeEnd(t *testing.T) {
	t.Parallel()
	c := New(interval.Day, fixedNow(date(2026, 1, 15)))
	start0, end0 := c.Span()

	// ExpandLeft with a floor beyond the current end must be clamped away.
	c.ExpandLeft(5, end0.AddDate(0, 0, 10))
	start, end := c.Span()
	if !start.Before(end) {
		t.Fatalf("invariant violated: [%v, %v)", start, end)
	}
	if !start.Equal(start0) || !end.Equal(end0) {
		t.Fatalf("collapsing update applied: [%v, %v)", start, end)
	}
}
