package geometry

import (
	"math"
	"testing"
	"time"

	"loadboard/internal/interval"
	"loadboard/internal/schedule"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestColumnsDayScale(t *testing.T) {
	t.Parallel()
	start, end := date(2026, 1, 1), date(2026, 1, 11) // 10 days
	cols := Columns(start, end, interval.Day, date(2026, 1, 3))

	if len(cols) != 10 {
		t.Fatalf("len = %d, want 10", len(cols))
	}
	if cols[0].Label != "Jan 1" || cols[9].Label != "Jan 10" {
		t.Fatalf("labels = %q .. %q", cols[0].Label, cols[9].Label)
	}
	for i, c := range cols {
		if !approx(c.WidthPct, 10) {
			t.Fatalf("col %d width = %v, want 10%%", i, c.WidthPct)
		}
		if !approx(c.LeftPct, float64(i)*10) {
			t.Fatalf("col %d left = %v", i, c.LeftPct)
		}
		if c.IsCurrentPeriod != (i == 2) {
			t.Fatalf("col %d current = %v", i, c.IsCurrentPeriod)
		}
	}
}

func TestColumnsPartialEdges(t *testing.T) {
	t.Parallel()
	// Window starts mid-week: the first column starts before the window and
	// gets a negative left, which the renderer clips.
	start, end := date(2026, 1, 15), date(2026, 1, 29) // Thu, 14 days
	cols := Columns(start, end, interval.Week, date(2026, 1, 20))
	if len(cols) != 3 {
		t.Fatalf("len = %d, want 3", len(cols))
	}
	if cols[0].Label != "Wk of Jan 12" {
		t.Fatalf("first label = %q", cols[0].Label)
	}
	if cols[0].LeftPct >= 0 {
		t.Fatalf("first col left = %v, want negative (clipped)", cols[0].LeftPct)
	}
}

func TestBarsFractions(t *testing.T) {
	t.Parallel()
	start, end := date(2026, 1, 1), date(2026, 1, 11) // 10 days
	orders := []schedule.WorkOrder{
		{ID: "a", WorkCenterID: "wc-1", Status: schedule.StatusOpen,
			Start: date(2026, 1, 3), End: date(2026, 1, 5)},
		{ID: "outside", WorkCenterID: "wc-1", Status: schedule.StatusOpen,
			Start: date(2026, 2, 1), End: date(2026, 2, 3)},
		{ID: "clipped", WorkCenterID: "wc-2", Status: schedule.StatusBlocked,
			Start: date(2025, 12, 30), End: date(2026, 1, 2)},
	}
	bars := Bars(start, end, orders, nil)
	if len(bars) != 2 {
		t.Fatalf("len = %d, want 2 (outside omitted)", len(bars))
	}

	a := bars[0]
	if a.OrderID != "a" || !approx(a.LeftFrac, 0.2) || !approx(a.WidthFrac, 0.2) {
		t.Fatalf("bar a = %+v", a)
	}
	if a.StatusClass != "status-open" {
		t.Fatalf("class = %q", a.StatusClass)
	}

	c := bars[1]
	if !approx(c.LeftFrac, 0) {
		t.Fatalf("clipped bar left = %v, want 0", c.LeftFrac)
	}
	if !approx(c.WidthFrac, 0.1) {
		t.Fatalf("clipped bar width = %v, want 0.1", c.WidthFrac)
	}
}

func TestBarsStatusFilter(t *testing.T) {
	t.Parallel()
	start, end := date(2026, 1, 1), date(2026, 1, 11)
	orders := []schedule.WorkOrder{
		{ID: "open", WorkCenterID: "wc-1", Status: schedule.StatusOpen,
			Start: date(2026, 1, 2), End: date(2026, 1, 4)},
		{ID: "done", WorkCenterID: "wc-1", Status: schedule.StatusComplete,
			Start: date(2026, 1, 5), End: date(2026, 1, 7)},
	}
	bars := Bars(start, end, orders, func(s schedule.Status) bool { return s == schedule.StatusComplete })
	if len(bars) != 1 || bars[0].OrderID != "done" {
		t.Fatalf("filtered bars = %+v", bars)
	}
}

func TestCursorFraction(t *testing.T) {
	t.Parallel()
	start, end := date(2026, 1, 1), date(2026, 1, 11)
	if got := CursorFraction(start, end, date(2026, 1, 6)); !approx(got, 0.5) {
		t.Fatalf("fraction = %v, want 0.5", got)
	}
	if got := CursorFraction(start, end, date(2025, 12, 1)); got != 0 {
		t.Fatalf("before window = %v, want 0", got)
	}
	if got := CursorFraction(start, end, date(2026, 3, 1)); got != 1 {
		t.Fatalf("after window = %v, want 1", got)
	}
	if got := CursorFraction(start, start, date(2026, 1, 1)); got != 0 {
		t.Fatalf("degenerate window = %v, want 0", got)
	}
}
