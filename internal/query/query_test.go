package query

import (
	"testing"
	"time"

	"loadboard/internal/interval"
	"loadboard/internal/schedule"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func order(id string, start, end time.Time) schedule.WorkOrder {
	return schedule.WorkOrder{ID: id, Name: id, WorkCenterID: "wc-1",
		Status: schedule.StatusOpen, Start: start, End: end}
}

func TestCurrentPeriodBounds(t *testing.T) {
	t.Parallel()
	cursor := time.Date(2026, 1, 15, 13, 45, 0, 0, time.UTC) // a Thursday

	tests := []struct {
		scale      interval.Scale
		start, end time.Time
	}{
		{scale: interval.Day, start: date(2026, 1, 15), end: date(2026, 1, 16)},
		{scale: interval.Week, start: date(2026, 1, 12), end: date(2026, 1, 19)},
		{scale: interval.Month, start: date(2026, 1, 1), end: date(2026, 2, 1)},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.scale.String(), func(t *testing.T) {
			s, e := CurrentPeriodBounds(cursor, tt.scale)
			if !s.Equal(tt.start) || !e.Equal(tt.end) {
				t.Fatalf("bounds = [%v, %v), want [%v, %v)", s, e, tt.start, tt.end)
			}
		})
	}
}

func TestActiveOrdersFiltersByPeriod(t *testing.T) {
	t.Parallel()
	orders := []schedule.WorkOrder{
		order("inside", date(2026, 1, 14), date(2026, 1, 16)),
		order("before", date(2026, 1, 1), date(2026, 1, 10)),
		// Touches the period start boundary only: half-open, not active.
		order("touching", date(2026, 1, 10), date(2026, 1, 15)),
		order("spanning", date(2026, 1, 1), date(2026, 2, 1)),
	}
	got := ActiveOrders(date(2026, 1, 15), interval.Day, orders)
	if len(got) != 2 {
		t.Fatalf("active = %d orders, want 2", len(got))
	}
	// Sorted by start descending.
	if got[0].ID != "inside" || got[1].ID != "spanning" {
		t.Fatalf("order = [%s, %s]", got[0].ID, got[1].ID)
	}
}

func TestActiveOrdersWeekScale(t *testing.T) {
	t.Parallel()
	orders := []schedule.WorkOrder{
		order("in-week", date(2026, 1, 13), date(2026, 1, 14)),
		order("next-week", date(2026, 1, 19), date(2026, 1, 21)),
	}
	got := ActiveOrders(date(2026, 1, 15), interval.Week, orders)
	if len(got) != 1 || got[0].ID != "in-week" {
		t.Fatalf("active = %+v", got)
	}
}

func TestActiveOrdersEmpty(t *testing.T) {
	t.Parallel()
	if got := ActiveOrders(date(2026, 1, 15), interval.Day, nil); len(got) != 0 {
		t.Fatalf("active on empty input = %+v", got)
	}
}
