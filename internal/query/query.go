// Package query derives read-only summaries from the cursor and the order
// collection: the current calendar period and the orders active inside it.
// Nothing here mutates the store or the viewport.
package query

import (
	"sort"
	"time"

	"loadboard/internal/interval"
	"loadboard/internal/schedule"
)

// CurrentPeriodBounds returns the grid interval containing cursor at the
// given scale, as a half-open [start, end) range.
func CurrentPeriodBounds(cursor time.Time, scale interval.Scale) (start, end time.Time) {
	start = interval.Floor(scale, cursor)
	end = interval.Offset(scale, start, 1)
	return start, end
}

// ActiveOrders returns every order whose range overlaps the cursor's current
// period, sorted by start date descending. The input slice is not modified.
func ActiveOrders(cursor time.Time, scale interval.Scale, orders []schedule.WorkOrder) []schedule.WorkOrder {
	pStart, pEnd := CurrentPeriodBounds(cursor, scale)
	var out []schedule.WorkOrder
	for _, o := range orders {
		if schedule.Overlaps(o.Start, o.End, pStart, pEnd) {
			out = append(out, o)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Start.After(out[j].Start)
	})
	return out
}
