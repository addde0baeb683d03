// Package export renders the schedule for external consumers. It stays at the
// interface boundary: callers supply the writer and decide where bytes go.
package export

import (
	"encoding/csv"
	"io"

	"loadboard/internal/schedule"
)

var header = []string{"id", "name", "work_center", "status", "start", "end"}

// WriteCSV writes orders as CSV. centerNames maps center ids to display
// names; unknown ids fall back to the raw id. filter selects statuses to
// include; nil includes everything.
func WriteCSV(w io.Writer, orders []schedule.WorkOrder, centerNames map[string]string, filter func(schedule.Status) bool) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, o := range orders {
		if filter != nil && !filter(o.Status) {
			continue
		}
		center := o.WorkCenterID
		if name, ok := centerNames[o.WorkCenterID]; ok && name != "" {
			center = name
		}
		rec := []string{
			o.ID,
			o.Name,
			center,
			string(o.Status),
			o.Start.Format("2006-01-02"),
			o.End.Format("2006-01-02"),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
