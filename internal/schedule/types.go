package schedule

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Status is the lifecycle state of a work order.
type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in-progress"
	StatusComplete   Status = "complete"
	StatusBlocked    Status = "blocked"
)

// ParseStatus normalizes a raw status value. Unknown values are rejected so
// config/persistence typos surface early instead of rendering as an unknown
// style class.
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	switch s {
	case StatusOpen, StatusInProgress, StatusComplete, StatusBlocked:
		return s, nil
	default:
		return "", fmt.Errorf("unknown status %q", raw)
	}
}

// WorkCenter is a named resource line that work orders are assigned to.
// Centers are created at startup and renamed via explicit edit; the engine
// never deletes them.
type WorkCenter struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// WorkOrder is a dated task on exactly one work center.
//
// Invariants (advisory, validated at write time via Validate):
//   - Start < End (strict; zero-length orders are invalid)
//   - no two orders on the same center overlap under half-open semantics
type WorkOrder struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	WorkCenterID string    `json:"work_center_id"`
	Status       Status    `json:"status"`
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
}

// Data returns the order's mutable payload.
func (o WorkOrder) Data() WorkOrderData {
	return WorkOrderData{
		Name:         o.Name,
		WorkCenterID: o.WorkCenterID,
		Status:       o.Status,
		Start:        o.Start,
		End:          o.End,
	}
}

// WorkOrderData is the payload of an add/update: everything but the id.
type WorkOrderData struct {
	Name         string    `json:"name"`
	WorkCenterID string    `json:"work_center_id"`
	Status       Status    `json:"status"`
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
}

// ErrInvalidRange reports a date range with End not strictly after Start.
var ErrInvalidRange = errors.New("work order end must be after start")

// ConflictError reports a range that would overlap an existing order on the
// same work center. It names the colliding order so forms can surface it.
type ConflictError struct {
	Conflicting WorkOrder
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("range conflicts with order %q (%s – %s)",
		e.Conflicting.Name,
		e.Conflicting.Start.Format("2006-01-02"),
		e.Conflicting.End.Format("2006-01-02"))
}

// Overlaps reports whether [aStart, aEnd) and [bStart, bEnd) intersect.
// Touching endpoints do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}
