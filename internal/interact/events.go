package interact

import "time"

// State is the machine's current interaction mode. States are mutually
// exclusive; every pointer gesture runs to completion inside one of them.
type State int

const (
	StateIdle State = iota
	StatePotentialClick
	StatePanning
	StateCursorDragging
	StateBarDragging
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePotentialClick:
		return "potential-click"
	case StatePanning:
		return "panning"
	case StateCursorDragging:
		return "cursor-dragging"
	case StateBarDragging:
		return "bar-dragging"
	default:
		return "unknown"
	}
}

// DragMode distinguishes the three bar drag variants.
type DragMode int

const (
	DragMove DragMode = iota
	DragResizeStart
	DragResizeEnd
)

// TargetKind identifies what the pointer went down on. The rendering layer
// performs hit testing and reports the result here; the engine never sees
// DOM/SVG nodes.
type TargetKind int

const (
	TargetTrack TargetKind = iota
	TargetBarBody
	TargetBarStart
	TargetBarEnd
	TargetCursor
)

// Target is the hit-test result attached to a pointer-down.
type Target struct {
	Kind         TargetKind
	OrderID      string // bar targets
	WorkCenterID string // track targets
}

// CreateRequest is emitted when a click (down+up under the movement
// threshold) lands on an empty track: "create an order here".
type CreateRequest struct {
	WorkCenterID string
	Date         time.Time // pixel position mapped to time, rounded to nearest day
}
