// Package interact translates raw pointer events into pan, cursor-drag and
// bar-drag operations against the viewport and the order store.
//
// The machine mutates through narrow interfaces so the property tests can
// substitute doubles. Per-frame drag candidates live only in the machine;
// the store sees a single Update when the gesture commits on pointer-up.
package interact

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"loadboard/internal/interval"
	"loadboard/internal/schedule"
	logx "loadboard/pkg/logx"
)

// OrderStore is the slice of the schedule store the machine needs.
type OrderStore interface {
	Get(id string) (schedule.WorkOrder, bool)
	Update(id string, data schedule.WorkOrderData)
	CheckOverlap(centerID string, start, end time.Time, excludeID string) *schedule.WorkOrder
}

// Viewport is the slice of the viewport controller the machine needs.
type Viewport interface {
	Span() (start, end time.Time)
	Scale() interval.Scale
	Pan(deltaPx float64, perPixel time.Duration)
	ExpandRight(n int)
	ExpandLeft(n int, floor time.Time)
}

// Config tunes the gesture thresholds. Zero values pick the defaults.
type Config struct {
	// ViewWidthPx is the rendered viewport width used for pixel/time mapping.
	ViewWidthPx float64
	// ClickThresholdPx: movement below this (both axes) keeps a down+up a click.
	ClickThresholdPx float64
	// EdgeMarginFrac: pointer within this fraction of either edge during a bar
	// drag triggers auto-scroll expansion.
	EdgeMarginFrac float64
	// AutoScrollTick coalesces expansion while the pointer stays near an edge.
	AutoScrollTick time.Duration
	// ExpandUnits is how many scale units each auto-scroll tick adds.
	ExpandUnits int

	// ScrollFloor supplies the left expansion floor (earliest-loaded date
	// minus one week). Required for leftward auto-scroll; nil disables it.
	ScrollFloor func() time.Time

	// OnCreate receives click-to-create requests. Optional.
	OnCreate func(CreateRequest)
	// OnCursor receives cursor positions during cursor drags. Optional.
	OnCursor func(time.Time)
}

const (
	defaultClickThresholdPx = 5
	defaultEdgeMarginFrac   = 0.05
	defaultAutoScrollTick   = 150 * time.Millisecond
	defaultViewWidthPx      = 1000
)

// Machine is the interaction state machine. One instance per session;
// pointer events for a single gesture arrive in order.
type Machine struct {
	store OrderStore
	vp    Viewport
	log   logx.Logger

	// Caps per-frame rejection logging so a long blocked drag does not flood
	// the sinks.
	rejectLog *rate.Limiter

	mu    sync.Mutex
	cfg   Config
	state State

	// pointer-down bookkeeping
	downX, downY float64
	lastX        float64
	target       Target

	// bar drag
	mode               DragMode
	orig               schedule.WorkOrder
	grab               time.Duration // pointer offset into the bar at grab time
	candStart, candEnd time.Time     // last valid candidate

	// auto-scroll
	autoTimer *time.Timer
	autoDir   int
}

func New(store OrderStore, vp Viewport, cfg Config, log logx.Logger) *Machine {
	if cfg.ViewWidthPx <= 0 {
		cfg.ViewWidthPx = defaultViewWidthPx
	}
	if cfg.ClickThresholdPx <= 0 {
		cfg.ClickThresholdPx = defaultClickThresholdPx
	}
	if cfg.EdgeMarginFrac <= 0 {
		cfg.EdgeMarginFrac = defaultEdgeMarginFrac
	}
	if cfg.AutoScrollTick <= 0 {
		cfg.AutoScrollTick = defaultAutoScrollTick
	}
	if cfg.ExpandUnits <= 0 {
		cfg.ExpandUnits = 1
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Machine{
		store:     store,
		vp:        vp,
		cfg:       cfg,
		log:       log,
		rejectLog: rate.NewLimiter(rate.Every(time.Second), 3),
	}
}

// State returns the current machine state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// SetViewWidth updates the pixel width used for time mapping (on resize).
func (m *Machine) SetViewWidth(px float64) {
	if px <= 0 {
		return
	}
	m.mu.Lock()
	m.cfg.ViewWidthPx = px
	m.mu.Unlock()
}

// Candidate returns the in-flight drag candidate so the render layer can draw
// the ephemeral bar position before the gesture commits.
func (m *Machine) Candidate() (schedule.WorkOrder, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateBarDragging {
		return schedule.WorkOrder{}, false
	}
	o := m.orig
	o.Start, o.End = m.candStart, m.candEnd
	return o, true
}

// PointerDown starts a gesture. Ignored unless the machine is idle.
func (m *Machine) PointerDown(x, y float64, tgt Target) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateIdle {
		return
	}
	m.downX, m.downY, m.lastX = x, y, x
	m.target = tgt

	switch tgt.Kind {
	case TargetTrack:
		// Click detection and panning arm together; whichever resolves first
		// (threshold crossed vs. pointer-up) decides the outcome.
		m.state = StatePotentialClick
	case TargetCursor:
		m.state = StateCursorDragging
		m.emitCursorLocked(x)
	case TargetBarBody, TargetBarStart, TargetBarEnd:
		o, ok := m.store.Get(tgt.OrderID)
		if !ok {
			return
		}
		m.orig = o
		m.candStart, m.candEnd = o.Start, o.End
		switch tgt.Kind {
		case TargetBarBody:
			m.mode = DragMove
			m.grab = m.timeAtLocked(x).Sub(o.Start)
		case TargetBarStart:
			m.mode = DragResizeStart
		default:
			m.mode = DragResizeEnd
		}
		m.state = StateBarDragging
	}
}

// PointerMove advances the active gesture.
func (m *Machine) PointerMove(x, y float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.state {
	case StatePotentialClick:
		if abs(x-m.downX) >= m.cfg.ClickThresholdPx || abs(y-m.downY) >= m.cfg.ClickThresholdPx {
			m.state = StatePanning
			m.panLocked(x)
		}
	case StatePanning:
		m.panLocked(x)
	case StateCursorDragging:
		m.emitCursorLocked(x)
	case StateBarDragging:
		m.dragLocked(x)
	}
}

// PointerUp ends the active gesture. Bar drags commit their last valid
// candidate here; everything per-frame was ephemeral.
func (m *Machine) PointerUp(x, y float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.state {
	case StatePotentialClick:
		if abs(x-m.downX) < m.cfg.ClickThresholdPx && abs(y-m.downY) < m.cfg.ClickThresholdPx {
			if m.cfg.OnCreate != nil {
				m.cfg.OnCreate(CreateRequest{
					WorkCenterID: m.target.WorkCenterID,
					Date:         nearestDay(m.timeAtLocked(m.downX)),
				})
			}
		}
	case StateBarDragging:
		if !m.candStart.Equal(m.orig.Start) || !m.candEnd.Equal(m.orig.End) {
			data := m.orig.Data()
			data.Start, data.End = m.candStart, m.candEnd
			m.store.Update(m.orig.ID, data)
			m.log.Debug("drag committed",
				logx.String("order", m.orig.ID),
				logx.Time("start", m.candStart),
				logx.Time("end", m.candEnd))
		}
	}
	m.resetLocked()
}

// Escape aborts the active gesture, discarding any uncommitted candidate.
func (m *Machine) Escape() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateBarDragging {
		m.log.Debug("drag discarded", logx.String("order", m.orig.ID))
	}
	m.resetLocked()
}

func (m *Machine) resetLocked() {
	m.state = StateIdle
	m.cancelAutoScrollLocked()
	m.orig = schedule.WorkOrder{}
	m.candStart, m.candEnd = time.Time{}, time.Time{}
}

// ---- gestures ----

func (m *Machine) panLocked(x float64) {
	start, end := m.vp.Span()
	perPixel := time.Duration(float64(end.Sub(start)) / m.cfg.ViewWidthPx)
	// Dragging the pointer right pulls earlier time into view.
	m.vp.Pan(-(x - m.lastX), perPixel)
	m.lastX = x
}

func (m *Machine) emitCursorLocked(x float64) {
	if m.cfg.OnCursor == nil {
		return
	}
	start, end := m.vp.Span()
	t := m.timeAtLocked(x)
	if t.Before(start) {
		t = start
	}
	if t.After(end) {
		t = end
	}
	m.cfg.OnCursor(t)
}

func (m *Machine) dragLocked(x float64) {
	var newStart, newEnd time.Time
	switch m.mode {
	case DragMove:
		newStart = nearestDay(m.timeAtLocked(x).Add(-m.grab))
		newEnd = newStart.Add(m.orig.End.Sub(m.orig.Start))
	case DragResizeStart:
		newStart = nearestDay(m.timeAtLocked(x))
		newEnd = m.candEnd
	case DragResizeEnd:
		newStart = m.candStart
		newEnd = nearestDay(m.timeAtLocked(x))
	}

	// Per-frame rejection is silent: the bar simply does not advance.
	if !newStart.Before(newEnd) {
		if m.rejectLog.Allow() {
			m.log.Debug("drag frame rejected: inverted range",
				logx.String("order", m.orig.ID))
		}
	} else if hit := m.store.CheckOverlap(m.orig.WorkCenterID, newStart, newEnd, m.orig.ID); hit != nil {
		if m.rejectLog.Allow() {
			m.log.Debug("drag frame rejected: overlap",
				logx.String("order", m.orig.ID),
				logx.String("conflict", hit.ID))
		}
	} else {
		m.candStart, m.candEnd = newStart, newEnd
	}

	// Auto-scroll when the pointer nears either edge so the window grows
	// ahead of the drag.
	margin := m.cfg.EdgeMarginFrac * m.cfg.ViewWidthPx
	switch {
	case x <= margin:
		m.armAutoScrollLocked(-1)
	case x >= m.cfg.ViewWidthPx-margin:
		m.armAutoScrollLocked(1)
	}
}

// ---- auto-scroll ticks ----

func (m *Machine) armAutoScrollLocked(dir int) {
	m.autoDir = dir
	if m.autoTimer != nil {
		return
	}
	m.autoTimer = time.AfterFunc(m.cfg.AutoScrollTick, m.autoScrollTick)
}

func (m *Machine) autoScrollTick() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.autoTimer = nil
	// The gesture may have ended between scheduling and firing; a stale tick
	// must not expand after pointer-up.
	if m.state != StateBarDragging {
		return
	}
	switch {
	case m.autoDir > 0:
		m.vp.ExpandRight(m.cfg.ExpandUnits)
	case m.autoDir < 0:
		if m.cfg.ScrollFloor != nil {
			m.vp.ExpandLeft(m.cfg.ExpandUnits, m.cfg.ScrollFloor())
		}
	}
	m.autoDir = 0
}

func (m *Machine) cancelAutoScrollLocked() {
	if m.autoTimer != nil {
		m.autoTimer.Stop()
		m.autoTimer = nil
	}
	m.autoDir = 0
}

// ---- mapping ----

// timeAtLocked maps a pixel x to an instant inside the viewport span.
func (m *Machine) timeAtLocked(x float64) time.Time {
	start, end := m.vp.Span()
	frac := x / m.cfg.ViewWidthPx
	return start.Add(time.Duration(frac * float64(end.Sub(start))))
}

// nearestDay rounds an instant to the closest day boundary.
func nearestDay(t time.Time) time.Time {
	f := interval.Floor(interval.Day, t)
	if t.Sub(f) >= 12*time.Hour {
		return interval.Offset(interval.Day, f, 1)
	}
	return f
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
