// Package viewport owns the visible [start, end) time window of the timeline.
//
// Every mutation preserves the start < end invariant: an operation that would
// collapse or invert the span is clamped (not applied) rather than rejected.
package viewport

import (
	"sync"
	"time"

	"loadboard/internal/interval"
	logx "loadboard/pkg/logx"
)

// Span is a half-open [Start, End) time range. FitToData takes spans rather
// than whole orders so the controller stays decoupled from the store types.
type Span struct {
	Start time.Time
	End   time.Time
}

// Window sizes for CenterOn, in grid units per side.
const (
	centerUnitsDay   = 10
	centerUnitsWeek  = 5
	centerUnitsMonth = 6
)

const (
	fitPadding = 7 * 24 * time.Hour  // one week after the latest order
	minSpan    = 30 * 24 * time.Hour // enforced minimum total window
)

// Controller holds the current window and scale.
type Controller struct {
	mu    sync.Mutex
	start time.Time
	end   time.Time
	scale interval.Scale

	now func() time.Time
	log logx.Logger
}

type Option func(*Controller)

// WithNow overrides the wall clock (tests, replay).
func WithNow(fn func() time.Time) Option {
	return func(c *Controller) {
		if fn != nil {
			c.now = fn
		}
	}
}

func WithLogger(log logx.Logger) Option {
	return func(c *Controller) { c.log = log }
}

func New(scale interval.Scale, opts ...Option) *Controller {
	c := &Controller{scale: scale, now: time.Now, log: logx.Nop()}
	for _, o := range opts {
		o(c)
	}
	// Start with a sane window so geometry is well-defined before load.
	c.CenterOn(c.now())
	return c
}

// Span returns the current window.
func (c *Controller) Span() (start, end time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.start, c.end
}

// Scale returns the current granularity.
func (c *Controller) Scale() interval.Scale {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.scale
}

// FitToData sizes the window to the loaded spans: start is the earliest span
// start floored to scale and pulled back one unit; end covers the latest span
// end plus one week of padding. The total span never drops below 30 days.
// With no spans the window anchors on "now" instead.
func (c *Controller) FitToData(spans []Span) {
	c.mu.Lock()
	defer c.mu.Unlock()

	earliest, latest := c.now(), c.now()
	for i, sp := range spans {
		if i == 0 || sp.Start.Before(earliest) {
			earliest = sp.Start
		}
		if i == 0 || sp.End.After(latest) {
			latest = sp.End
		}
	}

	start := interval.Offset(c.scale, interval.Floor(c.scale, earliest), -1)
	end := latest.Add(fitPadding)
	if end.Sub(start) < minSpan {
		end = start.Add(minSpan)
	}
	c.setSpanLocked(start, end)
}

// CenterOn places a symmetric scale-sized window around t, snapped outward to
// grid boundaries.
func (c *Controller) CenterOn(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.centerOnLocked(t)
}

func (c *Controller) centerOnLocked(t time.Time) {
	n := centerUnits(c.scale)
	start := interval.Floor(c.scale, interval.Offset(c.scale, t, -n))
	end := ceilToScale(c.scale, interval.Offset(c.scale, t, n))
	c.setSpanLocked(start, end)
}

// Pan shifts the window by deltaPx pixels, preserving the span. perPixel is
// the current time-per-pixel ratio of the rendered viewport. Positive deltaPx
// moves the window later in time.
func (c *Controller) Pan(deltaPx float64, perPixel time.Duration) {
	if perPixel <= 0 {
		return
	}
	delta := time.Duration(deltaPx * float64(perPixel))
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setSpanLocked(c.start.Add(delta), c.end.Add(delta))
}

// ExpandRight grows the window by n scale units on the right edge.
func (c *Controller) ExpandRight(n int) {
	if n <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setSpanLocked(c.start, interval.Offset(c.scale, c.end, n))
}

// ExpandLeft grows the window by n scale units on the left edge, never moving
// start before floor. The engine never fabricates data earlier than what was
// loaded, so callers pass the earliest-loaded date minus one week.
func (c *Controller) ExpandLeft(n int, floor time.Time) {
	if n <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	start := interval.Offset(c.scale, c.start, -n)
	if start.Before(floor) {
		start = floor
	}
	c.setSpanLocked(start, c.end)
}

// Zoom switches scale and re-centers on the given instant (the caller passes
// the cursor, or "now" when no cursor is set).
func (c *Controller) Zoom(scale interval.Scale, center time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scale = scale
	c.centerOnLocked(center)
}

// setSpanLocked applies a window only when it keeps start < end.
func (c *Controller) setSpanLocked(start, end time.Time) {
	if !start.Before(end) {
		c.log.Debug("viewport update clamped",
			logx.Time("start", start), logx.Time("end", end))
		return
	}
	c.start, c.end = start, end
}

func centerUnits(s interval.Scale) int {
	switch s {
	case interval.Week:
		return centerUnitsWeek
	case interval.Month:
		return centerUnitsMonth
	default:
		return centerUnitsDay
	}
}

func ceilToScale(s interval.Scale, t time.Time) time.Time {
	f := interval.Floor(s, t)
	if f.Equal(t) {
		return t
	}
	return interval.Offset(s, f, 1)
}
