package interact

import (
	"sync"
	"testing"
	"time"

	"loadboard/internal/interval"
	"loadboard/internal/schedule"
	logx "loadboard/pkg/logx"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ---- doubles ----

type fakeStore struct {
	mu      sync.Mutex
	seq     []string
	orders  map[string]schedule.WorkOrder
	updates int
}

func newFakeStore(orders ...schedule.WorkOrder) *fakeStore {
	s := &fakeStore{orders: map[string]schedule.WorkOrder{}}
	for _, o := range orders {
		s.seq = append(s.seq, o.ID)
		s.orders[o.ID] = o
	}
	return s
}

func (s *fakeStore) Get(id string) (schedule.WorkOrder, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	return o, ok
}

func (s *fakeStore) Update(id string, data schedule.WorkOrderData) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return
	}
	o.Name, o.WorkCenterID, o.Status = data.Name, data.WorkCenterID, data.Status
	o.Start, o.End = data.Start, data.End
	s.orders[id] = o
	s.updates++
}

func (s *fakeStore) CheckOverlap(centerID string, start, end time.Time, excludeID string) *schedule.WorkOrder {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.seq {
		o := s.orders[id]
		if id == excludeID || o.WorkCenterID != centerID {
			continue
		}
		if schedule.Overlaps(start, end, o.Start, o.End) {
			cp := o
			return &cp
		}
	}
	return nil
}

type fakeViewport struct {
	mu            sync.Mutex
	start, end    time.Time
	scale         interval.Scale
	panned        float64
	expandedRight int
	expandedLeft  int
}

func (v *fakeViewport) Span() (time.Time, time.Time) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.start, v.end
}

func (v *fakeViewport) Scale() interval.Scale { return v.scale }

func (v *fakeViewport) Pan(deltaPx float64, perPixel time.Duration) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.panned += deltaPx
	delta := time.Duration(deltaPx * float64(perPixel))
	v.start, v.end = v.start.Add(delta), v.end.Add(delta)
}

func (v *fakeViewport) ExpandRight(n int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.expandedRight += n
	v.end = v.end.AddDate(0, 0, n)
}

func (v *fakeViewport) ExpandLeft(n int, floor time.Time) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.expandedLeft += n
	v.start = v.start.AddDate(0, 0, -n)
}

func (v *fakeViewport) rightCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.expandedRight
}

// Window [Jan 1, Jan 31), 3000px wide: 100px per day.
func testRig(orders ...schedule.WorkOrder) (*Machine, *fakeStore, *fakeViewport, *[]CreateRequest) {
	st := newFakeStore(orders...)
	vp := &fakeViewport{start: date(2026, 1, 1), end: date(2026, 1, 31), scale: interval.Day}
	var creates []CreateRequest
	m := New(st, vp, Config{
		ViewWidthPx:    3000,
		AutoScrollTick: 10 * time.Millisecond,
		OnCreate:       func(r CreateRequest) { creates = append(creates, r) },
	}, logx.Nop())
	return m, st, vp, &creates
}

func barJan10to14() schedule.WorkOrder {
	return schedule.WorkOrder{ID: "o1", Name: "job", WorkCenterID: "wc-1",
		Status: schedule.StatusOpen, Start: date(2026, 1, 10), End: date(2026, 1, 14)}
}

// ---- tests ----

func TestClickOnTrackEmitsCreate(t *testing.T) {
	t.Parallel()
	m, _, _, creates := testRig()

	m.PointerDown(1500, 100, Target{Kind: TargetTrack, WorkCenterID: "wc-2"})
	if m.State() != StatePotentialClick {
		t.Fatalf("state = %v", m.State())
	}
	m.PointerMove(1502, 101) // under threshold
	m.PointerUp(1502, 101)

	if m.State() != StateIdle {
		t.Fatalf("state after up = %v", m.State())
	}
	if len(*creates) != 1 {
		t.Fatalf("creates = %+v", *creates)
	}
	got := (*creates)[0]
	if got.WorkCenterID != "wc-2" {
		t.Fatalf("center = %s", got.WorkCenterID)
	}
	// 1500px of 3000 over a 30-day window is Jan 16, already on a day boundary.
	if !got.Date.Equal(date(2026, 1, 16)) {
		t.Fatalf("date = %v, want 2026-01-16", got.Date)
	}
}

func TestThresholdMoveBecomesPan(t *testing.T) {
	t.Parallel()
	m, _, vp, creates := testRig()

	m.PointerDown(1500, 100, Target{Kind: TargetTrack, WorkCenterID: "wc-1"})
	m.PointerMove(1510, 100) // 10px crosses the 5px threshold
	if m.State() != StatePanning {
		t.Fatalf("state = %v", m.State())
	}
	m.PointerMove(1520, 100)
	m.PointerUp(1520, 100)

	if len(*creates) != 0 {
		t.Fatalf("pan emitted a create: %+v", *creates)
	}
	// Pointer moved right: content follows, window shifts earlier.
	if vp.panned >= 0 {
		t.Fatalf("panned = %v, want negative", vp.panned)
	}
	start, _ := vp.Span()
	if !start.Before(date(2026, 1, 1)) {
		t.Fatalf("window start = %v, want earlier than Jan 1", start)
	}
}

func TestBarMovePreservesDuration(t *testing.T) {
	t.Parallel()
	m, st, _, _ := testRig(barJan10to14())

	m.PointerDown(900, 50, Target{Kind: TargetBarBody, OrderID: "o1"}) // x of Jan 10
	if m.State() != StateBarDragging {
		t.Fatalf("state = %v", m.State())
	}
	m.PointerMove(1100, 50) // Jan 12

	cand, ok := m.Candidate()
	if !ok || !cand.Start.Equal(date(2026, 1, 12)) || !cand.End.Equal(date(2026, 1, 16)) {
		t.Fatalf("candidate = %+v ok=%v", cand, ok)
	}
	if st.updates != 0 {
		t.Fatalf("store updated mid-drag %d times", st.updates)
	}

	m.PointerUp(1100, 50)
	got, _ := st.Get("o1")
	if !got.Start.Equal(date(2026, 1, 12)) || !got.End.Equal(date(2026, 1, 16)) {
		t.Fatalf("committed = [%v, %v)", got.Start, got.End)
	}
	if got.End.Sub(got.Start) != 4*24*time.Hour {
		t.Fatalf("duration changed: %v", got.End.Sub(got.Start))
	}
	if st.updates != 1 {
		t.Fatalf("updates = %d, want exactly one commit", st.updates)
	}
}

func TestOverlappingFrameSilentlyRejected(t *testing.T) {
	t.Parallel()
	neighbor := schedule.WorkOrder{ID: "o2", Name: "next", WorkCenterID: "wc-1",
		Status: schedule.StatusOpen, Start: date(2026, 1, 15), End: date(2026, 1, 20)}
	m, st, _, _ := testRig(barJan10to14(), neighbor)

	m.PointerDown(900, 50, Target{Kind: TargetBarBody, OrderID: "o1"})
	m.PointerMove(1200, 50) // Jan 13 -> [Jan 13, Jan 17) collides with o2

	cand, _ := m.Candidate()
	if !cand.Start.Equal(date(2026, 1, 10)) || !cand.End.Equal(date(2026, 1, 14)) {
		t.Fatalf("rejected frame advanced candidate: %+v", cand)
	}

	m.PointerMove(1000, 50) // Jan 11 -> [Jan 11, Jan 15) touches o2, allowed
	cand, _ = m.Candidate()
	if !cand.Start.Equal(date(2026, 1, 11)) {
		t.Fatalf("valid frame not applied: %+v", cand)
	}

	m.PointerUp(1000, 50)
	got, _ := st.Get("o1")
	if !got.Start.Equal(date(2026, 1, 11)) || !got.End.Equal(date(2026, 1, 15)) {
		t.Fatalf("committed = [%v, %v)", got.Start, got.End)
	}
}

// Dragging the right edge past the start must leave the stored dates
// untouched after pointer-up.
func TestResizeEndInvertedLeavesOrderUnchanged(t *testing.T) {
	t.Parallel()
	m, st, _, _ := testRig(barJan10to14())

	m.PointerDown(1300, 50, Target{Kind: TargetBarEnd, OrderID: "o1"}) // x of Jan 14
	m.PointerMove(800, 50)                                             // Jan 9, before the bar's start
	m.PointerUp(800, 50)

	got, _ := st.Get("o1")
	if !got.Start.Equal(date(2026, 1, 10)) || !got.End.Equal(date(2026, 1, 14)) {
		t.Fatalf("order changed: [%v, %v)", got.Start, got.End)
	}
	if st.updates != 0 {
		t.Fatalf("updates = %d, want 0", st.updates)
	}
}

func TestResizeStartSnapsToDay(t *testing.T) {
	t.Parallel()
	m, st, _, _ := testRig(barJan10to14())

	m.PointerDown(900, 50, Target{Kind: TargetBarStart, OrderID: "o1"})
	m.PointerMove(760, 50) // 7.6d after Jan 1 = Jan 8 14:24 -> snaps to Jan 9
	m.PointerUp(760, 50)

	got, _ := st.Get("o1")
	if !got.Start.Equal(date(2026, 1, 9)) {
		t.Fatalf("start = %v, want 2026-01-09", got.Start)
	}
	if !got.End.Equal(date(2026, 1, 14)) {
		t.Fatalf("end moved: %v", got.End)
	}
}

func TestEscapeDiscardsDrag(t *testing.T) {
	t.Parallel()
	m, st, _, _ := testRig(barJan10to14())

	m.PointerDown(900, 50, Target{Kind: TargetBarBody, OrderID: "o1"})
	m.PointerMove(1100, 50)
	m.Escape()

	if m.State() != StateIdle {
		t.Fatalf("state = %v", m.State())
	}
	got, _ := st.Get("o1")
	if !got.Start.Equal(date(2026, 1, 10)) || st.updates != 0 {
		t.Fatalf("escape committed: %+v updates=%d", got, st.updates)
	}
}

func TestCursorDragClampedToViewport(t *testing.T) {
	t.Parallel()
	st := newFakeStore()
	vp := &fakeViewport{start: date(2026, 1, 1), end: date(2026, 1, 31), scale: interval.Day}
	var cursor time.Time
	m := New(st, vp, Config{
		ViewWidthPx: 3000,
		OnCursor:    func(t time.Time) { cursor = t },
	}, logx.Nop())

	m.PointerDown(1500, 10, Target{Kind: TargetCursor})
	if m.State() != StateCursorDragging {
		t.Fatalf("state = %v", m.State())
	}
	m.PointerMove(3500, 10) // beyond the right edge
	if !cursor.Equal(date(2026, 1, 31)) {
		t.Fatalf("cursor = %v, want clamped to window end", cursor)
	}
	m.PointerMove(-200, 10)
	if !cursor.Equal(date(2026, 1, 1)) {
		t.Fatalf("cursor = %v, want clamped to window start", cursor)
	}
	m.PointerUp(-200, 10)
	if m.State() != StateIdle {
		t.Fatalf("state after up = %v", m.State())
	}
}

func TestAutoScrollExpandsNearEdge(t *testing.T) {
	t.Parallel()
	m, _, vp, _ := testRig(barJan10to14())

	m.PointerDown(900, 50, Target{Kind: TargetBarBody, OrderID: "o1"})
	m.PointerMove(2990, 50) // within 5% of the right edge

	// The coalescing tick is 10ms in the rig; give it room to fire.
	time.Sleep(100 * time.Millisecond)
	if vp.rightCount() == 0 {
		t.Fatal("no right expansion after hovering the edge")
	}
	m.PointerUp(2990, 50)
}

// A tick scheduled during the drag must not expand after pointer-up.
func TestAutoScrollCanceledOnPointerUp(t *testing.T) {
	t.Parallel()
	m, _, vp, _ := testRig(barJan10to14())

	m.PointerDown(900, 50, Target{Kind: TargetBarBody, OrderID: "o1"})
	m.PointerMove(2990, 50)
	m.PointerUp(2990, 50) // before the 10ms tick fires

	time.Sleep(100 * time.Millisecond)
	if got := vp.rightCount(); got != 0 {
		t.Fatalf("stale tick expanded %d times after pointer-up", got)
	}
}

func TestPointerDownIgnoredWhileBusy(t *testing.T) {
	t.Parallel()
	m, _, _, _ := testRig(barJan10to14())

	m.PointerDown(900, 50, Target{Kind: TargetBarBody, OrderID: "o1"})
	m.PointerDown(100, 50, Target{Kind: TargetTrack, WorkCenterID: "wc-9"})
	if m.State() != StateBarDragging {
		t.Fatalf("second down changed state: %v", m.State())
	}
	m.PointerUp(900, 50)
}
