// Package session owns the live scheduling state: the order store, the
// viewport, the cursor and the status filter. It bridges the persistence
// collaborator with a debounced write-behind queue and produces the
// render-ready frame the outer layer draws from.
package session

import (
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"loadboard/internal/eventbus"
	"loadboard/internal/export"
	"loadboard/internal/geometry"
	"loadboard/internal/interact"
	"loadboard/internal/interval"
	"loadboard/internal/persist"
	"loadboard/internal/query"
	"loadboard/internal/schedule"
	"loadboard/internal/viewport"
	logx "loadboard/pkg/logx"
)

const (
	defaultAutosaveDebounce = 2 * time.Second
	defaultCursorCron       = "0 0 * * *"
	persistOpTimeout        = 5 * time.Second
)

// Options configures a session. Zero values pick defaults.
type Options struct {
	Log logx.Logger
	Bus eventbus.Bus

	// Persist is the optional persistence collaborator; nil means the
	// session runs purely in memory.
	Persist persist.Store

	// Centers is the startup work center set (used when the persistence
	// layer has none).
	Centers []schedule.WorkCenter

	DefaultScale     interval.Scale
	AutosaveDebounce time.Duration
	CursorRefresh    string // cron spec; "" picks midnight
	ViewWidthPx      float64

	Now func() time.Time
}

// pendingWrite is one coalesced store mutation awaiting flush. For an order
// that was created and edited inside a single debounce window only the
// creation (with the latest payload) reaches the persistence layer.
type pendingWrite struct {
	op    schedule.ChangeOp
	order schedule.WorkOrder
}

// Session is the singleton coordinator for one scheduling board.
type Session struct {
	log     logx.Logger
	bus     eventbus.Bus
	persist persist.Store
	now     func() time.Time

	store   *schedule.Store
	vp      *viewport.Controller
	machine *interact.Machine

	mu           sync.Mutex
	cursor       time.Time // zero means "track the wall clock"
	statusFilter map[schedule.Status]bool

	// write-behind queue
	saveMu        sync.Mutex
	pending       map[string]*pendingWrite
	pendingSeq    []string
	settingsDirty bool
	saveTimer     *time.Timer
	debounce      time.Duration
	flushCh       chan struct{}

	cursorCron string
	centers    []schedule.WorkCenter
}

func New(opts Options) *Session {
	if opts.Log.IsZero() {
		opts.Log = logx.Nop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.AutosaveDebounce <= 0 {
		opts.AutosaveDebounce = defaultAutosaveDebounce
	}
	if strings.TrimSpace(opts.CursorRefresh) == "" {
		opts.CursorRefresh = defaultCursorCron
	}

	s := &Session{
		log:        opts.Log,
		bus:        opts.Bus,
		persist:    opts.Persist,
		now:        opts.Now,
		pending:    map[string]*pendingWrite{},
		debounce:   opts.AutosaveDebounce,
		flushCh:    make(chan struct{}, 1),
		cursorCron: opts.CursorRefresh,
		centers:    opts.Centers,
	}

	s.store = schedule.NewStore(opts.Log.With(logx.String("component", "store")))
	s.vp = viewport.New(opts.DefaultScale,
		viewport.WithNow(opts.Now),
		viewport.WithLogger(opts.Log.With(logx.String("component", "viewport"))),
	)
	s.machine = interact.New(s.store, s.vp, interact.Config{
		ViewWidthPx: opts.ViewWidthPx,
		ScrollFloor: s.scrollFloor,
		OnCreate:    s.createFromClick,
		OnCursor:    s.PinCursor,
	}, opts.Log.With(logx.String("component", "interact")))

	// Mutations feed the write-behind queue; the observer runs synchronously
	// on the mutating call, so it only enqueues and arms the timer.
	s.store.Subscribe(s.enqueue)
	return s
}

// Store exposes the order collection for read paths and tests.
func (s *Session) Store() *schedule.Store { return s.store }

// Viewport exposes the window controller.
func (s *Session) Viewport() *viewport.Controller { return s.vp }

// Machine exposes the pointer state machine the render layer feeds.
func (s *Session) Machine() *interact.Machine { return s.machine }

// Load hydrates the session from the persistence layer. Persistence failure
// is not fatal: the session starts empty, logs the degradation and publishes
// it on the bus.
func (s *Session) Load(ctx context.Context) {
	centers := s.centers
	var orders []schedule.WorkOrder

	if s.persist != nil {
		if pc, err := s.persist.ListWorkCenters(ctx); err != nil {
			s.degraded("list work centers", err)
		} else if len(pc) > 0 {
			centers = pc
		}
		if po, err := s.persist.ListOrders(ctx); err != nil {
			s.degraded("list orders", err)
		} else {
			orders = po
		}
	}

	s.store.SetCenters(centers)
	if len(orders) > 0 {
		s.store.Seed(orders)
	}

	if s.persist != nil {
		if st, ok, err := s.persist.GetSettings(ctx); err != nil {
			s.degraded("load settings", err)
		} else if ok {
			s.applySettings(st)
		}
	}

	spans := make([]viewport.Span, 0, len(orders))
	for _, o := range orders {
		spans = append(spans, viewport.Span{Start: o.Start, End: o.End})
	}
	s.vp.FitToData(spans)

	s.log.Info("session loaded",
		logx.Int("orders", len(orders)),
		logx.Int("centers", len(centers)),
		logx.String("scale", s.vp.Scale().String()),
	)
}

func (s *Session) applySettings(st persist.Settings) {
	if sc, err := interval.ParseScale(st.Scale); err == nil {
		s.vp.Zoom(sc, s.Cursor())
	} else if strings.TrimSpace(st.Scale) != "" {
		s.log.Warn("ignoring saved scale", logx.String("scale", st.Scale), logx.Err(err))
	}
	if !st.Cursor.IsZero() {
		s.mu.Lock()
		s.cursor = st.Cursor
		s.mu.Unlock()
	}
}

// Cursor returns the cursor instant: the pinned position if the user dragged
// it, otherwise the wall clock.
func (s *Session) Cursor() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cursor.IsZero() {
		return s.now()
	}
	return s.cursor
}

// PinCursor fixes the cursor at t (cursor drag). The position persists with
// the settings.
func (s *Session) PinCursor(t time.Time) {
	s.mu.Lock()
	s.cursor = t
	s.mu.Unlock()
	s.markSettingsDirty()
}

// ClearCursor returns the cursor to tracking the wall clock.
func (s *Session) ClearCursor() {
	s.mu.Lock()
	s.cursor = time.Time{}
	s.mu.Unlock()
	s.markSettingsDirty()
}

// SetStatusFilter restricts which statuses the frame draws and exports.
// Empty or nil shows everything.
func (s *Session) SetStatusFilter(statuses ...schedule.Status) {
	s.mu.Lock()
	if len(statuses) == 0 {
		s.statusFilter = nil
	} else {
		m := make(map[schedule.Status]bool, len(statuses))
		for _, st := range statuses {
			m[st] = true
		}
		s.statusFilter = m
	}
	s.mu.Unlock()
}

// SetScale switches the timeline granularity, re-centering on the cursor.
func (s *Session) SetScale(sc interval.Scale) {
	s.vp.Zoom(sc, s.Cursor())
	s.markSettingsDirty()
}

// SubmitCreate validates and adds a new order (the form-submit path). A
// range collision comes back as a *schedule.ConflictError naming the
// colliding order.
func (s *Session) SubmitCreate(data schedule.WorkOrderData) (schedule.WorkOrder, error) {
	if err := s.store.Validate(data.WorkCenterID, data.Start, data.End, ""); err != nil {
		return schedule.WorkOrder{}, err
	}
	return s.store.Add(data), nil
}

// SubmitEdit validates and applies an order edit. The edited order is
// excluded from the overlap check so an unmoved range never conflicts with
// itself.
func (s *Session) SubmitEdit(id string, data schedule.WorkOrderData) error {
	if err := s.store.Validate(data.WorkCenterID, data.Start, data.End, id); err != nil {
		return err
	}
	s.store.Update(id, data)
	return nil
}

// DeleteOrder removes an order. Unknown ids are a no-op.
func (s *Session) DeleteOrder(id string) {
	s.store.Delete(id)
}

// createFromClick turns a click-to-create request into a one-day order when
// the day is free; an occupied day is ignored (the click simply does
// nothing, same as a blocked drag frame).
func (s *Session) createFromClick(req interact.CreateRequest) {
	start := req.Date
	end := start.AddDate(0, 0, 1)
	data := schedule.WorkOrderData{
		Name:         "New order",
		WorkCenterID: req.WorkCenterID,
		Status:       schedule.StatusOpen,
		Start:        start,
		End:          end,
	}
	if _, err := s.SubmitCreate(data); err != nil {
		s.log.Debug("click-create rejected",
			logx.String("work_center", req.WorkCenterID),
			logx.Time("date", req.Date),
			logx.Err(err),
		)
	}
}

// scrollFloor is the leftward auto-scroll limit: one week before the
// earliest loaded order, or the window start when the board is empty.
func (s *Session) scrollFloor() time.Time {
	earliest := time.Time{}
	for _, o := range s.store.Orders() {
		if earliest.IsZero() || o.Start.Before(earliest) {
			earliest = o.Start
		}
	}
	if earliest.IsZero() {
		start, _ := s.vp.Span()
		return start
	}
	return earliest.AddDate(0, 0, -7)
}

// Frame is one render-ready snapshot of the board.
type Frame struct {
	Start      time.Time
	End        time.Time
	Scale      interval.Scale
	Columns    []geometry.Column
	Bars       []geometry.Bar
	CursorFrac float64
	Active     []schedule.WorkOrder
}

// Frame assembles the current geometry. An in-flight drag candidate replaces
// the dragged order's committed position so the ephemeral bar tracks the
// pointer.
func (s *Session) Frame() Frame {
	start, end := s.vp.Span()
	scale := s.vp.Scale()
	cursor := s.Cursor()

	orders := s.store.Orders()
	if cand, ok := s.machine.Candidate(); ok {
		for i := range orders {
			if orders[i].ID == cand.ID {
				orders[i] = cand
				break
			}
		}
	}

	s.mu.Lock()
	filterSet := s.statusFilter
	s.mu.Unlock()
	var filter func(schedule.Status) bool
	if filterSet != nil {
		filter = func(st schedule.Status) bool { return filterSet[st] }
	}

	return Frame{
		Start:      start,
		End:        end,
		Scale:      scale,
		Columns:    geometry.Columns(start, end, scale, cursor),
		Bars:       geometry.Bars(start, end, orders, filter),
		CursorFrac: geometry.CursorFraction(start, end, cursor),
		Active:     query.ActiveOrders(cursor, scale, orders),
	}
}

// ExportCSV writes the current orders (honoring the status filter) as CSV.
func (s *Session) ExportCSV(w io.Writer) error {
	names := map[string]string{}
	for _, wc := range s.store.Centers() {
		names[wc.ID] = wc.Name
	}
	s.mu.Lock()
	filterSet := s.statusFilter
	s.mu.Unlock()
	var filter func(schedule.Status) bool
	if filterSet != nil {
		filter = func(st schedule.Status) bool { return filterSet[st] }
	}
	return export.WriteCSV(w, s.store.Orders(), names, filter)
}

// Apply picks up a config reload: debounce window, viewport width and
// center renames take effect live. Driver changes need a restart.
func (s *Session) Apply(debounce time.Duration, viewWidthPx float64, centers []schedule.WorkCenter) {
	if debounce > 0 {
		s.saveMu.Lock()
		s.debounce = debounce
		s.saveMu.Unlock()
	}
	if viewWidthPx > 0 {
		s.machine.SetViewWidth(viewWidthPx)
	}
	known := map[string]struct{}{}
	for _, wc := range s.store.Centers() {
		known[wc.ID] = struct{}{}
	}
	for _, wc := range centers {
		if _, ok := known[wc.ID]; ok {
			s.store.RenameCenter(wc.ID, wc.Name)
		}
	}
}

// Run hosts the write-behind flusher and the cursor refresh job until ctx is
// done. A final flush drains the queue on shutdown.
func (s *Session) Run(ctx context.Context) error {
	c := cron.New()
	if _, err := c.AddFunc(s.cursorCron, s.rollCursor); err != nil {
		s.log.Warn("cursor refresh disabled",
			logx.String("spec", s.cursorCron), logx.Err(err))
	} else {
		c.Start()
	}

	for {
		select {
		case <-ctx.Done():
			<-c.Stop().Done()
			s.finalFlush()
			return nil
		case <-s.flushCh:
			s.flush(ctx)
		}
	}
}

// rollCursor fires on the period boundary. A wall-clock-tracking cursor
// needs no data change, only a repaint signal so the current-period
// highlight moves.
func (s *Session) rollCursor() {
	s.mu.Lock()
	pinned := !s.cursor.IsZero()
	s.mu.Unlock()
	if pinned {
		return
	}
	pStart, _ := query.CurrentPeriodBounds(s.now(), s.vp.Scale())
	if s.bus != nil {
		s.bus.Publish(eventbus.Event{Type: eventbus.TypeCursorRolled, Data: pStart})
	}
	s.log.Debug("cursor rolled", logx.Time("period_start", pStart))
}

// enqueue is the store observer: coalesce the mutation into the pending
// queue and (re)arm the debounce timer. Must not block.
func (s *Session) enqueue(c schedule.Change) {
	if s.persist == nil {
		return
	}
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	id := c.Order.ID
	prev, ok := s.pending[id]
	switch {
	case !ok:
		s.pending[id] = &pendingWrite{op: c.Op, order: c.Order}
		s.pendingSeq = append(s.pendingSeq, id)
	case prev.op == schedule.OpAdd && c.Op == schedule.OpDelete:
		// created and deleted inside one window; nothing to persist
		delete(s.pending, id)
		s.pendingSeq = removeID(s.pendingSeq, id)
	case prev.op == schedule.OpAdd:
		prev.order = c.Order // still a create, latest payload
	default:
		prev.op = c.Op
		prev.order = c.Order
	}
	s.armTimerLocked()
}

func (s *Session) markSettingsDirty() {
	if s.persist == nil {
		return
	}
	s.saveMu.Lock()
	s.settingsDirty = true
	s.armTimerLocked()
	s.saveMu.Unlock()
}

func (s *Session) armTimerLocked() {
	if s.saveTimer != nil {
		s.saveTimer.Stop()
	}
	s.saveTimer = time.AfterFunc(s.debounce, func() {
		select {
		case s.flushCh <- struct{}{}:
		default:
		}
	})
}

// flush drains the pending queue into the persistence layer. Failures are
// logged and published; the in-memory state stays authoritative.
func (s *Session) flush(ctx context.Context) {
	s.saveMu.Lock()
	batch := make([]pendingWrite, 0, len(s.pendingSeq))
	for _, id := range s.pendingSeq {
		if pw := s.pending[id]; pw != nil {
			batch = append(batch, *pw)
		}
	}
	s.pending = map[string]*pendingWrite{}
	s.pendingSeq = s.pendingSeq[:0]
	settings := s.settingsDirty
	s.settingsDirty = false
	s.saveMu.Unlock()

	if len(batch) == 0 && !settings {
		return
	}

	opCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistOpTimeout)
	defer cancel()

	for _, pw := range batch {
		var err error
		switch pw.op {
		case schedule.OpAdd:
			err = s.persist.CreateOrder(opCtx, pw.order)
		case schedule.OpUpdate:
			err = s.persist.UpdateOrder(opCtx, pw.order.ID, pw.order.Data())
		case schedule.OpDelete:
			err = s.persist.DeleteOrder(opCtx, pw.order.ID)
		}
		if err != nil {
			s.degraded("flush "+pw.op.String(), err)
		}
	}
	if settings {
		st := persist.Settings{Scale: s.vp.Scale().String()}
		s.mu.Lock()
		st.Cursor = s.cursor
		s.mu.Unlock()
		if err := s.persist.SaveSettings(opCtx, st); err != nil {
			s.degraded("save settings", err)
		}
	}

	s.log.Debug("autosave flushed",
		logx.Int("writes", len(batch)), logx.Bool("settings", settings))
}

// finalFlush runs once on shutdown with a background-derived context so a
// canceled run context cannot strand queued writes.
func (s *Session) finalFlush() {
	s.saveMu.Lock()
	if s.saveTimer != nil {
		s.saveTimer.Stop()
		s.saveTimer = nil
	}
	s.saveMu.Unlock()
	s.flush(context.Background())
}

func (s *Session) degraded(op string, err error) {
	s.log.Warn("persistence degraded", logx.String("op", op), logx.Err(err))
	if s.bus != nil {
		s.bus.Publish(eventbus.Event{Type: eventbus.TypePersistDegraded, Data: op + ": " + err.Error()})
	}
}

func removeID(ids []string, id string) []string {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
