// Package schedule holds the in-memory work order collection and its
// write-time overlap validation.
package schedule

import (
	"sync"
	"time"

	"github.com/google/uuid"

	logx "loadboard/pkg/logx"
)

// ChangeOp classifies a store mutation.
type ChangeOp int

const (
	OpAdd ChangeOp = iota
	OpUpdate
	OpDelete
)

func (op ChangeOp) String() string {
	switch op {
	case OpAdd:
		return "add"
	case OpUpdate:
		return "update"
	case OpDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Change describes one applied mutation. Order carries the post-mutation
// value (for OpDelete, the removed value).
type Change struct {
	Op    ChangeOp
	Order WorkOrder
}

// Observer receives store changes. Observers run synchronously on the
// mutating call, after the change is applied and the store lock is released,
// before the mutation returns. They must not block.
type Observer func(Change)

// Store is the in-memory work order collection.
//
// Add/Update do not check the overlap invariant themselves; callers go
// through Validate (or CheckOverlap) first. Validate is the single blessed
// validation door used by both the form-submit path and the drag engine.
type Store struct {
	log logx.Logger

	mu        sync.Mutex
	centers   []WorkCenter
	orders    map[string]WorkOrder
	orderSeq  []string            // global insertion order
	byCenter  map[string][]string // center id -> order ids, insertion order
	observers []Observer
}

func NewStore(log logx.Logger) *Store {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Store{
		log:      log,
		orders:   map[string]WorkOrder{},
		byCenter: map[string][]string{},
	}
}

// Subscribe registers an observer for subsequent mutations.
// The observer set is fixed at wiring time; there is no unsubscribe.
func (s *Store) Subscribe(fn Observer) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.observers = append(s.observers, fn)
	s.mu.Unlock()
}

// SetCenters replaces the work center list. Called once at load.
func (s *Store) SetCenters(centers []WorkCenter) {
	s.mu.Lock()
	s.centers = append([]WorkCenter(nil), centers...)
	s.mu.Unlock()
}

// Centers returns the work centers in their configured order.
func (s *Store) Centers() []WorkCenter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]WorkCenter(nil), s.centers...)
}

// RenameCenter updates a center's display name. No-op on unknown id.
func (s *Store) RenameCenter(id, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.centers {
		if s.centers[i].ID == id {
			s.centers[i].Name = name
			return
		}
	}
}

// Seed replaces the order collection without notifying observers.
// Used by the load path; ids are kept as given.
func (s *Store) Seed(orders []WorkOrder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders = make(map[string]WorkOrder, len(orders))
	s.orderSeq = s.orderSeq[:0]
	s.byCenter = map[string][]string{}
	for _, o := range orders {
		if o.ID == "" {
			continue
		}
		s.orders[o.ID] = o
		s.orderSeq = append(s.orderSeq, o.ID)
		s.byCenter[o.WorkCenterID] = append(s.byCenter[o.WorkCenterID], o.ID)
	}
}

// Add appends a new order under a fresh 128-bit random id and returns it.
// It does not check overlap; call Validate first.
func (s *Store) Add(data WorkOrderData) WorkOrder {
	o := WorkOrder{
		ID:           uuid.NewString(),
		Name:         data.Name,
		WorkCenterID: data.WorkCenterID,
		Status:       data.Status,
		Start:        data.Start,
		End:          data.End,
	}
	s.mu.Lock()
	s.orders[o.ID] = o
	s.orderSeq = append(s.orderSeq, o.ID)
	s.byCenter[o.WorkCenterID] = append(s.byCenter[o.WorkCenterID], o.ID)
	s.mu.Unlock()

	s.notify(Change{Op: OpAdd, Order: o})
	return o
}

// Update replaces an order's payload, preserving its id.
// Silent no-op when the id is unknown: concurrent deletion through another
// path is expected and benign.
func (s *Store) Update(id string, data WorkOrderData) {
	s.mu.Lock()
	old, ok := s.orders[id]
	if !ok {
		s.mu.Unlock()
		return
	}
	o := WorkOrder{
		ID:           id,
		Name:         data.Name,
		WorkCenterID: data.WorkCenterID,
		Status:       data.Status,
		Start:        data.Start,
		End:          data.End,
	}
	s.orders[id] = o
	if old.WorkCenterID != o.WorkCenterID {
		s.byCenter[old.WorkCenterID] = removeID(s.byCenter[old.WorkCenterID], id)
		s.byCenter[o.WorkCenterID] = append(s.byCenter[o.WorkCenterID], id)
	}
	s.mu.Unlock()

	s.notify(Change{Op: OpUpdate, Order: o})
}

// Delete removes an order if present. No-op otherwise; no error surfaced.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	o, ok := s.orders[id]
	if !ok {
		s.mu.Unlock()
		return
	}
	delete(s.orders, id)
	s.orderSeq = removeID(s.orderSeq, id)
	s.byCenter[o.WorkCenterID] = removeID(s.byCenter[o.WorkCenterID], id)
	s.mu.Unlock()

	s.notify(Change{Op: OpDelete, Order: o})
}

// Get returns the order with the given id.
func (s *Store) Get(id string) (WorkOrder, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	return o, ok
}

// Len returns the number of orders.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}

// Orders returns all orders in insertion order.
func (s *Store) Orders() []WorkOrder {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]WorkOrder, 0, len(s.orderSeq))
	for _, id := range s.orderSeq {
		out = append(out, s.orders[id])
	}
	return out
}

// OrdersForCenter returns all orders for one center, insertion order preserved.
func (s *Store) OrdersForCenter(centerID string) []WorkOrder {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := s.byCenter[centerID]
	out := make([]WorkOrder, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.orders[id])
	}
	return out
}

// CheckOverlap returns the first order on the center whose range intersects
// [start, end) under half-open semantics, skipping excludeID, or nil when the
// range is free. Only orders on the matching center are scanned.
func (s *Store) CheckOverlap(centerID string, start, end time.Time, excludeID string) *WorkOrder {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.byCenter[centerID] {
		if id == excludeID {
			continue
		}
		o := s.orders[id]
		if Overlaps(start, end, o.Start, o.End) {
			cp := o
			return &cp
		}
	}
	return nil
}

// Validate checks a candidate range against the store invariants:
// ErrInvalidRange when end is not after start, *ConflictError when the range
// would collide with another order on the same center. excludeID lets an
// edited order skip itself.
func (s *Store) Validate(centerID string, start, end time.Time, excludeID string) error {
	if !start.Before(end) {
		return ErrInvalidRange
	}
	if hit := s.CheckOverlap(centerID, start, end, excludeID); hit != nil {
		return &ConflictError{Conflicting: *hit}
	}
	return nil
}

func (s *Store) notify(c Change) {
	s.mu.Lock()
	obs := append([]Observer(nil), s.observers...)
	s.mu.Unlock()
	for _, fn := range obs {
		fn(c)
	}
	s.log.Trace("store mutated", logx.String("op", c.Op.String()), logx.String("order", c.Order.ID))
}

func removeID(ids []string, id string) []string {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
