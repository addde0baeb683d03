package persist

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"loadboard/internal/schedule"
	logx "loadboard/pkg/logx"
)

// fileStore is a dependency-free persistence backend.
//
// Files:
//   - <prefix>.centers.json          (work centers, read at open)
//   - <prefix>.orders.snapshot.json  (periodic snapshot)
//   - <prefix>.orders.journal.jsonl  (append-only journal)
//   - <prefix>.settings.json         (session settings, atomic replace)
//
// The journal is periodically compacted into the snapshot.
type fileStore struct {
	log logx.Logger

	mu sync.Mutex

	snapshotPath string
	settingsPath string
	centersPath  string
	journal      *os.File

	orders map[string]schedule.WorkOrder
	seq    []string // insertion order

	writes int
}

type orderRecord struct {
	Op    string              `json:"op"` // create | update | delete
	Order *schedule.WorkOrder `json:"order,omitempty"`
	ID    string              `json:"id,omitempty"`
}

const compactEvery = 500

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("persist.path is required for file driver")
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	dir := filepath.Dir(path)
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	prefix := filepath.Join(dir, base)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	s := &fileStore{
		log:          log,
		snapshotPath: prefix + ".orders.snapshot.json",
		settingsPath: prefix + ".settings.json",
		centersPath:  prefix + ".centers.json",
		orders:       map[string]schedule.WorkOrder{},
	}

	// Load orders from snapshot + journal replay.
	journalPath := prefix + ".orders.journal.jsonl"
	_ = s.loadSnapshot()
	_ = s.replayJournal(journalPath)

	jf, err := os.OpenFile(journalPath, os.O_CREATE|os.O_APPEND|os.O_RDWR, 0o600)
	if err != nil {
		return nil, err
	}
	s.journal = jf
	return s, nil
}

func (s *fileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.journal == nil {
		return nil
	}
	// Leave a compact snapshot behind so the next open replays nothing.
	if err := s.compactLocked(); err != nil {
		s.log.Debug("compact on close failed", logx.Any("err", err))
	}
	err := s.journal.Close()
	s.journal = nil
	return err
}

func (s *fileStore) ListOrders(ctx context.Context) ([]schedule.WorkOrder, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]schedule.WorkOrder, 0, len(s.seq))
	for _, id := range s.seq {
		out = append(out, s.orders[id])
	}
	return out, nil
}

func (s *fileStore) ListWorkCenters(ctx context.Context) ([]schedule.WorkCenter, error) {
	_ = ctx
	f, err := os.Open(s.centersPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()
	var centers []schedule.WorkCenter
	if err := json.NewDecoder(f).Decode(&centers); err != nil {
		return nil, err
	}
	return centers, nil
}

func (s *fileStore) CreateOrder(ctx context.Context, o schedule.WorkOrder) error {
	_ = ctx
	if o.ID == "" {
		return errors.New("order id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.orders[o.ID]; !exists {
		s.seq = append(s.seq, o.ID)
	}
	s.orders[o.ID] = o
	return s.appendLocked(orderRecord{Op: "create", Order: &o})
}

func (s *fileStore) UpdateOrder(ctx context.Context, id string, data schedule.WorkOrderData) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		// Unknown id is benign: the caller may race a delete.
		return nil
	}
	o.Name, o.WorkCenterID, o.Status = data.Name, data.WorkCenterID, data.Status
	o.Start, o.End = data.Start, data.End
	s.orders[id] = o
	return s.appendLocked(orderRecord{Op: "update", Order: &o})
}

func (s *fileStore) DeleteOrder(ctx context.Context, id string) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[id]; !ok {
		return nil
	}
	delete(s.orders, id)
	for i, v := range s.seq {
		if v == id {
			s.seq = append(s.seq[:i], s.seq[i+1:]...)
			break
		}
	}
	return s.appendLocked(orderRecord{Op: "delete", ID: id})
}

func (s *fileStore) GetSettings(ctx context.Context) (Settings, bool, error) {
	_ = ctx
	f, err := os.Open(s.settingsPath)
	if err != nil {
		if os.IsNotExist(err) {
			return Settings{}, false, nil
		}
		return Settings{}, false, err
	}
	defer f.Close()
	var st Settings
	if err := json.NewDecoder(f).Decode(&st); err != nil {
		return Settings{}, false, err
	}
	return st, true, nil
}

func (s *fileStore) SaveSettings(ctx context.Context, st Settings) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeAtomic(s.settingsPath, st)
}

func (s *fileStore) appendLocked(r orderRecord) error {
	if s.journal == nil {
		return errors.New("order journal closed")
	}
	if err := json.NewEncoder(s.journal).Encode(r); err != nil {
		return err
	}
	s.writes++
	if s.writes%compactEvery == 0 {
		// Best-effort compact.
		if err := s.compactLocked(); err != nil {
			s.log.Debug("order compact failed", logx.Any("err", err))
		}
	}
	return nil
}

func (s *fileStore) compactLocked() error {
	out := make([]schedule.WorkOrder, 0, len(s.seq))
	for _, id := range s.seq {
		out = append(out, s.orders[id])
	}
	if err := writeAtomic(s.snapshotPath, out); err != nil {
		return err
	}
	// Truncate the journal; its content now lives in the snapshot.
	if err := s.journal.Truncate(0); err != nil {
		return err
	}
	_, err := s.journal.Seek(0, 2)
	return err
}

func (s *fileStore) loadSnapshot() error {
	f, err := os.Open(s.snapshotPath)
	if err != nil {
		return err
	}
	defer f.Close()
	var orders []schedule.WorkOrder
	if err := json.NewDecoder(f).Decode(&orders); err != nil {
		return err
	}
	for _, o := range orders {
		if o.ID == "" {
			continue
		}
		s.orders[o.ID] = o
		s.seq = append(s.seq, o.ID)
	}
	return nil
}

func (s *fileStore) replayJournal(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var r orderRecord
		if err := json.Unmarshal(sc.Bytes(), &r); err != nil {
			continue
		}
		switch r.Op {
		case "create", "update":
			if r.Order == nil || r.Order.ID == "" {
				continue
			}
			if _, exists := s.orders[r.Order.ID]; !exists {
				s.seq = append(s.seq, r.Order.ID)
			}
			s.orders[r.Order.ID] = *r.Order
		case "delete":
			if _, ok := s.orders[r.ID]; !ok {
				continue
			}
			delete(s.orders, r.ID)
			for i, v := range s.seq {
				if v == r.ID {
					s.seq = append(s.seq[:i], s.seq[i+1:]...)
					break
				}
			}
		}
	}
	return sc.Err()
}

func writeAtomic(path string, v any) error {
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	if err := json.NewEncoder(f).Encode(v); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
