package persist

import (
	"context"
	"errors"
	"time"

	"loadboard/internal/schedule"
)

var ErrDisabled = errors.New("persistence disabled")

// Config configures the persistence collaborator.
//
// Driver values:
//   - "file": dependency-free file backend (JSON snapshot + JSONL journal)
//   - "sqlite": SQLite database file
//
// If Driver is empty or "none", persistence is disabled and the session runs
// purely in memory.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Settings is the small per-user state that survives restarts.
// A zero Cursor means "track the wall clock".
type Settings struct {
	Scale  string    `json:"scale"`
	Cursor time.Time `json:"cursor,omitzero"`
}

// Store is the persistence API the session consumes. Every call may fail
// (storage unreachable); the session's contract is to degrade to its
// last-known in-memory state, never to crash.
type Store interface {
	ListOrders(ctx context.Context) ([]schedule.WorkOrder, error)
	ListWorkCenters(ctx context.Context) ([]schedule.WorkCenter, error)
	CreateOrder(ctx context.Context, o schedule.WorkOrder) error
	UpdateOrder(ctx context.Context, id string, data schedule.WorkOrderData) error
	DeleteOrder(ctx context.Context, id string) error
	GetSettings(ctx context.Context) (Settings, bool, error)
	SaveSettings(ctx context.Context, s Settings) error
	Close() error
}
