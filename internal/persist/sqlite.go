package persist

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"loadboard/internal/schedule"
	logx "loadboard/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	path := cfg.Path
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	st := &sqliteStore{db: db, log: log}

	// Basic pragmas.
	if cfg.BusyTimeout > 0 {
		ms := cfg.BusyTimeout.Milliseconds()
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", ms))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) ListOrders(ctx context.Context) ([]schedule.WorkOrder, error) {
	if s == nil || s.db == nil {
		return nil, ErrDisabled
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, center_id, status, start_ms, end_ms
		 FROM work_orders ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []schedule.WorkOrder
	for rows.Next() {
		var o schedule.WorkOrder
		var status string
		var startMS, endMS int64
		if err := rows.Scan(&o.ID, &o.Name, &o.WorkCenterID, &status, &startMS, &endMS); err != nil {
			return nil, err
		}
		o.Status = schedule.Status(status)
		o.Start = time.UnixMilli(startMS).UTC()
		o.End = time.UnixMilli(endMS).UTC()
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *sqliteStore) ListWorkCenters(ctx context.Context) ([]schedule.WorkCenter, error) {
	if s == nil || s.db == nil {
		return nil, ErrDisabled
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM work_centers ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []schedule.WorkCenter
	for rows.Next() {
		var c schedule.WorkCenter
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *sqliteStore) CreateOrder(ctx context.Context, o schedule.WorkOrder) error {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO work_orders(id, name, center_id, status, start_ms, end_ms)
		 VALUES(?,?,?,?,?,?)
		 ON CONFLICT(id) DO UPDATE SET
		   name=excluded.name, center_id=excluded.center_id, status=excluded.status,
		   start_ms=excluded.start_ms, end_ms=excluded.end_ms`,
		o.ID, o.Name, o.WorkCenterID, string(o.Status),
		o.Start.UnixMilli(), o.End.UnixMilli(),
	)
	return err
}

func (s *sqliteStore) UpdateOrder(ctx context.Context, id string, data schedule.WorkOrderData) error {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	// Unknown id affects zero rows; that is benign, not an error.
	_, err := s.db.ExecContext(ctx,
		`UPDATE work_orders SET name=?, center_id=?, status=?, start_ms=?, end_ms=? WHERE id=?`,
		data.Name, data.WorkCenterID, string(data.Status),
		data.Start.UnixMilli(), data.End.UnixMilli(), id,
	)
	return err
}

func (s *sqliteStore) DeleteOrder(ctx context.Context, id string) error {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM work_orders WHERE id=?`, id)
	return err
}

func (s *sqliteStore) GetSettings(ctx context.Context) (Settings, bool, error) {
	if s == nil || s.db == nil {
		return Settings{}, false, ErrDisabled
	}
	var scale string
	var cursorMS int64
	err := s.db.QueryRowContext(ctx, `SELECT scale, cursor_ms FROM settings WHERE id = 1`).
		Scan(&scale, &cursorMS)
	if errors.Is(err, sql.ErrNoRows) {
		return Settings{}, false, nil
	}
	if err != nil {
		return Settings{}, false, err
	}
	st := Settings{Scale: scale}
	if cursorMS != 0 {
		st.Cursor = time.UnixMilli(cursorMS).UTC()
	}
	return st, true, nil
}

func (s *sqliteStore) SaveSettings(ctx context.Context, st Settings) error {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	var cursorMS int64
	if !st.Cursor.IsZero() {
		cursorMS = st.Cursor.UnixMilli()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settings(id, scale, cursor_ms) VALUES(1,?,?)
		 ON CONFLICT(id) DO UPDATE SET scale=excluded.scale, cursor_ms=excluded.cursor_ms`,
		st.Scale, cursorMS,
	)
	return err
}
