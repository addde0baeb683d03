package persist

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"loadboard/internal/schedule"
	logx "loadboard/pkg/logx"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func openTestStore(t *testing.T, dir string) Store {
	t.Helper()
	s, err := Open(Config{Driver: "file", Path: filepath.Join(dir, "board.json")}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return s
}

func TestFileStoreOrderRoundTrip(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	ctx := context.Background()

	s := openTestStore(t, dir)
	orders := []schedule.WorkOrder{
		{ID: "a", Name: "first", WorkCenterID: "wc-1", Status: schedule.StatusOpen,
			Start: day(2026, 1, 1), End: day(2026, 1, 5)},
		{ID: "b", Name: "second", WorkCenterID: "wc-2", Status: schedule.StatusBlocked,
			Start: day(2026, 1, 3), End: day(2026, 1, 8)},
	}
	for _, o := range orders {
		if err := s.CreateOrder(ctx, o); err != nil {
			t.Fatalf("CreateOrder: %v", err)
		}
	}
	if err := s.UpdateOrder(ctx, "a", schedule.WorkOrderData{
		Name: "renamed", WorkCenterID: "wc-1", Status: schedule.StatusInProgress,
		Start: day(2026, 1, 2), End: day(2026, 1, 6),
	}); err != nil {
		t.Fatalf("UpdateOrder: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// Reopen: snapshot + journal replay must reproduce the state in order.
	s = openTestStore(t, dir)
	defer s.Close()
	got, err := s.ListOrders(ctx)
	if err != nil {
		t.Fatalf("ListOrders: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("orders = %d, want 2", len(got))
	}
	if got[0].ID != "a" || got[1].ID != "b" {
		t.Fatalf("insertion order lost: %s, %s", got[0].ID, got[1].ID)
	}
	if got[0].Name != "renamed" || got[0].Status != schedule.StatusInProgress {
		t.Fatalf("update lost: %+v", got[0])
	}
	if !got[0].Start.Equal(day(2026, 1, 2)) {
		t.Fatalf("start = %v", got[0].Start)
	}
}

func TestFileStoreDelete(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	ctx := context.Background()

	s := openTestStore(t, dir)
	defer s.Close()
	_ = s.CreateOrder(ctx, schedule.WorkOrder{ID: "x", Name: "gone", WorkCenterID: "wc-1",
		Status: schedule.StatusOpen, Start: day(2026, 1, 1), End: day(2026, 1, 2)})
	if err := s.DeleteOrder(ctx, "x"); err != nil {
		t.Fatalf("DeleteOrder: %v", err)
	}
	// Deleting again is a no-op.
	if err := s.DeleteOrder(ctx, "x"); err != nil {
		t.Fatalf("repeat DeleteOrder: %v", err)
	}
	got, _ := s.ListOrders(ctx)
	if len(got) != 0 {
		t.Fatalf("orders = %+v, want empty", got)
	}
}

func TestFileStoreSettings(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	ctx := context.Background()

	s := openTestStore(t, dir)
	defer s.Close()

	if _, ok, err := s.GetSettings(ctx); err != nil || ok {
		t.Fatalf("fresh settings: ok=%v err=%v", ok, err)
	}
	want := Settings{Scale: "week", Cursor: day(2026, 4, 1)}
	if err := s.SaveSettings(ctx, want); err != nil {
		t.Fatalf("SaveSettings: %v", err)
	}
	got, ok, err := s.GetSettings(ctx)
	if err != nil || !ok {
		t.Fatalf("GetSettings: ok=%v err=%v", ok, err)
	}
	if got.Scale != "week" || !got.Cursor.Equal(want.Cursor) {
		t.Fatalf("settings = %+v", got)
	}
}

func TestOpenDisabled(t *testing.T) {
	t.Parallel()
	for _, driver := range []string{"", "none"} {
		s, err := Open(Config{Driver: driver}, logx.Nop())
		if err != nil || s != nil {
			t.Fatalf("Open(%q) = %v, %v; want nil, nil", driver, s, err)
		}
	}
	if _, err := Open(Config{Driver: "redis"}, logx.Nop()); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}
