package cache

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"shiftmarket/internal/realtime"
	"shiftmarket/pkg/logger"
)

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestStore_RegisteredGroupStartsStale(t *testing.T) {
	store := NewStore(logger.NewNop())
	defer store.Close()

	store.RegisterGroup(realtime.GroupShifts, func(ctx context.Context) (interface{}, error) {
		return "shifts", nil
	})

	value, fresh := store.Get(realtime.GroupShifts)
	if fresh {
		t.Error("expected a freshly registered group to be stale")
	}
	if value != nil {
		t.Errorf("expected no value before the first refresh, got %v", value)
	}
}

func TestStore_InvalidateTriggersRefetch(t *testing.T) {
	store := NewStore(logger.NewNop())
	defer store.Close()

	var fetches int32
	store.RegisterGroup(realtime.GroupNotifications, func(ctx context.Context) (interface{}, error) {
		n := atomic.AddInt32(&fetches, 1)
		return int(n), nil
	})

	store.Invalidate(realtime.GroupNotifications)

	waitFor(t, time.Second, func() bool {
		_, fresh := store.Get(realtime.GroupNotifications)
		return fresh
	})

	value, _ := store.Get(realtime.GroupNotifications)
	if value != 1 {
		t.Errorf("expected value from first fetch, got %v", value)
	}

	store.Invalidate(realtime.GroupNotifications)
	waitFor(t, time.Second, func() bool {
		value, fresh := store.Get(realtime.GroupNotifications)
		return fresh && value == 2
	})
}

func TestStore_UnknownGroupIgnored(t *testing.T) {
	store := NewStore(logger.NewNop())
	defer store.Close()

	// Must not panic or spawn a refetch.
	store.Invalidate(realtime.GroupWallet)

	if _, fresh := store.Get(realtime.GroupWallet); fresh {
		t.Error("unregistered group should not report fresh")
	}
}

func TestStore_FailedRefreshKeepsLastValue(t *testing.T) {
	store := NewStore(logger.NewNop())
	defer store.Close()

	var fail atomic.Bool
	var fetches int32
	store.RegisterGroup(realtime.GroupApplications, func(ctx context.Context) (interface{}, error) {
		atomic.AddInt32(&fetches, 1)
		if fail.Load() {
			return nil, errors.New("api down")
		}
		return "applications", nil
	})

	if err := store.Refresh(context.Background(), realtime.GroupApplications); err != nil {
		t.Fatalf("initial refresh failed: %v", err)
	}

	fail.Store(true)
	store.Invalidate(realtime.GroupApplications)
	waitFor(t, time.Second, func() bool {
		return atomic.LoadInt32(&fetches) >= 2
	})

	value, fresh := store.Get(realtime.GroupApplications)
	if value != "applications" {
		t.Errorf("expected last good value to survive a failed refresh, got %v", value)
	}
	if fresh {
		t.Error("group should stay stale when the refetch after an invalidate fails")
	}
}

func TestStore_SnapshotReportsFreshness(t *testing.T) {
	store := NewStore(logger.NewNop())
	defer store.Close()

	store.RegisterGroup(realtime.GroupShifts, func(ctx context.Context) (interface{}, error) {
		return nil, nil
	})
	store.RegisterGroup(realtime.GroupWallet, func(ctx context.Context) (interface{}, error) {
		return nil, nil
	})

	if err := store.Refresh(context.Background(), realtime.GroupShifts); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}

	snapshot := store.Snapshot()
	if len(snapshot) != 2 {
		t.Fatalf("expected 2 groups in snapshot, got %d", len(snapshot))
	}
	if snapshot["shifts"].Stale {
		t.Error("refreshed group should not be stale")
	}
	if !snapshot["wallet"].Stale {
		t.Error("never refreshed group should be stale")
	}
}
