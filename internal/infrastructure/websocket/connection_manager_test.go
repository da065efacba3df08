package websocket

import (
	"errors"
	"testing"

	"shiftmarket/internal/domain"
	"shiftmarket/pkg/logger"
)

type fakeConnection struct {
	userID    string
	sent      []domain.UpdateEvent
	sendErr   error
	closeCode int
	closed    bool
}

func (f *fakeConnection) Send(event domain.UpdateEvent) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, event)
	return nil
}

func (f *fakeConnection) Close() error { f.closed = true; return nil }

func (f *fakeConnection) CloseWithCode(code int, reason string) error {
	f.closed = true
	f.closeCode = code
	return nil
}

func (f *fakeConnection) UserID() string { return f.userID }

func TestConnectionManager_NotifyUserReachesAllDevices(t *testing.T) {
	cm := NewConnectionManager(logger.NewNop())

	phone := &fakeConnection{userID: "worker-1"}
	laptop := &fakeConnection{userID: "worker-1"}
	other := &fakeConnection{userID: "worker-2"}
	for _, conn := range []*fakeConnection{phone, laptop, other} {
		if err := cm.RegisterConnection(conn); err != nil {
			t.Fatalf("register failed: %v", err)
		}
	}

	event := domain.UpdateEvent{Type: domain.MessageNotification}
	if err := cm.NotifyUser("worker-1", event); err != nil {
		t.Fatalf("notify failed: %v", err)
	}

	if len(phone.sent) != 1 || len(laptop.sent) != 1 {
		t.Errorf("expected both worker-1 connections to receive the event, got %d and %d",
			len(phone.sent), len(laptop.sent))
	}
	if len(other.sent) != 0 {
		t.Errorf("worker-2 should not receive a targeted event, got %d", len(other.sent))
	}
}

func TestConnectionManager_UnregisterStopsDelivery(t *testing.T) {
	cm := NewConnectionManager(logger.NewNop())

	conn := &fakeConnection{userID: "worker-1"}
	if err := cm.RegisterConnection(conn); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if err := cm.UnregisterConnection(conn); err != nil {
		t.Fatalf("unregister failed: %v", err)
	}

	if err := cm.NotifyUser("worker-1", domain.UpdateEvent{Type: domain.MessageShiftUpdate}); err != nil {
		t.Fatalf("notify failed: %v", err)
	}
	if len(conn.sent) != 0 {
		t.Errorf("unregistered connection received %d events", len(conn.sent))
	}
	if conns := cm.GetConnectionsForUser("worker-1"); conns != nil {
		t.Errorf("expected no connections after unregister, got %d", len(conns))
	}
}

func TestConnectionManager_BroadcastSurvivesFailedSend(t *testing.T) {
	cm := NewConnectionManager(logger.NewNop())

	broken := &fakeConnection{userID: "worker-1", sendErr: errors.New("write failed")}
	healthy := &fakeConnection{userID: "worker-2"}
	for _, conn := range []*fakeConnection{broken, healthy} {
		if err := cm.RegisterConnection(conn); err != nil {
			t.Fatalf("register failed: %v", err)
		}
	}

	if err := cm.Broadcast(domain.UpdateEvent{Type: domain.MessageShiftUpdate}); err != nil {
		t.Fatalf("broadcast failed: %v", err)
	}
	if len(healthy.sent) != 1 {
		t.Errorf("healthy connection should receive the broadcast despite the failed peer, got %d", len(healthy.sent))
	}
}

func TestConnectionManager_CloseAllEmptiesRegistry(t *testing.T) {
	cm := NewConnectionManager(logger.NewNop())

	a := &fakeConnection{userID: "worker-1"}
	b := &fakeConnection{userID: "worker-2"}
	for _, conn := range []*fakeConnection{a, b} {
		if err := cm.RegisterConnection(conn); err != nil {
			t.Fatalf("register failed: %v", err)
		}
	}

	if err := cm.CloseAll(1001, "shutdown"); err != nil {
		t.Fatalf("close all failed: %v", err)
	}

	for _, conn := range []*fakeConnection{a, b} {
		if !conn.closed || conn.closeCode != 1001 {
			t.Errorf("connection for %s not closed with 1001, closed=%v code=%d",
				conn.userID, conn.closed, conn.closeCode)
		}
	}
	if conns := cm.GetConnectionsForUser("worker-1"); conns != nil {
		t.Error("registry should be empty after CloseAll")
	}
}
