package domain

import (
	"encoding/json"
	"testing"
)

func TestParseMessageType(t *testing.T) {
	for _, raw := range []string{"notification", "shift_update", "application_update", "payment_update"} {
		msgType, ok := ParseMessageType(raw)
		if !ok {
			t.Errorf("ParseMessageType(%q) rejected a known type", raw)
		}
		if string(msgType) != raw {
			t.Errorf("ParseMessageType(%q) = %q", raw, msgType)
		}
	}

	for _, raw := range []string{"", "bid_update", "NOTIFICATION", "shift"} {
		if _, ok := ParseMessageType(raw); ok {
			t.Errorf("ParseMessageType(%q) accepted an unknown type", raw)
		}
	}
}

func TestNewPushEvent_TargetedAndBroadcast(t *testing.T) {
	event, err := NewPushEvent(MessageShiftUpdate, "", map[string]string{"shift_id": "s1"})
	if err != nil {
		t.Fatalf("NewPushEvent failed: %v", err)
	}
	if event.UserID != "" {
		t.Errorf("broadcast event should have empty user id, got %q", event.UserID)
	}

	raw, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	// Broadcast envelopes omit the routing field entirely.
	var decoded map[string]json.RawMessage
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if _, present := decoded["user_id"]; present {
		t.Error("broadcast envelope should omit user_id")
	}

	targeted, err := NewPushEvent(MessagePaymentUpdate, "worker-1", map[string]string{"payment_id": "p1"})
	if err != nil {
		t.Fatalf("NewPushEvent failed: %v", err)
	}
	update := targeted.Update()
	if update.Type != MessagePaymentUpdate {
		t.Errorf("update type = %q, want %q", update.Type, MessagePaymentUpdate)
	}
	var payload map[string]string
	if err := json.Unmarshal(update.Data, &payload); err != nil {
		t.Fatalf("payload unmarshal failed: %v", err)
	}
	if payload["payment_id"] != "p1" {
		t.Errorf("payload = %v", payload)
	}
}
