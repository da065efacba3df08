package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageType is the closed set of realtime update categories pushed to
// connected clients. Adding a value here requires extending the dispatch and
// cache-invalidation switches that consume it.
type MessageType string

const (
	MessageNotification      MessageType = "notification"
	MessageShiftUpdate       MessageType = "shift_update"
	MessageApplicationUpdate MessageType = "application_update"
	MessagePaymentUpdate     MessageType = "payment_update"
)

// ParseMessageType reports whether raw names a known message type.
func ParseMessageType(raw string) (MessageType, bool) {
	switch MessageType(raw) {
	case MessageNotification, MessageShiftUpdate, MessageApplicationUpdate, MessagePaymentUpdate:
		return MessageType(raw), true
	default:
		return "", false
	}
}

// UpdateEvent is the wire envelope for a single realtime update. Data is
// opaque to the transport and handed through to subscribers unchanged.
type UpdateEvent struct {
	Type MessageType     `json:"type"`
	Data json.RawMessage `json:"data"`
}

// PushEvent is the fan-out envelope published on the event bus. UserID names
// the target connection owner; empty means broadcast to every connection.
type PushEvent struct {
	Type      MessageType     `json:"type"`
	UserID    string          `json:"user_id,omitempty"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

// Update strips the routing fields, leaving the client-facing envelope.
func (e *PushEvent) Update() UpdateEvent {
	return UpdateEvent{Type: e.Type, Data: e.Data}
}

// NewPushEvent marshals payload into a targeted push envelope.
func NewPushEvent(msgType MessageType, userID string, payload interface{}) (*PushEvent, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	return &PushEvent{
		Type:      msgType,
		UserID:    userID,
		Data:      data,
		Timestamp: time.Now(),
	}, nil
}
