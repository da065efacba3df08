package websocket

import (
	"context"

	"shiftmarket/internal/domain"
)

type WebSocketNotifier struct {
	connManager domain.ConnectionManager
}

func NewWebSocketNotifier(connManager domain.ConnectionManager) *WebSocketNotifier {
	return &WebSocketNotifier{connManager: connManager}
}

func (n *WebSocketNotifier) NotifyUser(ctx context.Context, userID string, event domain.UpdateEvent) error {
	return n.connManager.NotifyUser(userID, event)
}

func (n *WebSocketNotifier) Broadcast(ctx context.Context, event domain.UpdateEvent) error {
	return n.connManager.Broadcast(event)
}
