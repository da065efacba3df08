package websocket

import (
	"sync"

	"shiftmarket/internal/domain"
	"shiftmarket/pkg/logger"
)

// ConnectionManager tracks live push connections per user. A user may hold
// several connections (one per device or tab).
type ConnectionManager struct {
	userConns map[string][]domain.PushConnection
	mutex     sync.RWMutex
	log       logger.Logger
}

func NewConnectionManager(log logger.Logger) *ConnectionManager {
	return &ConnectionManager{
		userConns: make(map[string][]domain.PushConnection),
		log:       log,
	}
}

func (cm *ConnectionManager) RegisterConnection(conn domain.PushConnection) error {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	cm.userConns[conn.UserID()] = append(cm.userConns[conn.UserID()], conn)

	cm.log.Info("Connection registered", "user_id", conn.UserID())
	return nil
}

func (cm *ConnectionManager) UnregisterConnection(conn domain.PushConnection) error {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	userID := conn.UserID()
	if connections, exists := cm.userConns[userID]; exists {
		var remaining []domain.PushConnection
		for _, existing := range connections {
			if existing != conn {
				remaining = append(remaining, existing)
			}
		}

		if len(remaining) == 0 {
			delete(cm.userConns, userID)
		} else {
			cm.userConns[userID] = remaining
		}
	}

	cm.log.Info("Connection unregistered", "user_id", userID)
	return nil
}

func (cm *ConnectionManager) GetConnectionsForUser(userID string) []domain.PushConnection {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()

	if connections, exists := cm.userConns[userID]; exists {
		snapshot := make([]domain.PushConnection, len(connections))
		copy(snapshot, connections)
		return snapshot
	}

	return nil
}

func (cm *ConnectionManager) NotifyUser(userID string, event domain.UpdateEvent) error {
	connections := cm.GetConnectionsForUser(userID)

	for _, conn := range connections {
		if err := conn.Send(event); err != nil {
			cm.log.Error("Failed to send update", "user_id", userID,
				"type", string(event.Type), "error", err)
			// Continue to other connections
		}
	}

	return nil
}

func (cm *ConnectionManager) Broadcast(event domain.UpdateEvent) error {
	cm.mutex.RLock()
	var connections []domain.PushConnection
	for _, userConnections := range cm.userConns {
		connections = append(connections, userConnections...)
	}
	cm.mutex.RUnlock()

	for _, conn := range connections {
		if err := conn.Send(event); err != nil {
			cm.log.Error("Failed to broadcast update", "user_id", conn.UserID(),
				"type", string(event.Type), "error", err)
		}
	}

	return nil
}

func (cm *ConnectionManager) CloseAll(code int, reason string) error {
	cm.mutex.Lock()
	var connections []domain.PushConnection
	for _, userConnections := range cm.userConns {
		connections = append(connections, userConnections...)
	}
	cm.userConns = make(map[string][]domain.PushConnection)
	cm.mutex.Unlock()

	for _, conn := range connections {
		if err := conn.CloseWithCode(code, reason); err != nil {
			cm.log.Error("Failed to close connection", "user_id", conn.UserID(), "error", err)
		}
	}

	cm.log.Info("All connections closed", "count", len(connections))
	return nil
}
