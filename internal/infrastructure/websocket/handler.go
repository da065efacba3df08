package websocket

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"shiftmarket/internal/domain"
	"shiftmarket/internal/infrastructure/redis"
	"shiftmarket/pkg/logger"
)

// CloseAuthRejected tells the client its token was not accepted and that
// retrying the handshake is pointless.
const CloseAuthRejected = 4001

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in development
	},
}

type WebSocketHandler struct {
	sessions    domain.SessionStore
	connManager domain.ConnectionManager
	log         logger.Logger
}

func NewWebSocketHandler(sessions domain.SessionStore,
	connManager domain.ConnectionManager, log logger.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		sessions:    sessions,
		connManager: connManager,
		log:         log,
	}
}

// HandleConnection upgrades the request and binds the connection to the
// session owner. Token validation happens after the upgrade so the rejection
// can carry the auth close code instead of an opaque HTTP failure.
func (h *WebSocketHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("Failed to upgrade connection", "error", err)
		return
	}

	if token == "" {
		h.rejectConnection(conn, "token required")
		return
	}

	session, err := h.sessions.GetSession(r.Context(), token)
	if err != nil {
		if errors.Is(err, redis.ErrSessionNotFound) {
			h.log.Info("Rejected connection - invalid token")
		} else {
			h.log.Error("Failed to validate session", "error", err)
		}
		h.rejectConnection(conn, "invalid token")
		return
	}

	pushConn := NewPushConnection(conn, session.UserID, h.log)

	if err := h.connManager.RegisterConnection(pushConn); err != nil {
		h.log.Error("Failed to register connection", "error", err)
		conn.Close()
		return
	}

	go h.handleMessages(pushConn)
}

func (h *WebSocketHandler) rejectConnection(conn *websocket.Conn, reason string) {
	deadline := time.Now().Add(time.Second)
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(CloseAuthRejected, reason), deadline)
	conn.Close()
}

// handleMessages drains inbound frames. Clients only send heartbeat pings;
// anything else is ignored.
func (h *WebSocketHandler) handleMessages(conn *PushConnection) {
	defer func() {
		h.connManager.UnregisterConnection(conn)
		conn.Close()
	}()

	for {
		frameType, data, err := conn.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.log.Debug("Connection read ended", "user_id", conn.UserID(), "error", err)
			}
			return
		}

		if frameType == websocket.TextMessage && string(data) == "ping" {
			if err := conn.sendText("pong"); err != nil {
				return
			}
		}
	}
}

// PushConnection wraps one websocket connection to a user agent. Writes are
// serialized; gorilla connections allow a single concurrent writer.
type PushConnection struct {
	conn    *websocket.Conn
	userID  string
	writeMu sync.Mutex
	log     logger.Logger
}

func NewPushConnection(conn *websocket.Conn, userID string, log logger.Logger) *PushConnection {
	return &PushConnection{
		conn:   conn,
		userID: userID,
		log:    log,
	}
}

func (pc *PushConnection) Send(event domain.UpdateEvent) error {
	pc.writeMu.Lock()
	defer pc.writeMu.Unlock()
	return pc.conn.WriteJSON(event)
}

func (pc *PushConnection) sendText(message string) error {
	pc.writeMu.Lock()
	defer pc.writeMu.Unlock()
	return pc.conn.WriteMessage(websocket.TextMessage, []byte(message))
}

func (pc *PushConnection) Close() error {
	return pc.conn.Close()
}

func (pc *PushConnection) CloseWithCode(code int, reason string) error {
	deadline := time.Now().Add(time.Second)
	pc.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason), deadline)
	return pc.conn.Close()
}

func (pc *PushConnection) UserID() string {
	return pc.userID
}
