package realtime

import (
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gorilla/websocket"

	"shiftmarket/internal/domain"
	"shiftmarket/pkg/logger"
)

// CloseAuthRejected is the application close code the server sends when the
// session token is not accepted. It is terminal for the session: the client
// stops dialing and relies on polling until a new credential appears.
const CloseAuthRejected = 4001

const (
	pingFrame = "ping"
	pongFrame = "pong"
)

type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}

type Options struct {
	// URL is the push endpoint, ws:// or wss://. The session token is added
	// as a query parameter at dial time.
	URL               string
	HeartbeatInterval time.Duration
	HeartbeatTimeout  time.Duration
	ReconnectBase     time.Duration
	ReconnectMax      time.Duration
	MaxAttempts       int
	PollInterval      time.Duration
	Dialer            *websocket.Dialer
}

func (o Options) withDefaults() Options {
	if o.HeartbeatInterval <= 0 {
		o.HeartbeatInterval = 30 * time.Second
	}
	if o.HeartbeatTimeout <= 0 {
		o.HeartbeatTimeout = 10 * time.Second
	}
	if o.ReconnectBase <= 0 {
		o.ReconnectBase = time.Second
	}
	if o.ReconnectMax <= 0 {
		o.ReconnectMax = 30 * time.Second
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 5
	}
	if o.PollInterval <= 0 {
		o.PollInterval = time.Minute
	}
	if o.Dialer == nil {
		o.Dialer = websocket.DefaultDialer
	}
	return o
}

// Client keeps cached marketplace data fresh over a persistent websocket
// connection and degrades to coarse polling when the connection is
// unavailable. One Client serves one authenticated session; the composition
// root owns it and drives Start/Stop explicitly.
type Client struct {
	opts        Options
	creds       *CredentialStore
	invalidator Invalidator
	log         logger.Logger
	subs        *registry

	mu             sync.Mutex
	started        bool
	state          State
	conn           *websocket.Conn
	gen            int
	attempts       int
	retryDelays    *backoff.ExponentialBackOff
	reconnectTimer *time.Timer
	pongTimer      *time.Timer
	heartbeatStop  chan struct{}
	pollStop       chan struct{}
	credCancel     func()
	lastEvent      map[domain.MessageType]time.Time
}

func NewClient(opts Options, creds *CredentialStore, invalidator Invalidator, log logger.Logger) (*Client, error) {
	opts = opts.withDefaults()
	parsed, err := url.Parse(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid realtime url: %w", err)
	}
	if parsed.Scheme != "ws" && parsed.Scheme != "wss" {
		return nil, fmt.Errorf("realtime url must use ws or wss scheme, got %q", parsed.Scheme)
	}
	if invalidator == nil {
		invalidator = InvalidatorFunc(func(Group) {})
	}

	retryDelays := backoff.NewExponentialBackOff()
	retryDelays.InitialInterval = opts.ReconnectBase
	retryDelays.RandomizationFactor = 0
	retryDelays.Multiplier = 2
	retryDelays.MaxInterval = opts.ReconnectMax
	retryDelays.Reset()

	return &Client{
		opts:        opts,
		creds:       creds,
		invalidator: invalidator,
		log:         log,
		subs:        newRegistry(),
		retryDelays: retryDelays,
		lastEvent:   make(map[domain.MessageType]time.Time),
	}, nil
}

// Subscribe registers a handler for one message type and returns its
// unsubscribe function. Handlers run in subscription order.
func (c *Client) Subscribe(msgType domain.MessageType, handler Handler) func() {
	return c.subs.subscribe(msgType, handler)
}

// Start begins the credential-driven connection lifecycle and the polling
// fallback. Calling Start on a started client is a no-op.
func (c *Client) Start() {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.pollStop = make(chan struct{})
	pollStop := c.pollStop
	c.credCancel = c.creds.OnChange(c.onCredentialChange)
	c.mu.Unlock()

	go c.pollLoop(pollStop)
	c.Connect()
}

// Stop tears down the connection, cancels every pending timer, and detaches
// from the credential store.
func (c *Client) Stop() {
	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return
	}
	c.started = false
	c.cancelReconnectLocked()
	c.closeConnLocked(websocket.CloseNormalClosure, "shutdown")
	c.state = StateDisconnected
	if c.pollStop != nil {
		close(c.pollStop)
		c.pollStop = nil
	}
	credCancel := c.credCancel
	c.credCancel = nil
	c.mu.Unlock()

	if credCancel != nil {
		credCancel()
	}
	c.log.Info("realtime client stopped")
}

// Connect is the idempotent entry point: it closes any prior connection and
// dials again. Without a credential it leaves the client disconnected.
func (c *Client) Connect() {
	token := c.creds.Token()

	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return
	}
	c.cancelReconnectLocked()
	c.closeConnLocked(websocket.CloseNormalClosure, "reconnect")
	if token == "" {
		c.state = StateDisconnected
		c.mu.Unlock()
		c.log.Debug("no credential present, staying disconnected")
		return
	}
	c.state = StateConnecting
	gen := c.gen
	c.mu.Unlock()

	go c.dial(gen, token)
}

// Reconnect resets the retry budget and dials immediately.
func (c *Client) Reconnect() {
	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return
	}
	c.attempts = 0
	c.retryDelays.Reset()
	c.mu.Unlock()

	c.Connect()
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Status is a point-in-time snapshot for diagnostics.
type Status struct {
	State     string               `json:"state"`
	Attempts  int                  `json:"attempts"`
	LastEvent map[string]time.Time `json:"last_event,omitempty"`
}

func (c *Client) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	lastEvent := make(map[string]time.Time, len(c.lastEvent))
	for msgType, at := range c.lastEvent {
		lastEvent[string(msgType)] = at
	}
	return Status{
		State:     c.state.String(),
		Attempts:  c.attempts,
		LastEvent: lastEvent,
	}
}

func (c *Client) dial(gen int, token string) {
	endpoint, err := dialURL(c.opts.URL, token)
	if err != nil {
		c.log.Error("failed to build realtime url", "error", err)
		c.handleDialFailure(gen, err, false)
		return
	}

	conn, resp, err := c.opts.Dialer.Dial(endpoint, nil)
	if err != nil {
		authRejected := resp != nil && (resp.StatusCode == 401 || resp.StatusCode == 403)
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
		c.handleDialFailure(gen, err, authRejected)
		return
	}

	c.mu.Lock()
	if !c.started || gen != c.gen {
		c.mu.Unlock()
		conn.Close()
		return
	}
	c.conn = conn
	c.state = StateConnected
	c.attempts = 0
	c.retryDelays.Reset()
	heartbeatStop := make(chan struct{})
	c.heartbeatStop = heartbeatStop
	c.mu.Unlock()

	c.log.Info("realtime connection established")
	go c.readLoop(conn, gen)
	go c.heartbeatLoop(conn, gen, heartbeatStop)
}

func (c *Client) handleDialFailure(gen int, err error, authRejected bool) {
	c.mu.Lock()
	if !c.started || gen != c.gen {
		c.mu.Unlock()
		return
	}
	if authRejected {
		c.state = StateDisconnected
		c.mu.Unlock()
		c.log.Warn("realtime handshake rejected, falling back to polling", "error", err)
		return
	}
	c.scheduleReconnectLocked()
	c.mu.Unlock()
	c.log.Debug("realtime dial failed", "error", err)
}

func (c *Client) readLoop(conn *websocket.Conn, gen int) {
	for {
		frameType, data, err := conn.ReadMessage()
		if err != nil {
			c.handleClosed(gen, err)
			return
		}
		if frameType != websocket.TextMessage {
			continue
		}
		if string(data) == pongFrame {
			c.ackPong(gen)
			continue
		}
		c.handleMessage(data)
	}
}

// handleMessage decodes one inbound frame and routes it. Malformed input is
// dropped; it must never take the read loop down.
func (c *Client) handleMessage(data []byte) {
	var event domain.UpdateEvent
	if err := json.Unmarshal(data, &event); err != nil {
		c.log.Debug("dropping malformed realtime frame", "error", err)
		return
	}
	msgType, ok := domain.ParseMessageType(string(event.Type))
	if !ok {
		c.log.Debug("dropping realtime frame with unknown type", "type", string(event.Type))
		return
	}

	c.mu.Lock()
	c.lastEvent[msgType] = time.Now()
	c.mu.Unlock()

	c.subs.dispatch(msgType, event.Data, c.log)
	c.invalidator.Invalidate(groupForMessage(msgType))
}

func (c *Client) heartbeatLoop(conn *websocket.Conn, gen int, stop chan struct{}) {
	ticker := time.NewTicker(c.opts.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.TextMessage, []byte(pingFrame)); err != nil {
				// The read loop observes the broken socket and drives recovery.
				return
			}
			c.armPongTimer(gen)
		}
	}
}

func (c *Client) armPongTimer(gen int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.started || gen != c.gen {
		return
	}
	// An unacknowledged ping already has a deadline pending.
	if c.pongTimer != nil {
		return
	}
	c.pongTimer = time.AfterFunc(c.opts.HeartbeatTimeout, func() {
		c.heartbeatExpired(gen)
	})
}

func (c *Client) ackPong(gen int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return
	}
	if c.pongTimer != nil {
		c.pongTimer.Stop()
		c.pongTimer = nil
	}
}

// heartbeatExpired forcibly closes a connection that stopped acknowledging
// pings. The resulting read error follows the abnormal-close path.
func (c *Client) heartbeatExpired(gen int) {
	c.mu.Lock()
	if !c.started || gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.pongTimer = nil
	conn := c.conn
	c.mu.Unlock()

	if conn != nil {
		c.log.Warn("heartbeat timed out, closing connection")
		conn.Close()
	}
}

func (c *Client) handleClosed(gen int, err error) {
	c.mu.Lock()
	if !c.started || gen != c.gen {
		// A deliberate teardown already dealt with this connection.
		c.mu.Unlock()
		return
	}
	c.stopConnTimersLocked()
	c.conn = nil

	switch {
	case websocket.IsCloseError(err, websocket.CloseNormalClosure):
		c.state = StateDisconnected
		c.mu.Unlock()
		c.log.Info("realtime connection closed")
	case websocket.IsCloseError(err, CloseAuthRejected):
		c.state = StateDisconnected
		c.mu.Unlock()
		c.log.Warn("realtime authentication rejected, falling back to polling")
	default:
		c.scheduleReconnectLocked()
		c.mu.Unlock()
		c.log.Debug("realtime connection lost", "error", err)
	}
}

func (c *Client) scheduleReconnectLocked() {
	c.attempts++
	if c.attempts > c.opts.MaxAttempts {
		c.state = StateDisconnected
		c.log.Warn("reconnect attempts exhausted, relying on polling",
			"max_attempts", c.opts.MaxAttempts)
		return
	}
	delay := c.retryDelays.NextBackOff()
	c.state = StateReconnecting
	c.reconnectTimer = time.AfterFunc(delay, c.Connect)
	c.log.Debug("scheduling reconnect", "attempt", c.attempts, "delay", delay.String())
}

func (c *Client) onCredentialChange(change Change) {
	if change.Token == "" {
		c.mu.Lock()
		if !c.started {
			c.mu.Unlock()
			return
		}
		c.cancelReconnectLocked()
		c.closeConnLocked(websocket.CloseNormalClosure, "logged out")
		c.state = StateDisconnected
		c.mu.Unlock()
		c.log.Info("credential cleared, realtime idle until next login")
		return
	}
	c.log.Debug("credential changed, reconnecting")
	c.Reconnect()
}

// pollLoop fires the fallback refresh at a fixed coarse interval whenever a
// credential exists and the push channel is down. Only the notification
// group is refreshed; the other groups wait for the next live connection.
func (c *Client) pollLoop(stop chan struct{}) {
	ticker := time.NewTicker(c.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if c.creds.Token() == "" {
				continue
			}
			if c.State() == StateConnected {
				continue
			}
			c.log.Debug("polling fallback: refreshing notifications")
			c.invalidator.Invalidate(GroupNotifications)
		}
	}
}

func (c *Client) cancelReconnectLocked() {
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
}

// closeConnLocked cancels the connection-scoped timers, sends a close frame,
// and bumps the generation counter so callbacks from the old connection are
// ignored.
func (c *Client) closeConnLocked(code int, reason string) {
	c.stopConnTimersLocked()
	if c.conn != nil {
		deadline := time.Now().Add(time.Second)
		c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(code, reason), deadline)
		c.conn.Close()
		c.conn = nil
	}
	c.gen++
}

func (c *Client) stopConnTimersLocked() {
	if c.heartbeatStop != nil {
		close(c.heartbeatStop)
		c.heartbeatStop = nil
	}
	if c.pongTimer != nil {
		c.pongTimer.Stop()
		c.pongTimer = nil
	}
}

func dialURL(base, token string) (string, error) {
	parsed, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	query := parsed.Query()
	query.Set("token", token)
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}
