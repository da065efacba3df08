package realtime

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"shiftmarket/internal/domain"
	"shiftmarket/pkg/logger"
)

func waitFor(t *testing.T, timeout time.Duration, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

type recordingInvalidator struct {
	mu     sync.Mutex
	groups []Group
}

func (r *recordingInvalidator) Invalidate(group Group) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.groups = append(r.groups, group)
}

func (r *recordingInvalidator) count(group Group) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := 0
	for _, g := range r.groups {
		if g == group {
			total++
		}
	}
	return total
}

type wsServer struct {
	srv *httptest.Server

	mu    sync.Mutex
	conns int
}

// newWSServer hosts a websocket endpoint; handler runs per connection and
// owns the conn.
func newWSServer(t *testing.T, handler func(conn *websocket.Conn)) *wsServer {
	t.Helper()
	s := &wsServer{}
	upgrader := websocket.Upgrader{}
	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		s.mu.Lock()
		s.conns++
		s.mu.Unlock()
		handler(conn)
	}))
	t.Cleanup(s.srv.Close)
	return s
}

func (s *wsServer) url() string {
	return "ws" + strings.TrimPrefix(s.srv.URL, "http")
}

func (s *wsServer) connCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conns
}

// answerPings reads frames and answers "ping" with "pong" until the peer
// goes away. Returns the close code received, or 0.
func answerPings(conn *websocket.Conn, closeCode *int, closeMu *sync.Mutex) {
	defer conn.Close()
	for {
		frameType, data, err := conn.ReadMessage()
		if err != nil {
			if closeCode != nil {
				if closeErr, ok := err.(*websocket.CloseError); ok {
					closeMu.Lock()
					*closeCode = closeErr.Code
					closeMu.Unlock()
				}
			}
			return
		}
		if frameType == websocket.TextMessage && string(data) == "ping" {
			conn.WriteMessage(websocket.TextMessage, []byte("pong"))
		}
	}
}

func testOptions(url string) Options {
	return Options{
		URL:               url,
		HeartbeatInterval: 50 * time.Millisecond,
		HeartbeatTimeout:  100 * time.Millisecond,
		ReconnectBase:     10 * time.Millisecond,
		ReconnectMax:      40 * time.Millisecond,
		MaxAttempts:       3,
		PollInterval:      time.Hour, // polling disabled unless a test shortens it
	}
}

func newTestClient(t *testing.T, opts Options, invalidator Invalidator) (*Client, *CredentialStore) {
	t.Helper()
	creds := NewCredentialStore(logger.NewNop())
	if err := creds.SetToken("test-token"); err != nil {
		t.Fatalf("SetToken: %v", err)
	}
	client, err := NewClient(opts, creds, invalidator, logger.NewNop())
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	t.Cleanup(client.Stop)
	return client, creds
}

func TestNewClient_RejectsNonWebsocketScheme(t *testing.T) {
	creds := NewCredentialStore(logger.NewNop())
	if _, err := NewClient(Options{URL: "http://example.com/ws"}, creds, nil, logger.NewNop()); err == nil {
		t.Fatal("expected error for http scheme")
	}
}

func TestConnect_TransitionsToConnectedAndResetsAttempts(t *testing.T) {
	server := newWSServer(t, func(conn *websocket.Conn) {
		answerPings(conn, nil, nil)
	})

	client, _ := newTestClient(t, testOptions(server.url()), &recordingInvalidator{})
	if got := client.State(); got != StateDisconnected {
		t.Fatalf("state before Start = %v, want disconnected", got)
	}

	// Pretend earlier failures consumed part of the retry budget.
	client.mu.Lock()
	client.attempts = 2
	client.mu.Unlock()

	client.Start()
	waitFor(t, 2*time.Second, "connected state", func() bool {
		return client.State() == StateConnected
	})

	status := client.Status()
	if status.Attempts != 0 {
		t.Fatalf("attempts after successful connect = %d, want 0", status.Attempts)
	}
}

func TestConnect_NoCredentialIsNoOp(t *testing.T) {
	server := newWSServer(t, func(conn *websocket.Conn) {
		answerPings(conn, nil, nil)
	})

	creds := NewCredentialStore(logger.NewNop())
	client, err := NewClient(testOptions(server.url()), creds, &recordingInvalidator{}, logger.NewNop())
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	t.Cleanup(client.Stop)

	client.Start()
	time.Sleep(50 * time.Millisecond)

	if got := client.State(); got != StateDisconnected {
		t.Fatalf("state without credential = %v, want disconnected", got)
	}
	if server.connCount() != 0 {
		t.Fatalf("dialed %d times without a credential", server.connCount())
	}
}

func TestReconnectDelays_FollowCappedExponentialBackoff(t *testing.T) {
	client, _ := newTestClient(t, Options{
		URL:           "ws://127.0.0.1:1/api/v1/ws",
		ReconnectBase: 10 * time.Millisecond,
		ReconnectMax:  40 * time.Millisecond,
		MaxAttempts:   5,
	}, nil)

	want := []time.Duration{
		10 * time.Millisecond, // base * 2^0
		20 * time.Millisecond, // base * 2^1
		40 * time.Millisecond, // base * 2^2
		40 * time.Millisecond, // capped
		40 * time.Millisecond, // capped
	}
	for i, expected := range want {
		if got := client.retryDelays.NextBackOff(); got != expected {
			t.Fatalf("delay before attempt %d = %v, want %v", i+1, got, expected)
		}
	}

	client.retryDelays.Reset()
	if got := client.retryDelays.NextBackOff(); got != 10*time.Millisecond {
		t.Fatalf("delay after reset = %v, want base", got)
	}
}

func TestReconnect_GivesUpAfterMaxAttemptsAndPollsInstead(t *testing.T) {
	invalidator := &recordingInvalidator{}
	opts := testOptions("ws://127.0.0.1:1/api/v1/ws") // nothing listens here
	opts.MaxAttempts = 2
	opts.PollInterval = 30 * time.Millisecond
	client, _ := newTestClient(t, opts, invalidator)

	client.Start()

	waitFor(t, 2*time.Second, "retry budget exhaustion", func() bool {
		status := client.Status()
		return status.State == "disconnected" && status.Attempts > opts.MaxAttempts
	})

	// With the push channel down, the fallback poll keeps refreshing the
	// notifications group.
	waitFor(t, 2*time.Second, "fallback poll", func() bool {
		return invalidator.count(GroupNotifications) >= 2
	})
	if invalidator.count(GroupShifts) != 0 {
		t.Fatal("fallback poll refreshed the shifts group")
	}
}

func TestAuthRejectedClose_NeverRetries(t *testing.T) {
	server := newWSServer(t, func(conn *websocket.Conn) {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(CloseAuthRejected, "unauthorized"),
			time.Now().Add(time.Second))
		// Keep the conn open briefly so the close frame is delivered before
		// the TCP teardown races it.
		conn.ReadMessage()
		conn.Close()
	})

	client, _ := newTestClient(t, testOptions(server.url()), &recordingInvalidator{})
	client.Start()

	waitFor(t, 2*time.Second, "disconnected state", func() bool {
		return client.State() == StateDisconnected && server.connCount() >= 1
	})

	// Give any (incorrect) reconnect timer room to fire.
	time.Sleep(150 * time.Millisecond)
	if got := server.connCount(); got != 1 {
		t.Fatalf("dialed %d times after auth-rejected close, want 1", got)
	}
}

func TestMalformedFrames_DroppedWithoutDispatch(t *testing.T) {
	frames := make(chan []byte, 8)
	server := newWSServer(t, func(conn *websocket.Conn) {
		defer conn.Close()
		for frame := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		}
		// Hold the connection open until the client goes away.
		answerPings(conn, nil, nil)
	})

	invalidator := &recordingInvalidator{}
	client, _ := newTestClient(t, testOptions(server.url()), invalidator)

	var received []string
	var receivedMu sync.Mutex
	client.Subscribe(domain.MessageShiftUpdate, func(data json.RawMessage) {
		receivedMu.Lock()
		received = append(received, string(data))
		receivedMu.Unlock()
	})

	client.Start()

	frames <- []byte("this is not json")
	frames <- []byte(`{"type":"bogus","data":{}}`)
	frames <- []byte(`{"type":123}`)
	frames <- []byte(`{"type":"shift_update","data":{"shift_id":"s1"}}`)
	close(frames)

	waitFor(t, 2*time.Second, "valid frame delivery", func() bool {
		receivedMu.Lock()
		defer receivedMu.Unlock()
		return len(received) == 1
	})

	receivedMu.Lock()
	payload := received[0]
	receivedMu.Unlock()
	if payload != `{"shift_id":"s1"}` {
		t.Fatalf("subscriber payload = %s", payload)
	}
	if got := invalidator.count(GroupShifts); got != 1 {
		t.Fatalf("shifts group invalidated %d times, want 1", got)
	}
	if client.State() != StateConnected {
		t.Fatalf("client state after malformed frames = %v, want connected", client.State())
	}
}

func TestDispatch_InvalidatesMappedGroup(t *testing.T) {
	cases := []struct {
		frame string
		group Group
	}{
		{`{"type":"notification","data":{}}`, GroupNotifications},
		{`{"type":"shift_update","data":{}}`, GroupShifts},
		{`{"type":"application_update","data":{}}`, GroupApplications},
		{`{"type":"payment_update","data":{}}`, GroupWallet},
	}

	for _, tc := range cases {
		invalidator := &recordingInvalidator{}
		client, _ := newTestClient(t, testOptions("ws://127.0.0.1:1/ws"), invalidator)
		client.handleMessage([]byte(tc.frame))
		if got := invalidator.count(tc.group); got != 1 {
			t.Fatalf("frame %s invalidated %q %d times, want 1", tc.frame, tc.group, got)
		}
	}
}

func TestHeartbeatTimeout_ForcesReconnect(t *testing.T) {
	server := newWSServer(t, func(conn *websocket.Conn) {
		// Swallow pings without answering; the client must detect the dead
		// connection and dial again.
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	opts := testOptions(server.url())
	opts.HeartbeatInterval = 20 * time.Millisecond
	opts.HeartbeatTimeout = 40 * time.Millisecond
	client, _ := newTestClient(t, opts, &recordingInvalidator{})
	client.Start()

	waitFor(t, 3*time.Second, "reconnect after missed pong", func() bool {
		return server.connCount() >= 2
	})
}

func TestHeartbeat_PongKeepsConnectionAlive(t *testing.T) {
	server := newWSServer(t, func(conn *websocket.Conn) {
		answerPings(conn, nil, nil)
	})

	opts := testOptions(server.url())
	opts.HeartbeatInterval = 20 * time.Millisecond
	opts.HeartbeatTimeout = 60 * time.Millisecond
	client, _ := newTestClient(t, opts, &recordingInvalidator{})
	client.Start()

	waitFor(t, 2*time.Second, "connected state", func() bool {
		return client.State() == StateConnected
	})

	// Several heartbeat cycles must pass without the connection dropping.
	time.Sleep(200 * time.Millisecond)
	if client.State() != StateConnected {
		t.Fatalf("state after heartbeat cycles = %v, want connected", client.State())
	}
	if got := server.connCount(); got != 1 {
		t.Fatalf("connection count = %d, want 1", got)
	}
}

func TestCredentialClear_ClosesWithNormalCodeAndStaysDown(t *testing.T) {
	var closeMu sync.Mutex
	closeCode := 0
	server := newWSServer(t, func(conn *websocket.Conn) {
		answerPings(conn, &closeCode, &closeMu)
	})

	client, creds := newTestClient(t, testOptions(server.url()), &recordingInvalidator{})
	client.Start()

	waitFor(t, 2*time.Second, "connected state", func() bool {
		return client.State() == StateConnected
	})

	if err := creds.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}

	waitFor(t, 2*time.Second, "normal close at server", func() bool {
		closeMu.Lock()
		defer closeMu.Unlock()
		return closeCode == websocket.CloseNormalClosure
	})

	time.Sleep(150 * time.Millisecond)
	if got := client.State(); got != StateDisconnected {
		t.Fatalf("state after credential clear = %v, want disconnected", got)
	}
	if got := server.connCount(); got != 1 {
		t.Fatalf("dialed %d times after logout, want 1", got)
	}

	// A fresh login brings the connection back.
	if err := creds.SetToken("fresh-token"); err != nil {
		t.Fatalf("SetToken: %v", err)
	}
	waitFor(t, 2*time.Second, "reconnect after new credential", func() bool {
		return client.State() == StateConnected && server.connCount() == 2
	})
}

func TestStop_CancelsPendingReconnect(t *testing.T) {
	opts := testOptions("ws://127.0.0.1:1/ws")
	opts.ReconnectBase = 20 * time.Millisecond
	client, _ := newTestClient(t, opts, &recordingInvalidator{})
	client.Start()

	waitFor(t, 2*time.Second, "reconnecting state", func() bool {
		return client.State() == StateReconnecting
	})

	client.Stop()
	if got := client.State(); got != StateDisconnected {
		t.Fatalf("state after Stop = %v, want disconnected", got)
	}

	client.mu.Lock()
	timerPending := client.reconnectTimer != nil
	client.mu.Unlock()
	if timerPending {
		t.Fatal("reconnect timer still pending after Stop")
	}
}
