package node

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestReconnectDelayGrowsLinearly(t *testing.T) {
	base := 3 * time.Second
	want := []time.Duration{3 * time.Second, 6 * time.Second, 9 * time.Second}
	for i, expected := range want {
		if got := reconnectDelay(base, i+1); got != expected {
			t.Errorf("reconnectDelay(3s, %d) = %v, want %v", i+1, got, expected)
		}
	}
}

// testNode is a minimal in-process node for exercising the connection.
type testNode struct {
	server   *httptest.Server
	upgrader websocket.Upgrader
	received chan []byte
	conns    chan *websocket.Conn
	headers  chan http.Header
}

func newTestNode(t *testing.T) *testNode {
	t.Helper()
	n := &testNode{
		received: make(chan []byte, 16),
		conns:    make(chan *websocket.Conn, 4),
		headers:  make(chan http.Header, 4),
	}
	n.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n.headers <- r.Header.Clone()
		ws, err := n.upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		n.conns <- ws
		for {
			_, data, err := ws.ReadMessage()
			if err != nil {
				return
			}
			n.received <- data
		}
	}))
	t.Cleanup(n.server.Close)
	return n
}

func (n *testNode) url() string {
	return "ws" + strings.TrimPrefix(n.server.URL, "http")
}

func waitFor[T any](t *testing.T, ch <-chan T, what string) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
		panic("unreachable")
	}
}

func TestConnHandshakeHeaders(t *testing.T) {
	server := newTestNode(t)

	headers := http.Header{}
	headers.Set("Authorization", "youshallnotpass")
	headers.Set("User-Id", "1234")
	headers.Set("Num-Shards", "1")
	headers.Set("Resume-Key", "resume-abc")

	conn := NewConn(ConnConfig{URL: server.url(), Headers: headers}, ConnHandlers{})
	if err := conn.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() returned error: %v", err)
	}
	defer conn.Close()

	got := waitFor(t, server.headers, "handshake headers")
	for _, key := range []string{"Authorization", "User-Id", "Num-Shards", "Resume-Key"} {
		if got.Get(key) != headers.Get(key) {
			t.Errorf("header %s = %q, want %q", key, got.Get(key), headers.Get(key))
		}
	}
}

func TestConnSendOrdering(t *testing.T) {
	server := newTestNode(t)

	conn := NewConn(ConnConfig{URL: server.url()}, ConnHandlers{})
	if err := conn.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() returned error: %v", err)
	}
	defer conn.Close()

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		payload := map[string]int{"seq": i}
		if err := conn.Send(ctx, payload); err != nil {
			t.Fatalf("Send() #%d returned error: %v", i, err)
		}
	}

	for i := 0; i < 5; i++ {
		data := waitFor(t, server.received, "outbound payload")
		var got map[string]int
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("server received malformed payload: %v", err)
		}
		if got["seq"] != i {
			t.Fatalf("payload #%d has seq %d; outbound order not preserved", i, got["seq"])
		}
	}
}

func TestConnReceiveStripsTrailingPadding(t *testing.T) {
	server := newTestNode(t)

	messages := make(chan []byte, 1)
	conn := NewConn(ConnConfig{URL: server.url()}, ConnHandlers{
		Message: func(data []byte) { messages <- data },
	})
	if err := conn.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() returned error: %v", err)
	}
	defer conn.Close()

	ws := waitFor(t, server.conns, "server-side connection")
	padded := append([]byte(`{"op":"stats"}`), 0x00, 0x00, 0x00)
	if err := ws.WriteMessage(websocket.TextMessage, padded); err != nil {
		t.Fatalf("server write failed: %v", err)
	}

	got := waitFor(t, messages, "inbound message")
	if string(got) != `{"op":"stats"}` {
		t.Errorf("received %q, want padding stripped", got)
	}
}

func TestConnConnectWhileOpen(t *testing.T) {
	server := newTestNode(t)

	conn := NewConn(ConnConfig{URL: server.url()}, ConnHandlers{})
	if err := conn.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() returned error: %v", err)
	}
	defer conn.Close()

	if err := conn.Connect(context.Background()); !errors.Is(err, ErrAlreadyConnected) {
		t.Errorf("second Connect() error = %v, want ErrAlreadyConnected", err)
	}
}

func TestConnCloseIdempotent(t *testing.T) {
	server := newTestNode(t)

	conn := NewConn(ConnConfig{URL: server.url()}, ConnHandlers{})
	if err := conn.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() returned error: %v", err)
	}

	if err := conn.Close(); err != nil {
		t.Fatalf("Close() returned error: %v", err)
	}
	if err := conn.Close(); err != nil {
		t.Errorf("second Close() returned error: %v", err)
	}

	if err := conn.Send(context.Background(), map[string]string{"op": "stop"}); !errors.Is(err, ErrConnClosed) {
		t.Errorf("Send() after Close error = %v, want ErrConnClosed", err)
	}
}

func TestConnReconnectExhausted(t *testing.T) {
	var exhausted atomic.Int32
	done := make(chan struct{}, 1)

	// Nothing listens here; every dial fails immediately.
	conn := NewConn(ConnConfig{
		URL:         "ws://127.0.0.1:1",
		BaseDelay:   time.Millisecond,
		MaxAttempts: 3,
	}, ConnHandlers{
		Exhausted: func() {
			exhausted.Add(1)
			done <- struct{}{}
		},
	})
	defer conn.Close()

	if err := conn.Connect(context.Background()); err == nil {
		t.Fatal("Connect() to a dead address succeeded")
	}

	waitFor(t, done, "exhausted notification")
	// Give any stray retries a moment to surface a duplicate.
	time.Sleep(50 * time.Millisecond)
	if n := exhausted.Load(); n != 1 {
		t.Errorf("exhausted notification fired %d times, want exactly 1", n)
	}
}

func TestConnExhaustedFiresAgainAfterReconnect(t *testing.T) {
	exhausted := make(chan struct{}, 4)

	// Nothing listens here; every dial fails immediately.
	conn := NewConn(ConnConfig{
		URL:         "ws://127.0.0.1:1",
		BaseDelay:   time.Millisecond,
		MaxAttempts: 2,
	}, ConnHandlers{
		Exhausted: func() { exhausted <- struct{}{} },
	})
	defer conn.Close()

	if err := conn.Connect(context.Background()); err == nil {
		t.Fatal("Connect() to a dead address succeeded")
	}
	waitFor(t, exhausted, "first exhausted notification")

	// An explicit Connect buys a fresh retry budget, so running out of
	// it again must be reported again.
	if err := conn.Connect(context.Background()); err == nil {
		t.Fatal("second Connect() to a dead address succeeded")
	}
	waitFor(t, exhausted, "second exhausted notification")
}

func TestConnConnectDuringBackoffKeepsOneSocket(t *testing.T) {
	server := newTestNode(t)

	dropped := make(chan struct{}, 1)
	conn := NewConn(ConnConfig{
		URL:       server.url(),
		BaseDelay: 500 * time.Millisecond,
	}, ConnHandlers{
		Closed: func(error) { dropped <- struct{}{} },
	})
	if err := conn.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() returned error: %v", err)
	}
	defer conn.Close()

	ws := waitFor(t, server.conns, "server-side connection")
	ws.Close()
	waitFor(t, dropped, "drop notification")

	// The reconnect loop is now in its backoff sleep. An explicit
	// Connect in that window must win and leave exactly one socket.
	time.Sleep(20 * time.Millisecond)
	if err := conn.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() during backoff returned error: %v", err)
	}
	waitFor(t, server.conns, "explicitly dialed connection")

	// Outlast the backoff so a second dial from the waking loop would
	// have landed by now.
	time.Sleep(700 * time.Millisecond)
	select {
	case <-server.conns:
		t.Fatal("reconnect loop dialed a second socket past the explicit Connect")
	default:
	}

	if err := conn.Send(context.Background(), map[string]string{"op": "stop"}); err != nil {
		t.Fatalf("Send() returned error: %v", err)
	}
	waitFor(t, server.received, "payload on the surviving socket")
}

func TestConnReconnectsAfterServerDrop(t *testing.T) {
	server := newTestNode(t)

	opens := make(chan bool, 4)
	conn := NewConn(ConnConfig{
		URL:       server.url(),
		BaseDelay: 10 * time.Millisecond,
	}, ConnHandlers{
		Open: func(reconnected bool) { opens <- reconnected },
	})
	if err := conn.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() returned error: %v", err)
	}
	defer conn.Close()

	if reconnected := waitFor(t, opens, "initial open"); reconnected {
		t.Error("initial open reported reconnected = true")
	}

	// Drop the connection server-side without a clean close frame.
	ws := waitFor(t, server.conns, "server-side connection")
	ws.Close()

	if reconnected := waitFor(t, opens, "reopen after drop"); !reconnected {
		t.Error("reopen after drop reported reconnected = false")
	}
}
