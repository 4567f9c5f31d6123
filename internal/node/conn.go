// Package node implements the control-plane client for the remote audio
// node: the websocket connection manager, the session facade that routes
// inbound events, and the REST track loader.
package node

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ErrAlreadyConnected is returned by Connect on an open connection.
var ErrAlreadyConnected = fmt.Errorf("node connection is already open")

// ErrConnClosed is returned by Send after Close.
var ErrConnClosed = fmt.Errorf("node connection is closed")

type connState int

const (
	stateClosed connState = iota
	stateConnecting
	stateOpen
)

// ConnHandlers receive connection lifecycle notifications. Transport
// failures are reported here; they are never surfaced to Send callers.
type ConnHandlers struct {
	// Message is invoked with each reassembled inbound message.
	Message func(data []byte)
	// Open fires after every successful dial. reconnected is false
	// for the initial Connect and true for automatic reconnects.
	Open func(reconnected bool)
	// Closed fires when the socket drops outside of a local Close.
	Closed func(err error)
	// Exhausted fires once per connect cycle when the reconnect budget
	// runs out. An explicit Connect arms it again.
	Exhausted func()
}

type ConnConfig struct {
	// URL is the node's websocket endpoint.
	URL string
	// Headers are sent with every dial, including reconnects.
	Headers http.Header
	// BaseDelay scales the reconnect backoff: the Nth attempt waits
	// N × BaseDelay. The protocol's backoff has always grown linearly,
	// not exponentially; every client generation agrees on it.
	BaseDelay time.Duration
	// MaxAttempts bounds automatic reconnects. Zero or negative
	// means retry forever.
	MaxAttempts      int
	HandshakeTimeout time.Duration
}

// Conn maintains one logical connection to the node, hiding physical
// reconnects from callers. A single writer goroutine drains the outbound
// queue so payloads reach the node in submission order; a voiceUpdate
// enqueued before a play is always observed first.
type Conn struct {
	cfg      ConnConfig
	handlers ConnHandlers

	sendCh chan []byte
	done   chan struct{}

	mu        sync.Mutex
	ws        *websocket.Conn
	stop      chan struct{}
	state     connState
	attempts  int
	closing   bool
	exhausted bool
}

func NewConn(cfg ConnConfig, handlers ConnHandlers) *Conn {
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 3 * time.Second
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = 10 * time.Second
	}
	return &Conn{
		cfg:      cfg,
		handlers: handlers,
		sendCh:   make(chan []byte, 64),
		done:     make(chan struct{}),
	}
}

// Connect dials the node. It fails if the connection is already open.
// A failed dial starts the reconnect procedure in the background, so a
// returned error does not mean the connection is given up on. An
// explicit Connect starts a fresh reconnect cycle with a full budget.
func (c *Conn) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.closing {
		c.mu.Unlock()
		return ErrConnClosed
	}
	if c.state != stateClosed {
		c.mu.Unlock()
		return ErrAlreadyConnected
	}
	c.attempts = 0
	c.exhausted = false
	c.mu.Unlock()

	if err := c.dial(ctx); err != nil {
		if errors.Is(err, ErrConnClosed) || errors.Is(err, ErrAlreadyConnected) {
			return err
		}
		go c.reconnect()
		return err
	}
	return nil
}

// Open reports whether the connection is currently established.
func (c *Conn) Open() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == stateOpen
}

// Send serializes the payload and queues it for ordered delivery.
// Transport failures after this point are handled by the reconnect
// procedure, not reported here.
func (c *Conn) Send(ctx context.Context, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}
	select {
	case c.sendCh <- data:
		return nil
	case <-c.done:
		return ErrConnClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close tears the connection down and stops any pending reconnects.
// It is safe to call on an already-closed connection.
func (c *Conn) Close() error {
	c.mu.Lock()
	if c.closing {
		c.mu.Unlock()
		return nil
	}
	c.closing = true
	close(c.done)
	ws := c.ws
	c.ws = nil
	if c.stop != nil {
		close(c.stop)
		c.stop = nil
	}
	c.state = stateClosed
	c.mu.Unlock()

	if ws == nil {
		return nil
	}

	deadline := time.Now().Add(time.Second)
	message := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = ws.WriteControl(websocket.CloseMessage, message, deadline)
	return ws.Close()
}

// dial claims the closed-to-connecting transition, so of all concurrent
// callers (Connect, the reconnect loop) exactly one opens a socket and
// starts a writer. The losers back off with a sentinel error.
func (c *Conn) dial(ctx context.Context) error {
	c.mu.Lock()
	if c.closing {
		c.mu.Unlock()
		return ErrConnClosed
	}
	if c.state != stateClosed {
		c.mu.Unlock()
		return ErrAlreadyConnected
	}
	c.state = stateConnecting
	c.mu.Unlock()

	dialer := websocket.Dialer{HandshakeTimeout: c.cfg.HandshakeTimeout}
	ws, _, err := dialer.DialContext(ctx, c.cfg.URL, c.cfg.Headers)
	if err != nil {
		c.mu.Lock()
		if c.state == stateConnecting {
			c.state = stateClosed
		}
		c.mu.Unlock()
		return fmt.Errorf("failed to dial node at %s: %w", c.cfg.URL, err)
	}

	c.mu.Lock()
	if c.closing {
		c.state = stateClosed
		c.mu.Unlock()
		ws.Close()
		return ErrConnClosed
	}
	if c.stop != nil {
		close(c.stop)
	}
	c.ws = ws
	c.state = stateOpen
	reconnected := c.attempts > 0
	c.attempts = 0
	stop := make(chan struct{})
	c.stop = stop
	c.mu.Unlock()

	go c.readLoop(ws)
	go c.writeLoop(ws, stop)

	if c.handlers.Open != nil {
		c.handlers.Open(reconnected)
	}
	return nil
}

// readLoop reassembles inbound frames into whole messages. The node pads
// some frames with trailing NULs; those are stripped before dispatch.
func (c *Conn) readLoop(ws *websocket.Conn) {
	for {
		_, r, err := ws.NextReader()
		if err != nil {
			c.handleSocketError(ws, err)
			return
		}
		data, err := io.ReadAll(r)
		if err != nil {
			c.handleSocketError(ws, err)
			return
		}
		data = bytes.TrimRight(data, "\x00")
		if len(data) == 0 {
			continue
		}
		if c.handlers.Message != nil {
			c.handlers.Message(data)
		}
	}
}

// writeLoop is the single consumer of the outbound queue, which is what
// guarantees FIFO delivery. A write failure abandons the loop; the read
// loop observes the same broken socket and drives the reconnect.
func (c *Conn) writeLoop(ws *websocket.Conn, stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case <-c.done:
			return
		case data := <-c.sendCh:
			if err := ws.WriteMessage(websocket.TextMessage, data); err != nil {
				slog.Warn("failed to write payload to node", "error", err)
				return
			}
		}
	}
}

// handleSocketError converts a broken socket into the reconnect
// procedure, unless the close was local or a clean server goodbye.
func (c *Conn) handleSocketError(ws *websocket.Conn, err error) {
	c.mu.Lock()
	if c.ws != ws {
		// A newer connection already replaced this one.
		c.mu.Unlock()
		return
	}
	closing := c.closing
	c.ws = nil
	if c.stop != nil {
		close(c.stop)
		c.stop = nil
	}
	c.state = stateClosed
	c.mu.Unlock()

	ws.Close()

	if closing || websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		return
	}

	slog.Warn("node connection dropped", "error", err)
	if c.handlers.Closed != nil {
		c.handlers.Closed(err)
	}
	c.reconnect()
}

// reconnect retries the dial with linearly growing delays until it
// succeeds, the attempt budget is exhausted, or the connection is closed.
func (c *Conn) reconnect() {
	for {
		c.mu.Lock()
		if c.closing || c.state != stateClosed {
			c.mu.Unlock()
			return
		}
		c.attempts++
		attempt := c.attempts
		c.mu.Unlock()

		if c.cfg.MaxAttempts > 0 && attempt > c.cfg.MaxAttempts {
			c.mu.Lock()
			notify := !c.exhausted
			c.exhausted = true
			c.mu.Unlock()
			if notify {
				slog.Error("node reconnect attempts exhausted", "attempts", c.cfg.MaxAttempts)
				if c.handlers.Exhausted != nil {
					c.handlers.Exhausted()
				}
			}
			return
		}

		delay := reconnectDelay(c.cfg.BaseDelay, attempt)
		slog.Info("scheduling node reconnect", "attempt", attempt, "delay", delay)
		select {
		case <-time.After(delay):
		case <-c.done:
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), c.cfg.HandshakeTimeout)
		err := c.dial(ctx)
		cancel()
		if err == nil {
			return
		}
		if errors.Is(err, ErrConnClosed) || errors.Is(err, ErrAlreadyConnected) {
			// Someone else connected or closed while we slept.
			return
		}
		slog.Warn("node reconnect attempt failed", "attempt", attempt, "error", err)
	}
}

// reconnectDelay returns attempt × base. Linear growth is the specified
// behavior for this protocol.
func reconnectDelay(base time.Duration, attempt int) time.Duration {
	return time.Duration(attempt) * base
}
