package relay

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"cipherrelay/pkg/logger"
)

const (
	writeWait       = 10 * time.Second
	pongWait        = 60 * time.Second
	pingPeriod      = (pongWait * 9) / 10
	maxInboundBytes = 64 * 1024
	sendQueueDepth  = 64
)

// The demo accepts websocket connections from any origin; the HTTP API's
// CORS allow-list does not apply to the upgrade handshake.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Client is a single live websocket subscriber with its own buffered send
// queue. The write pump is the only goroutine writing to the connection.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan Event

	mu     sync.Mutex
	closed bool
}

// ServeWS upgrades an HTTP request to a websocket subscriber connection.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("ws_upgrade_failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	c := &Client{hub: h, conn: conn, send: make(chan Event, sendQueueDepth)}
	h.Subscribe(c)
	go c.writePump()
	go c.readPump()
}

// trySend queues an event without blocking. It returns false when the
// queue is full or the client is already closed.
func (c *Client) trySend(ev Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- ev:
		return true
	default:
		return false
	}
}

func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// readPump consumes inbound frames until the connection drops. A
// send_message frame triggers a relay submission; a failed submission
// emits an error event to this connection only, best-effort.
func (c *Client) readPump() {
	defer func() {
		c.hub.Unsubscribe(c)
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(maxInboundBytes)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("ws_read_error", "error", err)
			}
			return
		}
		var in Inbound
		if err := json.Unmarshal(raw, &in); err != nil {
			c.trySend(Event{Type: "error", Error: "invalid frame"})
			continue
		}
		if in.Type != "send_message" {
			c.trySend(Event{Type: "error", Error: "unknown event type"})
			continue
		}
		if c.hub.submit == nil {
			c.trySend(Event{Type: "error", Error: "relay unavailable"})
			continue
		}
		if _, err := c.hub.submit(in.Text); err != nil {
			c.trySend(Event{Type: "error", Error: submitErrorText(err)})
		}
	}
}

// writePump drains the send queue onto the wire and keeps the connection
// alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case ev, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// submitErrorText maps a submit failure to the string pushed to the
// client. Validation problems are spelled out; everything else stays
// generic so internal details never reach the wire.
func submitErrorText(err error) string {
	if IsValidation(err) {
		return err.Error()
	}
	var pe *PersistError
	if errors.As(err, &pe) {
		return "failed to process message"
	}
	return "failed to process message"
}
