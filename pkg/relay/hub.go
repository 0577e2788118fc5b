package relay

import (
	"sync"

	"cipherrelay/pkg/logger"
	"cipherrelay/pkg/models"
)

// Event is the JSON frame pushed to subscribers. Type "message" carries a
// successfully relayed record; type "error" is delivered only to the
// connection whose submission failed.
type Event struct {
	Type    string          `json:"type"`
	Message *models.Message `json:"message,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// Inbound is the JSON frame clients send. Only "send_message" is known.
type Inbound struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Hub holds the explicit set of live subscribers. Subscribers are kept in
// registration order and Broadcast walks them deterministically; there is
// no implicit global broadcaster. A new subscriber receives no replay of
// past messages; clients pull history over HTTP to catch up.
type Hub struct {
	mu      sync.Mutex
	clients []*Client

	// submit is wired by relay.New; inbound send_message frames land here.
	submit func(text string) (models.Message, error)
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{}
}

// Subscribe registers a client for future broadcasts.
func (h *Hub) Subscribe(c *Client) {
	h.mu.Lock()
	h.clients = append(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()
	logger.Info("subscriber_joined", "subscribers", n)
}

// Unsubscribe removes a client and closes its send queue.
func (h *Hub) Unsubscribe(c *Client) {
	h.mu.Lock()
	for i, cl := range h.clients {
		if cl == c {
			h.clients = append(h.clients[:i], h.clients[i+1:]...)
			break
		}
	}
	n := len(h.clients)
	h.mu.Unlock()
	c.closeSend()
	logger.Info("subscriber_left", "subscribers", n)
}

// Broadcast queues the message on every connected subscriber. Delivery is
// best-effort: a subscriber whose queue is full is dropped rather than
// allowed to stall the relay, and one that disconnects simply misses the
// message. Callers must only pass durably persisted messages.
func (h *Hub) Broadcast(m models.Message) {
	h.mu.Lock()
	targets := append([]*Client(nil), h.clients...)
	h.mu.Unlock()

	ev := Event{Type: "message", Message: &m}
	for _, c := range targets {
		if !c.trySend(ev) {
			logger.Warn("subscriber_send_queue_full_dropping", "id", m.ID)
			h.Unsubscribe(c)
		}
	}
}

// Subscribers returns the current subscriber count.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
