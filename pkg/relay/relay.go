package relay

import (
	"strings"
	"sync"

	"cipherrelay/pkg/logger"
	"cipherrelay/pkg/models"
	"cipherrelay/pkg/security"
)

// DefaultMaxMessageBytes caps a single submission when config sets none.
const DefaultMaxMessageBytes = 4096

// Store is the persistence collaborator the relay depends on. *store.Store
// satisfies it; tests substitute a failing implementation.
type Store interface {
	Insert(plaintext, ciphertext, keyVersion string) (models.Message, error)
	ListRecent(limit int) ([]models.Message, error)
}

// Relay turns a submitted plaintext into a persisted, broadcast record.
// A mutex serializes encrypt -> persist -> broadcast so that persistence
// order and broadcast order always agree; ties between concurrent
// submissions are broken by lock acquisition order at ingress.
type Relay struct {
	engine   *security.Engine
	store    Store
	hub      *Hub
	maxBytes int

	mu sync.Mutex
}

// New wires a Relay and attaches it to the hub's inbound submissions.
func New(engine *security.Engine, st Store, hub *Hub, maxBytes int) *Relay {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxMessageBytes
	}
	r := &Relay{engine: engine, store: st, hub: hub, maxBytes: maxBytes}
	if hub != nil {
		hub.submit = r.Submit
	}
	return r
}

// Submit validates, encrypts, persists and broadcasts one message. The
// message is broadcast only after the store write has fully succeeded;
// on any failure nothing is broadcast and the error is returned to the
// submitting caller.
func (r *Relay) Submit(plaintext string) (models.Message, error) {
	if strings.TrimSpace(plaintext) == "" {
		return models.Message{}, ErrEmptyMessage
	}
	if len(plaintext) > r.maxBytes {
		return models.Message{}, ErrTooLong
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	ct, err := r.engine.Encrypt([]byte(plaintext))
	if err != nil {
		logger.Error("submit_encrypt_failed", "error", err)
		return models.Message{}, err
	}
	m, err := r.store.Insert(plaintext, ct, r.engine.KeyVersion())
	if err != nil {
		logger.Error("submit_persist_failed", "error", err)
		return models.Message{}, &PersistError{Err: err}
	}
	if r.hub != nil {
		r.hub.Broadcast(m)
	}
	logger.Info("message_relayed", "id", m.ID, "bytes", len(plaintext))
	return m, nil
}

// History returns the most recent messages, newest first. Read-only; the
// limit is clamped by the store to its default cap.
func (r *Relay) History(limit int) ([]models.Message, error) {
	return r.store.ListRecent(limit)
}
