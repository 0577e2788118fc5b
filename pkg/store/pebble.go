package store

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"

	"cipherrelay/pkg/logger"
	"cipherrelay/pkg/models"
)

// Message keys are "msg:" + zero-padded id so pebble's byte order matches
// insertion order. keyUpper is the first byte sequence past the namespace.
const (
	keyPrefix = "msg:"
	keyUpper  = "msg;"
)

// DefaultHistoryLimit caps ListRecent when callers pass no usable limit.
const DefaultHistoryLimit = 50

// Store is a durable append-only message log backed by Pebble. It is the
// only component that assigns message ids and timestamps. Records are never
// mutated or deleted after creation.
type Store struct {
	db   *pebble.DB
	path string

	mu     sync.Mutex
	nextID uint64
	lastTS int64
}

// Open opens (or creates) a Pebble database at the given path and restores
// the id counter from the highest existing message key.
func Open(path string) (*Store, error) {
	logger.Info("opening_pebble_db", "path", path)
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		logger.Error("pebble_open_failed", "path", path, "error", err)
		return nil, err
	}
	s := &Store{db: db, path: path, nextID: 1}
	if err := s.restoreNextID(); err != nil {
		_ = db.Close()
		return nil, err
	}
	logger.Info("pebble_opened", "path", path, "next_id", s.nextID)
	return s, nil
}

func (s *Store) restoreNextID() error {
	iter, err := s.msgIter()
	if err != nil {
		return err
	}
	defer iter.Close()
	if !iter.Last() {
		return iter.Error()
	}
	id, err := parseKeyID(iter.Key())
	if err != nil {
		return err
	}
	s.nextID = id + 1
	return iter.Error()
}

// Close closes the underlying pebble DB.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return err
	}
	s.db = nil
	logger.Info("pebble_closed")
	return nil
}

// Ready reports whether the store is opened and usable.
func (s *Store) Ready() bool {
	return s != nil && s.db != nil
}

// Insert appends a new message, assigning the next id and a UTC nanosecond
// timestamp that is strictly monotonic within this instance. The write is
// synced before Insert returns; a returned Message is durably recorded.
func (s *Store) Insert(plaintext, ciphertext, keyVersion string) (models.Message, error) {
	if s.db == nil {
		return models.Message{}, fmt.Errorf("pebble not opened; call store.Open first")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := time.Now().UTC().UnixNano()
	if ts <= s.lastTS {
		ts = s.lastTS + 1
	}
	m := models.Message{
		ID:         s.nextID,
		Plaintext:  plaintext,
		Ciphertext: ciphertext,
		KeyVersion: keyVersion,
		TS:         ts,
	}
	data, err := json.Marshal(m)
	if err != nil {
		return models.Message{}, fmt.Errorf("failed to marshal message: %w", err)
	}
	key := fmt.Sprintf("%s%020d", keyPrefix, m.ID)
	if err := s.db.Set([]byte(key), data, pebble.Sync); err != nil {
		metricSaveErrors.Inc()
		logger.Error("insert_message_failed", "key", key, "error", err)
		return models.Message{}, err
	}
	s.nextID++
	s.lastTS = ts
	metricSaved.Inc()
	logger.Debug("message_saved", "id", m.ID, "ts", m.TS)
	return m, nil
}

// ListRecent returns the most recent messages, newest first. A limit of 0
// or below, or above DefaultHistoryLimit, is clamped to the default cap.
// The result always reflects a prefix of the durably persisted log.
func (s *Store) ListRecent(limit int) ([]models.Message, error) {
	if s.db == nil {
		return nil, fmt.Errorf("pebble not opened; call store.Open first")
	}
	if limit <= 0 || limit > DefaultHistoryLimit {
		limit = DefaultHistoryLimit
	}
	metricListCalls.Inc()
	iter, err := s.msgIter()
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	out := make([]models.Message, 0, limit)
	for ok := iter.Last(); ok && len(out) < limit; ok = iter.Prev() {
		var m models.Message
		if err := json.Unmarshal(iter.Value(), &m); err != nil {
			logger.Error("list_recent_bad_record", "key", string(iter.Key()), "error", err)
			return nil, fmt.Errorf("invalid stored message at %s: %w", string(iter.Key()), err)
		}
		out = append(out, m)
	}
	return out, iter.Error()
}

// Count returns the number of persisted messages.
func (s *Store) Count() (uint64, error) {
	if s.db == nil {
		return 0, fmt.Errorf("pebble not opened; call store.Open first")
	}
	iter, err := s.msgIter()
	if err != nil {
		return 0, err
	}
	defer iter.Close()
	var n uint64
	for ok := iter.First(); ok; ok = iter.Next() {
		n++
	}
	return n, iter.Error()
}

// DiskUsage returns best-effort on-disk size of the DB directory in bytes.
func (s *Store) DiskUsage() uint64 {
	if s.path == "" {
		return 0
	}
	var total uint64
	_ = filepath.WalkDir(s.path, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if fi, err := d.Info(); err == nil {
			total += uint64(fi.Size())
		}
		return nil
	})
	return total
}

func (s *Store) msgIter() (*pebble.Iterator, error) {
	return s.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(keyPrefix),
		UpperBound: []byte(keyUpper),
	})
}

func parseKeyID(key []byte) (uint64, error) {
	k := strings.TrimPrefix(string(key), keyPrefix)
	id, err := strconv.ParseUint(k, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed message key %q: %w", string(key), err)
	}
	return id, nil
}
