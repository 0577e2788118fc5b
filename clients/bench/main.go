// bench is a small load generator for the relay's websocket ingress. Each
// connection submits messages at a fixed rate and measures the time until
// its own message comes back on the broadcast channel, which covers the
// full encrypt -> persist -> fanout path.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

type event struct {
	Type    string `json:"type"`
	Message *struct {
		ID        uint64 `json:"id"`
		Plaintext string `json:"plaintext"`
	} `json:"message"`
	Error string `json:"error"`
}

type metrics struct {
	mu        sync.Mutex
	durations []time.Duration

	sent   int64
	recv   int64
	errors int64
}

func (m *metrics) record(d time.Duration) {
	m.mu.Lock()
	m.durations = append(m.durations, d)
	m.mu.Unlock()
	atomic.AddInt64(&m.recv, 1)
}

func (m *metrics) percentile(p float64) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.durations) == 0 {
		return 0
	}
	sort.Slice(m.durations, func(i, j int) bool { return m.durations[i] < m.durations[j] })
	idx := int(float64(len(m.durations)-1) * p)
	return m.durations[idx]
}

func main() {
	host := flag.String("host", "ws://localhost:8080", "relay base URL (ws:// or wss://)")
	conns := flag.Int("conns", 4, "concurrent websocket connections")
	rps := flag.Int("rps", 20, "total messages per second across all connections")
	duration := flag.Duration("duration", 10*time.Second, "benchmark duration")
	payload := flag.Int("payload", 64, "message payload size in bytes")
	flag.Parse()

	m := &metrics{}
	var wg sync.WaitGroup
	deadline := time.Now().Add(*duration)
	perConn := time.Duration(float64(time.Second) * float64(*conns) / float64(*rps))

	for i := 0; i < *conns; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			runConn(id, *host, perConn, deadline, *payload, m)
		}(i)
	}
	wg.Wait()

	sent := atomic.LoadInt64(&m.sent)
	recv := atomic.LoadInt64(&m.recv)
	errs := atomic.LoadInt64(&m.errors)
	fmt.Printf("sent=%d received=%d errors=%d\n", sent, recv, errs)
	fmt.Printf("latency p50=%v p95=%v p99=%v\n",
		m.percentile(0.50), m.percentile(0.95), m.percentile(0.99))
}

func runConn(id int, host string, interval time.Duration, deadline time.Time, payload int, m *metrics) {
	url := strings.TrimRight(host, "/") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		log.Printf("conn %d: dial failed: %v", id, err)
		return
	}
	defer conn.Close()

	prefix := fmt.Sprintf("bench-%d-", id)
	filler := strings.Repeat("x", payload)
	inflight := sync.Map{} // seq -> send time

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var ev event
			if err := conn.ReadJSON(&ev); err != nil {
				return
			}
			switch ev.Type {
			case "message":
				if ev.Message == nil || !strings.HasPrefix(ev.Message.Plaintext, prefix) {
					continue
				}
				rest := strings.TrimPrefix(ev.Message.Plaintext, prefix)
				seqStr, _, ok := strings.Cut(rest, ":")
				if !ok {
					continue
				}
				seq, err := strconv.ParseInt(seqStr, 10, 64)
				if err != nil {
					continue
				}
				if t0, ok := inflight.LoadAndDelete(seq); ok {
					m.record(time.Since(t0.(time.Time)))
				}
			case "error":
				atomic.AddInt64(&m.errors, 1)
			}
		}
	}()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	var seq int64
	for time.Now().Before(deadline) {
		<-ticker.C
		text := fmt.Sprintf("%s%d:%s", prefix, seq, filler)
		frame, _ := json.Marshal(map[string]string{"type": "send_message", "text": text})
		inflight.Store(seq, time.Now())
		if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			log.Printf("conn %d: write failed: %v", id, err)
			break
		}
		atomic.AddInt64(&m.sent, 1)
		seq++
	}

	// give the reader a moment to drain tail broadcasts
	select {
	case <-done:
	case <-time.After(2 * time.Second):
	}
}
