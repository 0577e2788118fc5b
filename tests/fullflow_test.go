package tests

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"cipherrelay/pkg/api"
	"cipherrelay/pkg/middleware"
	"cipherrelay/pkg/models"
	"cipherrelay/pkg/relay"
	"cipherrelay/pkg/security"
	"cipherrelay/pkg/store"
	"cipherrelay/pkg/telemetry"
	"cipherrelay/pkg/visual"
)

const testKeyHex = "808182838485868788898a8b8c8d8e8f909192939495969798999a9b9c9d9e9f"

type wsEvent struct {
	Type    string          `json:"type"`
	Message *models.Message `json:"message"`
	Error   string          `json:"error"`
}

// startRelay brings up the full HTTP stack the server binary runs:
// router behind the CORS/rate-limit guard and the telemetry middleware,
// backed by a real pebble store.
func startRelay(t *testing.T) (*httptest.Server, *security.Engine) {
	t.Helper()
	e, err := security.NewEngineHex(testKeyHex, "v1")
	require.NoError(t, err)
	t.Cleanup(e.Close)

	st, err := store.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	hub := relay.NewHub()
	rl := relay.New(e, st, hub, 0)
	handler := api.Router(rl, visual.New(e), hub, st.Ready)

	guard := middleware.Guard(middleware.SecConfig{RPS: 1000, Burst: 1000})
	srv := httptest.NewServer(telemetry.Middleware(guard(handler)))
	t.Cleanup(srv.Close)
	return srv, e
}

func dialWS(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) wsEvent {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var ev wsEvent
	require.NoError(t, conn.ReadJSON(&ev))
	return ev
}

func sendText(t *testing.T, conn *websocket.Conn, text string) {
	t.Helper()
	frame, err := json.Marshal(map[string]string{"type": "send_message", "text": text})
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, frame))
}

func TestSubmitBroadcastsToAllSubscribers(t *testing.T) {
	srv, e := startRelay(t)
	sender := dialWS(t, srv)
	watcher := dialWS(t, srv)

	sendText(t, sender, "hello over the wire")

	for _, conn := range []*websocket.Conn{sender, watcher} {
		ev := readEvent(t, conn)
		require.Equal(t, "message", ev.Type)
		require.NotNil(t, ev.Message)
		require.Equal(t, "hello over the wire", ev.Message.Plaintext)
		require.NotEmpty(t, ev.Message.Ciphertext)
		require.Equal(t, "v1", ev.Message.KeyVersion)

		// the broadcast ciphertext is real, not decorative
		pt, err := e.Decrypt(ev.Message.Ciphertext)
		require.NoError(t, err)
		require.Equal(t, "hello over the wire", string(pt))
	}
}

func TestBroadcastReflectsPersistedRecord(t *testing.T) {
	srv, _ := startRelay(t)
	conn := dialWS(t, srv)

	sendText(t, conn, "persist me first")
	ev := readEvent(t, conn)
	require.Equal(t, "message", ev.Type)

	res, err := http.Get(srv.URL + "/api/messages?limit=1")
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	var msgs []models.Message
	require.NoError(t, json.NewDecoder(res.Body).Decode(&msgs))
	require.Len(t, msgs, 1)
	require.Equal(t, ev.Message.ID, msgs[0].ID)
	require.Equal(t, ev.Message.Ciphertext, msgs[0].Ciphertext)
	require.Equal(t, ev.Message.TS, msgs[0].TS)
}

func TestInvalidSubmissionGetsErrorEvent(t *testing.T) {
	srv, _ := startRelay(t)
	sender := dialWS(t, srv)
	watcher := dialWS(t, srv)

	sendText(t, sender, "   ")
	ev := readEvent(t, sender)
	require.Equal(t, "error", ev.Type)
	require.Equal(t, relay.ErrEmptyMessage.Error(), ev.Error)

	// the error went only to the offender; the next broadcast is the
	// first thing the watcher sees
	sendText(t, sender, "a real one")
	wev := readEvent(t, watcher)
	require.Equal(t, "message", wev.Type)
	require.Equal(t, "a real one", wev.Message.Plaintext)
}

func TestUnknownFrameTypeRejected(t *testing.T) {
	srv, _ := startRelay(t)
	conn := dialWS(t, srv)

	frame, _ := json.Marshal(map[string]string{"type": "subscribe", "text": "x"})
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, frame))
	ev := readEvent(t, conn)
	require.Equal(t, "error", ev.Type)
	require.Equal(t, "unknown event type", ev.Error)
}

func TestHistoryOrderingAcrossChannels(t *testing.T) {
	srv, _ := startRelay(t)
	conn := dialWS(t, srv)

	texts := []string{"first", "second", "third"}
	for _, text := range texts {
		sendText(t, conn, text)
		ev := readEvent(t, conn)
		require.Equal(t, "message", ev.Type)
		require.Equal(t, text, ev.Message.Plaintext)
	}

	res, err := http.Get(srv.URL + "/api/messages")
	require.NoError(t, err)
	defer res.Body.Close()
	var msgs []models.Message
	require.NoError(t, json.NewDecoder(res.Body).Decode(&msgs))
	require.Len(t, msgs, 3)
	require.Equal(t, "third", msgs[0].Plaintext)
	require.Equal(t, "second", msgs[1].Plaintext)
	require.Equal(t, "first", msgs[2].Plaintext)
}

func TestRestSubmitReachesWebsocketSubscribers(t *testing.T) {
	srv, _ := startRelay(t)
	watcher := dialWS(t, srv)

	res, err := http.Post(srv.URL+"/api/messages", "application/json",
		strings.NewReader(`{"text":"from rest"}`))
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusCreated, res.StatusCode)

	ev := readEvent(t, watcher)
	require.Equal(t, "message", ev.Type)
	require.Equal(t, "from rest", ev.Message.Plaintext)
}

func TestCORSPreflight(t *testing.T) {
	srv, _ := startRelay(t)
	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/messages", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusNoContent, res.StatusCode)
	require.Equal(t, "http://localhost:3000", res.Header.Get("Access-Control-Allow-Origin"))
}
