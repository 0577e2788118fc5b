package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"cipherrelay/pkg/logger"
	"cipherrelay/pkg/models"
	"cipherrelay/pkg/relay"
	"cipherrelay/pkg/utils"
	"cipherrelay/pkg/visual"
)

// visualizeRequest is the POST /api/visualize-encryption body.
type visualizeRequest struct {
	Text string `json:"text"`
}

// Router builds the HTTP surface:
//   - GET  /api/messages?limit=<n>: recent history, newest first
//   - POST /api/visualize-encryption: step-by-step encryption trace
//   - GET  /ws: websocket subscriber connection
//   - GET  /healthz, /readyz: probes
func Router(rl *relay.Relay, vz *visual.Service, hub *relay.Hub, ready func() bool) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/api/messages", func(w http.ResponseWriter, req *http.Request) {
		limit := 0
		if limStr := req.URL.Query().Get("limit"); limStr != "" {
			n, err := strconv.Atoi(limStr)
			if err != nil || n < 0 {
				utils.JSONError(w, http.StatusBadRequest, "invalid limit")
				return
			}
			limit = n
		}
		msgs, err := rl.History(limit)
		if err != nil {
			logger.Error("history_fetch_failed", "error", err)
			utils.JSONError(w, http.StatusInternalServerError, "failed to fetch message history")
			return
		}
		logger.Debug("history_served", "count", len(msgs))
		_ = utils.JSONWrite(w, http.StatusOK, msgs)
	}).Methods(http.MethodGet)

	r.HandleFunc("/api/visualize-encryption", func(w http.ResponseWriter, req *http.Request) {
		var body visualizeRequest
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			utils.JSONError(w, http.StatusBadRequest, "invalid json")
			return
		}
		steps, err := vz.Visualize(body.Text)
		if err != nil {
			if relay.IsValidation(err) {
				utils.JSONError(w, http.StatusBadRequest, "text is required")
				return
			}
			logger.Error("visualize_failed", "error", err)
			utils.JSONError(w, http.StatusInternalServerError, "failed to build encryption trace")
			return
		}
		_ = utils.JSONWrite(w, http.StatusOK, struct {
			Steps []models.TraceStep `json:"steps"`
		}{Steps: steps})
	}).Methods(http.MethodPost)

	// REST fallback for submitting when a client has no websocket; the
	// push channel remains the primary ingress.
	r.HandleFunc("/api/messages", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			Text string `json:"text"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			utils.JSONError(w, http.StatusBadRequest, "invalid json")
			return
		}
		m, err := rl.Submit(body.Text)
		if err != nil {
			writeSubmitError(w, err)
			return
		}
		_ = utils.JSONWrite(w, http.StatusCreated, m)
	}).Methods(http.MethodPost)

	r.HandleFunc("/ws", hub.ServeWS).Methods(http.MethodGet)

	r.HandleFunc("/healthz", func(w http.ResponseWriter, req *http.Request) {
		_ = utils.JSONWrite(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	r.HandleFunc("/readyz", func(w http.ResponseWriter, req *http.Request) {
		if ready != nil && !ready() {
			utils.JSONError(w, http.StatusServiceUnavailable, "store not ready")
			return
		}
		_ = utils.JSONWrite(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	return r
}

func writeSubmitError(w http.ResponseWriter, err error) {
	if relay.IsValidation(err) {
		utils.JSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	var pe *relay.PersistError
	if errors.As(err, &pe) {
		utils.JSONError(w, http.StatusInternalServerError, "failed to process message")
		return
	}
	utils.JSONError(w, http.StatusInternalServerError, "failed to process message")
}
