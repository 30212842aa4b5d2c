package relay

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/soyingpang/sportsday-race-mvp/pkg/logger"
	"github.com/soyingpang/sportsday-race-mvp/pkg/metrics"
)

const maxBodyBytes = 8 << 20

type writeRequest struct {
	Room  string          `json:"room"`
	Token string          `json:"token"`
	State json.RawMessage `json:"state"`
}

type readResponse struct {
	State json.RawMessage `json:"state"`
}

// Handler serves GET and POST on the relay endpoint.
type Handler struct {
	rooms *Rooms
	log   logger.Logger
}

// NewHandler returns the relay handler. A nil logger discards.
func NewHandler(rooms *Rooms, log logger.Logger) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	return &Handler{rooms: rooms, log: log.Named("relay")}
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.read(w, r)
	case http.MethodPost:
		h.write(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	}
}

func (h *Handler) read(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	state, err := h.rooms.Read(r.Context(), q.Get("room"), q.Get("token"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if state == nil {
		state = json.RawMessage("null")
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, readResponse{State: state})
}

// write accepts any content type; stations send text/plain to stay a simple
// cross-origin request.
func (h *Handler) write(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil || len(body) > maxBodyBytes {
		metrics.RecordRelayWrite("rejected")
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "body too large"})
		return
	}
	var req writeRequest
	if err := json.Unmarshal(body, &req); err != nil {
		metrics.RecordRelayWrite("rejected")
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed body"})
		return
	}
	if err := h.rooms.Write(r.Context(), req.Room, req.Token, req.State); err != nil {
		metrics.RecordRelayWrite("rejected")
		h.fail(w, r, err)
		return
	}
	metrics.RecordRelayWrite("ok")
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrForbidden):
		h.log.Warn(r.Context(), "room token mismatch", logger.String("room", r.URL.Query().Get("room")))
		writeJSON(w, http.StatusForbidden, map[string]string{"error": err.Error()})
	case errors.Is(err, ErrNoRoom), errors.Is(err, ErrEmptyState):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		h.log.Error(r.Context(), "relay storage failed", logger.Error(err))
		metrics.RecordError("relay", "storage")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "storage failure"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
