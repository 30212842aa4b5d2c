package api

import (
	"errors"
	"net/http"
	"strconv"

	service "github.com/soyingpang/sportsday-race-mvp/internal/app"
	"github.com/soyingpang/sportsday-race-mvp/pkg/logger"
)

// ResultsHandler handles lane results and game times.
type ResultsHandler struct {
	deps    ResultDependencies
	log     logger.Logger
	maxBody int64
}

// NewResultsHandler creates a new results handler.
func NewResultsHandler(deps ResultDependencies, log logger.Logger, maxBody int64) *ResultsHandler {
	return &ResultsHandler{deps: deps, log: log, maxBody: maxBody}
}

// HandleLaneResult handles POST /api/results.
func (h *ResultsHandler) HandleLaneResult(w http.ResponseWriter, r *http.Request) {
	const op = "api.lane_result"
	var e service.LaneEntry
	if err := decodeJSON(w, r, h.maxBody, &e); err != nil {
		fail(r.Context(), h.log, w, Wrap(op, err))
		return
	}
	rec, err := h.deps.RecordLaneResult(r.Context(), e)
	if err != nil {
		fail(r.Context(), h.log, w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

type gameTimeRequest struct {
	Value string `json:"value"`
}

// HandleGameTime handles PUT /api/games/times/{pid}/{slot}. Slots are 1..3.
func (h *ResultsHandler) HandleGameTime(w http.ResponseWriter, r *http.Request) {
	const op = "api.game_time"
	slot, err := strconv.Atoi(r.PathValue("slot"))
	if err != nil {
		fail(r.Context(), h.log, w, WrapKind(op, ErrBadRequest, err))
		return
	}
	var req gameTimeRequest
	if err := decodeJSON(w, r, h.maxBody, &req); err != nil {
		fail(r.Context(), h.log, w, Wrap(op, err))
		return
	}
	g, err := h.deps.SetGameTime(r.Context(), r.PathValue("pid"), slot, req.Value)
	if err != nil {
		fail(r.Context(), h.log, w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, g)
}

type gameNoteRequest struct {
	Note string `json:"note"`
}

// HandleGameNote handles PUT /api/games/notes/{pid}.
func (h *ResultsHandler) HandleGameNote(w http.ResponseWriter, r *http.Request) {
	const op = "api.game_note"
	var req gameNoteRequest
	if err := decodeJSON(w, r, h.maxBody, &req); err != nil {
		fail(r.Context(), h.log, w, Wrap(op, err))
		return
	}
	g, err := h.deps.SetGameNote(r.Context(), r.PathValue("pid"), req.Note)
	if err != nil {
		fail(r.Context(), h.log, w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, g)
}

type gameLabelsRequest struct {
	Labels []string `json:"labels"`
}

// HandleGameLabels handles PUT /api/games/labels.
func (h *ResultsHandler) HandleGameLabels(w http.ResponseWriter, r *http.Request) {
	const op = "api.game_labels"
	var req gameLabelsRequest
	if err := decodeJSON(w, r, h.maxBody, &req); err != nil {
		fail(r.Context(), h.log, w, Wrap(op, err))
		return
	}
	if req.Labels == nil {
		fail(r.Context(), h.log, w, WrapKind(op, ErrBadRequest, errors.New("missing labels")))
		return
	}
	labels, err := h.deps.SetGameLabels(r.Context(), req.Labels)
	if err != nil {
		fail(r.Context(), h.log, w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, gameLabelsRequest{Labels: labels})
}
