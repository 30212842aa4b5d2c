package api

import (
	"net/http"

	service "github.com/soyingpang/sportsday-race-mvp/internal/app"
	"github.com/soyingpang/sportsday-race-mvp/internal/domain/model"
	"github.com/soyingpang/sportsday-race-mvp/internal/domain/schedule"
	"github.com/soyingpang/sportsday-race-mvp/pkg/logger"
)

// HeatsHandler handles heat building and maintenance.
type HeatsHandler struct {
	deps    HeatDependencies
	log     logger.Logger
	maxBody int64
}

// NewHeatsHandler creates a new heats handler.
func NewHeatsHandler(deps HeatDependencies, log logger.Logger, maxBody int64) *HeatsHandler {
	return &HeatsHandler{deps: deps, log: log, maxBody: maxBody}
}

// buildRequest is the body of POST /api/heats. Absent picks select every
// present member of the class; an empty list selects nobody.
type buildRequest struct {
	Grade        string   `json:"grade"`
	Event        string   `json:"event"`
	Round        string   `json:"round"`
	ClassA       string   `json:"classA"`
	ClassB       string   `json:"classB"`
	PickedA      []string `json:"pickedA"`
	PickedB      []string `json:"pickedB"`
	Batch        bool     `json:"batch"`
	HeatNo       int      `json:"heatNo"`
	StartHeatNo  int      `json:"startHeatNo"`
	FillStrategy string   `json:"fillStrategy"`
}

func (b buildRequest) toSchedule() schedule.Request {
	return schedule.Request{
		Grade:        b.Grade,
		Event:        b.Event,
		Round:        b.Round,
		ClassA:       b.ClassA,
		ClassB:       b.ClassB,
		PickedA:      b.PickedA,
		PickedB:      b.PickedB,
		Batch:        b.Batch,
		HeatNo:       b.HeatNo,
		StartHeatNo:  b.StartHeatNo,
		FillStrategy: model.ParseFillStrategy(b.FillStrategy),
	}
}

// HandleBuild handles POST /api/heats.
func (h *HeatsHandler) HandleBuild(w http.ResponseWriter, r *http.Request) {
	const op = "api.build_heats"
	var req buildRequest
	if err := decodeJSON(w, r, h.maxBody, &req); err != nil {
		fail(r.Context(), h.log, w, Wrap(op, err))
		return
	}
	res, err := h.deps.BuildHeats(r.Context(), req.toSchedule())
	if err != nil {
		fail(r.Context(), h.log, w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// HandleList handles GET /api/heats?grade=&event=&round=.
func (h *HeatsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_heats"
	q := r.URL.Query()
	heats, err := h.deps.HeatsFor(r.Context(), q.Get("grade"), q.Get("event"), q.Get("round"))
	if err != nil {
		fail(r.Context(), h.log, w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, heats)
}

// HandleGet handles GET /api/heats/{id}.
func (h *HeatsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_heat"
	heat, err := h.deps.Heat(r.Context(), r.PathValue("id"))
	if err != nil {
		fail(r.Context(), h.log, w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, heat)
}

// HandlePicks handles PUT /api/heats/{id}/picks.
func (h *HeatsHandler) HandlePicks(w http.ResponseWriter, r *http.Request) {
	const op = "api.heat_picks"
	var u service.PicksUpdate
	if err := decodeJSON(w, r, h.maxBody, &u); err != nil {
		fail(r.Context(), h.log, w, Wrap(op, err))
		return
	}
	heat, err := h.deps.UpdateHeatPicks(r.Context(), r.PathValue("id"), u)
	if err != nil {
		fail(r.Context(), h.log, w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, heat)
}

type lockRequest struct {
	Locked bool `json:"locked"`
}

// HandleLock handles PUT /api/heats/{id}/lock.
func (h *HeatsHandler) HandleLock(w http.ResponseWriter, r *http.Request) {
	const op = "api.heat_lock"
	var req lockRequest
	if err := decodeJSON(w, r, h.maxBody, &req); err != nil {
		fail(r.Context(), h.log, w, Wrap(op, err))
		return
	}
	heat, err := h.deps.SetHeatLocked(r.Context(), r.PathValue("id"), req.Locked)
	if err != nil {
		fail(r.Context(), h.log, w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, heat)
}

// HandleClearResults handles DELETE /api/heats/{id}/results.
func (h *HeatsHandler) HandleClearResults(w http.ResponseWriter, r *http.Request) {
	const op = "api.heat_results_clear"
	if err := h.deps.ClearHeatResults(r.Context(), r.PathValue("id")); err != nil {
		fail(r.Context(), h.log, w, Wrap(op, err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type currentHeatRequest struct {
	HeatID string `json:"heatId"`
}

// HandleSetCurrent handles PUT /api/current-heat. A blank id clears the pointer.
func (h *HeatsHandler) HandleSetCurrent(w http.ResponseWriter, r *http.Request) {
	const op = "api.current_heat"
	var req currentHeatRequest
	if err := decodeJSON(w, r, h.maxBody, &req); err != nil {
		fail(r.Context(), h.log, w, Wrap(op, err))
		return
	}
	if err := h.deps.SetCurrentHeat(r.Context(), req.HeatID); err != nil {
		fail(r.Context(), h.log, w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, req)
}
