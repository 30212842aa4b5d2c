package api

import (
	"fmt"
	"net/http"

	"github.com/soyingpang/sportsday-race-mvp/internal/adapters/csvio"
	"github.com/soyingpang/sportsday-race-mvp/pkg/logger"
)

// ExportHandler serves the CSV dumps.
type ExportHandler struct {
	deps StateDependencies
	log  logger.Logger
}

// NewExportHandler creates a new export handler.
func NewExportHandler(deps StateDependencies, log logger.Logger) *ExportHandler {
	return &ExportHandler{deps: deps, log: log}
}

func attachCSV(w http.ResponseWriter, name string) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
}

// HandleSchedule handles GET /api/export/schedule.csv.
func (h *ExportHandler) HandleSchedule(w http.ResponseWriter, r *http.Request) {
	const op = "api.export_schedule"
	doc, err := h.deps.State(r.Context())
	if err != nil {
		fail(r.Context(), h.log, w, Wrap(op, err))
		return
	}
	attachCSV(w, "schedule.csv")
	if err := csvio.WriteSchedule(w, doc); err != nil {
		h.log.Warn(r.Context(), "schedule export interrupted", logger.Error(err))
	}
}

// HandleTotals handles GET /api/export/totals.csv.
func (h *ExportHandler) HandleTotals(w http.ResponseWriter, r *http.Request) {
	const op = "api.export_totals"
	doc, err := h.deps.State(r.Context())
	if err != nil {
		fail(r.Context(), h.log, w, Wrap(op, err))
		return
	}
	attachCSV(w, "totals.csv")
	if err := csvio.WriteTotals(w, doc); err != nil {
		h.log.Warn(r.Context(), "totals export interrupted", logger.Error(err))
	}
}

// HandleScoreSheet handles GET /api/heats/{id}/scoresheet.csv.
func (h *ExportHandler) HandleScoreSheet(w http.ResponseWriter, r *http.Request) {
	const op = "api.scoresheet"
	doc, err := h.deps.State(r.Context())
	if err != nil {
		fail(r.Context(), h.log, w, Wrap(op, err))
		return
	}
	i := doc.HeatIndex(r.PathValue("id"))
	if i < 0 {
		fail(r.Context(), h.log, w, NewKind(op, ErrNotFound))
		return
	}
	heat := doc.Heats[i]
	attachCSV(w, csvio.ScoreSheetName(heat))
	if err := csvio.WriteScoreSheet(w, heat, doc.Participants); err != nil {
		h.log.Warn(r.Context(), "score sheet export interrupted", logger.Error(err))
	}
}
