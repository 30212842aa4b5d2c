package api

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/soyingpang/sportsday-race-mvp/pkg/logger"
)

// StateHandler handles whole-document requests.
type StateHandler struct {
	deps    StateDependencies
	log     logger.Logger
	maxBody int64
}

// NewStateHandler creates a new state handler.
func NewStateHandler(deps StateDependencies, log logger.Logger, maxBody int64) *StateHandler {
	return &StateHandler{deps: deps, log: log, maxBody: maxBody}
}

// HandleGetState handles GET /api/state.
func (h *StateHandler) HandleGetState(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_state"
	doc, err := h.deps.State(r.Context())
	if err != nil {
		fail(r.Context(), h.log, w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// HandleImportRoster handles POST /api/roster with a CSV body or a
// multipart "file" field.
func (h *StateHandler) HandleImportRoster(w http.ResponseWriter, r *http.Request) {
	const op = "api.import_roster"
	body, err := h.rosterBody(w, r)
	if err != nil {
		fail(r.Context(), h.log, w, WrapKind(op, ErrBadRequest, err))
		return
	}
	defer func() { _ = body.Close() }()

	stats, err := h.deps.ImportRoster(r.Context(), body)
	if err != nil {
		fail(r.Context(), h.log, w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *StateHandler) rosterBody(w http.ResponseWriter, r *http.Request) (io.ReadCloser, error) {
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mt != "multipart/form-data" {
		return http.MaxBytesReader(w, r.Body, h.maxBody), nil
	}
	if err := r.ParseMultipartForm(h.maxBody); err != nil {
		return nil, fmt.Errorf("parse form: %w", err)
	}
	f, _, err := r.FormFile("file")
	if err != nil {
		return nil, fmt.Errorf("form file: %w", err)
	}
	return f, nil
}

type presentRequest struct {
	Present *bool `json:"present"`
}

// HandleSetPresent handles PUT /api/participants/{pid}/present.
func (h *StateHandler) HandleSetPresent(w http.ResponseWriter, r *http.Request) {
	const op = "api.set_present"
	var req presentRequest
	if err := decodeJSON(w, r, h.maxBody, &req); err != nil {
		fail(r.Context(), h.log, w, Wrap(op, err))
		return
	}
	if req.Present == nil {
		fail(r.Context(), h.log, w, WrapKind(op, ErrBadRequest, errors.New("missing present")))
		return
	}
	p, err := h.deps.SetPresent(r.Context(), r.PathValue("pid"), *req.Present)
	if err != nil {
		fail(r.Context(), h.log, w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HandleBackup handles GET /api/backup as a downloadable JSON snapshot.
func (h *StateHandler) HandleBackup(w http.ResponseWriter, r *http.Request) {
	const op = "api.backup"
	doc, err := h.deps.State(r.Context())
	if err != nil {
		fail(r.Context(), h.log, w, Wrap(op, err))
		return
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="sportsday_backup_%d.json"`, doc.UpdatedAt))
	writeJSON(w, http.StatusOK, doc)
}

// HandleRestore handles POST /api/restore with a backup body.
func (h *StateHandler) HandleRestore(w http.ResponseWriter, r *http.Request) {
	const op = "api.restore"
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBody))
	if err != nil {
		fail(r.Context(), h.log, w, WrapKind(op, ErrBadRequest, err))
		return
	}
	if strings.TrimSpace(string(data)) == "" {
		fail(r.Context(), h.log, w, WrapKind(op, ErrBadRequest, errors.New("empty backup")))
		return
	}
	doc, err := h.deps.Restore(r.Context(), data)
	if err != nil {
		fail(r.Context(), h.log, w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// HandleReset handles POST /api/reset.
func (h *StateHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	const op = "api.reset"
	doc, err := h.deps.Reset(r.Context())
	if err != nil {
		fail(r.Context(), h.log, w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, doc)
}
