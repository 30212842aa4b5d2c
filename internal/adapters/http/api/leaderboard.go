package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/soyingpang/sportsday-race-mvp/internal/domain/ranking"
	"github.com/soyingpang/sportsday-race-mvp/pkg/logger"
)

// LeaderboardHandler handles the read models shown on displays.
type LeaderboardHandler struct {
	deps LeaderboardDependencies
	log  logger.Logger
}

// NewLeaderboardHandler creates a new leaderboard handler.
func NewLeaderboardHandler(deps LeaderboardDependencies, log logger.Logger) *LeaderboardHandler {
	return &LeaderboardHandler{deps: deps, log: log}
}

// HandleResults handles GET /api/leaderboard?grade=&event=&round=.
// A blank or missing filter matches every heat.
func (h *LeaderboardHandler) HandleResults(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_leaderboard"
	q := r.URL.Query()
	rows, err := h.deps.Leaderboard(r.Context(), ranking.Context{
		Grade: strings.TrimSpace(q.Get("grade")),
		Event: strings.TrimSpace(q.Get("event")),
		Round: strings.TrimSpace(q.Get("round")),
	})
	if err != nil {
		fail(r.Context(), h.log, w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// HandleGames handles GET /api/games/leaderboard?grade=G&limit=N.
func (h *LeaderboardHandler) HandleGames(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_games_leaderboard"
	q := r.URL.Query()
	grade := strings.TrimSpace(q.Get("grade"))
	if grade == "" {
		fail(r.Context(), h.log, w, WrapKind(op, ErrBadRequest, errors.New("missing grade")))
		return
	}
	limit, err := optionalInt(q.Get("limit"))
	if err != nil {
		fail(r.Context(), h.log, w, WrapKind(op, ErrBadRequest, err))
		return
	}
	rows, err := h.deps.GameLeaderboard(r.Context(), grade, limit)
	if err != nil {
		fail(r.Context(), h.log, w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// HandleUpcoming handles GET /api/upcoming?n=N.
func (h *LeaderboardHandler) HandleUpcoming(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_upcoming"
	n, err := optionalInt(r.URL.Query().Get("n"))
	if err != nil {
		fail(r.Context(), h.log, w, WrapKind(op, ErrBadRequest, err))
		return
	}
	teams, err := h.deps.Upcoming(r.Context(), n)
	if err != nil {
		fail(r.Context(), h.log, w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, teams)
}

// HandleBoard handles GET /api/board.
func (h *LeaderboardHandler) HandleBoard(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_board"
	b, err := h.deps.Board(r.Context())
	if err != nil {
		fail(r.Context(), h.log, w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// optionalInt parses a non-negative query value; empty means zero.
func optionalInt(v string) (int, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, errors.New("must not be negative")
	}
	return n, nil
}
