// Package api declares the station HTTP API and its route registration.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/soyingpang/sportsday-race-mvp/internal/adapters/remote"
	service "github.com/soyingpang/sportsday-race-mvp/internal/app"
	"github.com/soyingpang/sportsday-race-mvp/internal/domain/model"
	"github.com/soyingpang/sportsday-race-mvp/internal/domain/ranking"
	"github.com/soyingpang/sportsday-race-mvp/internal/domain/schedule"
	"github.com/soyingpang/sportsday-race-mvp/pkg/logger"
)

// DefaultMaxBody bounds request bodies, backups included.
const DefaultMaxBody = 8 << 20

// StateDependencies covers the whole-document operations.
type StateDependencies interface {
	State(ctx context.Context) (*model.Document, error)
	ImportRoster(ctx context.Context, r io.Reader) (service.ImportStats, error)
	SetPresent(ctx context.Context, pid string, present bool) (model.Participant, error)
	Reset(ctx context.Context) (*model.Document, error)
	Restore(ctx context.Context, data []byte) (*model.Document, error)
}

// HeatDependencies covers heat building and maintenance.
type HeatDependencies interface {
	BuildHeats(ctx context.Context, req schedule.Request) (service.BuildResult, error)
	Heat(ctx context.Context, id string) (model.Heat, error)
	HeatsFor(ctx context.Context, grade, event, round string) ([]model.Heat, error)
	UpdateHeatPicks(ctx context.Context, id string, u service.PicksUpdate) (model.Heat, error)
	SetHeatLocked(ctx context.Context, id string, locked bool) (model.Heat, error)
	SetCurrentHeat(ctx context.Context, id string) error
	ClearHeatResults(ctx context.Context, id string) error
}

// ResultDependencies covers lane results and game times.
type ResultDependencies interface {
	RecordLaneResult(ctx context.Context, e service.LaneEntry) (model.ResultRecord, error)
	SetGameTime(ctx context.Context, pid string, slot int, value string) (model.GameTimes, error)
	SetGameNote(ctx context.Context, pid, note string) (model.GameTimes, error)
	SetGameLabels(ctx context.Context, labels []string) ([]string, error)
}

// LeaderboardDependencies covers the read models.
type LeaderboardDependencies interface {
	Leaderboard(ctx context.Context, c ranking.Context) ([]ranking.Row, error)
	GameLeaderboard(ctx context.Context, grade string, limit int) ([]ranking.GameRow, error)
	Upcoming(ctx context.Context, n int) ([]string, error)
	Board(ctx context.Context) (service.Board, error)
}

// StatsProvider reports document counts.
type StatsProvider interface {
	Stats(ctx context.Context) (service.Stats, error)
}

// SyncStatus reports the remote sync state machine.
type SyncStatus interface {
	Enabled() bool
	State() remote.State
	InstanceID() string
}

// Dependencies required by HTTP handlers. *service.Service satisfies it.
type Dependencies interface {
	StateDependencies
	HeatDependencies
	ResultDependencies
	LeaderboardDependencies
	StatsProvider
}

// Server wires HTTP routes for the station API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	stateHandler       *StateHandler
	heatsHandler       *HeatsHandler
	resultsHandler     *ResultsHandler
	leaderboardHandler *LeaderboardHandler
	exportHandler      *ExportHandler
	live               http.Handler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	o := options{log: logger.Nop(), maxBody: DefaultMaxBody}
	for _, opt := range opts {
		opt(&o)
	}
	return &Server{
		healthHandler:      NewHealthHandler(o.sync),
		statsHandler:       NewStatsHandler(deps, o.log),
		stateHandler:       NewStateHandler(deps, o.log, o.maxBody),
		heatsHandler:       NewHeatsHandler(deps, o.log, o.maxBody),
		resultsHandler:     NewResultsHandler(deps, o.log, o.maxBody),
		leaderboardHandler: NewLeaderboardHandler(deps, o.log),
		exportHandler:      NewExportHandler(deps, o.log),
		live:               o.live,
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.Handle("GET /metrics", MetricsHandler())
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("GET /api/state", MetricsMiddleware(s.stateHandler.HandleGetState, "state"))
	mux.HandleFunc("POST /api/roster", MetricsMiddleware(s.stateHandler.HandleImportRoster, "roster"))
	mux.HandleFunc("PUT /api/participants/{pid}/present", MetricsMiddleware(s.stateHandler.HandleSetPresent, "present"))
	mux.HandleFunc("GET /api/backup", MetricsMiddleware(s.stateHandler.HandleBackup, "backup"))
	mux.HandleFunc("POST /api/restore", MetricsMiddleware(s.stateHandler.HandleRestore, "restore"))
	mux.HandleFunc("POST /api/reset", MetricsMiddleware(s.stateHandler.HandleReset, "reset"))

	mux.HandleFunc("POST /api/heats", MetricsMiddleware(s.heatsHandler.HandleBuild, "heats_build"))
	mux.HandleFunc("GET /api/heats", MetricsMiddleware(s.heatsHandler.HandleList, "heats_list"))
	mux.HandleFunc("GET /api/heats/{id}", MetricsMiddleware(s.heatsHandler.HandleGet, "heat"))
	mux.HandleFunc("PUT /api/heats/{id}/picks", MetricsMiddleware(s.heatsHandler.HandlePicks, "heat_picks"))
	mux.HandleFunc("PUT /api/heats/{id}/lock", MetricsMiddleware(s.heatsHandler.HandleLock, "heat_lock"))
	mux.HandleFunc("DELETE /api/heats/{id}/results", MetricsMiddleware(s.heatsHandler.HandleClearResults, "heat_results_clear"))
	mux.HandleFunc("GET /api/heats/{id}/scoresheet.csv", MetricsMiddleware(s.exportHandler.HandleScoreSheet, "scoresheet"))
	mux.HandleFunc("PUT /api/current-heat", MetricsMiddleware(s.heatsHandler.HandleSetCurrent, "current_heat"))

	mux.HandleFunc("POST /api/results", MetricsMiddleware(s.resultsHandler.HandleLaneResult, "results"))
	mux.HandleFunc("PUT /api/games/times/{pid}/{slot}", MetricsMiddleware(s.resultsHandler.HandleGameTime, "game_time"))
	mux.HandleFunc("PUT /api/games/notes/{pid}", MetricsMiddleware(s.resultsHandler.HandleGameNote, "game_note"))
	mux.HandleFunc("PUT /api/games/labels", MetricsMiddleware(s.resultsHandler.HandleGameLabels, "game_labels"))

	mux.HandleFunc("GET /api/leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleResults, "leaderboard"))
	mux.HandleFunc("GET /api/games/leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleGames, "games_leaderboard"))
	mux.HandleFunc("GET /api/upcoming", MetricsMiddleware(s.leaderboardHandler.HandleUpcoming, "upcoming"))
	mux.HandleFunc("GET /api/board", MetricsMiddleware(s.leaderboardHandler.HandleBoard, "board"))

	mux.HandleFunc("GET /api/export/schedule.csv", MetricsMiddleware(s.exportHandler.HandleSchedule, "export_schedule"))
	mux.HandleFunc("GET /api/export/totals.csv", MetricsMiddleware(s.exportHandler.HandleTotals, "export_totals"))

	if s.live != nil {
		mux.Handle("GET /ws", s.live)
	}
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = messageOf(status, err)
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// fail answers with the status derived from err. Server errors are logged.
func fail(ctx context.Context, log logger.Logger, w http.ResponseWriter, err error) {
	status, code := statusOf(err)
	if status >= http.StatusInternalServerError {
		log.Error(ctx, "request failed", logger.Error(err))
	}
	writeError(w, status, code, err)
}

// decodeJSON reads a bounded JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, maxBody int64, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	return nil
}
