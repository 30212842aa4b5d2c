// Command relay serves the shared remote document that stations sync with.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/soyingpang/sportsday-race-mvp/internal/adapters/http/relay"
	"github.com/soyingpang/sportsday-race-mvp/internal/adapters/repository"
	"github.com/soyingpang/sportsday-race-mvp/internal/config"
	"github.com/soyingpang/sportsday-race-mvp/pkg/logger"
	"github.com/soyingpang/sportsday-race-mvp/pkg/metrics"
)

const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 30 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}
	if err := logger.InitWithOptions(logger.Options{Format: cfg.LogFormat}); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	kv, err := repository.OpenSQLite(ctx, cfg.RelayDBPath)
	if err != nil {
		log.Error(ctx, "failed to open relay storage", logger.Error(err), logger.String("path", cfg.RelayDBPath))
		os.Exit(1)
	}
	defer func() { _ = kv.Close() }()

	srv := &http.Server{
		Addr:              cfg.RelayAddr,
		Handler:           newHandler(kv, cfg.Origins(), log),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info(ctx, "starting relay", logger.String("addr", cfg.RelayAddr), logger.String("db", cfg.RelayDBPath))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "relay server failed", logger.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info(ctx, "shutting down relay...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "relay shutdown failed", logger.Error(err))
	}
	log.Info(ctx, "relay stopped")
}

// newHandler mounts the relay endpoint at the root with health and metrics beside it.
func newHandler(kv repository.KV, origins []string, log logger.Logger) http.Handler {
	metrics.Configure(metrics.WithSubsystem("relay"))
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_, _ = w.Write([]byte(`{"status":"ok"}` + "\n"))
	})
	mux.Handle("GET /metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))
	mux.Handle("/", relay.NewHandler(relay.NewRooms(kv, clockwork.NewRealClock()), log))

	// GET and a text/plain POST are simple requests; no preflight is needed
	return cors.New(cors.Options{
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedOrigins: origins,
	}).Handler(mux)
}
