package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/cors"
	"github.com/soyingpang/sportsday-race-mvp/internal/adapters/http/api"
	"github.com/soyingpang/sportsday-race-mvp/internal/adapters/http/live"
	"github.com/soyingpang/sportsday-race-mvp/internal/adapters/mq/notify"
	"github.com/soyingpang/sportsday-race-mvp/internal/adapters/mq/queue"
	"github.com/soyingpang/sportsday-race-mvp/internal/adapters/mq/worker"
	"github.com/soyingpang/sportsday-race-mvp/internal/adapters/remote"
	"github.com/soyingpang/sportsday-race-mvp/internal/adapters/repository"
	service "github.com/soyingpang/sportsday-race-mvp/internal/app"
	"github.com/soyingpang/sportsday-race-mvp/internal/config"
	"github.com/soyingpang/sportsday-race-mvp/pkg/logger"
	"github.com/soyingpang/sportsday-race-mvp/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout           = 10 * time.Second
	writeTimeout          = 30 * time.Second
	idleTimeout           = 60 * time.Second
	readHeaderTimeout     = 5 * time.Second
	remoteTimeout         = 10 * time.Second
	systemMetricsInterval = 10 * time.Second
)

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> .env -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		// logger isn't configured yet
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

	st, err := newStation(ctx, cfg, log)
	if err != nil {
		log.Error(ctx, "failed to start station", logger.Error(err))
		os.Exit(1)
	}
	defer st.close(context.Background())

	go startSystemMetricsUpdater(ctx)
	st.start(ctx)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           st.handler,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr), logger.String("instance", st.syncer.InstanceID()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "HTTP server failed", logger.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
	defer cancel()

	// websocket connections are hijacked; Shutdown does not wait for them
	st.live.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
}

// station holds every long-lived component of one scoring device.
type station struct {
	log     logger.Logger
	kv      *repository.SQLiteKV
	store   *repository.DocumentStore
	hub     *notify.Hub
	bridge  *notify.NATSBridge
	watcher *repository.Watcher
	queue   *queue.InMemoryQueue
	pusher  *worker.PushWorker
	syncer  *remote.Syncer
	svc     *service.Service
	live    *live.Manager
	handler http.Handler

	wg      sync.WaitGroup
	started bool
}

// newStation wires storage, notification, sync and the HTTP surface. Remote
// sync and NATS are optional; their failures leave the station local-only.
func newStation(ctx context.Context, cfg *config.Config, log logger.Logger) (*station, error) {
	kv, err := repository.OpenSQLite(ctx, cfg.DBPath)
	if err != nil {
		return nil, err
	}

	st := &station{log: log, kv: kv}
	st.queue = queue.NewInMemoryQueue(queue.WithCapacity(cfg.PushQueueSize))

	// the instance id tags notifications and pushes of this station
	instance := uuid.New().String()
	metrics.Configure(metrics.WithConstLabels(map[string]string{"station": instance}))
	st.hub = notify.NewHub(notify.WithOrigin(instance), notify.WithLogger(log.Named("notify")))
	st.store = repository.NewDocumentStore(kv,
		repository.WithKey(cfg.StorageKey),
		repository.WithNotifier(st.hub),
		repository.WithLogger(log.Named("store")),
	)
	st.syncer = remote.NewSyncer(st.store, remote.WithLogger(log), remote.WithInstanceID(instance))

	if cfg.NATSURL != "" {
		b, err := notify.ConnectNATS(cfg.NATSURL, cfg.NATSSubject, instance, st.hub, log.Named("nats"))
		if err != nil {
			log.Warn(ctx, "NATS unavailable; notifications stay in-process", logger.Error(err))
		} else {
			st.bridge = b
		}
	}

	st.watcher = repository.NewWatcher(st.store, st.hub, repository.WithInterval(cfg.StorageWatchInterval()))
	st.enableSync(ctx, cfg.RemoteSyncConfig)
	st.pusher = worker.NewPushWorker(st.queue, st.syncer, worker.WithLogger(log))

	st.svc = service.New(st.store,
		service.WithLogger(log.Named("service")),
		service.WithSubscriptions(st.hub),
		service.WithTopN(cfg.LeaderboardTopN),
	)

	origins := cfg.Origins()
	st.live = live.NewManager(
		live.WithLogger(log.Named("live")),
		live.WithConfig(live.Config{CheckOrigin: allowOrigin(origins)}),
	)

	mux := http.NewServeMux()
	api.NewServer(st.svc,
		api.WithLogger(log.Named("api")),
		api.WithSyncStatus(st.syncer),
		api.WithLive(st.live),
	).Register(ctx, mux)

	st.handler = cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodDelete,
		},
		AllowedOrigins: origins,
		AllowedHeaders: []string{"*"},
	}).Handler(mux)
	return st, nil
}

func (st *station) enableSync(ctx context.Context, source string) {
	if source == "" {
		st.log.Info(ctx, "remote sync not configured")
		return
	}
	hc := &http.Client{Timeout: remoteTimeout}
	rc, err := remote.LoadConfig(ctx, source, hc)
	if err != nil {
		st.log.Warn(ctx, "remote sync config unavailable; running local-only", logger.Error(err))
		return
	}
	if err := st.syncer.Enable(rc, remote.NewClient(rc, hc)); err != nil {
		if errors.Is(err, remote.ErrDisabled) {
			st.log.Info(ctx, "remote sync disabled by config")
		} else {
			st.log.Warn(ctx, "remote sync config rejected; running local-only", logger.Error(err))
		}
		return
	}
	st.store.OnSave(remote.PushHook(st.queue))
	st.log.Info(ctx, "remote sync enabled", logger.String("room", rc.Room), logger.Duration("poll", rc.PollInterval()))
}

// start launches the background loops. They stop with ctx.
func (st *station) start(ctx context.Context) {
	st.started = true
	for _, run := range []func(context.Context){
		st.watcher.Run,
		st.syncer.Run,
		st.pusher.Run,
		func(ctx context.Context) { st.live.Run(ctx, st.hub) },
	} {
		st.wg.Add(1)
		go func() {
			defer st.wg.Done()
			run(ctx)
		}()
	}
}

// close stops the loops started by start and releases storage. The caller
// cancels the start context first.
func (st *station) close(ctx context.Context) {
	_ = st.queue.Close()
	if st.started {
		if err := st.pusher.Shutdown(ctx); err != nil {
			st.log.Warn(ctx, "push worker shutdown", logger.Error(err))
		}
	}
	st.live.Close()
	st.wg.Wait()
	if st.bridge != nil {
		_ = st.bridge.Close()
	}
	st.hub.Close()
	if err := st.kv.Close(); err != nil {
		st.log.Warn(ctx, "close storage", logger.Error(err))
	}
}

// allowOrigin accepts websocket upgrades from the configured origins. A "*"
// entry or a request without Origin is always accepted.
func allowOrigin(origins []string) func(r *http.Request) bool {
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		if _, ok := allowed["*"]; ok {
			return true
		}
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := allowed[origin]
		return ok
	}
}

// startSystemMetricsUpdater updates system metrics until ctx is done.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
}
