package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"media-catalog/internal/database"
	"media-catalog/internal/handlers"
	"media-catalog/internal/logging"
	"media-catalog/internal/maintenance"
	"media-catalog/internal/memory"
	"media-catalog/internal/metrics"
	"media-catalog/internal/middleware"
	"media-catalog/internal/search"
	"media-catalog/internal/startup"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// statsSource is the part of *database.Database the metrics collector reads.
type statsSource interface {
	Stats(ctx context.Context) (database.Stats, error)
}

// statsProvider adapts database statistics to the metrics collector.
func statsProvider(src statsSource) metrics.StatsProvider {
	return metrics.StatsProviderFunc(func(ctx context.Context) (metrics.Stats, error) {
		s, err := src.Stats(ctx)
		if err != nil {
			return metrics.Stats{}, err
		}
		return metrics.Stats{
			PublicUsers:   s.PublicUsers,
			PrivateUsers:  s.PrivateUsers,
			Items:         s.Items,
			Collections:   s.Collections,
			DeletedItems:  s.DeletedItems,
			KnownTagsUser: s.KnownTagsUser,
			KnownTagsAnon: s.KnownTagsAnon,
		}, nil
	})
}

// userLookup resolves the caller header against the users table.
func userLookup(db *database.Database) middleware.UserLookup {
	return func(ctx context.Context, id uuid.UUID) (*database.User, error) {
		return db.Conn().GetUserByUUID(ctx, id)
	}
}

func main() {
	startTime := time.Now()

	memory.Configure()

	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}

	metrics.InitializeMetrics()
	buildInfo := startup.GetBuildInfo()
	metrics.SetAppInfo(buildInfo.Version, buildInfo.Commit, buildInfo.GoVersion)

	dbStart := time.Now()
	db, err := database.New(context.Background(), config.DatabasePath, &database.Options{
		QueryTimeout: config.QueryTimeout,
	})
	if err != nil {
		startup.LogFatal("Failed to initialize database: %v", err)
	}
	startup.LogDatabaseInit(time.Since(dbStart))

	searcher := search.NewService(db, search.Config{
		AutocompleteMinLength: config.AutocompleteMinLength,
		SearchMinLength:       config.SearchMinLength,
	})

	runner := maintenance.NewRunner(db, maintenance.Options{BatchSize: config.BatchSize})
	startup.LogMaintenanceInit(config.RebuildInterval, runner.Workers())

	var initial *backgroundRebuild
	if config.RebuildOnStart {
		initial = startRebuild(runner)
	}

	scheduler := maintenance.NewScheduler(runner, config.RebuildInterval)
	scheduler.Start()
	startup.LogMaintenanceStarted()

	collector := metrics.NewCollector(statsProvider(db), config.MetricsInterval)
	collector.SetDBMetricsUpdater(db)
	collector.Start()

	h := handlers.New(searcher, db, runner)
	router := setupRouter(h, userLookup(db))
	startup.LogHTTPRoutes(router, config.LogHealthChecks)

	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogHealthChecks = config.LogHealthChecks
	handler := middleware.Logger(loggingConfig)(router)

	srv := &http.Server{
		Addr:              ":" + config.Port,
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	var metricsSrv *http.Server
	if config.MetricsEnabled {
		metricsSrv = newMetricsServer(config.MetricsPort, h)
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logging.Error("Metrics server error: %v", err)
			}
		}()
	}

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		handleShutdown(srv, metricsSrv, initial, scheduler, collector, db)
	}()

	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsPort:     config.MetricsPort,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		startup.LogFatal("Server error: %v", err)
	}
	<-shutdownDone
}

func setupRouter(h *handlers.Handlers, lookup middleware.UserLookup) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.Metrics(middleware.DefaultMetricsConfig()))

	// Probes and version are served without caller identity
	r.HandleFunc("/health", h.HealthCheck).Methods("GET", "HEAD")
	r.HandleFunc("/healthz", h.HealthCheck).Methods("GET", "HEAD")
	r.HandleFunc("/livez", h.LivenessCheck).Methods("GET", "HEAD")
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods("GET", "HEAD")

	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.Identity(lookup))
	api.HandleFunc("/version", h.GetVersion).Methods("GET")
	api.HandleFunc("/search", h.Search).Methods("GET")
	api.HandleFunc("/search/total", h.SearchTotal).Methods("GET")
	api.HandleFunc("/search/autocomplete", h.Autocomplete).Methods("GET")
	api.HandleFunc("/home", h.Home).Methods("GET")
	api.HandleFunc("/users/anon/known_tags", h.AnonKnownTags).Methods("GET")
	api.HandleFunc("/users/{uuid}/known_tags", h.UserKnownTags).Methods("GET")

	return r
}

func newMetricsServer(port string, h *handlers.Handlers) *http.Server {
	serveMux := http.NewServeMux()
	serveMux.Handle("/metrics", promhttp.Handler())
	serveMux.HandleFunc("/health", h.LivenessCheck)

	return &http.Server{
		Addr:              ":" + port,
		Handler:           serveMux,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

type rebuilder interface {
	RebuildAll(ctx context.Context) (maintenance.Report, error)
}

// backgroundRebuild is a full known tags rebuild running off the request path.
type backgroundRebuild struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func startRebuild(r rebuilder) *backgroundRebuild {
	ctx, cancel := context.WithCancel(context.Background())
	b := &backgroundRebuild{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(b.done)
		report, err := r.RebuildAll(ctx)
		switch {
		case errors.Is(err, context.Canceled):
			logging.Warn("Startup known tags rebuild cancelled")
		case err != nil:
			logging.Error("Startup known tags rebuild failed: %v", err)
		default:
			logging.Info("Startup known tags rebuild finished: %d scopes in %v", len(report.Scopes), report.Duration)
		}
	}()
	return b
}

// Stop cancels the rebuild and waits for it to return. Safe on nil.
func (b *backgroundRebuild) Stop() {
	if b == nil {
		return
	}
	b.cancel()
	<-b.done
}

func handleShutdown(srv, metricsSrv *http.Server, initial *backgroundRebuild, scheduler *maintenance.Scheduler, collector *metrics.Collector, db *database.Database) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	startup.LogShutdownStep("Stopping maintenance scheduler")
	initial.Stop()
	scheduler.Stop()
	startup.LogShutdownStepComplete("Maintenance scheduler stopped")

	startup.LogShutdownStep("Stopping metrics collector")
	collector.Stop()
	startup.LogShutdownStepComplete("Metrics collector stopped")

	if metricsSrv != nil {
		startup.LogShutdownStep("Shutting down metrics server")
		if err := metricsSrv.Shutdown(ctx); err != nil {
			logging.Warn("Metrics server shutdown error: %v", err)
		} else {
			startup.LogShutdownStepComplete("Metrics server stopped")
		}
	}

	startup.LogShutdownStep("Closing database")
	if err := db.Close(); err != nil {
		logging.Warn("Database close error: %v", err)
	} else {
		startup.LogShutdownStepComplete("Database closed")
	}

	startup.LogShutdownComplete()
}
