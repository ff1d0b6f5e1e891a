package startup

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"media-catalog/internal/logging"

	"github.com/gorilla/mux"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// RouteInfo is one method and path pair of a registered route.
type RouteInfo struct {
	Method string
	Path   string
	Name   string
}

// Config holds all application configuration
type Config struct {
	DatabaseDir     string
	Port            string
	MetricsPort     string
	MetricsEnabled  bool
	MetricsInterval time.Duration
	LogHealthChecks bool

	// Search engine
	AutocompleteMinLength int
	SearchMinLength       int
	BatchSize             int
	QueryTimeout          time.Duration

	// Maintenance
	RebuildInterval time.Duration
	RebuildOnStart  bool

	// DatabasePath is catalog.db inside the absolute DatabaseDir.
	DatabasePath string
}

const (
	defaultBatchSize       = 1000
	defaultMetricsInterval = time.Minute
)

// LoadConfig reads the CATALOG_* environment, logs the effective settings
// and prepares the database directory.
func LoadConfig() (*Config, error) {
	build := GetBuildInfo()
	logging.Info("catalog %s (commit %s, built %s) on %s %s/%s, %d CPUs, GOMAXPROCS %d",
		build.Version, build.Commit, build.BuildTime, build.GoVersion,
		build.OS, build.Arch, runtime.NumCPU(), runtime.GOMAXPROCS(0))

	config := &Config{
		DatabaseDir:           getEnv("CATALOG_DATABASE_DIR", "/database"),
		Port:                  getEnv("CATALOG_PORT", "8080"),
		MetricsPort:           getEnv("CATALOG_METRICS_PORT", "9090"),
		MetricsEnabled:        getEnvBool("CATALOG_METRICS_ENABLED", true),
		MetricsInterval:       getEnvDuration("CATALOG_METRICS_INTERVAL", defaultMetricsInterval),
		LogHealthChecks:       getEnvBool("CATALOG_LOG_HEALTH_CHECKS", false),
		AutocompleteMinLength: getEnvInt("CATALOG_AUTOCOMPLETE_MIN_LENGTH", 2),
		SearchMinLength:       getEnvInt("CATALOG_SEARCH_MIN_LENGTH", 0),
		BatchSize:             getEnvInt("CATALOG_BATCH_SIZE", defaultBatchSize),
		QueryTimeout:          getEnvDuration("CATALOG_QUERY_TIMEOUT", 5*time.Second),
		RebuildInterval:       getEnvDuration("CATALOG_REBUILD_INTERVAL", 6*time.Hour),
		RebuildOnStart:        getEnvBool("CATALOG_REBUILD_ON_START", false),
	}

	if config.BatchSize <= 0 {
		logging.Warn("CATALOG_BATCH_SIZE must be positive, using %d", defaultBatchSize)
		config.BatchSize = defaultBatchSize
	}
	if config.MetricsInterval <= 0 {
		logging.Warn("CATALOG_METRICS_INTERVAL must be positive, using %v", defaultMetricsInterval)
		config.MetricsInterval = defaultMetricsInterval
	}

	databaseDir, err := filepath.Abs(config.DatabaseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve database directory path: %w", err)
	}
	if err := prepareDatabaseDir(databaseDir); err != nil {
		return nil, fmt.Errorf("database directory %s: %w", databaseDir, err)
	}
	config.DatabaseDir = databaseDir
	config.DatabasePath = filepath.Join(databaseDir, "catalog.db")

	logging.Info("config: database=%s port=%s metrics=%v(:%s every %v) health-check-logs=%v",
		config.DatabasePath, config.Port, config.MetricsEnabled, config.MetricsPort,
		config.MetricsInterval, config.LogHealthChecks)
	logging.Info("config: autocomplete>=%d search>=%d batch=%d query-timeout=%v rebuild-every=%v rebuild-on-start=%v log-level=%s",
		config.AutocompleteMinLength, config.SearchMinLength, config.BatchSize,
		config.QueryTimeout, config.RebuildInterval, config.RebuildOnStart, logging.GetLevel())

	return config, nil
}

// prepareDatabaseDir creates dir when missing and checks SQLite can write
// its journal files there.
func prepareDatabaseDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if info, err := os.Stat(dir); err != nil {
		return err
	} else if !info.IsDir() {
		return errors.New("not a directory")
	}

	f, err := os.CreateTemp(dir, ".write-check-*")
	if err != nil {
		return fmt.Errorf("not writable: %w", err)
	}
	f.Close()
	if err := os.Remove(f.Name()); err != nil {
		logging.Warn("could not remove %s: %v", f.Name(), err)
	}
	return nil
}

// LogDatabaseInit logs database initialization
func LogDatabaseInit(duration time.Duration) {
	logging.Info("database ready in %v", duration)
}

// LogMaintenanceInit logs the rebuild schedule.
func LogMaintenanceInit(interval time.Duration, workers int) {
	if interval <= 0 {
		logging.Info("periodic known tags rebuild disabled, %d workers for manual runs", workers)
		return
	}
	logging.Info("known tags rebuild every %v with %d workers", interval, workers)
}

// LogMaintenanceStarted logs successful scheduler start
func LogMaintenanceStarted() {
	logging.Debug("maintenance scheduler started")
}

// GetRoutes extracts all registered routes from a mux.Router. Routes
// without a method restriction are reported with method "*".
func GetRoutes(router *mux.Router) ([]RouteInfo, error) {
	var routes []RouteInfo

	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		path, err := route.GetPathTemplate()
		if err != nil {
			return err
		}
		methods, err := route.GetMethods()
		if err != nil {
			methods = []string{"*"}
		}
		for _, method := range methods {
			routes = append(routes, RouteInfo{Method: method, Path: path, Name: route.GetName()})
		}
		return nil
	})

	return routes, err
}

// LogHTTPRoutes lists the registered routes at debug level.
func LogHTTPRoutes(router *mux.Router, logHealthChecks bool) {
	routes, err := GetRoutes(router)
	if err != nil {
		logging.Warn("error walking routes: %v", err)
	}
	logging.Info("%d HTTP routes registered, health check logging %v", len(routes), logHealthChecks)

	if logging.IsDebugEnabled() {
		for _, route := range routes {
			logging.Debug("  %-6s %s", route.Method, route.Path)
		}
	}
}

// ServerConfig holds configuration for the server startup log
type ServerConfig struct {
	Port            string
	MetricsPort     string
	MetricsEnabled  bool
	StartupDuration time.Duration
}

// LogServerStarted logs the listening ports.
func LogServerStarted(config ServerConfig) {
	if config.MetricsEnabled {
		logging.Info("listening on :%s, metrics on :%s/metrics (started in %v)",
			config.Port, config.MetricsPort, config.StartupDuration)
		return
	}
	logging.Info("listening on :%s, metrics disabled (started in %v)", config.Port, config.StartupDuration)
}

// LogShutdownInitiated logs shutdown start
func LogShutdownInitiated(signal string) {
	logging.Info("received %s, shutting down", signal)
}

// LogShutdownStep logs a shutdown step
func LogShutdownStep(step string) {
	logging.Debug("  %s...", step)
}

// LogShutdownStepComplete logs a completed shutdown step
func LogShutdownStepComplete(step string) {
	logging.Info("  [OK] %s", step)
}

// LogShutdownComplete logs shutdown completion
func LogShutdownComplete() {
	logging.Info("shutdown complete")
}

// LogFatal logs a fatal error and exits
func LogFatal(format string, args ...interface{}) {
	logging.Fatal(format, args...)
}

// lookupEnv parses key with parse. Unset or empty keys yield def, as do
// values parse rejects.
func lookupEnv[T any](key string, def T, parse func(string) (T, error)) T {
	value := os.Getenv(key)
	if value == "" {
		return def
	}
	parsed, err := parse(value)
	if err != nil {
		logging.Warn("Invalid value for %s: %q, using default: %v", key, value, def)
		return def
	}
	return parsed
}

func getEnv(key, def string) string {
	return lookupEnv(key, def, func(s string) (string, error) { return s, nil })
}

func getEnvBool(key string, def bool) bool {
	return lookupEnv(key, def, strconv.ParseBool)
}

func getEnvInt(key string, def int) int {
	return lookupEnv(key, def, strconv.Atoi)
}

// getEnvDuration accepts Go durations ("90s", "6h") and "0" to disable.
func getEnvDuration(key string, def time.Duration) time.Duration {
	return lookupEnv(key, def, func(s string) (time.Duration, error) {
		if s == "0" {
			return 0, nil
		}
		return time.ParseDuration(s)
	})
}
