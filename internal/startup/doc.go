// Package startup handles application initialization, configuration loading,
// and startup/shutdown logging.
//
// # Configuration
//
// All configuration is loaded from environment variables via [LoadConfig]:
//
//   - CATALOG_DATABASE_DIR: Directory holding catalog.db (default: /database)
//   - CATALOG_PORT: HTTP server port (default: 8080)
//   - CATALOG_METRICS_PORT: Prometheus metrics server port (default: 9090)
//   - CATALOG_METRICS_ENABLED: Enable or disable the metrics server (default: true)
//   - CATALOG_METRICS_INTERVAL: Catalog gauges refresh interval (default: 1m)
//   - CATALOG_LOG_HEALTH_CHECKS: Log /healthz requests (default: false)
//   - CATALOG_AUTOCOMPLETE_MIN_LENGTH: Shortest prefix answered by autocomplete (default: 2)
//   - CATALOG_SEARCH_MIN_LENGTH: Shortest query text answered by search (default: 0)
//   - CATALOG_BATCH_SIZE: Items scanned per query by known tags rebuilds (default: 1000)
//   - CATALOG_QUERY_TIMEOUT: Per-statement database timeout (default: 5s)
//   - CATALOG_REBUILD_INTERVAL: Full known tags rebuild interval, 0 disables (default: 6h)
//   - CATALOG_REBUILD_ON_START: Run one full rebuild at startup (default: false)
//   - CATALOG_REBUILD_WORKERS: Pin the rebuild worker count (see package workers)
//   - LOG_LEVEL: Logging level - debug, info, warn, error (default: info)
//
// # Build Information
//
// Build-time variables are injected via ldflags and exposed via [GetBuildInfo].
//
// # Lifecycle Logging
//
//   - [LogDatabaseInit]: Database initialization timing
//   - [LogMaintenanceInit]: Rebuild interval and worker count
//   - [LogHTTPRoutes]: Registered HTTP routes (debug level)
//   - [LogServerStarted]: Server endpoints and startup duration
//   - [LogShutdownInitiated]: Graceful shutdown start
//   - [LogShutdownComplete]: Shutdown completion
//
// # Example Usage
//
//	config, err := startup.LoadConfig()
//	if err != nil {
//	    startup.LogFatal("Configuration error: %v", err)
//	}
package startup
