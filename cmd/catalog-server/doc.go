// Package main provides the entry point for the catalog search server.
//
// The server answers tag searches, result counts, home browsing and tag
// autocomplete over a SQLite catalog of items owned by users. Every answer
// respects the caller's visibility: anonymous callers see the items of
// public users, registered users see the items they own or were granted.
//
// # Application Lifecycle
//
//  1. Memory Configuration: sets GOMEMLIMIT from the container limit
//  2. Configuration Loading: reads CATALOG_* environment variables
//  3. Database Initialization: opens SQLite and applies embedded migrations
//  4. Component Initialization:
//     - Search service over the database
//     - Maintenance runner and its periodic known tags rebuild
//     - Metrics collector publishing catalog gauges
//  5. HTTP Server Setup: configures routes and middleware, starts serving
//  6. Graceful Shutdown: handles SIGINT/SIGTERM and stops every component
//
// # HTTP Server
//
// The application runs two HTTP servers:
//
//  1. Main Server (default port 8080):
//     - /api/search, /api/search/total, /api/search/autocomplete, /api/home
//     - /api/users/anon/known_tags, /api/users/{uuid}/known_tags (owner only)
//     - /api/version
//     - /health, /healthz, /livez, /readyz probes
//
//  2. Metrics Server (default port 9090, optional):
//     - Prometheus metrics endpoint (/metrics)
//     - Liveness endpoint (/health)
//
// The caller is identified by the X-Catalog-User header carrying a user
// UUID. Requests without it are served as anonymous.
//
// # Environment Variables
//
//   - CATALOG_DATABASE_DIR: directory for the SQLite database (default: /database)
//   - CATALOG_PORT: main HTTP server port (default: 8080)
//   - CATALOG_METRICS_PORT: metrics server port (default: 9090)
//   - CATALOG_METRICS_ENABLED: enable the metrics server (default: true)
//   - CATALOG_METRICS_INTERVAL: catalog gauge refresh interval (default: 1m)
//   - CATALOG_LOG_HEALTH_CHECKS: log probe requests (default: false)
//   - CATALOG_AUTOCOMPLETE_MIN_LENGTH: shortest completed prefix (default: 2)
//   - CATALOG_SEARCH_MIN_LENGTH: shortest evaluated query (default: 0)
//   - CATALOG_BATCH_SIZE: rows per rebuild page and insert (default: 1000)
//   - CATALOG_QUERY_TIMEOUT: per statement timeout (default: 5s)
//   - CATALOG_REBUILD_INTERVAL: full known tags rebuild period, 0 disables (default: 6h)
//   - CATALOG_REBUILD_ON_START: rebuild once at startup (default: false)
//   - CATALOG_REBUILD_WORKERS: parallel scope rebuilds
//   - CATALOG_MEMORY_LIMIT, CATALOG_MEMORY_RATIO: container memory limit and heap share
//   - LOG_LEVEL: logging level (debug/info/warn/error)
//
// # Graceful Shutdown
//
//  1. Shutdown main HTTP server (30s timeout)
//  2. Stop maintenance scheduler (a running rebuild is cancelled)
//  3. Stop metrics collector
//  4. Shutdown metrics server (if running)
//  5. Close database connections
//
// # Related Packages
//
//   - [media-catalog/internal/database]: SQLite storage
//   - [media-catalog/internal/search]: query evaluation and autocomplete
//   - [media-catalog/internal/maintenance]: computed and known tags upkeep
//   - [media-catalog/internal/handlers]: HTTP request handlers
//   - [media-catalog/internal/middleware]: caller identity, logging, metrics
//   - [media-catalog/internal/startup]: configuration and initialization
package main
