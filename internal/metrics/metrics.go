package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "catalog_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "catalog_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Database metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "catalog_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	DBTransactionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "catalog_db_transaction_duration_seconds",
			Help:    "Duration of database transactions by name and outcome",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
		},
		[]string{"name", "outcome"},
	)

	DBConnectionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "catalog_db_connections_open",
			Help: "Number of open database connections",
		},
	)

	DBSizeBytes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "catalog_db_size_bytes",
			Help: "Size of SQLite database files in bytes",
		},
		[]string{"file"}, // "main", "wal", "shm"
	)
)

// Search metrics
var (
	SearchRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_search_requests_total",
			Help: "Total number of search engine requests by kind and caller scope",
		},
		[]string{"kind", "scope"}, // kind: search, count, home, autocomplete, known_tags; scope: anon, user
	)

	SearchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "catalog_search_duration_seconds",
			Help:    "Search engine request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"kind"},
	)

	SearchResultsReturned = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "catalog_search_results_returned",
			Help:    "Number of results returned per search engine request",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
		[]string{"kind"},
	)

	SearchShortQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_search_short_queries_total",
			Help: "Requests answered empty because the query was below the minimal length",
		},
		[]string{"kind"},
	)
)

// Known tags metrics
var (
	KnownTagsRebuildsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_known_tags_rebuilds_total",
			Help: "Total number of known tags rebuilds",
		},
		[]string{"scope", "status"},
	)

	KnownTagsRebuildDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "catalog_known_tags_rebuild_duration_seconds",
			Help:    "Duration of a known tags rebuild for one scope",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
		},
		[]string{"scope"},
	)

	KnownTagsRebuildItems = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_known_tags_rebuild_items_total",
			Help: "Items scanned during known tags rebuilds",
		},
		[]string{"scope"},
	)

	KnownTagsAdjustmentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_known_tags_adjustments_total",
			Help: "Incremental known tags counter adjustments",
		},
		[]string{"direction"}, // "increment", "decrement"
	)

	KnownTagsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_known_tags_dropped_total",
			Help: "Known tags rows removed because their counter reached zero",
		},
	)
)

// Maintenance metrics
var (
	MaintenanceRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_maintenance_runs_total",
			Help: "Total number of full maintenance runs",
		},
		[]string{"status"},
	)

	MaintenanceIsRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "catalog_maintenance_running",
			Help: "Whether a full maintenance run is in progress (1 = running, 0 = idle)",
		},
	)

	MaintenanceLastRunTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "catalog_maintenance_last_run_timestamp",
			Help: "Unix timestamp of the last completed maintenance run",
		},
	)

	MaintenanceLastRunDuration = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "catalog_maintenance_last_run_duration_seconds",
			Help: "Duration of the last maintenance run in seconds",
		},
	)

	ComputedTagsRecomputedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_computed_tags_recomputed_total",
			Help: "Items whose computed tags were recomputed",
		},
	)
)

// Catalog contents
var (
	CatalogUsersTotal = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "catalog_users_total",
			Help: "Number of registered users by visibility",
		},
		[]string{"visibility"}, // "public", "private"
	)

	CatalogItemsTotal = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "catalog_items_total",
			Help: "Number of items by kind",
		},
		[]string{"kind"}, // "item", "collection", "deleted"
	)

	CatalogKnownTagsTotal = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "catalog_known_tags_total",
			Help: "Number of known tags rows by scope",
		},
		[]string{"scope"}, // "user", "anon"
	)
)

// Application info metric
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "catalog_app_info",
			Help: "Application information",
		},
		[]string{"version", "commit", "go_version"},
	)
)

// SetAppInfo sets the application info metric
func SetAppInfo(version, commit, goVersion string) {
	AppInfo.WithLabelValues(version, commit, goVersion).Set(1)
}

// ScopeLabel maps a caller scope to its metric label value.
func ScopeLabel(anon bool) string {
	if anon {
		return "anon"
	}
	return "user"
}
