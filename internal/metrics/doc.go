// Package metrics provides Prometheus instrumentation for the media catalog.
//
// All metrics are prefixed with "catalog_" and registered on the default
// registry through promauto.
//
// # Metric Categories
//
// ## HTTP Metrics
//
//   - HTTPRequestsTotal: Counter of total requests by method, path, and status
//   - HTTPRequestDuration: Histogram of request duration by method and path
//   - HTTPRequestsInFlight: Gauge of currently processing requests
//
// ## Database Metrics
//
//   - DBQueryTotal: Counter of queries by operation and status
//   - DBQueryDuration: Histogram of query duration by operation
//   - DBTransactionDuration: Histogram of transaction duration by name and outcome
//   - DBConnectionsOpen: Gauge of open database connections
//   - DBSizeBytes: Gauge of database file sizes (main, WAL, SHM)
//
// ## Search Metrics
//
//   - SearchRequestsTotal: Counter by kind (search/count/home/autocomplete/known_tags) and scope
//   - SearchDuration: Histogram of engine time by kind
//   - SearchResultsReturned: Histogram of result sizes by kind
//   - SearchShortQueriesTotal: Requests short-circuited by the minimal length guard
//
// ## Known Tags and Maintenance Metrics
//
//   - KnownTagsRebuildsTotal, KnownTagsRebuildDuration, KnownTagsRebuildItems
//   - KnownTagsAdjustmentsTotal: incremental increments and decrements
//   - KnownTagsDropped: rows removed by the unused tags sweep
//   - MaintenanceRunsTotal, MaintenanceIsRunning, MaintenanceLastRun*
//   - ComputedTagsRecomputedTotal: items whose closure was recomputed
//
// ## Catalog Contents
//
// The Collector polls a StatsProvider on an interval and publishes
// CatalogUsersTotal, CatalogItemsTotal and CatalogKnownTagsTotal.
//
// # Usage
//
//	collector := metrics.NewCollector(provider, time.Minute)
//	collector.SetDBMetricsUpdater(db)
//	collector.Start()
//	defer collector.Stop()
package metrics
