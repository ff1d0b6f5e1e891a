package metrics

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	scopes := []string{"anon", "user"}
	kinds := []string{"search", "count", "home", "autocomplete", "known_tags"}

	// --- Search engine ---
	for _, kind := range kinds {
		for _, scope := range scopes {
			SearchRequestsTotal.WithLabelValues(kind, scope)
		}
		SearchDuration.WithLabelValues(kind)
		SearchResultsReturned.WithLabelValues(kind)
		SearchShortQueriesTotal.WithLabelValues(kind)
	}

	// --- Known tags ---
	for _, scope := range scopes {
		KnownTagsRebuildsTotal.WithLabelValues(scope, "success")
		KnownTagsRebuildsTotal.WithLabelValues(scope, "error")
		KnownTagsRebuildDuration.WithLabelValues(scope)
		KnownTagsRebuildItems.WithLabelValues(scope)
		CatalogKnownTagsTotal.WithLabelValues(scope)
	}
	KnownTagsAdjustmentsTotal.WithLabelValues("increment")
	KnownTagsAdjustmentsTotal.WithLabelValues("decrement")

	// --- Maintenance ---
	MaintenanceRunsTotal.WithLabelValues("success")
	MaintenanceRunsTotal.WithLabelValues("error")

	// --- Catalog contents ---
	for _, v := range []string{"public", "private"} {
		CatalogUsersTotal.WithLabelValues(v)
	}
	for _, k := range []string{"item", "collection", "deleted"} {
		CatalogItemsTotal.WithLabelValues(k)
	}

	// --- Database storage ---
	for _, file := range []string{"main", "wal", "shm"} {
		DBSizeBytes.WithLabelValues(file)
	}

	// --- DB query operations ---
	for _, op := range []string{"search_items", "count_items", "scan_computed_tags",
		"autocomplete_tags", "increment_known_tags", "decrement_known_tags",
		"insert_known_tags", "drop_known_tags", "drop_unused_known_tags"} {
		DBQueryTotal.WithLabelValues(op, "success")
		DBQueryTotal.WithLabelValues(op, "error")
		DBQueryDuration.WithLabelValues(op)
	}
}
