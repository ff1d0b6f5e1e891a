/*
Package workers sizes the goroutine pools used by catalog maintenance.

Worker counts derive from runtime.GOMAXPROCS, which Go 1.19+ sets from the
container CPU limit, rather than runtime.NumCPU, which reports host CPUs.

# Usage

	// Known tags rebuilds wait on the database, so use the I/O ratio and
	// keep below the connection pool size.
	n := workers.ForIO(dbPoolSize)

	// Custom ratio: 3 workers per CPU, at most 24.
	n := workers.Count(3.0, 24)

# Environment Variable Override

CATALOG_REBUILD_WORKERS pins the count regardless of CPU limits. The limit
passed by the caller still applies.

	env:
	- name: CATALOG_REBUILD_WORKERS
	  value: "4"

All functions are safe for concurrent use.
*/
package workers
