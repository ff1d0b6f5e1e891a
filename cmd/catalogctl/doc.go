// Package main provides catalogctl, the command line maintenance tool for
// the catalog database.
//
// Usage:
//
//	catalogctl rebuild-known-tags --user <uuid> | --anon | --all
//	catalogctl recompute-tags --item <uuid> [--no-children] | --all
//	catalogctl stats
//	catalogctl vacuum
//
// Global flags:
//
//	--database-dir  Directory holding catalog.db (env CATALOG_DATABASE_DIR, default /database)
//	--timeout       Upper bound for the whole command (default 30m)
//	--batch-size    Rows read per page during rebuilds (default 1000)
//
// The tool can run while the server is up: writes use immediate
// transactions and wait on the SQLite busy timeout. A full rebuild started
// here does not coordinate with one running inside the server; both produce
// the same counters.
//
// Exit codes: 0 on success, 1 on error, 130 when interrupted.
package main
