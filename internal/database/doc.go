// Package database provides SQLite storage for the media catalog.
//
// It holds:
//   - Users and their public visibility flag
//   - Items (plain items and collections) with own tags and permissions
//   - Computed tags: the closure of each item's own and ancestor tags
//   - Known tags: per-user and anonymous tag usage counters
//
// The schema is managed by golang-migrate with migrations embedded in the
// binary. The database uses WAL mode for concurrent reads; write
// transactions take the lock immediately so writers queue on busy_timeout.
//
// Every query method lives on *Conn. Database.Conn runs statements in
// autocommit mode; Database.Transaction hands a *Conn bound to one
// transaction to a callback and commits only if it returns nil.
//
// Errors are typed: NotFoundError matches ErrNotFound, InfraError matches
// ErrInfrastructure, and decoding failures match ErrMalformedRow.
package database
