package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/mattn/go-sqlite3" // SQLite3 driver

	"media-catalog/internal/logging"
	"media-catalog/internal/metrics"
)

// Default timeout for a single database statement
const defaultTimeout = 5 * time.Second

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Options tunes the database connection. A nil *Options uses defaults.
type Options struct {
	// QueryTimeout bounds every individual statement. Zero means defaultTimeout.
	QueryTimeout time.Duration

	// MaxOpenConns caps the connection pool. Zero means 25.
	MaxOpenConns int
}

func (o *Options) queryTimeout() time.Duration {
	if o == nil || o.QueryTimeout <= 0 {
		return defaultTimeout
	}
	return o.QueryTimeout
}

func (o *Options) maxOpenConns() int {
	if o == nil || o.MaxOpenConns <= 0 {
		return 25
	}
	return o.MaxOpenConns
}

// Database owns the SQLite connection pool for the catalog.
type Database struct {
	db      *sql.DB
	dbPath  string
	timeout time.Duration
}

// New opens the catalog database and applies pending migrations.
// IMPORTANT: dbPath should be the full path to the database FILE (e.g., "/database/catalog.db"),
// and the parent directory must already exist and be writable.
func New(ctx context.Context, dbPath string, opts *Options) (*Database, error) {
	logging.Info("Database path: %s", dbPath)

	if err := diagnoseDatabasePermissions(dbPath); err != nil {
		logging.Warn("Database permission diagnostics: %v", err)
	}

	if err := migrateUp(dbPath); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	db, err := sql.Open("sqlite3", dataSourceName(dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after ping failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(opts.maxOpenConns())
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(time.Hour)

	logging.Info("Database initialized successfully at %s", dbPath)
	return &Database{
		db:      db,
		dbPath:  dbPath,
		timeout: opts.queryTimeout(),
	}, nil
}

// dataSourceName enables WAL, foreign keys and immediate write locks so that
// concurrent writers queue on busy_timeout instead of failing mid-transaction.
func dataSourceName(dbPath string) string {
	return fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_foreign_keys=on&_txlock=immediate", dbPath)
}

// migrateUp applies embedded migrations on a dedicated handle. The migrate
// driver closes the handle it is given.
func migrateUp(dbPath string) error {
	mdb, err := sql.Open("sqlite3", dataSourceName(dbPath))
	if err != nil {
		return fmt.Errorf("failed to open migration connection: %w", err)
	}

	driver, err := migratesqlite.WithInstance(mdb, &migratesqlite.Config{})
	if err != nil {
		_ = mdb.Close()
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		_ = driver.Close()
		return fmt.Errorf("failed to load migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		_ = driver.Close()
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			logging.Warn("Failed to close migrator: source=%v, database=%v", srcErr, dbErr)
		}
	}()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err == nil {
		logging.Debug("Database schema at version %d (dirty=%v)", version, dirty)
	}

	return nil
}

// Close closes the connection pool.
func (d *Database) Close() error {
	return d.db.Close()
}

// Path returns the database file path.
func (d *Database) Path() string {
	return d.dbPath
}

// Conn returns a Conn that runs each statement in autocommit mode.
func (d *Database) Conn() *Conn {
	return &Conn{q: d.db, timeout: d.timeout}
}

// Transaction runs fn inside a single transaction. fn's error, or a failed
// commit, rolls everything back. name labels the transaction metrics.
func (d *Database) Transaction(ctx context.Context, name string, fn func(c *Conn) error) (err error) {
	start := time.Now()

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return &InfraError{Op: "begin " + name, Err: err}
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}

		duration := time.Since(start).Seconds()
		if err != nil {
			metrics.DBTransactionDuration.WithLabelValues(name, "rollback").Observe(duration)
			if rbErr := tx.Rollback(); rbErr != nil {
				err = errors.Join(err, fmt.Errorf("rollback also failed: %w", rbErr))
			}
			return
		}

		if cErr := tx.Commit(); cErr != nil {
			metrics.DBTransactionDuration.WithLabelValues(name, "rollback").Observe(duration)
			err = &InfraError{Op: "commit " + name, Err: cErr}
			return
		}
		metrics.DBTransactionDuration.WithLabelValues(name, "commit").Observe(duration)
	}()

	return fn(&Conn{q: tx, timeout: d.timeout})
}

// Stats counts catalog contents for the metrics collector.
func (d *Database) Stats(ctx context.Context) (Stats, error) {
	done := observeQuery("stats")

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	var s Stats
	err := d.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM users WHERE is_public = 1),
			(SELECT COUNT(*) FROM users WHERE is_public = 0),
			(SELECT COUNT(*) FROM items WHERE status != ?),
			(SELECT COUNT(*) FROM items WHERE status != ? AND is_collection = 1),
			(SELECT COUNT(*) FROM items WHERE status = ?),
			(SELECT COUNT(*) FROM known_tags),
			(SELECT COUNT(*) FROM known_tags_anon)
	`, StatusDeleted, StatusDeleted, StatusDeleted).Scan(
		&s.PublicUsers, &s.PrivateUsers, &s.Items, &s.Collections,
		&s.DeletedItems, &s.KnownTagsUser, &s.KnownTagsAnon,
	)
	done(err)
	if err != nil {
		return Stats{}, &InfraError{Op: "stats", Err: err}
	}
	return s, nil
}

// Ping checks that the database answers.
func (d *Database) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	if err := d.db.PingContext(ctx); err != nil {
		return &InfraError{Op: "ping", Err: err}
	}
	return nil
}

// Vacuum reclaims space after large known tags rebuilds.
func (d *Database) Vacuum(ctx context.Context) error {
	done := observeQuery("vacuum")

	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	_, err := d.db.ExecContext(ctx, "VACUUM")
	done(err)
	if err != nil {
		return &InfraError{Op: "vacuum", Err: err}
	}
	return nil
}

// recordQuery records database query metrics
func recordQuery(operation string, start time.Time, err error) {
	duration := time.Since(start).Seconds()
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.DBQueryTotal.WithLabelValues(operation, status).Inc()
	metrics.DBQueryDuration.WithLabelValues(operation).Observe(duration)
}

// observeQuery starts timing operation and returns the function that records it.
func observeQuery(operation string) func(error) {
	start := time.Now()
	return func(err error) {
		recordQuery(operation, start, err)
	}
}

// UpdateDBMetrics updates database connection and file size metrics
func (d *Database) UpdateDBMetrics() {
	stats := d.db.Stats()
	metrics.DBConnectionsOpen.Set(float64(stats.OpenConnections))

	for file, path := range map[string]string{
		"main": d.dbPath,
		"wal":  d.dbPath + "-wal",
		"shm":  d.dbPath + "-shm",
	} {
		if info, err := os.Stat(path); err == nil {
			metrics.DBSizeBytes.WithLabelValues(file).Set(float64(info.Size()))
		} else {
			metrics.DBSizeBytes.WithLabelValues(file).Set(0)
		}
	}
}

// diagnoseDatabasePermissions checks database directory and file permissions
func diagnoseDatabasePermissions(dbPath string) error {
	dir := filepath.Dir(dbPath)

	dirInfo, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("cannot stat database directory: %w", err)
	}

	logging.Debug("Database directory: %s (mode: %v)", dir, dirInfo.Mode())

	testFile := filepath.Join(dir, ".perm-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o600); err != nil {
		return fmt.Errorf("database directory not writable: %w", err)
	}
	_ = os.Remove(testFile)

	for _, path := range []string{dbPath, dbPath + "-wal", dbPath + "-shm"} {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		logging.Debug("Database file exists: %s (mode: %v, size: %d bytes)", path, info.Mode(), info.Size())
		if info.Mode().Perm()&0o200 == 0 {
			logging.Warn("%s is read-only! Mode: %v - this will cause write failures", path, info.Mode())
			if chmodErr := os.Chmod(path, 0o600); chmodErr != nil {
				logging.Error("Failed to fix permissions on %s: %v", path, chmodErr)
			} else {
				logging.Info("Fixed permissions on %s", path)
			}
		}
	}

	return nil
}
