package knowntags

import (
	"context"
	"time"

	"media-catalog/internal/database"
	"media-catalog/internal/metrics"
	"media-catalog/internal/tags"
)

// DB opens connections and transactions. *database.Database implements it.
type DB interface {
	Conn() *database.Conn
	Transaction(ctx context.Context, name string, fn func(c *database.Conn) error) error
}

// Index runs counter operations against a database.
type Index struct {
	db        DB
	batchSize int
}

// NewIndex returns an Index scanning batchSize items per query.
func NewIndex(db DB, batchSize int) *Index {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Index{db: db, batchSize: batchSize}
}

// BatchSize returns the scan and insert batch size.
func (x *Index) BatchSize() int {
	return x.batchSize
}

// Rebuild counts tags for scope without persisting them.
func (x *Index) Rebuild(ctx context.Context, scope Scope) (Counters, error) {
	counters, _, err := Rebuild(ctx, x.db.Conn(), scope, x.batchSize)
	return counters, err
}

// Get is an alias of Rebuild.
func (x *Index) Get(ctx context.Context, scope Scope) (Counters, error) {
	return x.Rebuild(ctx, scope)
}

// Stored returns the persisted counters of scope.
func (x *Index) Stored(ctx context.Context, scope Scope) (Counters, error) {
	counters, err := x.db.Conn().GetKnownTags(ctx, scope)
	return Counters(counters), err
}

// Increment adds one to each tag's counter in scope.
func (x *Index) Increment(ctx context.Context, scope Scope, set tags.Set) error {
	return Increment(ctx, x.db.Conn(), scope, set)
}

// Decrement subtracts one from each tag's counter in scope.
func (x *Index) Decrement(ctx context.Context, scope Scope, set tags.Set) error {
	return Decrement(ctx, x.db.Conn(), scope, set)
}

// Drop removes every counter of scope.
func (x *Index) Drop(ctx context.Context, scope Scope) (int64, error) {
	return Drop(ctx, x.db.Conn(), scope)
}

// DropUnused removes zero counters in every scope.
func (x *Index) DropUnused(ctx context.Context) (int64, error) {
	return DropUnused(ctx, x.db.Conn())
}

// Persist replaces the counters of scope in a single transaction.
func (x *Index) Persist(ctx context.Context, scope Scope, counters Counters) error {
	return x.db.Transaction(ctx, "persist_known_tags", func(c *database.Conn) error {
		return Persist(ctx, c, scope, counters, x.batchSize)
	})
}

// RebuildAndPersist recounts scope and replaces its stored counters.
// The scan runs outside the write transaction; only the swap is atomic.
func (x *Index) RebuildAndPersist(ctx context.Context, scope Scope) (RebuildStats, error) {
	label := metrics.ScopeLabel(scope.IsAnon())
	start := time.Now()

	counters, stats, err := Rebuild(ctx, x.db.Conn(), scope, x.batchSize)
	if err == nil {
		err = x.Persist(ctx, scope, counters)
	}

	metrics.KnownTagsRebuildDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.KnownTagsRebuildsTotal.WithLabelValues(label, "error").Inc()
		log.Error("Known tags rebuild failed for %s: %v", scope, err)
		return stats, err
	}

	metrics.KnownTagsRebuildsTotal.WithLabelValues(label, "success").Inc()
	stats.Duration = time.Since(start)
	log.Debug("Known tags rebuilt: %s", stats)
	return stats, nil
}
