package knowntags

import (
	"context"
	"fmt"
	"time"

	"media-catalog/internal/database"
	"media-catalog/internal/logging"
	"media-catalog/internal/metrics"
	"media-catalog/internal/tags"
)

var log = logging.Named("knowntags")

// DefaultBatchSize is used when a non-positive batch size is given.
const DefaultBatchSize = 1000

// Scope selects the per-user or anonymous counters.
type Scope = database.Scope

// Anon is the scope shared by anonymous callers.
func Anon() Scope {
	return database.AnonScope()
}

// ForUser is the private scope of a registered user.
func ForUser(userID int64) Scope {
	return database.UserScope(userID)
}

// Counters maps a casefolded tag to the number of items carrying it.
type Counters map[string]int

// Total returns the sum of all counters.
func (c Counters) Total() int {
	total := 0
	for _, n := range c {
		total += n
	}
	return total
}

// Store is the persistence surface the counters need. *database.Conn
// implements it, whether bound to a transaction or not.
type Store interface {
	ScanComputedTags(ctx context.Context, scope database.Scope, marker int64, limit int) ([]database.ItemTags, error)
	GetKnownTags(ctx context.Context, scope database.Scope) (map[string]int, error)
	IncrementKnownTags(ctx context.Context, scope database.Scope, tagNames []string) error
	DecrementKnownTags(ctx context.Context, scope database.Scope, tagNames []string) error
	DropKnownTags(ctx context.Context, scope database.Scope) (int64, error)
	InsertKnownTags(ctx context.Context, scope database.Scope, counters map[string]int, batchSize int) error
	DropUnusedKnownTags(ctx context.Context) (int64, error)
}

// RebuildStats summarises one rebuild.
type RebuildStats struct {
	Scope       Scope
	Items       int
	Batches     int
	Tags        int
	Occurrences int
	Duration    time.Duration
}

func (s RebuildStats) String() string {
	return fmt.Sprintf("scope=%s items=%d batches=%d tags=%d occurrences=%d duration=%v",
		s.Scope, s.Items, s.Batches, s.Tags, s.Occurrences, s.Duration)
}

// Rebuild counts tags over every item visible in scope. Items are read in
// ordinal order, batchSize at a time, continuing after the last ordinal
// seen; the scan ends at the first short batch. Nothing is persisted.
// Items inserted or deleted concurrently may or may not be counted.
func Rebuild(ctx context.Context, s Store, scope Scope, batchSize int) (Counters, RebuildStats, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	start := time.Now()
	stats := RebuildStats{Scope: scope}
	counters := make(Counters)

	var marker int64
	for {
		if err := ctx.Err(); err != nil {
			return nil, stats, err
		}

		batch, err := s.ScanComputedTags(ctx, scope, marker, batchSize)
		if err != nil {
			return nil, stats, fmt.Errorf("scan computed tags for %s after %d: %w", scope, marker, err)
		}
		stats.Batches++

		for _, entry := range batch {
			for tag := range tags.NewSet(entry.Tags...) {
				counters[tag]++
			}
			marker = entry.ItemID
		}
		stats.Items += len(batch)

		if len(batch) < batchSize {
			break
		}
	}

	stats.Tags = len(counters)
	stats.Occurrences = counters.Total()
	stats.Duration = time.Since(start)
	metrics.KnownTagsRebuildItems.WithLabelValues(metrics.ScopeLabel(scope.IsAnon())).Add(float64(stats.Items))

	return counters, stats, nil
}

// Get returns freshly counted tags for scope. It is Rebuild without stats.
func Get(ctx context.Context, s Store, scope Scope, batchSize int) (Counters, error) {
	counters, _, err := Rebuild(ctx, s, scope, batchSize)
	return counters, err
}

// Increment adds one to each tag's counter in scope, creating missing rows.
func Increment(ctx context.Context, s Store, scope Scope, set tags.Set) error {
	if len(set) == 0 {
		return nil
	}
	if err := s.IncrementKnownTags(ctx, scope, set.Sorted()); err != nil {
		return err
	}
	metrics.KnownTagsAdjustmentsTotal.WithLabelValues("increment").Add(float64(len(set)))
	return nil
}

// Decrement subtracts one from each tag's counter in scope, stopping at zero.
// Tags unknown to the scope are ignored.
func Decrement(ctx context.Context, s Store, scope Scope, set tags.Set) error {
	if len(set) == 0 {
		return nil
	}
	if err := s.DecrementKnownTags(ctx, scope, set.Sorted()); err != nil {
		return err
	}
	metrics.KnownTagsAdjustmentsTotal.WithLabelValues("decrement").Add(float64(len(set)))
	return nil
}

// Drop removes every counter of scope.
func Drop(ctx context.Context, s Store, scope Scope) (int64, error) {
	return s.DropKnownTags(ctx, scope)
}

// Persist replaces the counters of scope with counters. Run it on a
// transactional Store so readers never observe the empty intermediate state.
func Persist(ctx context.Context, s Store, scope Scope, counters Counters, batchSize int) error {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if _, err := s.DropKnownTags(ctx, scope); err != nil {
		return fmt.Errorf("drop known tags for %s: %w", scope, err)
	}
	if err := s.InsertKnownTags(ctx, scope, counters, batchSize); err != nil {
		return fmt.Errorf("insert known tags for %s: %w", scope, err)
	}
	return nil
}

// DropUnused removes counters that reached zero in every scope.
func DropUnused(ctx context.Context, s Store) (int64, error) {
	n, err := s.DropUnusedKnownTags(ctx)
	if err != nil {
		return 0, err
	}
	metrics.KnownTagsDropped.Add(float64(n))
	return n, nil
}
