package maintenance

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"media-catalog/internal/knowntags"
	"media-catalog/internal/metrics"
)

// Report summarises a full rebuild.
type Report struct {
	Scopes   []knowntags.RebuildStats
	Dropped  int64
	Duration time.Duration
}

// RebuildKnownTagsForUser recounts and stores the counters of one user.
func (r *Runner) RebuildKnownTagsForUser(ctx context.Context, userID int64) (knowntags.RebuildStats, error) {
	if _, err := r.db.Conn().GetUser(ctx, userID); err != nil {
		return knowntags.RebuildStats{}, err
	}
	return r.index.RebuildAndPersist(ctx, knowntags.ForUser(userID))
}

// RebuildKnownTagsForAnon recounts and stores the anonymous counters.
func (r *Runner) RebuildKnownTagsForAnon(ctx context.Context) (knowntags.RebuildStats, error) {
	return r.index.RebuildAndPersist(ctx, knowntags.Anon())
}

// RebuildAll recounts every user scope and the anonymous scope, then
// removes zero counters. Scopes are rebuilt concurrently, at most
// Workers() at a time; the first failure cancels the rest. Only one
// RebuildAll runs at a time.
func (r *Runner) RebuildAll(ctx context.Context) (Report, error) {
	if !r.tryStart() {
		return Report{}, ErrAlreadyRunning
	}
	defer r.finish()

	metrics.MaintenanceIsRunning.Set(1)
	defer metrics.MaintenanceIsRunning.Set(0)

	start := time.Now()
	report, err := r.rebuildAll(ctx)
	report.Duration = time.Since(start)

	metrics.MaintenanceLastRunDuration.Set(report.Duration.Seconds())
	if err != nil {
		metrics.MaintenanceRunsTotal.WithLabelValues("error").Inc()
		log.Error("Known tags rebuild failed after %v: %v", report.Duration, err)
		return report, err
	}

	metrics.MaintenanceRunsTotal.WithLabelValues("success").Inc()
	metrics.MaintenanceLastRunTimestamp.Set(float64(time.Now().Unix()))
	log.Info("Known tags rebuilt for %d scopes in %v (%d unused rows dropped)",
		len(report.Scopes), report.Duration, report.Dropped)
	return report, nil
}

func (r *Runner) rebuildAll(ctx context.Context) (Report, error) {
	users, err := r.db.Conn().ListUsers(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("list users: %w", err)
	}

	scopes := make([]knowntags.Scope, 0, len(users)+1)
	for _, u := range users {
		scopes = append(scopes, knowntags.ForUser(u.ID))
	}
	scopes = append(scopes, knowntags.Anon())

	log.Debug("Rebuilding known tags for %d scopes with %d workers", len(scopes), r.workers)

	results := make([]knowntags.RebuildStats, len(scopes))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i, scope := range scopes {
		i, scope := i, scope
		g.Go(func() error {
			stats, err := r.index.RebuildAndPersist(gctx, scope)
			if err != nil {
				return fmt.Errorf("rebuild %s: %w", scope, err)
			}
			results[i] = stats
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Report{}, err
	}

	dropped, err := r.index.DropUnused(ctx)
	if err != nil {
		return Report{Scopes: results}, fmt.Errorf("drop unused known tags: %w", err)
	}
	return Report{Scopes: results, Dropped: dropped}, nil
}

// RebuildComputedTags recomputes the closure of every item, one root
// subtree per transaction, and returns the number of subtrees processed.
func (r *Runner) RebuildComputedTags(ctx context.Context) (int, error) {
	batch := r.index.BatchSize()
	var (
		marker int64
		roots  int
	)

	for {
		if err := ctx.Err(); err != nil {
			return roots, err
		}

		items, err := r.db.Conn().RootItems(ctx, marker, batch)
		if err != nil {
			return roots, fmt.Errorf("list root items: %w", err)
		}

		for _, item := range items {
			if _, err := r.RecomputeItemTags(ctx, item.ID, RecomputeOptions{ApplyToChildren: true}); err != nil {
				return roots, fmt.Errorf("recompute item %d: %w", item.ID, err)
			}
			roots++
			marker = item.ID
		}

		if len(items) < batch {
			break
		}
	}

	log.Info("Computed tags rebuilt for %d root items", roots)
	return roots, nil
}
