package maintenance

import (
	"context"
	"fmt"
	"sort"

	"media-catalog/internal/database"
	"media-catalog/internal/knowntags"
	"media-catalog/internal/metrics"
	"media-catalog/internal/tags"
)

// RecomputeOptions controls RecomputeItemTags.
type RecomputeOptions struct {
	// ApplyToChildren also recomputes every descendant.
	ApplyToChildren bool
}

// RecomputeItemTags refreshes the computed tags of an item, and of its
// descendants when requested, adjusting known tags counters by the
// difference. Everything happens in one transaction.
func (r *Runner) RecomputeItemTags(ctx context.Context, itemID int64, opts RecomputeOptions) (Affected, error) {
	var affected Affected
	err := r.db.Transaction(ctx, "recompute_item_tags", func(c *database.Conn) error {
		item, err := c.GetItem(ctx, itemID)
		if err != nil {
			return err
		}

		w := newWalker(c)
		if err := w.recompute(ctx, item, opts.ApplyToChildren); err != nil {
			return err
		}
		affected = w.affected.result()
		return nil
	})
	return affected, err
}

// walker recomputes closures on one transactional connection.
type walker struct {
	c        *database.Conn
	affected *affectedSet
	public   map[int64]bool
	visited  map[int64]struct{}
	count    int
}

func newWalker(c *database.Conn) *walker {
	return &walker{
		c:        c,
		affected: newAffectedSet(),
		public:   make(map[int64]bool),
		visited:  make(map[int64]struct{}),
	}
}

// recompute loads the ancestry of item and walks from it.
func (w *walker) recompute(ctx context.Context, item *database.Item, withChildren bool) error {
	parents, err := w.c.GetParents(ctx, item)
	if err != nil {
		return err
	}

	parentClosure := tags.NewSet()
	if n := len(parents); n > 0 {
		parentClosure = tags.Compute(parents[n-1], parents[:n-1])
	}

	err = w.walk(ctx, item, parentClosure, withChildren)
	metrics.ComputedTagsRecomputedTotal.Add(float64(w.count))
	return err
}

// walk stores the closure of item derived from parentClosure and descends
// depth-first into its children when withChildren is set.
func (w *walker) walk(ctx context.Context, item *database.Item, parentClosure tags.Set, withChildren bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, ok := w.visited[item.ID]; ok {
		return fmt.Errorf("%w: item %d", database.ErrCyclicAncestry, item.ID)
	}
	w.visited[item.ID] = struct{}{}

	closure := tags.Inherit(parentClosure, *item)

	old, err := w.c.GetComputedTags(ctx, item.ID)
	if err != nil {
		return err
	}

	if item.Status != database.StatusDeleted {
		added, removed := closure.Diff(old), old.Diff(closure)
		if len(added) > 0 || len(removed) > 0 {
			if err := w.adjust(ctx, item, added, removed); err != nil {
				return err
			}
		}
	}

	if err := w.c.SaveComputedTags(ctx, item.ID, closure); err != nil {
		return err
	}
	w.count++

	if !withChildren {
		return nil
	}

	children, err := w.c.GetChildren(ctx, item.ID)
	if err != nil {
		return err
	}
	for i := range children {
		if err := w.walk(ctx, &children[i], closure, true); err != nil {
			return err
		}
	}
	return nil
}

// adjust applies a closure difference to every scope that sees item.
func (w *walker) adjust(ctx context.Context, item *database.Item, added, removed tags.Set) error {
	scopes, err := w.scopesOf(ctx, item.OwnerID, item.Permissions)
	if err != nil {
		return err
	}
	for _, scope := range scopes {
		if err := knowntags.Increment(ctx, w.c, scope, added); err != nil {
			return err
		}
		if err := knowntags.Decrement(ctx, w.c, scope, removed); err != nil {
			return err
		}
		w.affected.add(scope)
	}
	return nil
}

// scopesOf returns the counter scopes of an item with the given owner and
// permissions: every distinct user, then anon when the owner is public.
func (w *walker) scopesOf(ctx context.Context, ownerID int64, permissions []int64) ([]database.Scope, error) {
	scopes := userScopes(ownerID, permissions)

	public, err := w.isPublic(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if public {
		scopes = append(scopes, database.AnonScope())
	}
	return scopes, nil
}

func (w *walker) isPublic(ctx context.Context, userID int64) (bool, error) {
	if public, ok := w.public[userID]; ok {
		return public, nil
	}
	public, err := w.c.IsPublicUser(ctx, userID)
	if err != nil {
		return false, err
	}
	w.public[userID] = public
	return public, nil
}

// userScopes returns one scope per distinct user among owner and
// permissions, in ascending id order.
func userScopes(ownerID int64, permissions []int64) []database.Scope {
	ids := userIDs(ownerID, permissions)
	scopes := make([]database.Scope, len(ids))
	for i, id := range ids {
		scopes[i] = database.UserScope(id)
	}
	return scopes
}

func userIDs(ownerID int64, permissions []int64) []int64 {
	seen := map[int64]struct{}{ownerID: {}}
	ids := []int64{ownerID}
	for _, id := range permissions {
		if _, ok := seen[id]; ok || id <= 0 {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
