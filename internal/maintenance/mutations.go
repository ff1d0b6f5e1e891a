package maintenance

import (
	"context"
	"fmt"

	"media-catalog/internal/database"
	"media-catalog/internal/knowntags"
)

// CreateItem inserts item, stores its computed tags and counts them in
// every scope that sees it.
func (r *Runner) CreateItem(ctx context.Context, item *database.Item) (Affected, error) {
	var affected Affected
	err := r.db.Transaction(ctx, "create_item", func(c *database.Conn) error {
		if err := c.CreateItem(ctx, item); err != nil {
			return err
		}
		w := newWalker(c)
		if err := w.recompute(ctx, item, false); err != nil {
			return err
		}
		affected = w.affected.result()
		return nil
	})
	if err == nil {
		log.Debug("Created item %d (%s) owned by user %d", item.ID, item.UUID, item.OwnerID)
	}
	return affected, err
}

// UpdateItemTags replaces the own tags of an item and recomputes its
// closure, and the closures of its descendants when applyToChildren is set.
func (r *Runner) UpdateItemTags(ctx context.Context, itemID int64, itemTags []string, applyToChildren bool) (Affected, error) {
	var affected Affected
	err := r.db.Transaction(ctx, "update_item_tags", func(c *database.Conn) error {
		if err := c.SetItemTags(ctx, itemID, itemTags); err != nil {
			return err
		}
		item, err := c.GetItem(ctx, itemID)
		if err != nil {
			return err
		}
		w := newWalker(c)
		if err := w.recompute(ctx, item, applyToChildren); err != nil {
			return err
		}
		affected = w.affected.result()
		return nil
	})
	return affected, err
}

// MoveItem attaches an item to a new parent, or to the root when parentID
// is nil, and recomputes the whole moved subtree. A move that would make
// the item its own ancestor fails with database.ErrCyclicAncestry.
func (r *Runner) MoveItem(ctx context.Context, itemID int64, parentID *int64) (Affected, error) {
	var affected Affected
	err := r.db.Transaction(ctx, "move_item", func(c *database.Conn) error {
		if err := c.SetItemParent(ctx, itemID, parentID); err != nil {
			return err
		}
		item, err := c.GetItem(ctx, itemID)
		if err != nil {
			return err
		}
		w := newWalker(c)
		if err := w.recompute(ctx, item, true); err != nil {
			return err
		}
		affected = w.affected.result()
		return nil
	})
	return affected, err
}

// SetItemPermissions replaces the users allowed to see an item. Users that
// lose access have the item's computed tags decremented; users that gain
// access have them incremented. Descendants are not changed.
func (r *Runner) SetItemPermissions(ctx context.Context, itemID int64, granted []int64) (Affected, error) {
	var affected Affected
	err := r.db.Transaction(ctx, "set_item_permissions", func(c *database.Conn) error {
		item, err := c.GetItem(ctx, itemID)
		if err != nil {
			return err
		}
		if err := c.SetItemPermissions(ctx, itemID, granted); err != nil {
			return err
		}
		if item.Status == database.StatusDeleted {
			return nil
		}

		closure, err := c.GetComputedTags(ctx, itemID)
		if err != nil {
			return err
		}

		before := idSet(userIDs(item.OwnerID, item.Permissions))
		after := idSet(userIDs(item.OwnerID, granted))
		set := newAffectedSet()

		for id := range before {
			if _, ok := after[id]; ok {
				continue
			}
			if err := knowntags.Decrement(ctx, c, database.UserScope(id), closure); err != nil {
				return err
			}
			set.add(database.UserScope(id))
		}
		for id := range after {
			if _, ok := before[id]; ok {
				continue
			}
			if err := knowntags.Increment(ctx, c, database.UserScope(id), closure); err != nil {
				return err
			}
			set.add(database.UserScope(id))
		}
		affected = set.result()
		return nil
	})
	return affected, err
}

// SetItemStatus changes the lifecycle state of an item. Entering the
// deleted state removes the item's tags from every counter that had them;
// leaving it adds them back.
func (r *Runner) SetItemStatus(ctx context.Context, itemID int64, status database.Status) (Affected, error) {
	if !status.Valid() {
		return Affected{}, fmt.Errorf("invalid item status %d", int(status))
	}

	var affected Affected
	err := r.db.Transaction(ctx, "set_item_status", func(c *database.Conn) error {
		item, err := c.GetItem(ctx, itemID)
		if err != nil {
			return err
		}
		if err := c.SetItemStatus(ctx, itemID, status); err != nil {
			return err
		}

		wasVisible := item.Status != database.StatusDeleted
		isVisible := status != database.StatusDeleted
		if wasVisible == isVisible {
			return nil
		}

		closure, err := c.GetComputedTags(ctx, itemID)
		if err != nil {
			return err
		}

		w := newWalker(c)
		scopes, err := w.scopesOf(ctx, item.OwnerID, item.Permissions)
		if err != nil {
			return err
		}
		for _, scope := range scopes {
			if isVisible {
				err = knowntags.Increment(ctx, c, scope, closure)
			} else {
				err = knowntags.Decrement(ctx, c, scope, closure)
			}
			if err != nil {
				return err
			}
			w.affected.add(scope)
		}
		affected = w.affected.result()
		return nil
	})
	return affected, err
}

// DeleteItem marks an item deleted. Its row and closure are kept.
func (r *Runner) DeleteItem(ctx context.Context, itemID int64) (Affected, error) {
	return r.SetItemStatus(ctx, itemID, database.StatusDeleted)
}

func idSet(ids []int64) map[int64]struct{} {
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
