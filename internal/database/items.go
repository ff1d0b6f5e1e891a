package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// maxAncestryDepth guards GetParents against runaway chains.
const maxAncestryDepth = 1024

// CreateItem inserts item and fills in its ID, and its UUID when unset.
// Computed tags are not written here; see maintenance.
func (c *Conn) CreateItem(ctx context.Context, item *Item) error {
	done := observeQuery("create_item")

	if item.UUID == uuid.Nil {
		item.UUID = uuid.New()
	}
	if !item.Status.Valid() {
		err := fmt.Errorf("invalid item status %d", int(item.Status))
		done(err)
		return err
	}
	if item.Tags == nil {
		item.Tags = []string{}
	}
	if item.Permissions == nil {
		item.Permissions = []int64{}
	}
	now := time.Now()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = now

	rawTags, err := encodeJSON(item.Tags)
	if err != nil {
		done(err)
		return err
	}
	rawPerms, err := encodeJSON(item.Permissions)
	if err != nil {
		done(err)
		return err
	}

	var parent any
	if item.ParentID != nil {
		parent = *item.ParentID
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	result, err := c.q.ExecContext(ctx, `
		INSERT INTO items (uuid, parent_id, owner_id, name, is_collection, status, tags, permissions, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, item.UUID.String(), parent, item.OwnerID, item.Name, item.IsCollection, item.Status,
		rawTags, rawPerms, item.CreatedAt.Unix(), item.UpdatedAt.Unix())
	if err != nil {
		done(err)
		return wrap("create item", err)
	}

	item.ID, err = result.LastInsertId()
	done(err)
	return wrap("create item", err)
}

// GetItem loads an item by ordinal, deleted or not.
func (c *Conn) GetItem(ctx context.Context, id int64) (*Item, error) {
	done := observeQuery("get_item")

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	item, err := scanItem(c.q.QueryRowContext(ctx,
		"SELECT "+itemColumns+" FROM items AS i WHERE i.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		done(nil)
		return nil, notFound("item", id)
	}
	done(err)
	if err != nil {
		return nil, wrap("get item", err)
	}
	return item, nil
}

// GetItemByUUID loads an item by its public identifier.
func (c *Conn) GetItemByUUID(ctx context.Context, id uuid.UUID) (*Item, error) {
	done := observeQuery("get_item_by_uuid")

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	item, err := scanItem(c.q.QueryRowContext(ctx,
		"SELECT "+itemColumns+" FROM items AS i WHERE i.uuid = ?", id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		done(nil)
		return nil, notFound("item", id)
	}
	done(err)
	if err != nil {
		return nil, wrap("get item by uuid", err)
	}
	return item, nil
}

// GetChildren returns the direct children of parentID ordered by ordinal,
// including deleted ones.
func (c *Conn) GetChildren(ctx context.Context, parentID int64) ([]Item, error) {
	return c.listItems(ctx, "get_children",
		"SELECT "+itemColumns+" FROM items AS i WHERE i.parent_id = ? ORDER BY i.id", parentID)
}

// RootItems returns up to limit items without a parent whose ordinal is
// greater than afterID.
func (c *Conn) RootItems(ctx context.Context, afterID int64, limit int) ([]Item, error) {
	return c.listItems(ctx, "root_items",
		"SELECT "+itemColumns+" FROM items AS i WHERE i.parent_id IS NULL AND i.id > ? ORDER BY i.id LIMIT ?",
		afterID, limit)
}

// ItemsByOwner returns up to limit items owned by ownerID whose ordinal is
// greater than afterID.
func (c *Conn) ItemsByOwner(ctx context.Context, ownerID, afterID int64, limit int) ([]Item, error) {
	return c.listItems(ctx, "items_by_owner",
		"SELECT "+itemColumns+" FROM items AS i WHERE i.owner_id = ? AND i.id > ? ORDER BY i.id LIMIT ?",
		ownerID, afterID, limit)
}

func (c *Conn) listItems(ctx context.Context, op, query string, args ...any) ([]Item, error) {
	done := observeQuery(op)

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	rows, err := c.q.QueryContext(ctx, query, args...)
	if err != nil {
		done(err)
		return nil, wrap(op, err)
	}
	defer rows.Close()

	items := []Item{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			done(err)
			return nil, wrap(op, err)
		}
		items = append(items, *item)
	}

	err = rows.Err()
	done(err)
	if err != nil {
		return nil, wrap(op, err)
	}
	return items, nil
}

// GetParents returns the ancestors of item ordered from the root down to the
// direct parent. A chain that revisits an item fails with ErrCyclicAncestry.
func (c *Conn) GetParents(ctx context.Context, item *Item) ([]Item, error) {
	var chain []Item
	seen := map[int64]struct{}{item.ID: {}}

	next := item.ParentID
	for next != nil {
		if _, ok := seen[*next]; ok || len(chain) >= maxAncestryDepth {
			return nil, fmt.Errorf("%w: item %d", ErrCyclicAncestry, item.ID)
		}
		seen[*next] = struct{}{}

		parent, err := c.GetItem(ctx, *next)
		if err != nil {
			return nil, err
		}
		chain = append(chain, *parent)
		next = parent.ParentID
	}

	// Collected parent-first; callers expect root-first.
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}

// GetParentNames maps each parent id to its name. Unknown ids are absent.
func (c *Conn) GetParentNames(ctx context.Context, parentIDs []int64) (map[int64]string, error) {
	names := make(map[int64]string, len(parentIDs))
	if len(parentIDs) == 0 {
		return names, nil
	}

	done := observeQuery("get_parent_names")

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	args := make([]any, len(parentIDs))
	for i, id := range parentIDs {
		args[i] = id
	}

	rows, err := c.q.QueryContext(ctx,
		"SELECT id, name FROM items WHERE id IN ("+placeholders(len(parentIDs))+")", args...)
	if err != nil {
		done(err)
		return nil, wrap("get parent names", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id   int64
			name string
		)
		if err := rows.Scan(&id, &name); err != nil {
			done(err)
			return nil, wrap("get parent names", err)
		}
		names[id] = name
	}

	err = rows.Err()
	done(err)
	if err != nil {
		return nil, wrap("get parent names", err)
	}
	return names, nil
}

// SetItemTags replaces the item's own tags. Computed tags and known tags
// counters must be refreshed by the caller in the same transaction.
func (c *Conn) SetItemTags(ctx context.Context, itemID int64, itemTags []string) error {
	if itemTags == nil {
		itemTags = []string{}
	}
	raw, err := encodeJSON(itemTags)
	if err != nil {
		return err
	}
	return c.updateItem(ctx, "set_item_tags", itemID, "tags = ?", raw)
}

// SetItemPermissions replaces the list of users allowed to see the item.
func (c *Conn) SetItemPermissions(ctx context.Context, itemID int64, userIDs []int64) error {
	if userIDs == nil {
		userIDs = []int64{}
	}
	raw, err := encodeJSON(userIDs)
	if err != nil {
		return err
	}
	return c.updateItem(ctx, "set_item_permissions", itemID, "permissions = ?", raw)
}

// SetItemStatus changes the lifecycle state of the item.
func (c *Conn) SetItemStatus(ctx context.Context, itemID int64, status Status) error {
	if !status.Valid() {
		return fmt.Errorf("invalid item status %d", int(status))
	}
	return c.updateItem(ctx, "set_item_status", itemID, "status = ?", status)
}

// SetItemParent moves the item under parentID, or to the root when nil.
func (c *Conn) SetItemParent(ctx context.Context, itemID int64, parentID *int64) error {
	var parent any
	if parentID != nil {
		if *parentID == itemID {
			return fmt.Errorf("%w: item %d", ErrCyclicAncestry, itemID)
		}
		parent = *parentID
	}
	return c.updateItem(ctx, "set_item_parent", itemID, "parent_id = ?", parent)
}

func (c *Conn) updateItem(ctx context.Context, op string, itemID int64, set string, value any) error {
	done := observeQuery(op)

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	query := "UPDATE items SET " + set + ", updated_at = ? WHERE id = ?"
	result, err := c.q.ExecContext(ctx, query, value, time.Now().Unix(), itemID)
	if err != nil {
		done(err)
		return wrap(strings.ReplaceAll(op, "_", " "), err)
	}

	n, err := result.RowsAffected()
	done(err)
	if err != nil {
		return wrap(strings.ReplaceAll(op, "_", " "), err)
	}
	if n == 0 {
		return notFound("item", itemID)
	}
	return nil
}
