package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"media-catalog/internal/tags"
)

// GetComputedTags returns the stored closure of an item. An item that has
// no computed row yet has an empty closure.
func (c *Conn) GetComputedTags(ctx context.Context, itemID int64) (tags.Set, error) {
	done := observeQuery("get_computed_tags")

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	var raw string
	err := c.q.QueryRowContext(ctx,
		"SELECT tags FROM computed_tags WHERE item_id = ?", itemID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		done(nil)
		return tags.NewSet(), nil
	}
	done(err)
	if err != nil {
		return nil, wrap("get computed tags", err)
	}

	values, err := decodeTags(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: computed tags of item %d: %v", ErrMalformedRow, itemID, err)
	}
	return tags.NewSet(values...), nil
}

// SaveComputedTags stores the closure of an item, replacing any previous one.
// Tags are stored sorted so equal closures compare equal as text.
func (c *Conn) SaveComputedTags(ctx context.Context, itemID int64, closure tags.Set) error {
	done := observeQuery("save_computed_tags")

	raw, err := encodeJSON(closure.Sorted())
	if err != nil {
		done(err)
		return err
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	_, err = c.q.ExecContext(ctx, `
		INSERT INTO computed_tags (item_id, tags) VALUES (?, ?)
		ON CONFLICT(item_id) DO UPDATE SET tags = excluded.tags
	`, itemID, raw)
	done(err)
	return wrap("save computed tags", err)
}

// DeleteComputedTags removes the closure row of an item.
func (c *Conn) DeleteComputedTags(ctx context.Context, itemID int64) error {
	done := observeQuery("delete_computed_tags")

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	_, err := c.q.ExecContext(ctx, "DELETE FROM computed_tags WHERE item_id = ?", itemID)
	done(err)
	return wrap("delete computed tags", err)
}

// ScanComputedTags returns up to limit (ordinal, closure) pairs visible in
// scope with ordinal greater than marker, ordered by ordinal. Deleted items
// are skipped. Items without a computed row yield an empty closure.
func (c *Conn) ScanComputedTags(ctx context.Context, scope Scope, marker int64, limit int) ([]ItemTags, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("scan computed tags: limit must be positive, got %d", limit)
	}

	done := observeQuery("scan_computed_tags")

	visibility, args := visibilityClause(scope)
	query := `
		SELECT i.id, COALESCE(ct.tags, '[]')
		FROM items AS i
		LEFT JOIN computed_tags AS ct ON ct.item_id = i.id
		WHERE ` + visibility + `
		  AND i.status != ?
		  AND i.id > ?
		ORDER BY i.id
		LIMIT ?`
	args = append(args, StatusDeleted, marker, limit)

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	rows, err := c.q.QueryContext(ctx, query, args...)
	if err != nil {
		done(err)
		return nil, wrap("scan computed tags", err)
	}
	defer rows.Close()

	batch := make([]ItemTags, 0, limit)
	for rows.Next() {
		var (
			entry ItemTags
			raw   string
		)
		if err := rows.Scan(&entry.ItemID, &raw); err != nil {
			done(err)
			return nil, wrap("scan computed tags", err)
		}
		if entry.Tags, err = decodeTags(raw); err != nil {
			err = fmt.Errorf("%w: computed tags of item %d: %v", ErrMalformedRow, entry.ItemID, err)
			done(err)
			return nil, err
		}
		batch = append(batch, entry)
	}

	err = rows.Err()
	done(err)
	if err != nil {
		return nil, wrap("scan computed tags", err)
	}
	return batch, nil
}

// visibilityClause returns the condition selecting items visible in scope.
// Anon sees items of public owners; a user sees items they own or were
// granted.
func visibilityClause(scope Scope) (string, []any) {
	if scope.IsAnon() {
		return "i.owner_id IN (SELECT id FROM users WHERE is_public = 1)", nil
	}
	return `(i.owner_id = ? OR EXISTS (
			SELECT 1 FROM json_each(i.permissions) AS p WHERE p.value = ?
		))`, []any{scope.UserID(), scope.UserID()}
}
