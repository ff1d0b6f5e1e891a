package database

import (
	"context"
	"fmt"
	"strings"

	"media-catalog/internal/tags"
)

const searchFrom = `
	FROM items AS i
	LEFT JOIN computed_tags AS ct ON ct.item_id = i.id`

// where builds the condition shared by CountItems and SearchItems.
func (f Filter) where() (string, []any) {
	visibility, args := visibilityClause(f.User.Scope())
	conds := []string{visibility, "i.status != ?"}
	args = append(args, StatusDeleted)

	if include := tags.NewSet(f.Include...).Sorted(); len(include) > 0 {
		conds = append(conds, fmt.Sprintf(`(
			SELECT COUNT(DISTINCT inc.value)
			FROM json_each(COALESCE(ct.tags, '[]')) AS inc
			WHERE inc.value IN (%s)
		) = ?`, placeholders(len(include))))
		args = append(args, stringArgs(include)...)
		args = append(args, len(include))
	}

	if exclude := tags.NewSet(f.Exclude...).Sorted(); len(exclude) > 0 {
		conds = append(conds, fmt.Sprintf(`NOT EXISTS (
			SELECT 1
			FROM json_each(COALESCE(ct.tags, '[]')) AS exc
			WHERE exc.value IN (%s)
		)`, placeholders(len(exclude))))
		args = append(args, stringArgs(exclude)...)
	}

	if f.CollectionsOnly {
		conds = append(conds, "i.is_collection = 1")
	}
	if f.DirectOnly {
		conds = append(conds, "i.parent_id IS NULL")
	}

	return strings.Join(conds, "\n\t  AND "), args
}

// CountItems returns how many items match the filter.
func (c *Conn) CountItems(ctx context.Context, filter Filter) (int, error) {
	done := observeQuery("count_items")

	where, args := filter.where()
	query := "SELECT COUNT(*)" + searchFrom + "\n\tWHERE " + where

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	var total int
	err := c.q.QueryRowContext(ctx, query, args...).Scan(&total)
	done(err)
	if err != nil {
		return 0, wrap("count items", err)
	}
	return total, nil
}

// SearchItems returns one page of items matching the filter. Ascending and
// descending plans continue strictly after plan.LastSeen when it is
// positive; random plans ignore it.
func (c *Conn) SearchItems(ctx context.Context, filter Filter, plan Plan) ([]Item, error) {
	where, args := filter.where()

	var order string
	switch plan.Order {
	case OrderDesc:
		if plan.LastSeen > 0 {
			where += "\n\t  AND i.id < ?"
			args = append(args, plan.LastSeen)
		}
		order = "i.id DESC"
	case OrderRandom:
		order = "RANDOM()"
	default:
		if plan.LastSeen > 0 {
			where += "\n\t  AND i.id > ?"
			args = append(args, plan.LastSeen)
		}
		order = "i.id ASC"
	}

	query := "SELECT " + itemColumns + searchFrom + "\n\tWHERE " + where +
		"\n\tORDER BY " + order + "\n\tLIMIT ?"
	args = append(args, plan.Limit)

	return c.listItems(ctx, "search_items", query, args...)
}
