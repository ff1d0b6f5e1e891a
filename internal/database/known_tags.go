package database

import (
	"context"
	"sort"
	"strings"
)

// knownTagsTable returns the table and the leading key columns/args for scope.
func knownTagsTable(scope Scope) (table string, keyCols string, keyArgs []any) {
	if scope.IsAnon() {
		return "known_tags_anon", "", nil
	}
	return "known_tags", "user_id, ", []any{scope.UserID()}
}

// DropKnownTags deletes every known tags row of scope.
func (c *Conn) DropKnownTags(ctx context.Context, scope Scope) (int64, error) {
	done := observeQuery("drop_known_tags")

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	query := "DELETE FROM known_tags_anon"
	var args []any
	if !scope.IsAnon() {
		query = "DELETE FROM known_tags WHERE user_id = ?"
		args = []any{scope.UserID()}
	}

	result, err := c.q.ExecContext(ctx, query, args...)
	if err != nil {
		done(err)
		return 0, wrap("drop known tags", err)
	}
	n, err := result.RowsAffected()
	done(err)
	return n, wrap("drop known tags", err)
}

// InsertKnownTags writes counters for scope in multi-row statements of at
// most batchSize rows. Rows are written in tag order. Existing rows for the
// same tag are overwritten.
func (c *Conn) InsertKnownTags(ctx context.Context, scope Scope, counters map[string]int, batchSize int) error {
	if len(counters) == 0 {
		return nil
	}
	if batchSize <= 0 {
		batchSize = len(counters)
	}

	names := make([]string, 0, len(counters))
	for tag := range counters {
		names = append(names, tag)
	}
	sort.Strings(names)

	table, keyCols, keyArgs := knownTagsTable(scope)
	conflict := "tag"
	row := "(?, ?)"
	if !scope.IsAnon() {
		conflict = "user_id, tag"
		row = "(?, ?, ?)"
	}

	for start := 0; start < len(names); start += batchSize {
		end := min(start+batchSize, len(names))
		chunk := names[start:end]

		rows := make([]string, len(chunk))
		args := make([]any, 0, len(chunk)*(len(keyArgs)+2))
		for i, tag := range chunk {
			rows[i] = row
			args = append(args, keyArgs...)
			args = append(args, tag, max(0, counters[tag]))
		}

		query := "INSERT INTO " + table + " (" + keyCols + "tag, counter) VALUES " +
			strings.Join(rows, ", ") +
			" ON CONFLICT(" + conflict + ") DO UPDATE SET counter = excluded.counter"

		if err := c.execKnownTags(ctx, "insert_known_tags", query, args...); err != nil {
			return err
		}
	}
	return nil
}

// IncrementKnownTags adds one to the counter of each tag in scope. Missing
// tags are created with counter 1; a negative counter is clamped to zero
// before incrementing.
func (c *Conn) IncrementKnownTags(ctx context.Context, scope Scope, tagNames []string) error {
	table, keyCols, keyArgs := knownTagsTable(scope)
	conflict := "tag"
	values := "(?, 1)"
	if !scope.IsAnon() {
		conflict = "user_id, tag"
		values = "(?, ?, 1)"
	}

	query := "INSERT INTO " + table + " (" + keyCols + "tag, counter) VALUES " + values +
		" ON CONFLICT(" + conflict + ") DO UPDATE SET counter = MAX(0, counter) + 1"

	for _, tag := range tagNames {
		args := append(append([]any{}, keyArgs...), tag)
		if err := c.execKnownTags(ctx, "increment_known_tags", query, args...); err != nil {
			return err
		}
	}
	return nil
}

// DecrementKnownTags subtracts one from the counter of each tag in scope,
// never going below zero. Unknown tags are ignored.
func (c *Conn) DecrementKnownTags(ctx context.Context, scope Scope, tagNames []string) error {
	query := "UPDATE known_tags_anon SET counter = MAX(0, counter - 1) WHERE tag = ?"
	var keyArgs []any
	if !scope.IsAnon() {
		query = "UPDATE known_tags SET counter = MAX(0, counter - 1) WHERE user_id = ? AND tag = ?"
		keyArgs = []any{scope.UserID()}
	}

	for _, tag := range tagNames {
		args := append(append([]any{}, keyArgs...), tag)
		if err := c.execKnownTags(ctx, "decrement_known_tags", query, args...); err != nil {
			return err
		}
	}
	return nil
}

func (c *Conn) execKnownTags(ctx context.Context, op, query string, args ...any) error {
	done := observeQuery(op)

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	_, err := c.q.ExecContext(ctx, query, args...)
	done(err)
	return wrap(strings.ReplaceAll(op, "_", " "), err)
}

// GetKnownTags returns every counter of scope, including zero ones.
func (c *Conn) GetKnownTags(ctx context.Context, scope Scope) (map[string]int, error) {
	done := observeQuery("get_known_tags")

	query := "SELECT tag, counter FROM known_tags_anon"
	var args []any
	if !scope.IsAnon() {
		query = "SELECT tag, counter FROM known_tags WHERE user_id = ?"
		args = []any{scope.UserID()}
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	rows, err := c.q.QueryContext(ctx, query, args...)
	if err != nil {
		done(err)
		return nil, wrap("get known tags", err)
	}
	defer rows.Close()

	counters := make(map[string]int)
	for rows.Next() {
		var (
			tag     string
			counter int
		)
		if err := rows.Scan(&tag, &counter); err != nil {
			done(err)
			return nil, wrap("get known tags", err)
		}
		counters[tag] = counter
	}

	err = rows.Err()
	done(err)
	if err != nil {
		return nil, wrap("get known tags", err)
	}
	return counters, nil
}

// DropUnusedKnownTags deletes rows with a non-positive counter from both
// the per-user and the anon table and returns how many were removed.
func (c *Conn) DropUnusedKnownTags(ctx context.Context) (int64, error) {
	done := observeQuery("drop_unused_known_tags")

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	var total int64
	for _, query := range []string{
		"DELETE FROM known_tags WHERE counter <= 0",
		"DELETE FROM known_tags_anon WHERE counter <= 0",
	} {
		result, err := c.q.ExecContext(ctx, query)
		if err != nil {
			done(err)
			return total, wrap("drop unused known tags", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			done(err)
			return total, wrap("drop unused known tags", err)
		}
		total += n
	}

	done(nil)
	return total, nil
}

// AutocompleteTags returns up to limit tags of scope that start with prefix
// and have a positive counter, most used first, ties broken alphabetically.
// prefix is matched exactly; callers casefold it.
func (c *Conn) AutocompleteTags(ctx context.Context, scope Scope, prefix string, limit int) ([]string, error) {
	done := observeQuery("autocomplete_tags")

	query := `
		SELECT tag FROM known_tags_anon
		WHERE counter > 0 AND substr(tag, 1, length(?)) = ?
		ORDER BY counter DESC, tag ASC
		LIMIT ?`
	args := []any{prefix, prefix, limit}
	if !scope.IsAnon() {
		query = `
		SELECT tag FROM known_tags
		WHERE user_id = ? AND counter > 0 AND substr(tag, 1, length(?)) = ?
		ORDER BY counter DESC, tag ASC
		LIMIT ?`
		args = []any{scope.UserID(), prefix, prefix, limit}
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	rows, err := c.q.QueryContext(ctx, query, args...)
	if err != nil {
		done(err)
		return nil, wrap("autocomplete tags", err)
	}
	defer rows.Close()

	variants := []string{}
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			done(err)
			return nil, wrap("autocomplete tags", err)
		}
		variants = append(variants, tag)
	}

	err = rows.Err()
	done(err)
	if err != nil {
		return nil, wrap("autocomplete tags", err)
	}
	return variants, nil
}
