package database_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"media-catalog/internal/database"
	"media-catalog/internal/database/dbtest"
)

func TestIncrementAndDecrementKnownTags(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	db := dbtest.New(t)
	ctx := context.Background()
	conn := db.Conn()

	alice := dbtest.User(t, db, "alice", false)

	for _, scope := range []database.Scope{database.AnonScope(), alice.Scope()} {
		t.Run(scope.String(), func(t *testing.T) {
			require.NoError(t, conn.IncrementKnownTags(ctx, scope, []string{"cats", "dogs"}))
			require.NoError(t, conn.IncrementKnownTags(ctx, scope, []string{"cats"}))

			counters, err := conn.GetKnownTags(ctx, scope)
			require.NoError(t, err)
			assert.Equal(t, map[string]int{"cats": 2, "dogs": 1}, counters)

			require.NoError(t, conn.DecrementKnownTags(ctx, scope, []string{"dogs", "dogs", "unknown"}))

			counters, err = conn.GetKnownTags(ctx, scope)
			require.NoError(t, err)
			assert.Equal(t, map[string]int{"cats": 2, "dogs": 0}, counters,
				"decrement clamps at zero and ignores unknown tags")
		})
	}
}

func TestIncrementThenDecrementRestoresCounter(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	db := dbtest.New(t)
	ctx := context.Background()
	conn := db.Conn()

	scope := database.AnonScope()
	require.NoError(t, conn.InsertKnownTags(ctx, scope, map[string]int{"cats": 5}, 10))

	require.NoError(t, conn.IncrementKnownTags(ctx, scope, []string{"cats"}))
	require.NoError(t, conn.DecrementKnownTags(ctx, scope, []string{"cats"}))

	counters, err := conn.GetKnownTags(ctx, scope)
	require.NoError(t, err)
	assert.Equal(t, 5, counters["cats"])
}

func TestInsertKnownTagsInBatches(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	db := dbtest.New(t)
	ctx := context.Background()

	alice := dbtest.User(t, db, "alice", false)

	want := make(map[string]int)
	for i := 0; i < 23; i++ {
		want[fmt.Sprintf("tag-%02d", i)] = i + 1
	}

	for _, batchSize := range []int{1, 7, 0} {
		t.Run(fmt.Sprintf("batch=%d", batchSize), func(t *testing.T) {
			err := db.Transaction(ctx, "test_persist", func(c *database.Conn) error {
				if _, err := c.DropKnownTags(ctx, alice.Scope()); err != nil {
					return err
				}
				return c.InsertKnownTags(ctx, alice.Scope(), want, batchSize)
			})
			require.NoError(t, err)

			got, err := db.Conn().GetKnownTags(ctx, alice.Scope())
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestDropKnownTagsIsScoped(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	db := dbtest.New(t)
	ctx := context.Background()
	conn := db.Conn()

	alice := dbtest.User(t, db, "alice", false)
	bob := dbtest.User(t, db, "bob", false)

	require.NoError(t, conn.IncrementKnownTags(ctx, alice.Scope(), []string{"cats"}))
	require.NoError(t, conn.IncrementKnownTags(ctx, bob.Scope(), []string{"cats"}))
	require.NoError(t, conn.IncrementKnownTags(ctx, database.AnonScope(), []string{"cats"}))

	n, err := conn.DropKnownTags(ctx, alice.Scope())
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	bobTags, err := conn.GetKnownTags(ctx, bob.Scope())
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"cats": 1}, bobTags)

	anonTags, err := conn.GetKnownTags(ctx, database.AnonScope())
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"cats": 1}, anonTags)
}

func TestDropUnusedKnownTags(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	db := dbtest.New(t)
	ctx := context.Background()
	conn := db.Conn()

	alice := dbtest.User(t, db, "alice", false)

	require.NoError(t, conn.InsertKnownTags(ctx, alice.Scope(), map[string]int{"cats": 0, "dogs": 2}, 10))
	require.NoError(t, conn.InsertKnownTags(ctx, database.AnonScope(), map[string]int{"frogs": 0}, 10))

	n, err := conn.DropUnusedKnownTags(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	counters, err := conn.GetKnownTags(ctx, alice.Scope())
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"dogs": 2}, counters)
}

func TestAutocompleteTags(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	db := dbtest.New(t)
	ctx := context.Background()
	conn := db.Conn()

	alice := dbtest.User(t, db, "alice", false)
	require.NoError(t, conn.InsertKnownTags(ctx, alice.Scope(), map[string]int{
		"cat":     2,
		"cats":    5,
		"catalog": 5,
		"dog":     9,
		"cattle":  0,
		"ca_t":    1,
	}, 100))

	tests := []struct {
		name     string
		prefix   string
		limit    int
		expected []string
	}{
		{"ordered by counter then name", "cat", 10, []string{"catalog", "cats", "cat"}},
		{"limit applies", "cat", 2, []string{"catalog", "cats"}},
		{"no match", "zebra", 10, []string{}},
		{"underscore is literal", "ca_", 10, []string{"ca_t"}},
		{"percent is literal", "c%", 10, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := conn.AutocompleteTags(ctx, alice.Scope(), tt.prefix, tt.limit)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}

	anon, err := conn.AutocompleteTags(ctx, database.AnonScope(), "cat", 10)
	require.NoError(t, err)
	assert.Empty(t, anon, "user scope must not leak into anon")
}
