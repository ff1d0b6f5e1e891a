package database_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"media-catalog/internal/database"
	"media-catalog/internal/database/dbtest"
)

func itemIDs(items []database.Item) []int64 {
	ids := make([]int64, len(items))
	for i, item := range items {
		ids[i] = item.ID
	}
	return ids
}

func TestSearchVisibility(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	db := dbtest.New(t)
	ctx := context.Background()
	conn := db.Conn()

	public := dbtest.User(t, db, "public", true)
	private := dbtest.User(t, db, "private", false)
	friend := dbtest.User(t, db, "friend", false)

	publicItem := dbtest.Item(t, db, dbtest.ItemSpec{Owner: public, Tags: []string{"cats"}})
	privateItem := dbtest.Item(t, db, dbtest.ItemSpec{Owner: private, Tags: []string{"cats"}})
	shared := dbtest.Item(t, db, dbtest.ItemSpec{Owner: private, Tags: []string{"cats"}, Permissions: []int64{friend.ID}})
	dbtest.Item(t, db, dbtest.ItemSpec{Owner: public, Tags: []string{"cats"}, Status: database.StatusDeleted})

	plan := database.Plan{Order: database.OrderAsc, Limit: 100}

	tests := []struct {
		name     string
		user     *database.User
		expected []int64
	}{
		{"anon sees public owners only", database.Anon(), []int64{publicItem.ID}},
		{"owner sees own items", private, []int64{privateItem.ID, shared.ID}},
		{"permitted user sees shared item", friend, []int64{shared.ID}},
		{"public user sees own items only", public, []int64{publicItem.ID}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filter := database.Filter{User: tt.user, Include: []string{"cats"}}

			items, err := conn.SearchItems(ctx, filter, plan)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, itemIDs(items))

			total, err := conn.CountItems(ctx, filter)
			require.NoError(t, err)
			assert.Equal(t, len(tt.expected), total)
		})
	}
}

func TestSearchIncludeExclude(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	db := dbtest.New(t)
	ctx := context.Background()
	conn := db.Conn()

	alice := dbtest.User(t, db, "alice", true)

	album := dbtest.Item(t, db, dbtest.ItemSpec{Owner: alice, IsCollection: true, Tags: []string{"Pets"}})
	catDog := dbtest.Item(t, db, dbtest.ItemSpec{Owner: alice, Parent: album, Tags: []string{"cats", "dogs"}})
	catFrog := dbtest.Item(t, db, dbtest.ItemSpec{Owner: alice, Parent: album, Tags: []string{"cats", "frogs"}})
	loose := dbtest.Item(t, db, dbtest.ItemSpec{Owner: alice, Tags: []string{"cats"}})

	plan := database.Plan{Order: database.OrderAsc, Limit: 100}

	tests := []struct {
		name     string
		filter   database.Filter
		expected []int64
	}{
		{"single include", database.Filter{Include: []string{"cats"}}, []int64{catDog.ID, catFrog.ID, loose.ID}},
		{"all includes required", database.Filter{Include: []string{"cats", "dogs"}}, []int64{catDog.ID}},
		{"exclude removes", database.Filter{Include: []string{"cats"}, Exclude: []string{"frogs"}}, []int64{catDog.ID, loose.ID}},
		{"inherited tag matches", database.Filter{Include: []string{"pets"}}, []int64{album.ID, catDog.ID, catFrog.ID}},
		{"exclude inherited tag", database.Filter{Exclude: []string{"pets"}}, []int64{loose.ID}},
		{"mixed case input is folded", database.Filter{Include: []string{"CATS", "Dogs"}}, []int64{catDog.ID}},
		{"empty filter matches everything", database.Filter{}, []int64{album.ID, catDog.ID, catFrog.ID, loose.ID}},
		{"collections only", database.Filter{CollectionsOnly: true}, []int64{album.ID}},
		{"direct only", database.Filter{DirectOnly: true}, []int64{album.ID, loose.ID}},
		{"unknown tag", database.Filter{Include: []string{"zebras"}}, []int64{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := conn.SearchItems(ctx, tt.filter, plan)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, itemIDs(items))
		})
	}
}

func TestSearchKeysetPagination(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	db := dbtest.New(t)
	ctx := context.Background()
	conn := db.Conn()

	alice := dbtest.User(t, db, "alice", true)
	created := dbtest.Items(t, db, alice, 25, "cats")

	filter := database.Filter{Include: []string{"cats"}}

	first, err := conn.SearchItems(ctx, filter, database.Plan{Order: database.OrderAsc, Limit: 10})
	require.NoError(t, err)
	require.Len(t, first, 10)

	second, err := conn.SearchItems(ctx, filter, database.Plan{Order: database.OrderAsc, LastSeen: first[9].ID, Limit: 10})
	require.NoError(t, err)
	require.Len(t, second, 10)

	assert.Equal(t, created[0].ID, first[0].ID)
	assert.Equal(t, first[9].ID+1, second[0].ID, "no gap between pages")
	assert.Greater(t, second[0].ID, first[9].ID, "no overlap between pages")

	desc, err := conn.SearchItems(ctx, filter, database.Plan{Order: database.OrderDesc, LastSeen: created[5].ID, Limit: 3})
	require.NoError(t, err)
	assert.Equal(t, []int64{created[4].ID, created[3].ID, created[2].ID}, itemIDs(desc))

	newest, err := conn.SearchItems(ctx, filter, database.Plan{Order: database.OrderDesc, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, []int64{created[24].ID}, itemIDs(newest))

	random, err := conn.SearchItems(ctx, filter, database.Plan{Order: database.OrderRandom, LastSeen: 999, Limit: 30})
	require.NoError(t, err)
	assert.Len(t, random, 25, "random ordering ignores the cursor")
}
