package maintenance_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"media-catalog/internal/database"
	"media-catalog/internal/database/dbtest"
	"media-catalog/internal/knowntags"
	"media-catalog/internal/maintenance"
	"media-catalog/internal/tags"
)

func newRunner(t *testing.T) (*database.Database, *maintenance.Runner) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	db := dbtest.New(t)
	return db, maintenance.NewRunner(db, maintenance.Options{BatchSize: 3, Workers: 2})
}

func createItem(t *testing.T, r *maintenance.Runner, owner *database.User, parent *database.Item, itemTags []string, permissions ...int64) *database.Item {
	t.Helper()

	item := &database.Item{OwnerID: owner.ID, Tags: itemTags, Permissions: permissions}
	if parent != nil {
		parentID := parent.ID
		item.ParentID = &parentID
	}
	_, err := r.CreateItem(context.Background(), item)
	require.NoError(t, err)
	return item
}

// positive drops zero counters so stored rows compare with a fresh rebuild.
func positive(c knowntags.Counters) knowntags.Counters {
	out := knowntags.Counters{}
	for tag, n := range c {
		if n > 0 {
			out[tag] = n
		}
	}
	return out
}

// assertConsistent checks that the stored counters of scope match a full
// recount.
func assertConsistent(t *testing.T, r *maintenance.Runner, scope knowntags.Scope) {
	t.Helper()
	ctx := context.Background()

	stored, err := r.Index().Stored(ctx, scope)
	require.NoError(t, err)
	rebuilt, err := r.Index().Rebuild(ctx, scope)
	require.NoError(t, err)

	assert.Equal(t, rebuilt, positive(stored), "stored counters of %s drifted from a rebuild", scope)
}

func TestCreateItemCountsEveryScope(t *testing.T) {
	db, r := newRunner(t)
	ctx := context.Background()

	alice := dbtest.User(t, db, "alice", true)
	bob := dbtest.User(t, db, "bob", false)

	item := &database.Item{OwnerID: alice.ID, Tags: []string{"Cats", "dogs", "cats"}, Permissions: []int64{bob.ID}}
	affected, err := r.CreateItem(ctx, item)
	require.NoError(t, err)

	assert.Equal(t, []int64{alice.ID, bob.ID}, affected.Users)
	assert.True(t, affected.Anon)

	want := knowntags.Counters{"cats": 1, "dogs": 1}
	for _, scope := range []knowntags.Scope{knowntags.ForUser(alice.ID), knowntags.ForUser(bob.ID), knowntags.Anon()} {
		got, err := r.Index().Stored(ctx, scope)
		require.NoError(t, err)
		assert.Equal(t, want, got, "scope %s", scope)
	}

	computed, err := r.Index().Rebuild(ctx, knowntags.ForUser(bob.ID))
	require.NoError(t, err)
	assert.Equal(t, want, computed)
}

func TestCreateItemPrivateOwnerSkipsAnon(t *testing.T) {
	db, r := newRunner(t)
	ctx := context.Background()

	carol := dbtest.User(t, db, "carol", false)

	affected, err := r.CreateItem(ctx, &database.Item{OwnerID: carol.ID, Tags: []string{"secret"}})
	require.NoError(t, err)
	assert.False(t, affected.Anon)
	assert.Equal(t, []int64{carol.ID}, affected.Users)

	anon, err := r.Index().Stored(ctx, knowntags.Anon())
	require.NoError(t, err)
	assert.Empty(t, anon)
}

func TestUpdateItemTagsPropagatesToChildren(t *testing.T) {
	db, r := newRunner(t)
	ctx := context.Background()

	owner := dbtest.User(t, db, "owner", true)
	album := createItem(t, r, owner, nil, []string{"trip"})
	photo := createItem(t, r, owner, album, []string{"beach"})
	nested := createItem(t, r, owner, photo, []string{"sand"})

	closure, err := db.Conn().GetComputedTags(ctx, nested.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"beach", "sand", "trip"}, closure.Sorted())

	_, err = r.UpdateItemTags(ctx, album.ID, []string{"Holiday"}, true)
	require.NoError(t, err)

	closure, err = db.Conn().GetComputedTags(ctx, nested.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"beach", "holiday", "sand"}, closure.Sorted())

	stored, err := r.Index().Stored(ctx, knowntags.ForUser(owner.ID))
	require.NoError(t, err)
	assert.Equal(t, 0, stored["trip"])
	assert.Equal(t, 3, stored["holiday"])
	assert.Equal(t, 2, stored["beach"])

	assertConsistent(t, r, knowntags.ForUser(owner.ID))
	assertConsistent(t, r, knowntags.Anon())
}

func TestUpdateItemTagsWithoutChildren(t *testing.T) {
	db, r := newRunner(t)
	ctx := context.Background()

	owner := dbtest.User(t, db, "owner", false)
	album := createItem(t, r, owner, nil, []string{"trip"})
	photo := createItem(t, r, owner, album, nil)

	_, err := r.UpdateItemTags(ctx, album.ID, []string{"other"}, false)
	require.NoError(t, err)

	closure, err := db.Conn().GetComputedTags(ctx, photo.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"trip"}, closure.Sorted(), "child closure must be left alone")

	_, err = r.RecomputeItemTags(ctx, photo.ID, maintenance.RecomputeOptions{})
	require.NoError(t, err)

	closure, err = db.Conn().GetComputedTags(ctx, photo.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"other"}, closure.Sorted())
	assertConsistent(t, r, knowntags.ForUser(owner.ID))
}

func TestRecomputeIsIdempotent(t *testing.T) {
	db, r := newRunner(t)
	ctx := context.Background()

	owner := dbtest.User(t, db, "owner", true)
	album := createItem(t, r, owner, nil, []string{"a"})
	createItem(t, r, owner, album, []string{"b"})

	before, err := r.Index().Stored(ctx, knowntags.Anon())
	require.NoError(t, err)

	affected, err := r.RecomputeItemTags(ctx, album.ID, maintenance.RecomputeOptions{ApplyToChildren: true})
	require.NoError(t, err)
	assert.Empty(t, affected.Users, "nothing changed, no scope should be touched")
	assert.False(t, affected.Anon)

	after, err := r.Index().Stored(ctx, knowntags.Anon())
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestSetItemPermissions(t *testing.T) {
	db, r := newRunner(t)
	ctx := context.Background()

	owner := dbtest.User(t, db, "owner", false)
	dave := dbtest.User(t, db, "dave", false)
	erin := dbtest.User(t, db, "erin", false)

	item := createItem(t, r, owner, nil, []string{"shared"}, dave.ID)

	affected, err := r.SetItemPermissions(ctx, item.ID, []int64{erin.ID})
	require.NoError(t, err)
	assert.Equal(t, []int64{dave.ID, erin.ID}, affected.Users)

	daveTags, err := r.Index().Stored(ctx, knowntags.ForUser(dave.ID))
	require.NoError(t, err)
	assert.Equal(t, 0, daveTags["shared"])

	erinTags, err := r.Index().Stored(ctx, knowntags.ForUser(erin.ID))
	require.NoError(t, err)
	assert.Equal(t, 1, erinTags["shared"])

	ownerTags, err := r.Index().Stored(ctx, knowntags.ForUser(owner.ID))
	require.NoError(t, err)
	assert.Equal(t, 1, ownerTags["shared"], "owner keeps access regardless of permissions")

	for _, u := range []*database.User{owner, dave, erin} {
		assertConsistent(t, r, knowntags.ForUser(u.ID))
	}
}

func TestDeleteAndRestoreItem(t *testing.T) {
	db, r := newRunner(t)
	ctx := context.Background()

	owner := dbtest.User(t, db, "owner", true)
	item := createItem(t, r, owner, nil, []string{"gone"})
	createItem(t, r, owner, nil, []string{"gone"})

	_, err := r.DeleteItem(ctx, item.ID)
	require.NoError(t, err)

	anon, err := r.Index().Stored(ctx, knowntags.Anon())
	require.NoError(t, err)
	assert.Equal(t, 1, anon["gone"])
	assertConsistent(t, r, knowntags.Anon())

	total, err := db.Conn().CountItems(ctx, database.Filter{User: database.Anon(), Include: []string{"gone"}})
	require.NoError(t, err)
	assert.Equal(t, 1, total)

	// Deleting twice does not decrement again.
	_, err = r.DeleteItem(ctx, item.ID)
	require.NoError(t, err)
	anon, err = r.Index().Stored(ctx, knowntags.Anon())
	require.NoError(t, err)
	assert.Equal(t, 1, anon["gone"])

	_, err = r.SetItemStatus(ctx, item.ID, database.StatusAvailable)
	require.NoError(t, err)
	anon, err = r.Index().Stored(ctx, knowntags.Anon())
	require.NoError(t, err)
	assert.Equal(t, 2, anon["gone"])
	assertConsistent(t, r, knowntags.Anon())

	_, err = r.SetItemStatus(ctx, item.ID, database.Status(42))
	assert.Error(t, err)
}

func TestMoveItem(t *testing.T) {
	db, r := newRunner(t)
	ctx := context.Background()

	owner := dbtest.User(t, db, "owner", false)
	left := createItem(t, r, owner, nil, []string{"left"})
	right := createItem(t, r, owner, nil, []string{"right"})
	child := createItem(t, r, owner, left, []string{"child"})

	_, err := r.MoveItem(ctx, child.ID, &right.ID)
	require.NoError(t, err)

	closure, err := db.Conn().GetComputedTags(ctx, child.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"child", "right"}, closure.Sorted())
	assertConsistent(t, r, knowntags.ForUser(owner.ID))

	// right -> child -> right would be a cycle; the transaction rolls back.
	_, err = r.MoveItem(ctx, right.ID, &child.ID)
	require.ErrorIs(t, err, database.ErrCyclicAncestry)

	reloaded, err := db.Conn().GetItem(ctx, right.ID)
	require.NoError(t, err)
	assert.Nil(t, reloaded.ParentID)
}

func TestRecomputeUnknownItem(t *testing.T) {
	_, r := newRunner(t)

	_, err := r.RecomputeItemTags(context.Background(), 999, maintenance.RecomputeOptions{})
	require.ErrorIs(t, err, database.ErrNotFound)
}

func TestRebuildAll(t *testing.T) {
	db, r := newRunner(t)
	ctx := context.Background()

	public := dbtest.User(t, db, "public", true)
	private := dbtest.User(t, db, "private", false)

	// dbtest writes computed tags but no counters.
	dbtest.Items(t, db, public, 7, "sun")
	dbtest.Items(t, db, private, 2, "moon")
	dbtest.Item(t, db, dbtest.ItemSpec{Owner: private, Tags: []string{"star"}, Permissions: []int64{public.ID}})

	require.NoError(t, db.Conn().InsertKnownTags(ctx, database.AnonScope(), map[string]int{"stale": 4}, 10))

	report, err := r.RebuildAll(ctx)
	require.NoError(t, err)
	assert.Len(t, report.Scopes, 3)
	assert.False(t, r.IsRunning())

	want := map[knowntags.Scope]knowntags.Counters{
		knowntags.ForUser(public.ID):  {"sun": 7, "star": 1},
		knowntags.ForUser(private.ID): {"moon": 2, "star": 1},
		knowntags.Anon():              {"sun": 7},
	}
	for scope, counters := range want {
		got, err := r.Index().Stored(ctx, scope)
		require.NoError(t, err)
		assert.Equal(t, counters, got, "scope %s", scope)
	}
}

func TestRebuildKnownTagsForUser(t *testing.T) {
	db, r := newRunner(t)
	ctx := context.Background()

	u := dbtest.User(t, db, "frank", false)
	dbtest.Items(t, db, u, 4, "x", "y")

	stats, err := r.RebuildKnownTagsForUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Items)
	assert.Equal(t, 2, stats.Tags)
	assert.Equal(t, 8, stats.Occurrences)

	_, err = r.RebuildKnownTagsForUser(ctx, u.ID+100)
	require.ErrorIs(t, err, database.ErrNotFound)

	stats, err = r.RebuildKnownTagsForAnon(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Items)
}

func TestRebuildComputedTags(t *testing.T) {
	db, r := newRunner(t)
	ctx := context.Background()

	owner := dbtest.User(t, db, "owner", false)

	// Items inserted straight into the store have no computed rows.
	var roots []*database.Item
	for i := 0; i < 5; i++ {
		root := &database.Item{OwnerID: owner.ID, Tags: []string{"root"}}
		require.NoError(t, db.Conn().CreateItem(ctx, root))
		roots = append(roots, root)
	}
	parentID := roots[0].ID
	leaf := &database.Item{OwnerID: owner.ID, ParentID: &parentID, Tags: []string{"leaf"}}
	require.NoError(t, db.Conn().CreateItem(ctx, leaf))

	n, err := r.RebuildComputedTags(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	closure, err := db.Conn().GetComputedTags(ctx, leaf.ID)
	require.NoError(t, err)
	assert.True(t, closure.Equal(tags.NewSet("root", "leaf")))

	stored, err := r.Index().Stored(ctx, knowntags.ForUser(owner.ID))
	require.NoError(t, err)
	assert.Equal(t, knowntags.Counters{"root": 6, "leaf": 1}, stored)
}
