// Package dbtest builds throwaway catalog databases for tests.
package dbtest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"media-catalog/internal/database"
	"media-catalog/internal/tags"
)

// New opens a migrated database in a temporary directory and closes it when
// the test ends.
func New(t testing.TB) *database.Database {
	t.Helper()

	db, err := database.New(context.Background(), filepath.Join(t.TempDir(), "catalog.db"), nil)
	require.NoError(t, err, "open test database")

	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

// User registers a user with the given login.
func User(t testing.TB, db *database.Database, login string, public bool) *database.User {
	t.Helper()

	u := &database.User{Name: login, Login: login, IsPublic: public}
	require.NoError(t, db.Conn().CreateUser(context.Background(), u), "create user %s", login)
	return u
}

// ItemSpec describes an item to insert.
type ItemSpec struct {
	Owner        *database.User
	Parent       *database.Item
	Name         string
	Tags         []string
	Permissions  []int64
	IsCollection bool
	Status       database.Status
}

// Item inserts an item and stores its computed tags derived from its
// ancestors, without touching known tags counters.
func Item(t testing.TB, db *database.Database, spec ItemSpec) *database.Item {
	t.Helper()
	ctx := context.Background()

	item := &database.Item{
		OwnerID:      spec.Owner.ID,
		Name:         spec.Name,
		IsCollection: spec.IsCollection,
		Status:       spec.Status,
		Tags:         spec.Tags,
		Permissions:  spec.Permissions,
	}
	if spec.Parent != nil {
		parentID := spec.Parent.ID
		item.ParentID = &parentID
	}

	err := db.Transaction(ctx, "test_create_item", func(c *database.Conn) error {
		if err := c.CreateItem(ctx, item); err != nil {
			return err
		}
		parents, err := c.GetParents(ctx, item)
		if err != nil {
			return err
		}
		return c.SaveComputedTags(ctx, item.ID, tags.Compute(*item, parents))
	})
	require.NoError(t, err, "create item %q", spec.Name)
	return item
}

// Items inserts n plain items owned by owner, each tagged with itemTags.
func Items(t testing.TB, db *database.Database, owner *database.User, n int, itemTags ...string) []*database.Item {
	t.Helper()

	out := make([]*database.Item, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, Item(t, db, ItemSpec{Owner: owner, Tags: itemTags}))
	}
	return out
}
