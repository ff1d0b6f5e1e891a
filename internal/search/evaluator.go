package search

import (
	"context"

	"media-catalog/internal/database"
	"media-catalog/internal/query"
)

const (
	// DefaultLimit is the page size used when none is requested.
	DefaultLimit = 30

	// MaxLimit caps the page size.
	MaxLimit = 1000
)

// Store is the read surface the engine needs. *database.Conn implements it.
type Store interface {
	CountItems(ctx context.Context, filter database.Filter) (int, error)
	SearchItems(ctx context.Context, filter database.Filter, plan database.Plan) ([]database.Item, error)
	GetParentNames(ctx context.Context, parentIDs []int64) (map[int64]string, error)
	AutocompleteTags(ctx context.Context, scope database.Scope, prefix string, limit int) ([]string, error)
}

// ClampLimit maps a requested page size into [1, MaxLimit], using
// DefaultLimit for non-positive requests.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}

// NormalizePlan canonicalises the order, falling back to ascending, and
// clamps the limit. A negative cursor is treated as no cursor.
func NormalizePlan(plan database.Plan) database.Plan {
	if order, ok := database.ParseOrder(string(plan.Order)); ok {
		plan.Order = order
	} else {
		plan.Order = database.OrderAsc
	}
	if plan.LastSeen < 0 {
		plan.LastSeen = 0
	}
	plan.Limit = ClampLimit(plan.Limit)
	return plan
}

// Evaluator runs tag queries against a Store.
type Evaluator struct {
	store Store
}

// NewEvaluator returns an Evaluator reading from store.
func NewEvaluator(store Store) *Evaluator {
	return &Evaluator{store: store}
}

func filterFor(user *database.User, q query.Query, collectionsOnly bool) database.Filter {
	return database.Filter{
		User:            user,
		Include:         q.Include.Sorted(),
		Exclude:         q.Exclude.Sorted(),
		CollectionsOnly: collectionsOnly,
	}
}

// Count returns how many items visible to user match q. An empty query
// counts every visible item.
func (e *Evaluator) Count(ctx context.Context, user *database.User, q query.Query, collectionsOnly bool) (int, error) {
	return e.store.CountItems(ctx, filterFor(user, q, collectionsOnly))
}

// Search returns one page of items visible to user that match q.
func (e *Evaluator) Search(ctx context.Context, user *database.User, q query.Query, collectionsOnly bool, plan database.Plan) ([]database.Item, error) {
	return e.store.SearchItems(ctx, filterFor(user, q, collectionsOnly), NormalizePlan(plan))
}

// Home returns one page of items visible to user without any tag
// constraint. directOnly keeps only items without a parent.
func (e *Evaluator) Home(ctx context.Context, user *database.User, collectionsOnly, directOnly bool, plan database.Plan) ([]database.Item, error) {
	filter := database.Filter{
		User:            user,
		CollectionsOnly: collectionsOnly,
		DirectOnly:      directOnly,
	}
	return e.store.SearchItems(ctx, filter, NormalizePlan(plan))
}
