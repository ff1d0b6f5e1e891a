package handlers

import (
	"context"
	"time"

	"github.com/google/uuid"

	"media-catalog/internal/database"
	"media-catalog/internal/search"
)

// Searcher is the search engine surface. *search.Service implements it.
type Searcher interface {
	Autocomplete(ctx context.Context, user *database.User, prefix string, limit int) ([]string, error)
	Count(ctx context.Context, user *database.User, text string, collectionsOnly bool) (int, time.Duration, error)
	Search(ctx context.Context, user *database.User, text string, collectionsOnly bool, plan database.Plan) (search.Result, error)
	Home(ctx context.Context, user *database.User, collectionsOnly, directOnly bool, plan database.Plan) (search.Result, error)
	AnonKnownTags(ctx context.Context) (map[string]int, error)
	KnownTags(ctx context.Context, caller *database.User, target uuid.UUID) (map[string]int, error)
}

// Store reports database health. *database.Database implements it.
type Store interface {
	Ping(ctx context.Context) error
	Stats(ctx context.Context) (database.Stats, error)
}

// MaintenanceStatus reports whether a full rebuild is running.
// *maintenance.Runner implements it.
type MaintenanceStatus interface {
	IsRunning() bool
}

type Handlers struct {
	search    Searcher
	store     Store
	maint     MaintenanceStatus
	startTime time.Time
}

func New(searcher Searcher, store Store, maint MaintenanceStatus) *Handlers {
	return &Handlers{
		search:    searcher,
		store:     store,
		maint:     maint,
		startTime: time.Now(),
	}
}
