package search

import (
	"context"
	"time"
	"unicode/utf8"

	"media-catalog/internal/database"
	"media-catalog/internal/logging"
	"media-catalog/internal/metrics"
	"media-catalog/internal/query"
)

var log = logging.Named("search")

// DB hands out connections. *database.Database implements it.
type DB interface {
	Conn() *database.Conn
}

// Config holds the engine's tunables.
type Config struct {
	// AutocompleteMinLength is the shortest prefix that is completed.
	AutocompleteMinLength int

	// SearchMinLength is the shortest query text that is evaluated.
	SearchMinLength int
}

// Extras carries per-item presentation data alongside search results.
type Extras struct {
	ParentName string `json:"parentName,omitempty"`
}

// Result is one page of items with matching extras, in the same order.
type Result struct {
	Duration time.Duration
	Items    []database.Item
	Extras   []Extras
}

// Service exposes search, count, home and autocomplete to callers.
type Service struct {
	db  DB
	cfg Config
}

// NewService returns a Service over db.
func NewService(db DB, cfg Config) *Service {
	return &Service{db: db, cfg: cfg}
}

func (s *Service) store() Store {
	return s.db.Conn()
}

func observe(kind string, user *database.User, start time.Time, results int, err error) {
	metrics.SearchRequestsTotal.WithLabelValues(kind, metrics.ScopeLabel(user.IsAnon())).Inc()
	metrics.SearchDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	if err == nil {
		metrics.SearchResultsReturned.WithLabelValues(kind).Observe(float64(results))
	}
}

func tooShort(text string, minimal int) bool {
	return utf8.RuneCountInString(text) < minimal
}

// Autocomplete completes prefix for user using the configured minimal length.
func (s *Service) Autocomplete(ctx context.Context, user *database.User, prefix string, limit int) ([]string, error) {
	start := time.Now()

	variants, err := NewAutocompleter(s.store()).Autocomplete(ctx, user, prefix, s.cfg.AutocompleteMinLength, limit)
	observe("autocomplete", user, start, len(variants), err)
	if err != nil {
		return nil, err
	}
	return variants, nil
}

// Count parses text and counts matching items visible to user. Text shorter
// than the configured minimal length counts as zero in zero time.
func (s *Service) Count(ctx context.Context, user *database.User, text string, collectionsOnly bool) (int, time.Duration, error) {
	if tooShort(text, s.cfg.SearchMinLength) {
		metrics.SearchShortQueriesTotal.WithLabelValues("count").Inc()
		return 0, 0, nil
	}

	start := time.Now()
	q := query.Parse(text)

	total, err := NewEvaluator(s.store()).Count(ctx, user, q, collectionsOnly)
	duration := time.Since(start)
	observe("count", user, start, total, err)
	if err != nil {
		return 0, duration, err
	}

	log.Debug("count %q for %s: %d in %v", q.String(), user.Scope(), total, duration)
	return total, duration, nil
}

// Search parses text and returns one page of matching items visible to
// user, each with its parent's name. Text shorter than the configured
// minimal length yields an empty page.
func (s *Service) Search(ctx context.Context, user *database.User, text string, collectionsOnly bool, plan database.Plan) (Result, error) {
	if tooShort(text, s.cfg.SearchMinLength) {
		metrics.SearchShortQueriesTotal.WithLabelValues("search").Inc()
		return Result{Items: []database.Item{}, Extras: []Extras{}}, nil
	}

	start := time.Now()
	q := query.Parse(text)
	store := s.store()

	items, err := NewEvaluator(store).Search(ctx, user, q, collectionsOnly, plan)
	if err != nil {
		observe("search", user, start, 0, err)
		return Result{Duration: time.Since(start)}, err
	}

	extras, err := parentExtras(ctx, store, items)
	observe("search", user, start, len(items), err)
	if err != nil {
		return Result{Duration: time.Since(start)}, err
	}

	result := Result{Duration: time.Since(start), Items: items, Extras: extras}
	log.Debug("search %q for %s: %d items in %v", q.String(), user.Scope(), len(items), result.Duration)
	return result, nil
}

// Home returns one page of items visible to user without tag constraints.
func (s *Service) Home(ctx context.Context, user *database.User, collectionsOnly, directOnly bool, plan database.Plan) (Result, error) {
	start := time.Now()
	store := s.store()

	items, err := NewEvaluator(store).Home(ctx, user, collectionsOnly, directOnly, plan)
	if err != nil {
		observe("home", user, start, 0, err)
		return Result{Duration: time.Since(start)}, err
	}

	extras, err := parentExtras(ctx, store, items)
	observe("home", user, start, len(items), err)
	if err != nil {
		return Result{Duration: time.Since(start)}, err
	}

	return Result{Duration: time.Since(start), Items: items, Extras: extras}, nil
}

// parentExtras looks up the parent name of every item in one query.
func parentExtras(ctx context.Context, store Store, items []database.Item) ([]Extras, error) {
	extras := make([]Extras, len(items))

	var parentIDs []int64
	seen := make(map[int64]struct{})
	for _, item := range items {
		if item.ParentID == nil {
			continue
		}
		if _, ok := seen[*item.ParentID]; !ok {
			seen[*item.ParentID] = struct{}{}
			parentIDs = append(parentIDs, *item.ParentID)
		}
	}
	if len(parentIDs) == 0 {
		return extras, nil
	}

	names, err := store.GetParentNames(ctx, parentIDs)
	if err != nil {
		return nil, err
	}

	for i, item := range items {
		if item.ParentID != nil {
			extras[i].ParentName = names[*item.ParentID]
		}
	}
	return extras, nil
}
