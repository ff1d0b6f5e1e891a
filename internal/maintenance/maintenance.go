package maintenance

import (
	"context"
	"errors"
	"sort"
	"sync"

	"media-catalog/internal/database"
	"media-catalog/internal/knowntags"
	"media-catalog/internal/logging"
	"media-catalog/internal/workers"
)

var log = logging.Named("maintenance")

// maxRebuildWorkers caps the fan-out of RebuildAll; SQLite serialises
// writers anyway.
const maxRebuildWorkers = 8

// ErrAlreadyRunning is returned when a full rebuild is requested while one
// is in progress.
var ErrAlreadyRunning = errors.New("maintenance already running")

// DB opens connections and transactions. *database.Database implements it.
type DB interface {
	Conn() *database.Conn
	Transaction(ctx context.Context, name string, fn func(c *database.Conn) error) error
}

// Options configures a Runner.
type Options struct {
	// BatchSize is the number of items scanned per query during rebuilds.
	BatchSize int
	// Workers bounds the number of scopes rebuilt concurrently. Zero
	// derives it from the CPU count.
	Workers int
}

// Runner applies item mutations and rebuilds derived tag data.
type Runner struct {
	db      DB
	index   *knowntags.Index
	workers int

	mu      sync.Mutex
	running bool
}

// NewRunner returns a Runner over db.
func NewRunner(db DB, opts Options) *Runner {
	n := opts.Workers
	if n <= 0 {
		n = workers.ForIO(maxRebuildWorkers)
	}
	return &Runner{
		db:      db,
		index:   knowntags.NewIndex(db, opts.BatchSize),
		workers: n,
	}
}

// Workers returns the rebuild concurrency.
func (r *Runner) Workers() int {
	return r.workers
}

// Index returns the known tags index used by the runner.
func (r *Runner) Index() *knowntags.Index {
	return r.index
}

// IsRunning reports whether a full rebuild is in progress.
func (r *Runner) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

func (r *Runner) tryStart() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return false
	}
	r.running = true
	return true
}

func (r *Runner) finish() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.running = false
}

// Affected lists the counter scopes touched by a mutation.
type Affected struct {
	Users []int64 `json:"users"`
	Anon  bool    `json:"anon"`
}

// affectedSet accumulates scopes while a mutation runs.
type affectedSet struct {
	users map[int64]struct{}
	anon  bool
}

func newAffectedSet() *affectedSet {
	return &affectedSet{users: make(map[int64]struct{})}
}

func (a *affectedSet) add(scope database.Scope) {
	if scope.IsAnon() {
		a.anon = true
		return
	}
	a.users[scope.UserID()] = struct{}{}
}

func (a *affectedSet) result() Affected {
	out := Affected{Users: make([]int64, 0, len(a.users)), Anon: a.anon}
	for id := range a.users {
		out.Users = append(out.Users, id)
	}
	sort.Slice(out.Users, func(i, j int) bool { return out.Users[i] < out.Users[j] })
	return out
}
