package maintenance

import (
	"context"
	"errors"
	"sync"
	"time"
)

// rebuilder is the part of Runner the scheduler drives.
type rebuilder interface {
	RebuildAll(ctx context.Context) (Report, error)
}

// Scheduler runs RebuildAll on a fixed interval until stopped.
type Scheduler struct {
	runner   rebuilder
	interval time.Duration

	ctx      context.Context
	cancel   context.CancelFunc
	doneChan chan struct{}
	started  bool
	stopOnce sync.Once
}

// NewScheduler returns a scheduler rebuilding every interval. A
// non-positive interval disables it.
func NewScheduler(runner rebuilder, interval time.Duration) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		runner:   runner,
		interval: interval,
		ctx:      ctx,
		cancel:   cancel,
		doneChan: make(chan struct{}),
	}
}

// Enabled reports whether the scheduler has a positive interval.
func (s *Scheduler) Enabled() bool {
	return s.interval > 0
}

// Start launches the rebuild loop in the background.
func (s *Scheduler) Start() {
	if !s.Enabled() {
		log.Info("Periodic known tags rebuild disabled")
		return
	}
	log.Info("Periodic known tags rebuild every %v", s.interval)
	s.started = true
	go s.run()
}

// Stop cancels any rebuild in progress and waits for the loop to exit.
// Start and Stop must be called from the same goroutine.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(s.cancel)
	if s.started {
		<-s.doneChan
	}
}

func (s *Scheduler) run() {
	defer close(s.doneChan)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			log.Debug("Periodic known tags rebuild triggered")
			s.tick()
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) tick() {
	_, err := s.runner.RebuildAll(s.ctx)
	switch {
	case err == nil:
	case errors.Is(err, ErrAlreadyRunning):
		log.Debug("Skipping periodic rebuild: previous run still in progress")
	case errors.Is(err, context.Canceled):
		log.Debug("Periodic rebuild cancelled")
	default:
		log.Error("Periodic rebuild failed: %v", err)
	}
}
