// Package scheduler drives periodic fetch cycles across all categories.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/clubpulse/feedwire/internal/domain"
	"github.com/clubpulse/feedwire/internal/logger"
)

const (
	// DefaultInterval is the gap between fetch cycles.
	DefaultInterval = 30 * time.Minute

	// defaultCycleTimeout bounds one category's fetch within a cycle.
	defaultCycleTimeout = 5 * time.Minute

	defaultPage  = 1
	defaultLimit = 20
)

// CategoryFetcher runs one category's fetch cycle.
type CategoryFetcher interface {
	FetchCategory(ctx context.Context, category domain.Category, page, limit int) (domain.FetchOutcome, error)
}

// Scheduler triggers a fetch for every category on a fixed interval. Each
// category runs as an independent goroutine; an in-flight guard per category
// keeps a slow cycle from stacking a second concurrent fetch against the same
// sources.
type Scheduler struct {
	fetcher      CategoryFetcher
	interval     time.Duration
	cycleTimeout time.Duration
	log          logger.Logger

	mu       sync.Mutex
	inFlight map[domain.Category]bool
	wg       sync.WaitGroup
}

// New builds a Scheduler. A non-positive interval falls back to the default;
// a nil logger is replaced with a no-op.
func New(fetcher CategoryFetcher, interval time.Duration, log logger.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Scheduler{
		fetcher:      fetcher,
		interval:     interval,
		cycleTimeout: defaultCycleTimeout,
		log:          log,
		inFlight:     make(map[domain.Category]bool),
	}
}

// Start launches the timer loop. One cycle runs immediately, then one per
// interval until ctx is cancelled. Category failures are contained inside the
// cycle; the timer itself never stops early.
func (s *Scheduler) Start(ctx context.Context) {
	s.wg.Add(1)
	go s.loop(ctx)
}

// Shutdown blocks until the loop and all in-flight category fetches finish.
func (s *Scheduler) Shutdown() {
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	s.log.InfoObj("scheduler started", "scheduler_start", map[string]any{
		"interval": s.interval.String(),
	})

	s.runCycle(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.InfoObj("scheduler stopped", "scheduler_stop", nil)
			return
		case <-ticker.C:
			s.runCycle(ctx)
		}
	}
}

// runCycle fires every category's fetch, fire-and-forget relative to its
// siblings. Categories still busy from a previous cycle are skipped.
func (s *Scheduler) runCycle(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	for _, category := range domain.Categories() {
		if !s.acquire(category) {
			s.log.DebugObj("category fetch still in flight, skipping", "cycle_overlap_skip", map[string]any{
				"category": string(category),
			})
			continue
		}

		s.wg.Add(1)
		go func(category domain.Category) {
			defer s.wg.Done()
			defer s.release(category)
			s.runCategory(ctx, category)
		}(category)
	}
}

func (s *Scheduler) runCategory(ctx context.Context, category domain.Category) {
	cctx, cancel := context.WithTimeout(ctx, s.cycleTimeout)
	defer cancel()

	outcome, err := s.fetcher.FetchCategory(cctx, category, defaultPage, defaultLimit)
	if err != nil {
		s.log.ErrorObj("category fetch cycle failed", "cycle_error", map[string]any{
			"category": string(category),
			"error":    err.Error(),
		})
		return
	}

	s.log.InfoObj("category fetch cycle complete", "cycle_complete", map[string]any{
		"category":  string(category),
		"successes": outcome.SuccessCount,
		"errors":    outcome.ErrorCount,
		"articles":  len(outcome.Articles),
	})
}

func (s *Scheduler) acquire(category domain.Category) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight[category] {
		return false
	}
	s.inFlight[category] = true
	return true
}

func (s *Scheduler) release(category domain.Category) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, category)
}
