package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/clubpulse/feedwire/internal/domain"
)

// stubFetcher counts fetches per category and can block until released.
type stubFetcher struct {
	mu      sync.Mutex
	calls   map[domain.Category]int
	block   chan struct{}
	failing map[domain.Category]bool
}

func newStubFetcher() *stubFetcher {
	return &stubFetcher{calls: make(map[domain.Category]int)}
}

func (s *stubFetcher) FetchCategory(_ context.Context, category domain.Category, _, _ int) (domain.FetchOutcome, error) {
	s.mu.Lock()
	s.calls[category]++
	failing := s.failing[category]
	block := s.block
	s.mu.Unlock()

	if block != nil {
		<-block
	}
	if failing {
		return domain.FetchOutcome{}, errors.New("boom")
	}
	return domain.FetchOutcome{SuccessCount: 1}, nil
}

func (s *stubFetcher) callCount(category domain.Category) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[category]
}

func TestRunCycleFetchesEveryCategory(t *testing.T) {
	fetcher := newStubFetcher()
	s := New(fetcher, time.Hour, nil)

	s.runCycle(context.Background())
	s.wg.Wait()

	for _, category := range domain.Categories() {
		assert.Equal(t, 1, fetcher.callCount(category), "category %s", category)
	}
}

func TestRunCycleSkipsInFlightCategory(t *testing.T) {
	fetcher := newStubFetcher()
	fetcher.block = make(chan struct{})
	s := New(fetcher, time.Hour, nil)

	s.runCycle(context.Background())
	// Second cycle fires while every category from the first is still blocked.
	s.runCycle(context.Background())

	close(fetcher.block)
	s.wg.Wait()

	for _, category := range domain.Categories() {
		assert.Equal(t, 1, fetcher.callCount(category), "overlapping fetch for %s must be skipped", category)
	}
}

func TestCategoryFailureDoesNotAffectSiblings(t *testing.T) {
	fetcher := newStubFetcher()
	fetcher.failing = map[domain.Category]bool{domain.CategorySports: true}
	s := New(fetcher, time.Hour, nil)

	s.runCycle(context.Background())
	s.wg.Wait()

	for _, category := range domain.Categories() {
		assert.Equal(t, 1, fetcher.callCount(category))
	}

	// A later cycle still runs the failed category again.
	s.runCycle(context.Background())
	s.wg.Wait()
	assert.Equal(t, 2, fetcher.callCount(domain.CategorySports))
}

func TestStartRunsImmediatelyAndStops(t *testing.T) {
	fetcher := newStubFetcher()
	s := New(fetcher, time.Hour, nil)

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)

	deadline := time.After(2 * time.Second)
	for fetcher.callCount(domain.CategorySports) == 0 {
		select {
		case <-deadline:
			t.Fatal("initial cycle never ran")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	s.Shutdown()
}

func TestNewDefaultsInterval(t *testing.T) {
	s := New(newStubFetcher(), 0, nil)
	assert.Equal(t, DefaultInterval, s.interval)
}
