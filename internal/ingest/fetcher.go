// Package ingest implements the feed ingestion pipeline: fetch, parse,
// normalize, deduplicate, persist, cache.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/clubpulse/feedwire/internal/domain"
	"github.com/clubpulse/feedwire/internal/logger"
	"github.com/clubpulse/feedwire/pkg/httpclient"
)

const (
	// DefaultFetchTimeout bounds a single remote feed fetch.
	DefaultFetchTimeout = 10 * time.Second

	// DefaultCacheTTL bounds how long a cycle's result stays cached.
	DefaultCacheTTL = 30 * time.Second

	userAgent = "feedwire/1.0 (+https://github.com/clubpulse/feedwire)"
)

// SourceRegistry is the slice of the store the fetcher consumes.
type SourceRegistry interface {
	ListActiveByCategory(category domain.Category) ([]domain.FeedSource, error)
	UpdateSourceStatus(id int64, status domain.FetchStatus) error
}

// ArticleStore persists normalized articles idempotently.
type ArticleStore interface {
	UpsertArticle(a domain.Article) (domain.Article, bool, error)
}

// ResultCache receives the write-through copy of each cycle's articles.
type ResultCache interface {
	Set(key string, value []byte, ttl time.Duration)
}

// EventSink is notified of newly ingested articles. Implementations must not
// block ingestion on delivery failures.
type EventSink interface {
	ArticleIngested(ctx context.Context, category domain.Category, art domain.Article)
}

// Fetcher drives feed ingestion for one category at a time.
type Fetcher struct {
	sources  SourceRegistry
	articles ArticleStore
	cache    ResultCache
	client   httpclient.Client
	parser   *gofeed.Parser
	enricher *Enricher
	events   EventSink
	cacheTTL time.Duration
	log      logger.Logger
	now      func() time.Time
}

// Option configures optional fetcher collaborators.
type Option func(*Fetcher)

// WithCache attaches a result cache with the given TTL.
func WithCache(cache ResultCache, ttl time.Duration) Option {
	return func(f *Fetcher) {
		f.cache = cache
		if ttl > 0 {
			f.cacheTTL = ttl
		}
	}
}

// WithEnricher attaches a thumbnail backfill pass run after each cycle.
func WithEnricher(e *Enricher) Option {
	return func(f *Fetcher) { f.enricher = e }
}

// WithEventSink attaches a sink for ingested-article events.
func WithEventSink(sink EventSink) Option {
	return func(f *Fetcher) { f.events = sink }
}

// WithClock overrides the time source. Tests use this.
func WithClock(now func() time.Time) Option {
	return func(f *Fetcher) { f.now = now }
}

// NewFetcher builds a Fetcher. A nil client gets a default bounded client; a
// nil logger is replaced with a no-op.
func NewFetcher(sources SourceRegistry, articles ArticleStore, client httpclient.Client, log logger.Logger, opts ...Option) *Fetcher {
	if client == nil {
		client = httpclient.NewRestyClient(DefaultFetchTimeout)
	}
	if log == nil {
		log = logger.NopLogger{}
	}

	f := &Fetcher{
		sources:  sources,
		articles: articles,
		client:   client,
		parser:   gofeed.NewParser(),
		cacheTTL: DefaultCacheTTL,
		log:      log,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FetchCategory fetches every active source in the category, isolating
// failures per source, and returns the aggregated outcome. Page and limit do
// not paginate the live fetch; they only shape the cache key for downstream
// readers. An error is returned only when the registry itself is unreachable.
func (f *Fetcher) FetchCategory(ctx context.Context, category domain.Category, page, limit int) (domain.FetchOutcome, error) {
	srcs, err := f.sources.ListActiveByCategory(category)
	if err != nil {
		return domain.FetchOutcome{}, fmt.Errorf("list sources for %s: %w", category, err)
	}

	outcome := domain.FetchOutcome{Articles: []domain.Article{}}
	for _, src := range srcs {
		arts, err := f.fetchSource(ctx, category, src)
		if err != nil {
			outcome.ErrorCount++
			f.log.WarnObj("source fetch failed", "source_fetch_error", map[string]any{
				"source_id": src.ID,
				"feed_url":  src.FeedURL,
				"category":  string(category),
				"error":     err.Error(),
			})
			continue
		}
		outcome.SuccessCount++
		outcome.Articles = append(outcome.Articles, arts...)
	}

	if f.enricher != nil {
		outcome.Articles = f.enricher.Backfill(ctx, outcome.Articles)
	}

	f.cacheOutcome(category, page, limit, outcome)

	return outcome, nil
}

// fetchSource retrieves and ingests one feed. The source's status is recorded
// for every path: ERROR on fetch/parse failure (the error also propagates so
// the caller can tally it), EMPTY for a well-formed feed with no items, and
// SUCCESS with the count of items actually persisted.
func (f *Fetcher) fetchSource(ctx context.Context, category domain.Category, src domain.FeedSource) ([]domain.Article, error) {
	fctx, cancel := context.WithTimeout(ctx, DefaultFetchTimeout)
	defer cancel()

	headers := map[string]string{"User-Agent": userAgent}
	resp, err := f.client.Get(fctx, src.FeedURL, headers)
	if err != nil {
		f.setStatus(src.ID, domain.ErrorStatus(err.Error()))
		return nil, fmt.Errorf("fetch %s: %w", src.FeedURL, err)
	}
	if resp.StatusCode() != http.StatusOK {
		err := fmt.Errorf("feed returned status %d body: %s", resp.StatusCode(), responseSnippet(resp.Body()))
		f.setStatus(src.ID, domain.ErrorStatus(err.Error()))
		return nil, err
	}

	feed, err := f.parser.ParseString(string(resp.Body()))
	if err != nil {
		f.setStatus(src.ID, domain.ErrorStatus(err.Error()))
		return nil, fmt.Errorf("parse %s: %w", src.FeedURL, err)
	}

	if len(feed.Items) == 0 {
		f.setStatus(src.ID, domain.EmptyStatus())
		return nil, nil
	}

	ingested := make([]domain.Article, 0, len(feed.Items))
	for _, item := range feed.Items {
		art, err := f.normalizeItem(src, item)
		if err != nil {
			f.log.WarnObj("feed item skipped", "item_normalize_error", map[string]any{
				"source_id": src.ID,
				"title":     item.Title,
				"error":     err.Error(),
			})
			continue
		}

		persisted, created, err := f.articles.UpsertArticle(art)
		if err != nil {
			f.log.WarnObj("feed item persist failed", "item_persist_error", map[string]any{
				"source_id":   src.ID,
				"original_id": art.OriginalID,
				"error":       err.Error(),
			})
			continue
		}

		if created && f.events != nil {
			f.events.ArticleIngested(ctx, category, persisted)
		}
		ingested = append(ingested, persisted)
	}

	f.setStatus(src.ID, domain.SuccessStatus(len(ingested)))
	return ingested, nil
}

// cacheOutcome writes the cycle's articles through to the cache. Best effort:
// a failure here never affects the live result.
func (f *Fetcher) cacheOutcome(category domain.Category, page, limit int, outcome domain.FetchOutcome) {
	if f.cache == nil {
		return
	}

	payload, err := json.Marshal(outcome.Articles)
	if err != nil {
		f.log.WarnObj("cache encode failed", "cache_write_error", map[string]any{
			"category": string(category),
			"error":    err.Error(),
		})
		return
	}
	f.cache.Set(CacheKey(category, page, limit), payload, f.cacheTTL)
}

// setStatus records the fetch outcome on the source. A registry write failure
// is logged, not propagated; the fetch result stands on its own.
func (f *Fetcher) setStatus(sourceID int64, status domain.FetchStatus) {
	if err := f.sources.UpdateSourceStatus(sourceID, status); err != nil {
		f.log.WarnObj("source status update failed", "status_write_error", map[string]any{
			"source_id": sourceID,
			"status":    status.String(),
			"error":     err.Error(),
		})
	}
}

// CacheKey names the cache entry for a (category, page, limit) request.
func CacheKey(category domain.Category, page, limit int) string {
	return fmt.Sprintf("%s:%d:%d", category, page, limit)
}

// responseSnippet trims a response body for inclusion in error messages.
func responseSnippet(body []byte) string {
	const maxLen = 512
	s := strings.TrimSpace(string(body))
	if s == "" {
		return "<empty>"
	}
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	return s
}
