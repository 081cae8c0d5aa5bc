package ingest

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/clubpulse/feedwire/internal/domain"
	"github.com/clubpulse/feedwire/internal/logger"
	"github.com/clubpulse/feedwire/pkg/httpclient"
)

const (
	maxHTMLBodyBytes = 1 << 20 // 1 MiB
	maxEnrichWorkers = 5
	defaultScrapeGap = 200 * time.Millisecond
)

// ThumbnailStore persists thumbnail updates discovered by enrichment.
type ThumbnailStore interface {
	UpdateArticleThumbnail(id int64, thumbnailURL string) error
}

// Enricher backfills thumbnails for articles whose feed carried none, by
// scraping the article page for an og:image. Failures leave the article
// untouched.
type Enricher struct {
	client httpclient.Client
	store  ThumbnailStore
	log    logger.Logger
	delay  time.Duration
}

// NewEnricher builds an Enricher. A nil client gets a default bounded client;
// a nil logger is replaced with a no-op.
func NewEnricher(client httpclient.Client, store ThumbnailStore, log logger.Logger) *Enricher {
	if client == nil {
		client = httpclient.NewRestyClient(DefaultFetchTimeout)
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Enricher{client: client, store: store, log: log, delay: defaultScrapeGap}
}

// Backfill scrapes thumbnails for the articles that lack one and returns the
// full list with any recovered thumbnails applied. Articles keep their
// original values on scrape failure or cancellation.
func (e *Enricher) Backfill(ctx context.Context, articles []domain.Article) []domain.Article {
	out := make([]domain.Article, len(articles))
	copy(out, articles)

	var pending []int
	for i, a := range articles {
		if a.ThumbnailURL == "" && a.ArticleURL != "" {
			pending = append(pending, i)
		}
	}
	if len(pending) == 0 {
		return out
	}

	workerCount := min(len(pending), maxEnrichWorkers)

	var limiter <-chan time.Time
	if e.delay > 0 {
		ticker := time.NewTicker(e.delay)
		limiter = ticker.C
		defer ticker.Stop()
	}

	jobCh := make(chan int)
	var wg sync.WaitGroup

	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go e.worker(ctx, limiter, jobCh, out, &wg)
	}

	// The send must stay cancellation-aware: workers stop consuming once ctx
	// is done, and an unconditional send would block forever.
feed:
	for _, idx := range pending {
		select {
		case jobCh <- idx:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobCh)

	wg.Wait()
	return out
}

// worker scrapes queued articles, respecting the rate limiter.
func (e *Enricher) worker(ctx context.Context, limiter <-chan time.Time, jobCh <-chan int, out []domain.Article, wg *sync.WaitGroup) {
	defer wg.Done()

	for idx := range jobCh {
		if ctx.Err() != nil {
			return
		}
		if limiter != nil {
			select {
			case <-ctx.Done():
				return
			case <-limiter:
			}
		}

		art := out[idx]
		thumb, err := e.scrapeThumbnail(ctx, art.ArticleURL)
		if err != nil {
			e.log.DebugObj("thumbnail scrape failed", "enrich_scrape_error", map[string]any{
				"article_id": art.ID,
				"url":        art.ArticleURL,
				"error":      err.Error(),
			})
			continue
		}
		if thumb == "" {
			continue
		}

		if e.store != nil {
			if err := e.store.UpdateArticleThumbnail(art.ID, thumb); err != nil {
				e.log.WarnObj("thumbnail persist failed", "enrich_persist_error", map[string]any{
					"article_id": art.ID,
					"error":      err.Error(),
				})
				continue
			}
		}
		art.ThumbnailURL = thumb
		out[idx] = art
	}
}

// scrapeThumbnail fetches the article page and pulls its og:image.
func (e *Enricher) scrapeThumbnail(ctx context.Context, articleURL string) (string, error) {
	resp, err := e.client.Get(ctx, articleURL, map[string]string{"User-Agent": userAgent})
	if err != nil {
		return "", fmt.Errorf("http fetch: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return "", fmt.Errorf("status %d", resp.StatusCode())
	}

	body := resp.Body()
	if len(body) > maxHTMLBodyBytes {
		body = body[:maxHTMLBodyBytes]
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	if node := doc.Find(`meta[property="og:image"]`).First(); node.Length() > 0 {
		if val, ok := node.Attr("content"); ok {
			return resolveURL(strings.TrimSpace(val), articleURL), nil
		}
	}
	return "", nil
}

// resolveURL resolves a possibly relative URL against a base URL.
func resolveURL(raw, base string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if parsed.IsAbs() {
		return parsed.String()
	}

	baseURL, err := url.Parse(base)
	if err != nil {
		return raw
	}
	return baseURL.ResolveReference(parsed).String()
}
