// Package publishers delivers ingested-article events to configured sinks:
// cloud queues (SQS, SNS, Pub/Sub) and generic HTTP endpoints. Delivery is
// best effort and never affects ingestion results.
package publishers

import (
	"context"
	"time"

	"github.com/clubpulse/feedwire/internal/domain"
	"github.com/clubpulse/feedwire/internal/logger"
)

// Event is the wire shape announced for every newly ingested article.
type Event struct {
	SourceID     int64     `json:"source_id"`
	Category     string    `json:"category"`
	OriginalID   string    `json:"original_id"`
	Title        string    `json:"title"`
	ArticleURL   string    `json:"article_url"`
	ThumbnailURL string    `json:"thumbnail_url,omitempty"`
	PublishedAt  time.Time `json:"published_at"`
}

// EventFromArticle builds the event announced for an ingested article.
func EventFromArticle(category domain.Category, a domain.Article) Event {
	return Event{
		SourceID:     a.SourceID,
		Category:     string(category),
		OriginalID:   a.OriginalID,
		Title:        a.Title,
		ArticleURL:   a.ArticleURL,
		ThumbnailURL: a.ThumbnailURL,
		PublishedAt:  a.PublishedAt,
	}
}

// Publisher delivers events to one configured sink.
type Publisher interface {
	ID() string
	Type() string
	Publish(ctx context.Context, evt Event) error
}

// Logger matches the service logger so sinks can log without importing it at
// every call site.
type Logger = logger.Logger

func ensureLogger(log Logger) Logger {
	if log == nil {
		return logger.NopLogger{}
	}
	return log
}

// Fanout forwards each ingested article to every publisher. It satisfies the
// fetcher's event sink; per-publisher failures are logged and swallowed.
type Fanout struct {
	pubs []Publisher
	log  Logger
}

// NewFanout builds a Fanout over the given publishers.
func NewFanout(pubs []Publisher, log Logger) *Fanout {
	return &Fanout{pubs: pubs, log: ensureLogger(log)}
}

// ArticleIngested announces one article to all publishers.
func (f *Fanout) ArticleIngested(ctx context.Context, category domain.Category, art domain.Article) {
	if len(f.pubs) == 0 {
		return
	}

	evt := EventFromArticle(category, art)
	for _, pub := range f.pubs {
		if err := pub.Publish(ctx, evt); err != nil {
			f.log.WarnObj("event delivery failed", "publisher_delivery_error", map[string]any{
				"publisher_id": pub.ID(),
				"article_url":  evt.ArticleURL,
				"error":        err.Error(),
			})
		}
	}
}
