package ingest

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/clubpulse/feedwire/internal/domain"
)

// ErrMissingArticleURL marks an item that carries no usable link. The item is
// skipped; its siblings are unaffected.
var ErrMissingArticleURL = errors.New("feed item has no article url")

// normalizeItem maps one parsed feed item to the canonical article shape.
// Each field falls back through the dialect variants in a fixed order.
func (f *Fetcher) normalizeItem(src domain.FeedSource, item *gofeed.Item) (domain.Article, error) {
	articleURL := strings.TrimSpace(item.Link)
	if articleURL == "" {
		return domain.Article{}, ErrMissingArticleURL
	}

	originalID := strings.TrimSpace(item.GUID)
	if originalID == "" {
		originalID = articleURL
	}
	if originalID == "" {
		// Last resort: a timestamp key. Not stable across fetches, so such
		// feeds can produce duplicate rows; surfaced at WARN rather than
		// papered over. With the link required above this cannot fire today,
		// but the chain is kept intact should the URL rule ever loosen.
		originalID = fmt.Sprintf("fallback:%d", f.now().UnixNano())
		f.log.WarnObj("feed item has no stable identifier", "unstable_item_key", map[string]any{
			"source_id": src.ID,
			"title":     item.Title,
		})
	}

	title := strings.TrimSpace(item.Title)
	if title == "" {
		title = "No title"
	}

	summary := strings.TrimSpace(item.Description)

	content := strings.TrimSpace(item.Content)
	if content == "" {
		content = summary
	}

	publishedAt := f.now()
	if item.PublishedParsed != nil {
		publishedAt = *item.PublishedParsed
	}

	return domain.Article{
		SourceID:     src.ID,
		OriginalID:   originalID,
		Title:        title,
		Summary:      summary,
		Content:      content,
		ArticleURL:   articleURL,
		ThumbnailURL: extractThumbnail(item),
		PublishedAt:  publishedAt,
	}, nil
}
