package ingest

import (
	"regexp"
	"strings"

	"github.com/mmcdole/gofeed"
)

var imgSrcPattern = regexp.MustCompile(`<img[^>]+src=["']([^"']+)["']`)

// extractThumbnail resolves a thumbnail URL for the item. The fallback chain
// is strict first-match-wins: enclosure, media:thumbnail, media:content, then
// the first <img src> in the item body.
func extractThumbnail(item *gofeed.Item) string {
	for _, enc := range item.Enclosures {
		if enc == nil {
			continue
		}
		if u := strings.TrimSpace(enc.URL); u != "" {
			return u
		}
	}

	if u := mediaExtensionURL(item, "thumbnail"); u != "" {
		return u
	}
	if u := mediaExtensionURL(item, "content"); u != "" {
		return u
	}

	for _, body := range []string{item.Content, item.Description} {
		if body == "" {
			continue
		}
		if m := imgSrcPattern.FindStringSubmatch(body); m != nil {
			return m[1]
		}
	}
	return ""
}

// mediaExtensionURL pulls the url attribute of the first media:<name> element.
func mediaExtensionURL(item *gofeed.Item, name string) string {
	media, ok := item.Extensions["media"]
	if !ok {
		return ""
	}
	for _, ext := range media[name] {
		if u := strings.TrimSpace(ext.Attrs["url"]); u != "" {
			return u
		}
	}
	return ""
}
