package store

import (
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/clubpulse/feedwire/internal/domain"
)

// naturalKey builds the dedup key for an article. SourceID plus the feed
// item's own identifier uniquely names an ingested item.
func naturalKey(sourceID int64, originalID string) []byte {
	return fmt.Appendf(nil, "%d|%s", sourceID, originalID)
}

// UpsertArticle persists an article keyed by (sourceID, originalID). A second
// sighting of the same key updates the mutable fields in place instead of
// inserting a duplicate. Returns the stored article and whether a new row was
// created.
func (s *Store) UpsertArticle(a domain.Article) (domain.Article, bool, error) {
	if a.SourceID == 0 || a.OriginalID == "" {
		return domain.Article{}, false, fmt.Errorf("store: article natural key incomplete")
	}

	var created bool
	err := s.db.Update(func(tx *bolt.Tx) error {
		articles := tx.Bucket(bucketArticles)
		idx := tx.Bucket(bucketArticleIdx)
		key := naturalKey(a.SourceID, a.OriginalID)
		now := time.Now().UTC()

		if existingID := idx.Get(key); existingID != nil {
			raw := articles.Get(existingID)
			if raw == nil {
				return fmt.Errorf("store: article index points at missing row")
			}
			var existing domain.Article
			if err := json.Unmarshal(raw, &existing); err != nil {
				return fmt.Errorf("decode article: %w", err)
			}

			existing.Title = a.Title
			existing.Summary = a.Summary
			existing.Content = a.Content
			existing.ThumbnailURL = a.ThumbnailURL
			existing.PublishedAt = a.PublishedAt
			existing.ArticleURL = a.ArticleURL
			existing.UpdatedAt = now
			a = existing
			return putArticle(articles, a)
		}

		seq, err := articles.NextSequence()
		if err != nil {
			return fmt.Errorf("next article id: %w", err)
		}
		a.ID = int64(seq)
		a.CreatedAt = now
		a.UpdatedAt = now
		created = true

		if err := putArticle(articles, a); err != nil {
			return err
		}
		return idx.Put(key, itob(uint64(a.ID)))
	})
	if err != nil {
		return domain.Article{}, false, err
	}
	return a, created, nil
}

// ArticleByNaturalKey loads the article stored for (sourceID, originalID).
func (s *Store) ArticleByNaturalKey(sourceID int64, originalID string) (domain.Article, error) {
	var out domain.Article
	err := s.db.View(func(tx *bolt.Tx) error {
		id := tx.Bucket(bucketArticleIdx).Get(naturalKey(sourceID, originalID))
		if id == nil {
			return ErrNotFound
		}
		raw := tx.Bucket(bucketArticles).Get(id)
		if raw == nil {
			return ErrNotFound
		}
		return json.Unmarshal(raw, &out)
	})
	return out, err
}

// ListArticlesBySource returns every article ingested from the source.
func (s *Store) ListArticlesBySource(sourceID int64) ([]domain.Article, error) {
	var out []domain.Article
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketArticles).ForEach(func(_, v []byte) error {
			var a domain.Article
			if err := json.Unmarshal(v, &a); err != nil {
				return fmt.Errorf("decode article: %w", err)
			}
			if a.SourceID == sourceID {
				out = append(out, a)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CountArticlesBySource reports how many rows exist for the source.
func (s *Store) CountArticlesBySource(sourceID int64) (int, error) {
	articles, err := s.ListArticlesBySource(sourceID)
	if err != nil {
		return 0, err
	}
	return len(articles), nil
}

// UpdateArticleThumbnail sets the thumbnail on an already-persisted article.
// Used by the enrichment pass; a missing row is not an error there.
func (s *Store) UpdateArticleThumbnail(id int64, thumbnailURL string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		articles := tx.Bucket(bucketArticles)
		raw := articles.Get(itob(uint64(id)))
		if raw == nil {
			return ErrNotFound
		}
		var a domain.Article
		if err := json.Unmarshal(raw, &a); err != nil {
			return fmt.Errorf("decode article: %w", err)
		}
		a.ThumbnailURL = thumbnailURL
		a.UpdatedAt = time.Now().UTC()
		return putArticle(articles, a)
	})
}

func putArticle(b *bolt.Bucket, a domain.Article) error {
	raw, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encode article: %w", err)
	}
	return b.Put(itob(uint64(a.ID)), raw)
}
