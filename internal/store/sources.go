package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/clubpulse/feedwire/internal/domain"
)

// PutSource inserts or updates a feed source. A zero ID inserts and assigns
// the next id; feed URLs stay unique across sources.
func (s *Store) PutSource(src domain.FeedSource) (domain.FeedSource, error) {
	src.FeedURL = strings.TrimSpace(src.FeedURL)
	if src.FeedURL == "" {
		return domain.FeedSource{}, fmt.Errorf("store: feed url is empty")
	}
	if _, err := domain.ParseCategory(string(src.Category)); err != nil {
		return domain.FeedSource{}, fmt.Errorf("store: %w", err)
	}

	err := s.db.Update(func(tx *bolt.Tx) error {
		sources := tx.Bucket(bucketSources)
		urls := tx.Bucket(bucketSourceURLs)

		if owner := urls.Get([]byte(src.FeedURL)); owner != nil {
			if src.ID == 0 || !bytes.Equal(owner, itob(uint64(src.ID))) {
				return ErrDuplicateFeedURL
			}
		}

		now := time.Now().UTC()
		if src.ID == 0 {
			seq, err := sources.NextSequence()
			if err != nil {
				return fmt.Errorf("next source id: %w", err)
			}
			src.ID = int64(seq)
			src.CreatedAt = now
		} else if prev, err := getSource(tx, src.ID); err == nil {
			src.CreatedAt = prev.CreatedAt
			// A URL change frees the old index entry.
			if prev.FeedURL != src.FeedURL {
				if err := urls.Delete([]byte(prev.FeedURL)); err != nil {
					return err
				}
			}
		}
		src.UpdatedAt = now

		raw, err := json.Marshal(src)
		if err != nil {
			return fmt.Errorf("encode source: %w", err)
		}
		if err := sources.Put(itob(uint64(src.ID)), raw); err != nil {
			return err
		}
		return urls.Put([]byte(src.FeedURL), itob(uint64(src.ID)))
	})
	if err != nil {
		return domain.FeedSource{}, err
	}
	return src, nil
}

// SourceByID loads one source.
func (s *Store) SourceByID(id int64) (domain.FeedSource, error) {
	var src domain.FeedSource
	err := s.db.View(func(tx *bolt.Tx) error {
		var err error
		src, err = getSource(tx, id)
		return err
	})
	return src, err
}

// ListActiveByCategory returns all active sources in the category, ordered by
// id.
func (s *Store) ListActiveByCategory(category domain.Category) ([]domain.FeedSource, error) {
	var out []domain.FeedSource
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSources).ForEach(func(_, v []byte) error {
			var src domain.FeedSource
			if err := json.Unmarshal(v, &src); err != nil {
				return fmt.Errorf("decode source: %w", err)
			}
			if src.Active && src.Category == category {
				out = append(out, src)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateSourceStatus records the outcome of the latest fetch attempt. The
// fetch pipeline is the only writer of this field.
func (s *Store) UpdateSourceStatus(id int64, status domain.FetchStatus) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		src, err := getSource(tx, id)
		if err != nil {
			return err
		}
		src.LastFetchStatus = status.String()
		src.UpdatedAt = time.Now().UTC()

		raw, err := json.Marshal(src)
		if err != nil {
			return fmt.Errorf("encode source: %w", err)
		}
		return tx.Bucket(bucketSources).Put(itob(uint64(id)), raw)
	})
}

func getSource(tx *bolt.Tx, id int64) (domain.FeedSource, error) {
	raw := tx.Bucket(bucketSources).Get(itob(uint64(id)))
	if raw == nil {
		return domain.FeedSource{}, ErrNotFound
	}
	var src domain.FeedSource
	if err := json.Unmarshal(raw, &src); err != nil {
		return domain.FeedSource{}, fmt.Errorf("decode source: %w", err)
	}
	return src, nil
}
