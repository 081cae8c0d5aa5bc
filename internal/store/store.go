// Package store persists the feed-source registry and ingested articles in an
// embedded bbolt database.
package store

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/clubpulse/feedwire/internal/logger"
)

var (
	bucketSources    = []byte("sources")
	bucketSourceURLs = []byte("source_urls")
	bucketArticles   = []byte("articles")
	bucketArticleIdx = []byte("article_idx")
)

// ErrNotFound is returned when a lookup misses.
var ErrNotFound = errors.New("store: not found")

// ErrDuplicateFeedURL is returned when registering a source whose feed URL is
// already taken by another source.
var ErrDuplicateFeedURL = errors.New("store: feed url already registered")

// Store is the bbolt-backed persistence layer. Safe for concurrent use; bbolt
// serializes writers internally.
type Store struct {
	db  *bolt.DB
	log logger.Logger
}

// Open opens (creating if necessary) the database at path and ensures all
// buckets exist.
func Open(path string, log logger.Logger) (*Store, error) {
	if log == nil {
		log = logger.NopLogger{}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketSources, bucketSourceURLs, bucketArticles, bucketArticleIdx} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("create bucket %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, log: log}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// itob encodes an id as a big-endian key so bucket order matches insert order.
func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}
