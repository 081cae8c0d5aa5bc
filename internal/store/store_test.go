package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clubpulse/feedwire/internal/domain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutSourceAssignsIDAndTimestamps(t *testing.T) {
	s := openTestStore(t)

	src, err := s.PutSource(domain.FeedSource{
		Name:     "Example",
		FeedURL:  "https://example.com/rss",
		Category: domain.CategorySports,
		Active:   true,
	})
	require.NoError(t, err)

	assert.NotZero(t, src.ID)
	assert.False(t, src.CreatedAt.IsZero())

	loaded, err := s.SourceByID(src.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/rss", loaded.FeedURL)
}

func TestPutSourceRejectsDuplicateFeedURL(t *testing.T) {
	s := openTestStore(t)

	_, err := s.PutSource(domain.FeedSource{Name: "A", FeedURL: "https://example.com/rss", Category: domain.CategorySports})
	require.NoError(t, err)

	_, err = s.PutSource(domain.FeedSource{Name: "B", FeedURL: "https://example.com/rss", Category: domain.CategoryGeneral})
	require.ErrorIs(t, err, ErrDuplicateFeedURL)
}

func TestPutSourceRejectsUnknownCategory(t *testing.T) {
	s := openTestStore(t)

	_, err := s.PutSource(domain.FeedSource{FeedURL: "https://example.com/rss", Category: "WEATHER"})
	require.Error(t, err)
}

func TestListActiveByCategory(t *testing.T) {
	s := openTestStore(t)

	mustPut := func(name, url string, cat domain.Category, active bool) {
		t.Helper()
		_, err := s.PutSource(domain.FeedSource{Name: name, FeedURL: url, Category: cat, Active: active})
		require.NoError(t, err)
	}
	mustPut("sports-active", "https://a.example.com/rss", domain.CategorySports, true)
	mustPut("sports-inactive", "https://b.example.com/rss", domain.CategorySports, false)
	mustPut("general", "https://c.example.com/rss", domain.CategoryGeneral, true)

	got, err := s.ListActiveByCategory(domain.CategorySports)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "sports-active", got[0].Name)
}

func TestUpdateSourceStatus(t *testing.T) {
	s := openTestStore(t)

	src, err := s.PutSource(domain.FeedSource{FeedURL: "https://example.com/rss", Category: domain.CategorySports})
	require.NoError(t, err)

	require.NoError(t, s.UpdateSourceStatus(src.ID, domain.SuccessStatus(12)))

	loaded, err := s.SourceByID(src.ID)
	require.NoError(t, err)
	assert.Equal(t, "SUCCESS: 12 items", loaded.LastFetchStatus)

	require.NoError(t, s.UpdateSourceStatus(src.ID, domain.EmptyStatus()))
	loaded, err = s.SourceByID(src.ID)
	require.NoError(t, err)
	assert.Equal(t, "EMPTY", loaded.LastFetchStatus)
}

func TestUpdateSourceStatusMissingSource(t *testing.T) {
	s := openTestStore(t)
	require.ErrorIs(t, s.UpdateSourceStatus(99, domain.ErrorStatus("x")), ErrNotFound)
}

func TestUpsertArticleCreatesThenUpdates(t *testing.T) {
	s := openTestStore(t)

	first, created, err := s.UpsertArticle(domain.Article{
		SourceID:   1,
		OriginalID: "abc",
		Title:      "Win",
		ArticleURL: "https://example.com/a",
	})
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotZero(t, first.ID)

	second, created, err := s.UpsertArticle(domain.Article{
		SourceID:     1,
		OriginalID:   "abc",
		Title:        "Win (updated)",
		ArticleURL:   "https://example.com/a",
		ThumbnailURL: "https://img.example.com/t.jpg",
	})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Win (updated)", second.Title)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)

	count, err := s.CountArticlesBySource(1)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestUpsertArticleDistinctKeysCreateRows(t *testing.T) {
	s := openTestStore(t)

	_, _, err := s.UpsertArticle(domain.Article{SourceID: 1, OriginalID: "a", ArticleURL: "https://example.com/a"})
	require.NoError(t, err)
	_, _, err = s.UpsertArticle(domain.Article{SourceID: 1, OriginalID: "b", ArticleURL: "https://example.com/b"})
	require.NoError(t, err)
	_, _, err = s.UpsertArticle(domain.Article{SourceID: 2, OriginalID: "a", ArticleURL: "https://example.com/a"})
	require.NoError(t, err)

	count, err := s.CountArticlesBySource(1)
	require.NoError(t, err)
	assert.Equal(t, 2, count, "same originalID under another source is a distinct article")
}

func TestUpsertArticleRequiresNaturalKey(t *testing.T) {
	s := openTestStore(t)

	_, _, err := s.UpsertArticle(domain.Article{OriginalID: "abc"})
	require.Error(t, err)
	_, _, err = s.UpsertArticle(domain.Article{SourceID: 1})
	require.Error(t, err)
}

func TestUpdateArticleThumbnail(t *testing.T) {
	s := openTestStore(t)

	art, _, err := s.UpsertArticle(domain.Article{SourceID: 1, OriginalID: "abc", ArticleURL: "https://example.com/a"})
	require.NoError(t, err)

	require.NoError(t, s.UpdateArticleThumbnail(art.ID, "https://img.example.com/og.jpg"))

	loaded, err := s.ArticleByNaturalKey(1, "abc")
	require.NoError(t, err)
	assert.Equal(t, "https://img.example.com/og.jpg", loaded.ThumbnailURL)
}
