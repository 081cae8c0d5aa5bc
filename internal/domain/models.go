package domain

import (
	"fmt"
	"strings"
	"time"
)

// Domain contains core models shared across the ingestion pipeline.

// Category groups feed sources by editorial section.
type Category string

const (
	CategorySports        Category = "SPORTS"
	CategoryGeneral       Category = "GENERAL"
	CategoryBusiness      Category = "BUSINESS"
	CategoryEntertainment Category = "ENTERTAINMENT"
	CategoryNigeria       Category = "NIGERIA"
)

// Categories lists every category in a stable order.
func Categories() []Category {
	return []Category{
		CategorySports,
		CategoryGeneral,
		CategoryBusiness,
		CategoryEntertainment,
		CategoryNigeria,
	}
}

// ParseCategory resolves a category from its string form.
func ParseCategory(raw string) (Category, error) {
	c := Category(strings.ToUpper(strings.TrimSpace(raw)))
	for _, known := range Categories() {
		if c == known {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown category %q", raw)
}

// FeedSource is one admin-registered remote feed.
type FeedSource struct {
	ID              int64
	Name            string
	FeedURL         string
	Category        Category
	Active          bool
	LastFetchStatus string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Article is one normalized item ingested from a feed source.
type Article struct {
	ID           int64
	SourceID     int64
	OriginalID   string
	Title        string
	Summary      string
	Content      string
	ArticleURL   string
	ThumbnailURL string
	PublishedAt  time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// StatusKind discriminates the outcome of a single source fetch.
type StatusKind int

const (
	StatusSuccess StatusKind = iota
	StatusEmpty
	StatusError
)

// FetchStatus is the typed outcome recorded against a feed source after each
// fetch attempt.
type FetchStatus struct {
	Kind    StatusKind
	Count   int
	Message string
}

// SuccessStatus reports count items ingested from a source.
func SuccessStatus(count int) FetchStatus {
	return FetchStatus{Kind: StatusSuccess, Count: count}
}

// EmptyStatus reports a well-formed feed that carried no items.
func EmptyStatus() FetchStatus { return FetchStatus{Kind: StatusEmpty} }

// ErrorStatus reports a failed fetch or parse.
func ErrorStatus(message string) FetchStatus {
	return FetchStatus{Kind: StatusError, Message: message}
}

// String renders the admin-facing status text persisted on the source record.
func (s FetchStatus) String() string {
	switch s.Kind {
	case StatusSuccess:
		return fmt.Sprintf("SUCCESS: %d items", s.Count)
	case StatusEmpty:
		return "EMPTY"
	default:
		return "ERROR"
	}
}

// FetchOutcome aggregates one fetch cycle for one category.
type FetchOutcome struct {
	SuccessCount int
	ErrorCount   int
	Articles     []Article
}
