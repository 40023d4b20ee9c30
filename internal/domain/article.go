package domain

import (
	"errors"
	"time"
)

// ErrDuplicateKey is returned by stores when a processed article with the same URL already exists.
var ErrDuplicateKey = errors.New("processed article already exists")

// Source names the publisher an article came from.
type Source struct {
	Name string `json:"name"`
}

// CandidateArticle is a fetched item that has not been deduplicated yet.
// Description and Content are optional; an empty string means the source did not supply them.
// PublishedAt keeps the timestamp exactly as the source reported it.
type CandidateArticle struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	URL         string `json:"url"`
	PublishedAt string `json:"publishedAt"`
	Source      Source `json:"source"`
	Content     string `json:"content,omitempty"`
}

// FetchResult is what a source returns for one fetch cycle.
type FetchResult struct {
	Articles     []CandidateArticle
	TotalResults int
}

// ProcessedArticle is the persisted record marking an article as handled.
type ProcessedArticle struct {
	ID              int64     `db:"id"`
	URL             string    `db:"url"`
	Title           string    `db:"title"`
	NormalizedTitle string    `db:"normalized_title"`
	PublishedAt     string    `db:"published_at"`
	ProcessedAt     time.Time `db:"processed_at"`
}

// MatchRecord is the subset of a stored article returned by existence lookups.
type MatchRecord struct {
	URL         string    `db:"url"`
	Title       string    `db:"title"`
	ProcessedAt time.Time `db:"processed_at"`
}

// DayWindow is a half-open calendar day range [Start, End) in YYYY-MM-DD form.
type DayWindow struct {
	Start string
	End   string
}

// MatchedBy tells which rule identified a duplicate.
type MatchedBy string

const (
	MatchedByNone         MatchedBy = "none"
	MatchedByURL          MatchedBy = "url"
	MatchedByTitleAndDate MatchedBy = "title_and_date"
)

// DedupResult describes the outcome of checking a single candidate against history.
type DedupResult struct {
	Exists        bool
	MatchedBy     MatchedBy
	ExistingURL   string
	ExistingTitle string
	ProcessedAt   time.Time
}

// ArticleSummary is a summarized article ready for the digest.
type ArticleSummary struct {
	Title       string
	Source      string
	URL         string
	PublishedAt string
	Summary     string
}

// Message is a rendered digest handed to a notifier.
type Message struct {
	Subject string
	HTML    string
	Text    string
}
