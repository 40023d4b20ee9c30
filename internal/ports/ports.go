package ports

import (
	"context"
	"time"

	"NewsDigest/internal/domain"
)

// ArticleSource pulls fresh candidate articles from an upstream provider.
type ArticleSource interface {
	Name() string
	Fetch(ctx context.Context) (domain.FetchResult, error)
}

// ArticleStore persists processed articles and answers existence queries.
// Lookups return nil without error when nothing matches.
type ArticleStore interface {
	FindByURL(ctx context.Context, url string) (*domain.MatchRecord, error)
	FindByTitleAndDay(ctx context.Context, normalizedTitle string, day domain.DayWindow) (*domain.MatchRecord, error)
	Save(ctx context.Context, url, title, publishedAt string) error
	Close() error
}

// Completer sends a single prompt to a language model and returns the free-text answer.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// RelevanceClassifier answers whether an article is on topic, as free text.
type RelevanceClassifier interface {
	Classify(ctx context.Context, article domain.CandidateArticle) (string, error)
}

// Summarizer generates a short natural-language summary of an article.
type Summarizer interface {
	Summarize(ctx context.Context, article domain.CandidateArticle) (string, error)
}

// Notifier delivers a rendered digest and returns the provider message identifier.
type Notifier interface {
	Send(ctx context.Context, msg domain.Message) (string, error)
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
