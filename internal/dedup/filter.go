package dedup

import (
	"context"
	"fmt"
	"log/slog"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/ports"
)

// Skipped records a candidate that matched an already processed article.
type Skipped struct {
	Title       string
	URL         string
	MatchedBy   domain.MatchedBy
	ExistingURL string
}

// Failure records a candidate whose lookup failed; it is neither new nor skipped.
type Failure struct {
	Title string
	URL   string
	Err   error
}

// Result partitions a batch. New and Skipped keep the input order.
type Result struct {
	New     []domain.CandidateArticle
	Skipped []Skipped
	Failed  []Failure
}

// Filter checks candidates against the article store.
type Filter struct {
	store  ports.ArticleStore
	logger *slog.Logger
}

// NewFilter wires the store used for existence lookups.
func NewFilter(store ports.ArticleStore, logger *slog.Logger) *Filter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Filter{store: store, logger: logger}
}

// Check looks a single candidate up by URL and then by normalized title and publish day.
func (f *Filter) Check(ctx context.Context, candidate domain.CandidateArticle) (domain.DedupResult, error) {
	match, err := f.store.FindByURL(ctx, candidate.URL)
	if err != nil {
		return domain.DedupResult{}, fmt.Errorf("lookup url %s: %w", candidate.URL, err)
	}
	if match != nil {
		return matched(domain.MatchedByURL, match), nil
	}

	if candidate.Title == "" || candidate.PublishedAt == "" {
		return domain.DedupResult{MatchedBy: domain.MatchedByNone}, nil
	}

	date := DateOnly(candidate.PublishedAt)
	window, ok := DayWindow(date)
	if !ok {
		f.logger.Warn("publish date unusable, matching by url only",
			"url", candidate.URL,
			"published_at", candidate.PublishedAt,
			"extracted", date)
		return domain.DedupResult{MatchedBy: domain.MatchedByNone}, nil
	}

	match, err = f.store.FindByTitleAndDay(ctx, NormalizeTitle(candidate.Title), window)
	if err != nil {
		return domain.DedupResult{}, fmt.Errorf("lookup title %q on %s: %w", candidate.Title, window.Start, err)
	}
	if match != nil {
		return matched(domain.MatchedByTitleAndDate, match), nil
	}

	return domain.DedupResult{MatchedBy: domain.MatchedByNone}, nil
}

// Apply partitions candidates into new and already seen ones.
// A failed lookup drops only that candidate; the rest of the batch is still checked.
func (f *Filter) Apply(ctx context.Context, candidates []domain.CandidateArticle) Result {
	var result Result

	for _, candidate := range candidates {
		check, err := f.Check(ctx, candidate)
		if err != nil {
			f.logger.Error("dedup lookup failed", "title", candidate.Title, "url", candidate.URL, "error", err)
			result.Failed = append(result.Failed, Failure{Title: candidate.Title, URL: candidate.URL, Err: err})
			continue
		}

		if !check.Exists {
			result.New = append(result.New, candidate)
			continue
		}

		f.logger.Info("skipping duplicate",
			"title", candidate.Title,
			"matched_by", check.MatchedBy,
			"existing_url", check.ExistingURL)
		result.Skipped = append(result.Skipped, Skipped{
			Title:       candidate.Title,
			URL:         candidate.URL,
			MatchedBy:   check.MatchedBy,
			ExistingURL: check.ExistingURL,
		})
	}

	return result
}

func matched(by domain.MatchedBy, record *domain.MatchRecord) domain.DedupResult {
	return domain.DedupResult{
		Exists:        true,
		MatchedBy:     by,
		ExistingURL:   record.URL,
		ExistingTitle: record.Title,
		ProcessedAt:   record.ProcessedAt,
	}
}
