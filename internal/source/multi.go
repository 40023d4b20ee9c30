package source

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/sync/errgroup"

	"NewsDigest/internal/config"
	"NewsDigest/internal/domain"
	"NewsDigest/internal/ports"
)

// MultiSource implements ArticleSource by fanning out to every configured source.
type MultiSource struct {
	registry *Registry
	sources  []config.SourceConfig
	policy   *bluemonday.Policy
	logger   *slog.Logger
}

var _ ports.ArticleSource = (*MultiSource)(nil)

// NewMultiSource wires the fetcher registry with config-defined sources.
func NewMultiSource(reg *Registry, sources []config.SourceConfig, log *slog.Logger) *MultiSource {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &MultiSource{
		registry: reg,
		sources:  sources,
		policy:   bluemonday.StrictPolicy(),
		logger:   log,
	}
}

func (m *MultiSource) Name() string { return "all" }

// Fetch runs all sources in parallel and merges their articles in configuration order.
// Any source failure fails the whole fetch.
func (m *MultiSource) Fetch(ctx context.Context) (domain.FetchResult, error) {
	if m.registry == nil {
		return domain.FetchResult{}, fmt.Errorf("fetcher registry is not configured")
	}
	if len(m.sources) == 0 {
		return domain.FetchResult{}, fmt.Errorf("no sources configured")
	}

	fetchers := make([]Fetcher, len(m.sources))
	for i, src := range m.sources {
		fetcher, err := m.registry.Resolve(src.Kind)
		if err != nil {
			return domain.FetchResult{}, fmt.Errorf("source %s: %w", src.Name, err)
		}
		fetchers[i] = fetcher
	}

	results := make([]domain.FetchResult, len(m.sources))
	g, gctx := errgroup.WithContext(ctx)

	for i, src := range m.sources {
		fetcher := fetchers[i]
		req := Request{
			SourceName: src.Name,
			Feeds:      toFeeds(src.Feeds),
			Options:    src.Options,
		}

		g.Go(func() error {
			m.logger.Debug("fetch source", "source", src.Name, "kind", src.Kind)
			res, err := fetcher.Fetch(gctx, req)
			if err != nil {
				return fmt.Errorf("fetch source %s: %w", src.Name, err)
			}
			m.logger.Debug("source produced articles", "source", src.Name, "count", len(res.Articles))
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return domain.FetchResult{}, err
	}

	var merged domain.FetchResult
	for _, res := range results {
		merged.Articles = append(merged.Articles, res.Articles...)
		merged.TotalResults += res.TotalResults
	}
	merged.Articles = m.validate(merged.Articles)

	m.logger.Debug("fetch done", "articles", len(merged.Articles), "total_results", merged.TotalResults)
	return merged, nil
}

// validate drops records without a URL, collapses repeated URLs and strips markup from text fields.
func (m *MultiSource) validate(articles []domain.CandidateArticle) []domain.CandidateArticle {
	seen := make(map[string]struct{}, len(articles))
	out := make([]domain.CandidateArticle, 0, len(articles))

	for _, article := range articles {
		article.URL = strings.TrimSpace(article.URL)
		if article.URL == "" {
			m.logger.Warn("dropping article without url", "title", article.Title, "source", article.Source.Name)
			continue
		}
		if _, ok := seen[article.URL]; ok {
			m.logger.Debug("dropping repeated url", "url", article.URL, "source", article.Source.Name)
			continue
		}
		seen[article.URL] = struct{}{}

		article.Title = m.plain(article.Title)
		article.Description = m.plain(article.Description)
		article.Content = m.plain(article.Content)
		out = append(out, article)
	}

	return out
}

func (m *MultiSource) plain(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(m.policy.Sanitize(s)))
}

func toFeeds(cfg []config.FeedConfig) []Feed {
	feeds := make([]Feed, 0, len(cfg))
	for _, feed := range cfg {
		feeds = append(feeds, Feed{
			Name: feed.Name,
			URL:  feed.URL,
		})
	}
	return feeds
}
