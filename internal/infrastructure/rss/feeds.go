package rss

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/source"
)

const kind = "rss"

// Reader turns configured RSS/Atom feeds into candidate articles.
type Reader struct {
	client *http.Client
}

var _ source.Fetcher = (*Reader)(nil)

// NewReader wires an HTTP client used for every feed request.
func NewReader(client *http.Client) *Reader {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &Reader{client: client}
}

// Kind identifies the fetcher inside the registry.
func (r *Reader) Kind() string { return kind }

// Fetch reads every feed of the request in order. The feed title is used as
// the article source unless the feed config names one.
func (r *Reader) Fetch(ctx context.Context, req source.Request) (domain.FetchResult, error) {
	if len(req.Feeds) == 0 {
		return domain.FetchResult{}, fmt.Errorf("no feeds provided for source %s", req.SourceName)
	}

	parser := gofeed.NewParser()
	parser.Client = r.client

	var articles []domain.CandidateArticle
	for _, feed := range req.Feeds {
		parsed, err := parser.ParseURLWithContext(feed.URL, ctx)
		if err != nil {
			return domain.FetchResult{}, fmt.Errorf("feed %s: %w", feed.URL, err)
		}

		name := feed.Name
		if name == "" {
			name = strings.TrimSpace(parsed.Title)
		}

		for _, item := range parsed.Items {
			if item == nil {
				continue
			}
			articles = append(articles, domain.CandidateArticle{
				Title:       strings.TrimSpace(item.Title),
				Description: item.Description,
				URL:         strings.TrimSpace(item.Link),
				PublishedAt: publishedAt(item),
				Source:      domain.Source{Name: name},
				Content:     item.Content,
			})
		}
	}

	return domain.FetchResult{Articles: articles, TotalResults: len(articles)}, nil
}

func publishedAt(item *gofeed.Item) string {
	switch {
	case item.PublishedParsed != nil:
		return item.PublishedParsed.UTC().Format(time.RFC3339)
	case item.UpdatedParsed != nil:
		return item.UpdatedParsed.UTC().Format(time.RFC3339)
	default:
		return item.Published
	}
}
