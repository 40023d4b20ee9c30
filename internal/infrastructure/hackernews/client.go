package hackernews

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"

	"NewsDigest/internal/config"
	"NewsDigest/internal/domain"
	"NewsDigest/internal/infrastructure/httpjson"
	"NewsDigest/internal/source"
)

const (
	kind          = "hackernews"
	sourceName    = "Hacker News"
	itemURLFormat = "https://news.ycombinator.com/item?id=%d"

	defaultLimit       = 20
	defaultConcurrency = 8
)

var defaultKeywords = []string{
	"ai", "artificial intelligence", "machine learning", "llm", "gpt",
	"openai", "anthropic", "neural", "deep learning", "transformer",
}

// Client reads top stories from the Hacker News Firebase API and keeps the AI-related ones.
type Client struct {
	baseURL string
	http    *httpjson.Client
}

var _ source.Fetcher = (*Client)(nil)

// NewClient builds a client from configuration; httpClient may be nil.
func NewClient(cfg config.HackerNewsConfig, httpClient *http.Client) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    httpjson.NewClient(httpClient, 20*time.Second),
	}
}

// Kind identifies the fetcher inside the registry.
func (c *Client) Kind() string { return kind }

type item struct {
	ID    int64  `json:"id"`
	Type  string `json:"type"`
	Title string `json:"title"`
	URL   string `json:"url"`
	Text  string `json:"text"`
	Time  int64  `json:"time"`
	Dead  bool   `json:"dead"`
}

// Fetch loads up to limit top stories and filters them by keyword.
// Options: limit, keywords (comma separated).
func (c *Client) Fetch(ctx context.Context, req source.Request) (domain.FetchResult, error) {
	limit := defaultLimit
	if raw := req.Options["limit"]; raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	keywords := defaultKeywords
	if raw := req.Options["keywords"]; raw != "" {
		keywords = splitKeywords(raw)
	}

	var ids []int64
	if err := c.http.Get(ctx, c.baseURL+"/topstories.json", &ids); err != nil {
		return domain.FetchResult{}, toFetchError(err)
	}
	if len(ids) > limit {
		ids = ids[:limit]
	}

	items := make([]*item, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(defaultConcurrency)

	for i, id := range ids {
		g.Go(func() error {
			var it item
			if err := c.http.Get(gctx, fmt.Sprintf("%s/item/%d.json", c.baseURL, id), &it); err != nil {
				return toFetchError(err)
			}
			items[i] = &it
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.FetchResult{}, err
	}

	articles := make([]domain.CandidateArticle, 0, len(items))
	for _, it := range items {
		if it == nil || it.Dead || it.Type != "story" {
			continue
		}
		text := plainText(it.Text)
		if !matches(it.Title+" "+text, keywords) {
			continue
		}

		link := it.URL
		if link == "" {
			link = fmt.Sprintf(itemURLFormat, it.ID)
		}

		articles = append(articles, domain.CandidateArticle{
			Title:       it.Title,
			Description: text,
			URL:         link,
			PublishedAt: time.Unix(it.Time, 0).UTC().Format(time.RFC3339),
			Source:      domain.Source{Name: sourceName},
		})
	}

	return domain.FetchResult{Articles: articles, TotalResults: len(articles)}, nil
}

// plainText flattens the HTML body of self posts.
func plainText(raw string) string {
	if raw == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return raw
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

// matches reports whether any keyword occurs as a whole word in text.
func matches(text string, keywords []string) bool {
	padded := " " + normalizeWords(text) + " "
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		if strings.Contains(padded, " "+normalizeWords(kw)+" ") {
			return true
		}
	}
	return false
}

func normalizeWords(s string) string {
	return strings.Join(strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	}), " ")
}

func splitKeywords(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func toFetchError(err error) error {
	var statusErr *httpjson.StatusError
	if errors.As(err, &statusErr) {
		return &source.FetchError{Source: kind, StatusCode: statusErr.StatusCode, Message: statusErr.Status}
	}
	return fmt.Errorf("hackernews request: %w", err)
}
