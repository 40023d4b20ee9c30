package newsapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"NewsDigest/internal/config"
	"NewsDigest/internal/domain"
	"NewsDigest/internal/infrastructure/httpjson"
	"NewsDigest/internal/source"
)

const (
	kind = "newsapi"

	defaultQuery    = `("artificial intelligence" OR "machine learning" OR "deep learning" OR LLM OR "Generative AI")`
	defaultPageSize = 10
)

// Client fetches AI news from the newsapi.org "everything" endpoint.
type Client struct {
	baseURL string
	http    *httpjson.Client
}

var _ source.Fetcher = (*Client)(nil)

// NewClient builds a client from configuration; httpClient may be nil.
func NewClient(cfg config.NewsAPIConfig, httpClient *http.Client) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		http:    httpjson.NewClient(httpClient, 20*time.Second).WithHeader("X-Api-Key", cfg.APIKey),
	}
}

// Kind identifies the fetcher inside the registry.
func (c *Client) Kind() string { return kind }

type article struct {
	Source struct {
		Name string `json:"name"`
	} `json:"source"`
	Title       string  `json:"title"`
	Description *string `json:"description"`
	URL         string  `json:"url"`
	PublishedAt string  `json:"publishedAt"`
	Content     *string `json:"content"`
}

type response struct {
	Status       string    `json:"status"`
	TotalResults int       `json:"totalResults"`
	Articles     []article `json:"articles"`
	Code         string    `json:"code"`
	Message      string    `json:"message"`
}

// Fetch requests the latest articles matching the configured query.
// Options: query, language, sortBy, pageSize.
func (c *Client) Fetch(ctx context.Context, req source.Request) (domain.FetchResult, error) {
	endpoint, err := c.buildURL(req.Options)
	if err != nil {
		return domain.FetchResult{}, err
	}

	var resp response
	if err := c.http.Get(ctx, endpoint, &resp); err != nil {
		return domain.FetchResult{}, toFetchError(err)
	}
	if resp.Status == "error" {
		return domain.FetchResult{}, &source.FetchError{
			Source:     kind,
			StatusCode: http.StatusOK,
			Code:       resp.Code,
			Message:    resp.Message,
		}
	}

	articles := make([]domain.CandidateArticle, 0, len(resp.Articles))
	for _, a := range resp.Articles {
		articles = append(articles, domain.CandidateArticle{
			Title:       a.Title,
			Description: deref(a.Description),
			URL:         a.URL,
			PublishedAt: a.PublishedAt,
			Source:      domain.Source{Name: a.Source.Name},
			Content:     deref(a.Content),
		})
	}

	return domain.FetchResult{Articles: articles, TotalResults: resp.TotalResults}, nil
}

func (c *Client) buildURL(options map[string]string) (string, error) {
	parsed, err := url.Parse(c.baseURL + "/everything")
	if err != nil {
		return "", fmt.Errorf("invalid newsapi url %s: %w", c.baseURL, err)
	}

	pageSize := defaultPageSize
	if raw := options["pageSize"]; raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			pageSize = n
		}
	}

	q := parsed.Query()
	q.Set("q", option(options, "query", defaultQuery))
	q.Set("language", option(options, "language", "en"))
	q.Set("sortBy", option(options, "sortBy", "publishedAt"))
	q.Set("pageSize", strconv.Itoa(pageSize))
	parsed.RawQuery = q.Encode()
	return parsed.String(), nil
}

func toFetchError(err error) error {
	var statusErr *httpjson.StatusError
	if !errors.As(err, &statusErr) {
		return fmt.Errorf("newsapi request: %w", err)
	}

	fetchErr := &source.FetchError{Source: kind, StatusCode: statusErr.StatusCode, Message: statusErr.Status}
	var body response
	if json.Unmarshal(statusErr.Body, &body) == nil && body.Message != "" {
		fetchErr.Code = body.Code
		fetchErr.Message = body.Message
	}
	return fetchErr
}

func option(options map[string]string, key, fallback string) string {
	if v := options[key]; v != "" {
		return v
	}
	return fallback
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
