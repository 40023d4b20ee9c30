package source

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsDigest/internal/config"
	"NewsDigest/internal/domain"
)

type stubFetcher struct {
	kind     string
	articles []domain.CandidateArticle
	err      error
	requests []Request
}

func (s *stubFetcher) Kind() string { return s.kind }

func (s *stubFetcher) Fetch(_ context.Context, req Request) (domain.FetchResult, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return domain.FetchResult{}, s.err
	}
	return domain.FetchResult{Articles: s.articles, TotalResults: len(s.articles) * 10}, nil
}

func TestRegistryResolve(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	reg.Register(&stubFetcher{kind: "rss"})

	f, err := reg.Resolve("rss")
	require.NoError(t, err)
	assert.Equal(t, "rss", f.Kind())

	_, err = reg.Resolve("gopher")
	require.Error(t, err)
}

func TestMultiSourceMergesInConfigOrder(t *testing.T) {
	t.Parallel()

	news := &stubFetcher{kind: "newsapi", articles: []domain.CandidateArticle{
		{Title: "A", URL: "https://a"},
		{Title: "B", URL: "https://b"},
	}}
	feeds := &stubFetcher{kind: "rss", articles: []domain.CandidateArticle{
		{Title: "C", URL: "https://c"},
	}}

	reg := NewRegistry()
	reg.Register(news)
	reg.Register(feeds)

	src := NewMultiSource(reg, []config.SourceConfig{
		{Name: "blogs", Kind: "rss", Feeds: []config.FeedConfig{{Name: "x", URL: "https://x/feed"}}},
		{Name: "news", Kind: "newsapi", Options: map[string]string{"pageSize": "5"}},
	}, nil)

	res, err := src.Fetch(context.Background())
	require.NoError(t, err)

	var titles []string
	for _, a := range res.Articles {
		titles = append(titles, a.Title)
	}
	assert.Equal(t, []string{"C", "A", "B"}, titles)
	assert.Equal(t, 30, res.TotalResults)

	require.Len(t, feeds.requests, 1)
	assert.Equal(t, "blogs", feeds.requests[0].SourceName)
	assert.Equal(t, []Feed{{Name: "x", URL: "https://x/feed"}}, feeds.requests[0].Feeds)
	assert.Equal(t, "5", news.requests[0].Options["pageSize"])
}

func TestMultiSourceValidatesArticles(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	reg.Register(&stubFetcher{kind: "newsapi", articles: []domain.CandidateArticle{
		{Title: "No link", URL: "  "},
		{Title: "<b>Bold</b> &amp; bright", URL: " https://a ", Description: "<p>Hello <script>x()</script>world</p>"},
		{Title: "Repeat", URL: "https://a"},
	}})

	src := NewMultiSource(reg, []config.SourceConfig{{Name: "news", Kind: "newsapi"}}, nil)

	res, err := src.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Articles, 1)

	a := res.Articles[0]
	assert.Equal(t, "https://a", a.URL)
	assert.Equal(t, "Bold & bright", a.Title)
	assert.Equal(t, "Hello world", a.Description)
}

func TestMultiSourceFailsOnAnySourceError(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	reg.Register(&stubFetcher{kind: "newsapi", articles: []domain.CandidateArticle{{URL: "https://a"}}})
	reg.Register(&stubFetcher{kind: "rss", err: &FetchError{Source: "rss", StatusCode: 500, Message: "boom"}})

	src := NewMultiSource(reg, []config.SourceConfig{
		{Name: "news", Kind: "newsapi"},
		{Name: "blogs", Kind: "rss"},
	}, nil)

	_, err := src.Fetch(context.Background())
	var fetchErr *FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, 500, fetchErr.StatusCode)
}

func TestMultiSourceRejectsUnknownKindBeforeFetching(t *testing.T) {
	t.Parallel()

	news := &stubFetcher{kind: "newsapi"}
	reg := NewRegistry()
	reg.Register(news)

	src := NewMultiSource(reg, []config.SourceConfig{
		{Name: "news", Kind: "newsapi"},
		{Name: "mystery", Kind: "gopher"},
	}, nil)

	_, err := src.Fetch(context.Background())
	require.Error(t, err)
	assert.Empty(t, news.requests)
}

func TestFetchErrorMessage(t *testing.T) {
	t.Parallel()

	err := &FetchError{Source: "newsapi", StatusCode: 401, Code: "apiKeyInvalid", Message: "bad key"}
	assert.Equal(t, "newsapi error (status 401, apiKeyInvalid): bad key", err.Error())
}
