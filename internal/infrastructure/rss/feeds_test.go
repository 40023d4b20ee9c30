package rss

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"NewsDigest/internal/source"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>AI Weekly</title>
  <link>https://ai.example</link>
  <description>news</description>
  <item>
    <title>Transformers at scale</title>
    <link>https://ai.example/transformers</link>
    <description>&lt;p&gt;A look at scaling&lt;/p&gt;</description>
    <pubDate>Sat, 01 Jun 2024 12:30:00 +0200</pubDate>
  </item>
  <item>
    <title>Undated note</title>
    <link>https://ai.example/note</link>
  </item>
</channel>
</rss>`

func TestFetchParsesFeed(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(sampleFeed))
	}))
	defer server.Close()

	reader := NewReader(server.Client())

	res, err := reader.Fetch(context.Background(), source.Request{
		SourceName: "blogs",
		Feeds:      []source.Feed{{URL: server.URL}},
	})
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if len(res.Articles) != 2 {
		t.Fatalf("expected 2 articles, got %d", len(res.Articles))
	}

	first := res.Articles[0]
	if first.Source.Name != "AI Weekly" {
		t.Fatalf("expected feed title as source, got %q", first.Source.Name)
	}
	if first.PublishedAt != "2024-06-01T10:30:00Z" {
		t.Fatalf("expected UTC timestamp, got %q", first.PublishedAt)
	}
	if first.URL != "https://ai.example/transformers" {
		t.Fatalf("unexpected url %q", first.URL)
	}
	if res.Articles[1].PublishedAt != "" {
		t.Fatalf("undated item must keep empty date, got %q", res.Articles[1].PublishedAt)
	}
}

func TestFetchFailsOnBrokenFeed(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	reader := NewReader(server.Client())

	_, err := reader.Fetch(context.Background(), source.Request{
		SourceName: "blogs",
		Feeds:      []source.Feed{{Name: "broken", URL: server.URL}},
	})
	if err == nil {
		t.Fatal("expected error for failing feed")
	}
}

func TestFetchRequiresFeeds(t *testing.T) {
	t.Parallel()

	if _, err := NewReader(nil).Fetch(context.Background(), source.Request{SourceName: "empty"}); err == nil {
		t.Fatal("expected error without feeds")
	}
}
