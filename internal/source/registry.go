// Package source fetches candidate articles from every configured upstream and
// merges them into one batch.
package source

import (
	"context"
	"fmt"

	"NewsDigest/internal/domain"
)

// Feed is a concrete endpoint of a source (an RSS feed URL, for instance).
type Feed struct {
	Name string
	URL  string
}

// Request carries all parameters required to fetch from one configured source.
type Request struct {
	SourceName string
	Feeds      []Feed
	Options    map[string]string
}

// Fetcher is a single upstream implementation (NewsAPI, Hacker News, RSS).
type Fetcher interface {
	Kind() string
	Fetch(ctx context.Context, req Request) (domain.FetchResult, error)
}

// FetchError is the typed failure of an upstream API.
type FetchError struct {
	Source     string
	StatusCode int
	Code       string
	Message    string
}

func (e *FetchError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s error (status %d, %s): %s", e.Source, e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("%s error (status %d): %s", e.Source, e.StatusCode, e.Message)
}

// Registry keeps a mapping from fetcher kinds to their implementations.
type Registry struct {
	fetchers map[string]Fetcher
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{fetchers: map[string]Fetcher{}}
}

// Register adds or replaces a fetcher implementation.
func (r *Registry) Register(fetcher Fetcher) {
	if r.fetchers == nil {
		r.fetchers = map[string]Fetcher{}
	}
	r.fetchers[fetcher.Kind()] = fetcher
}

// Resolve returns a fetcher by kind or an error if it is absent.
func (r *Registry) Resolve(kind string) (Fetcher, error) {
	if fetcher, ok := r.fetchers[kind]; ok {
		return fetcher, nil
	}
	return nil, fmt.Errorf("fetcher %s is not registered", kind)
}
