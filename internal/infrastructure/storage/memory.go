package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"NewsDigest/internal/dedup"
	"NewsDigest/internal/domain"
	"NewsDigest/internal/ports"
)

// MemoryStore keeps processed articles in process memory.
// It follows the same lookup and uniqueness rules as SQLStore.
type MemoryStore struct {
	mu      sync.RWMutex
	records []domain.ProcessedArticle
	byURL   map[string]int
	now     func() time.Time
}

var _ ports.ArticleStore = (*MemoryStore)(nil)

// NewMemoryStore builds an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byURL: map[string]int{}, now: time.Now}
}

// WithClock overrides the insert timestamp source.
func (m *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	m.now = now
	return m
}

func (m *MemoryStore) FindByURL(_ context.Context, url string) (*domain.MatchRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	idx, ok := m.byURL[url]
	if !ok {
		return nil, nil
	}
	return toMatch(m.records[idx]), nil
}

func (m *MemoryStore) FindByTitleAndDay(_ context.Context, normalizedTitle string, day domain.DayWindow) (*domain.MatchRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var best *domain.ProcessedArticle
	for i := range m.records {
		rec := &m.records[i]
		if rec.NormalizedTitle != normalizedTitle {
			continue
		}
		if rec.PublishedAt < day.Start || rec.PublishedAt >= day.End {
			continue
		}
		if best == nil || rec.ProcessedAt.Before(best.ProcessedAt) ||
			(rec.ProcessedAt.Equal(best.ProcessedAt) && rec.ID < best.ID) {
			best = rec
		}
	}

	if best == nil {
		return nil, nil
	}
	return toMatch(*best), nil
}

func (m *MemoryStore) Save(_ context.Context, url, title, publishedAt string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byURL[url]; ok {
		return fmt.Errorf("save %s: %w", url, domain.ErrDuplicateKey)
	}

	m.records = append(m.records, domain.ProcessedArticle{
		ID:              int64(len(m.records) + 1),
		URL:             url,
		Title:           title,
		NormalizedTitle: dedup.NormalizeTitle(title),
		PublishedAt:     publishedAt,
		ProcessedAt:     m.now().UTC(),
	})
	m.byURL[url] = len(m.records) - 1
	return nil
}

// ListProcessed returns the most recently processed articles first.
func (m *MemoryStore) ListProcessed(_ context.Context, limit int) ([]domain.ProcessedArticle, error) {
	m.mu.RLock()
	out := append([]domain.ProcessedArticle(nil), m.records...)
	m.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ProcessedAt.Equal(out[j].ProcessedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].ProcessedAt.After(out[j].ProcessedAt)
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ClearProcessed drops every stored article.
func (m *MemoryStore) ClearProcessed(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := int64(len(m.records))
	m.records = nil
	m.byURL = map[string]int{}
	return n, nil
}

// Len reports how many articles are stored.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

func (m *MemoryStore) Close() error { return nil }

func toMatch(rec domain.ProcessedArticle) *domain.MatchRecord {
	return &domain.MatchRecord{URL: rec.URL, Title: rec.Title, ProcessedAt: rec.ProcessedAt}
}
