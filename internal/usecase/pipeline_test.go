package usecase_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/infrastructure/storage"
	"NewsDigest/internal/metrics"
	"NewsDigest/internal/ports"
	"NewsDigest/internal/usecase"
)

type fakeSource struct {
	articles []domain.CandidateArticle
	err      error
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) Fetch(context.Context) (domain.FetchResult, error) {
	if f.err != nil {
		return domain.FetchResult{}, f.err
	}
	return domain.FetchResult{Articles: f.articles, TotalResults: len(f.articles)}, nil
}

type fakeClassifier struct {
	answers map[string]string
	errs    map[string]error
}

func (f *fakeClassifier) Classify(_ context.Context, a domain.CandidateArticle) (string, error) {
	if err := f.errs[a.URL]; err != nil {
		return "", err
	}
	if answer, ok := f.answers[a.URL]; ok {
		return answer, nil
	}
	return "Yes", nil
}

type fakeSummarizer struct {
	errs  map[string]error
	calls []string
}

func (f *fakeSummarizer) Summarize(_ context.Context, a domain.CandidateArticle) (string, error) {
	f.calls = append(f.calls, a.URL)
	if err := f.errs[a.URL]; err != nil {
		return "", err
	}
	return "summary of " + a.Title, nil
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []domain.Message
	err  error
}

func (f *fakeNotifier) Send(_ context.Context, msg domain.Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, msg)
	return "msg-1", nil
}

type failingSaveStore struct {
	*storage.MemoryStore
	failURL string
}

func (s *failingSaveStore) Save(ctx context.Context, url, title, publishedAt string) error {
	if url == s.failURL {
		return errors.New("disk full")
	}
	return s.MemoryStore.Save(ctx, url, title, publishedAt)
}

type fixture struct {
	source     *fakeSource
	store      *storage.MemoryStore
	classifier *fakeClassifier
	summarizer *fakeSummarizer
	notifier   *fakeNotifier
	metrics    *metrics.Metrics
}

var runDay = time.Date(2024, time.June, 3, 8, 0, 0, 0, time.UTC)

func newFixture(articles ...domain.CandidateArticle) *fixture {
	return &fixture{
		source:     &fakeSource{articles: articles},
		store:      storage.NewMemoryStore().WithClock(func() time.Time { return runDay }),
		classifier: &fakeClassifier{answers: map[string]string{}, errs: map[string]error{}},
		summarizer: &fakeSummarizer{errs: map[string]error{}},
		notifier:   &fakeNotifier{},
		metrics:    metrics.New(),
	}
}

func (f *fixture) pipeline() *usecase.Pipeline {
	return f.pipelineWithStore(f.store)
}

func (f *fixture) pipelineWithStore(store ports.ArticleStore) *usecase.Pipeline {
	return usecase.NewPipeline(usecase.PipelineDeps{
		Source:     f.source,
		Store:      store,
		Classifier: f.classifier,
		Summarizer: f.summarizer,
		Notifier:   f.notifier,
		Metrics:    f.metrics,
		Clock:      func() time.Time { return runDay },
	})
}

func article(url, title string) domain.CandidateArticle {
	return domain.CandidateArticle{
		URL:         url,
		Title:       title,
		PublishedAt: "2024-06-01T10:00:00Z",
		Source:      domain.Source{Name: "Wire"},
	}
}

func TestRunSendsDigestForNewArticles(t *testing.T) {
	t.Parallel()

	f := newFixture(article("https://a", "GPT-5 Released"))

	res, err := f.pipeline().Run(context.Background(), domain.TriggerManual)
	require.NoError(t, err)

	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, domain.TriggerManual, res.Trigger)
	assert.Equal(t, 1, res.Fetched)
	assert.Equal(t, 1, res.New)
	assert.Equal(t, 0, res.Skipped)
	assert.Equal(t, 1, res.Relevant)
	assert.Equal(t, 1, res.Summarized)
	assert.True(t, res.Sent)
	assert.Equal(t, 1, res.ArticlesCount)
	assert.Equal(t, "msg-1", res.MessageID)

	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, "Daily AI News Digest - Monday, June 3 (1 new articles)", f.notifier.sent[0].Subject)
	assert.Contains(t, f.notifier.sent[0].HTML, "summary of GPT-5 Released")
	assert.Equal(t, 1, f.store.Len())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.RunsTotal.WithLabelValues("manual", metrics.OutcomeSent)))
}

func TestSecondRunSkipsByURL(t *testing.T) {
	t.Parallel()

	f := newFixture(article("https://a", "GPT-5 Released"))
	p := f.pipeline()

	_, err := p.Run(context.Background(), domain.TriggerSchedule)
	require.NoError(t, err)

	res, err := p.Run(context.Background(), domain.TriggerSchedule)
	require.NoError(t, err)

	assert.Equal(t, 0, res.New)
	assert.Equal(t, 1, res.Skipped)
	assert.False(t, res.Sent)
	assert.Equal(t, usecase.NoArticlesMessage, res.Message)
	assert.Len(t, f.notifier.sent, 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.DedupSkipsTotal.WithLabelValues("url")))
}

func TestRunSkipsSameTitleSameDay(t *testing.T) {
	t.Parallel()

	f := newFixture(domain.CandidateArticle{
		URL:         "https://other",
		Title:       "OpenAI Unveils GPT-5!!",
		PublishedAt: "2024-06-01T18:00:00Z",
	})
	require.NoError(t, f.store.Save(context.Background(), "https://first", "openai unveils gpt 5", "2024-06-01T09:00:00Z"))

	res, err := f.pipeline().Run(context.Background(), domain.TriggerManual)
	require.NoError(t, err)

	assert.Equal(t, 0, res.New)
	assert.Equal(t, 1, res.Skipped)
	assert.Empty(t, f.summarizer.calls)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.DedupSkipsTotal.WithLabelValues("title_and_date")))
}

func TestNoRelevantArticlesReportsNotSent(t *testing.T) {
	t.Parallel()

	f := newFixture(article("https://casino", "Casino bonus"), article("https://fx", "FX rates"))
	f.classifier.answers["https://casino"] = "No"
	f.classifier.errs["https://fx"] = errors.New("llm unavailable")

	res, err := f.pipeline().Run(context.Background(), domain.TriggerSchedule)
	require.NoError(t, err)

	assert.Equal(t, 2, res.New)
	assert.Equal(t, 0, res.Relevant)
	assert.False(t, res.Sent)
	assert.Equal(t, 0, res.ArticlesCount)
	assert.Equal(t, usecase.NoArticlesMessage, res.Message)
	assert.Empty(t, f.notifier.sent)
	assert.Equal(t, 0, f.store.Len())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ItemFailureTotal.WithLabelValues("relevance")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.RunsTotal.WithLabelValues("schedule", metrics.OutcomeEmpty)))
}

func TestSummarizerFailureDropsOnlyThatArticle(t *testing.T) {
	t.Parallel()

	f := newFixture(article("https://1", "One"), article("https://2", "Two"), article("https://3", "Three"))
	f.summarizer.errs["https://2"] = errors.New("timeout")

	res, err := f.pipeline().Run(context.Background(), domain.TriggerManual)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Summarized)
	assert.Equal(t, []string{"https://1", "https://2", "https://3"}, f.summarizer.calls)

	require.Len(t, f.notifier.sent, 1)
	html := f.notifier.sent[0].HTML
	assert.Contains(t, html, "1. One")
	assert.Contains(t, html, "2. Three")
	assert.NotContains(t, html, "Two")

	found, err := f.store.FindByURL(context.Background(), "https://2")
	require.NoError(t, err)
	assert.Nil(t, found)
	assert.Equal(t, 2, f.store.Len())
}

func TestPersistFailureDropsArticleFromDigest(t *testing.T) {
	t.Parallel()

	f := newFixture(article("https://1", "One"), article("https://2", "Two"))
	store := &failingSaveStore{MemoryStore: f.store, failURL: "https://1"}

	res, err := f.pipelineWithStore(store).Run(context.Background(), domain.TriggerManual)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Summarized)
	require.Len(t, f.notifier.sent, 1)
	assert.NotContains(t, f.notifier.sent[0].HTML, "1. One")
}

func TestFetchFailureFailsRun(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.source.err = errors.New("newsapi down")

	res, err := f.pipeline().Run(context.Background(), domain.TriggerSchedule)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "newsapi down")
	assert.Equal(t, err, res.Err)
	assert.False(t, res.FinishedAt.IsZero())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.RunsTotal.WithLabelValues("schedule", metrics.OutcomeFailed)))
}

func TestNotifierFailureFailsRunButKeepsPersistedArticles(t *testing.T) {
	t.Parallel()

	f := newFixture(article("https://a", "A"))
	f.notifier.err = errors.New("resend 500")

	res, err := f.pipeline().Run(context.Background(), domain.TriggerManual)
	require.Error(t, err)
	assert.False(t, res.Sent)
	assert.Equal(t, 1, f.store.Len())
}

func TestCallTimeoutIsPerItemFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(article("https://slow", "Slow"), article("https://fast", "Fast"))
	p := usecase.NewPipeline(usecase.PipelineDeps{
		Source:      f.source,
		Store:       f.store,
		Classifier:  &slowClassifier{slowURL: "https://slow"},
		Summarizer:  f.summarizer,
		Notifier:    f.notifier,
		CallTimeout: 20 * time.Millisecond,
		Clock:       func() time.Time { return runDay },
	})

	res, err := p.Run(context.Background(), domain.TriggerManual)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Relevant)
	assert.Equal(t, []string{"https://fast"}, f.summarizer.calls)
}

type slowClassifier struct {
	slowURL string
}

func (s *slowClassifier) Classify(ctx context.Context, a domain.CandidateArticle) (string, error) {
	if a.URL == s.slowURL {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return "yes", nil
}

func TestSaveProcessedIsIdempotent(t *testing.T) {
	t.Parallel()

	store := storage.NewMemoryStore()
	a := article("https://a", "A")

	existed, err := usecase.SaveProcessed(context.Background(), store, a)
	require.NoError(t, err)
	assert.False(t, existed)

	existed, err = usecase.SaveProcessed(context.Background(), store, a)
	require.NoError(t, err)
	assert.True(t, existed)
	assert.Equal(t, 1, store.Len())
}

func TestIsRelevant(t *testing.T) {
	t.Parallel()

	cases := map[string]bool{
		"Yes":                        true,
		"yes, it is":                 true,
		"YES - clearly about models": true,
		"Eyes on the market":         true,
		"No":                         false,
		"":                           false,
		"Absolutely not relevant":    false,
	}
	for answer, want := range cases {
		assert.Equal(t, want, usecase.IsRelevant(answer), strings.TrimSpace(answer))
	}
}

func TestRunRequiresAllPorts(t *testing.T) {
	t.Parallel()

	_, err := usecase.NewPipeline(usecase.PipelineDeps{}).Run(context.Background(), domain.TriggerManual)
	require.Error(t, err)
}
