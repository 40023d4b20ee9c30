package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"NewsDigest/internal/dedup"
	"NewsDigest/internal/digest"
	"NewsDigest/internal/domain"
	"NewsDigest/internal/metrics"
	"NewsDigest/internal/ports"
)

// NoArticlesMessage is reported when a run has nothing to deliver.
const NoArticlesMessage = "No new articles to send"

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Source     ports.ArticleSource
	Store      ports.ArticleStore
	Classifier ports.RelevanceClassifier
	Summarizer ports.Summarizer
	Notifier   ports.Notifier
	Metrics    *metrics.Metrics
	Logger     *slog.Logger

	// CallTimeout bounds every classifier, summarizer and notifier call; zero disables it.
	CallTimeout time.Duration
	// Location is the time zone used for the digest date.
	Location *time.Location
	Clock    func() time.Time
}

// Pipeline implements the fetch, dedup, relevance, summarize and notify workflow.
type Pipeline struct {
	source      ports.ArticleSource
	store       ports.ArticleStore
	filter      *dedup.Filter
	classifier  ports.RelevanceClassifier
	summarizer  ports.Summarizer
	notifier    ports.Notifier
	metrics     *metrics.Metrics
	logger      *slog.Logger
	callTimeout time.Duration
	location    *time.Location
	now         func() time.Time
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	loc := deps.Location
	if loc == nil {
		loc = time.UTC
	}
	now := deps.Clock
	if now == nil {
		now = time.Now
	}

	return &Pipeline{
		source:      deps.Source,
		store:       deps.Store,
		filter:      dedup.NewFilter(deps.Store, logger.With("component", "dedup")),
		classifier:  deps.Classifier,
		summarizer:  deps.Summarizer,
		notifier:    deps.Notifier,
		metrics:     deps.Metrics,
		logger:      logger,
		callTimeout: deps.CallTimeout,
		location:    loc,
		now:         now,
	}
}

// IsRelevant treats any answer containing "yes" (case-insensitive) as relevant.
func IsRelevant(answer string) bool {
	return strings.Contains(strings.ToLower(answer), "yes")
}

// SaveProcessed persists an article and reports whether it was already stored.
// A duplicate URL is not an error.
func SaveProcessed(ctx context.Context, store ports.ArticleStore, article domain.CandidateArticle) (bool, error) {
	err := store.Save(ctx, article.URL, article.Title, article.PublishedAt)
	if errors.Is(err, domain.ErrDuplicateKey) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("save processed %s: %w", article.URL, err)
	}
	return false, nil
}

// Run executes one full digest cycle. The returned result is always populated;
// err is non-nil only for run-level failures (fetch, notify or cancellation).
func (p *Pipeline) Run(ctx context.Context, trigger domain.Trigger) (res domain.RunResult, err error) {
	res = domain.RunResult{
		RunID:     uuid.NewString(),
		Trigger:   trigger,
		StartedAt: p.now(),
	}
	log := p.logger.With("run_id", res.RunID, "trigger", trigger)
	log.Info("digest run started")

	defer func() {
		res.FinishedAt = p.now()
		res.Err = err
		p.metrics.RunFinished(res)
		p.logRun(log, res)
	}()

	if p.source == nil || p.store == nil || p.classifier == nil || p.summarizer == nil || p.notifier == nil {
		return res, fmt.Errorf("pipeline is not fully configured")
	}

	fetched, err := p.source.Fetch(ctx)
	if err != nil {
		return res, fmt.Errorf("fetch articles: %w", err)
	}
	res.Fetched = len(fetched.Articles)
	p.metrics.Articles(domain.StageFetch, res.Fetched)
	log.Info("fetched articles", "count", res.Fetched, "total_results", fetched.TotalResults)

	checked := p.filter.Apply(ctx, fetched.Articles)
	res.New = len(checked.New)
	res.Skipped = len(checked.Skipped)
	for _, s := range checked.Skipped {
		p.metrics.DedupSkip(s.MatchedBy)
	}
	for range checked.Failed {
		p.metrics.ItemFailed(domain.StageDedup)
	}
	p.metrics.Articles(domain.StageDedup, res.New)
	log.Info("filtered already processed articles",
		"new", res.New, "skipped", res.Skipped, "failed", len(checked.Failed))
	if err := ctx.Err(); err != nil {
		return res, err
	}

	relevant, err := p.filterRelevant(ctx, log, checked.New)
	if err != nil {
		return res, err
	}
	res.Relevant = len(relevant)
	p.metrics.Articles(domain.StageRelevance, res.Relevant)
	log.Info("relevance check done", "relevant", res.Relevant, "dropped", res.New-res.Relevant)

	summaries, err := p.summarize(ctx, log, relevant)
	if err != nil {
		return res, err
	}
	res.Summarized = len(summaries)
	p.metrics.Articles(domain.StageSummarize, res.Summarized)
	log.Info("summaries ready", "count", res.Summarized)

	if err := p.notify(ctx, log, summaries, &res); err != nil {
		return res, err
	}
	return res, nil
}

func (p *Pipeline) filterRelevant(ctx context.Context, log *slog.Logger, articles []domain.CandidateArticle) ([]domain.CandidateArticle, error) {
	relevant := make([]domain.CandidateArticle, 0, len(articles))

	for _, article := range articles {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		callCtx, cancel := p.callContext(ctx)
		answer, err := p.classifier.Classify(callCtx, article)
		cancel()
		if err != nil {
			log.Error("relevance check failed", "title", article.Title, "url", article.URL, "error", err)
			p.metrics.ItemFailed(domain.StageRelevance)
			continue
		}

		if !IsRelevant(answer) {
			log.Info("skipping non-relevant article", "title", article.Title, "answer", answer)
			continue
		}
		relevant = append(relevant, article)
	}

	return relevant, nil
}

// summarize persists each article right after its summary is produced, so a
// later failure in the run never causes it to be summarized again.
func (p *Pipeline) summarize(ctx context.Context, log *slog.Logger, articles []domain.CandidateArticle) ([]domain.ArticleSummary, error) {
	summaries := make([]domain.ArticleSummary, 0, len(articles))

	for _, article := range articles {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		callCtx, cancel := p.callContext(ctx)
		summary, err := p.summarizer.Summarize(callCtx, article)
		cancel()
		if err != nil {
			log.Error("summarize failed", "title", article.Title, "url", article.URL, "error", err)
			p.metrics.ItemFailed(domain.StageSummarize)
			continue
		}

		existed, err := SaveProcessed(ctx, p.store, article)
		if err != nil {
			log.Error("persist failed", "title", article.Title, "url", article.URL, "error", err)
			p.metrics.ItemFailed(domain.StageSummarize)
			continue
		}
		if existed {
			log.Info("article already exists", "url", article.URL)
		}

		summaries = append(summaries, domain.ArticleSummary{
			Title:       article.Title,
			Source:      article.Source.Name,
			URL:         article.URL,
			PublishedAt: article.PublishedAt,
			Summary:     summary,
		})
	}

	return summaries, nil
}

func (p *Pipeline) notify(ctx context.Context, log *slog.Logger, summaries []domain.ArticleSummary, res *domain.RunResult) error {
	if len(summaries) == 0 {
		res.Message = NoArticlesMessage
		log.Info(NoArticlesMessage)
		return nil
	}

	msg, err := digest.Render(summaries, p.now().In(p.location))
	if err != nil {
		return err
	}

	callCtx, cancel := p.callContext(ctx)
	defer cancel()

	id, err := p.notifier.Send(callCtx, msg)
	if err != nil {
		return fmt.Errorf("send digest: %w", err)
	}

	res.Sent = true
	res.ArticlesCount = len(summaries)
	res.MessageID = id
	p.metrics.Articles(domain.StageNotify, len(summaries))
	log.Info("digest sent", "subject", msg.Subject, "message_id", id)
	return nil
}

func (p *Pipeline) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, p.callTimeout)
}

func (p *Pipeline) logRun(log *slog.Logger, res domain.RunResult) {
	attrs := []any{
		"fetched", res.Fetched,
		"new", res.New,
		"skipped", res.Skipped,
		"relevant", res.Relevant,
		"summarized", res.Summarized,
		"sent", res.Sent,
		"articles_count", res.ArticlesCount,
		"duration", res.Duration(),
	}
	if res.MessageID != "" {
		attrs = append(attrs, "message_id", res.MessageID)
	}
	if res.Message != "" {
		attrs = append(attrs, "message", res.Message)
	}

	if res.Err != nil {
		log.Error("digest run failed", append(attrs, "error", res.Err)...)
		return
	}
	log.Info("digest run finished", attrs...)
}
