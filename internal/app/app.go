package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"NewsDigest/internal/config"
	"NewsDigest/internal/domain"
	"NewsDigest/internal/infrastructure/email"
	"NewsDigest/internal/infrastructure/hackernews"
	"NewsDigest/internal/infrastructure/llm"
	"NewsDigest/internal/infrastructure/newsapi"
	"NewsDigest/internal/infrastructure/rss"
	"NewsDigest/internal/infrastructure/scheduler"
	"NewsDigest/internal/infrastructure/storage"
	"NewsDigest/internal/infrastructure/telegram"
	"NewsDigest/internal/logging"
	"NewsDigest/internal/metrics"
	"NewsDigest/internal/ports"
	"NewsDigest/internal/source"
	"NewsDigest/internal/usecase"
)

const (
	defaultHistoryLimit    = 20
	monitorShutdownTimeout = 5 * time.Second
)

// Store is the article store used by the application, including the debug listing.
type Store interface {
	ports.ArticleStore
	ListProcessed(ctx context.Context, limit int) ([]domain.ProcessedArticle, error)
	ClearProcessed(ctx context.Context) (int64, error)
}

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	store     Store
	metrics   *metrics.Metrics
	cron      *scheduler.CronScheduler
	scheduler *usecase.Scheduler
	monitor   *http.Server
	closers   []io.Closer
}

// New builds the application from configuration. The configuration must
// already be validated.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	if err := scheduler.Validate(cfg.Scheduler.CronExpression); err != nil {
		return nil, err
	}

	store, err := openStore(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	a := &Application{cfg: cfg, logger: baseLogger, store: store, metrics: metrics.New()}
	a.closers = append(a.closers, store)

	registry := source.NewRegistry()
	registry.Register(newsapi.NewClient(cfg.Providers.NewsAPI, nil))
	registry.Register(hackernews.NewClient(cfg.Providers.HackerNews, nil))
	registry.Register(rss.NewReader(nil))
	articleSource := source.NewMultiSource(registry, cfg.Sources, baseLogger.With("component", "source"))

	completer, closer, err := llm.NewCompleter(ctx, cfg.LLM)
	if err != nil {
		_ = a.closeAll()
		return nil, err
	}
	a.closers = append(a.closers, closer)

	notifier, err := newNotifier(cfg.Notifier)
	if err != nil {
		_ = a.closeAll()
		return nil, err
	}

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Source:      articleSource,
		Store:       store,
		Classifier:  llm.NewClassifier(completer),
		Summarizer:  llm.NewSummarizer(completer),
		Notifier:    notifier,
		Metrics:     a.metrics,
		Logger:      baseLogger.With("component", "pipeline"),
		CallTimeout: cfg.LLM.RequestTimeout,
		Location:    cfg.Scheduler.Location(),
	})

	a.cron = scheduler.NewCronScheduler(cfg.Scheduler.CronExpression, cfg.Scheduler.Location(), baseLogger.With("component", "scheduler"))
	a.scheduler = usecase.NewScheduler(a.cron, pipeline, a.metrics, baseLogger.With("component", "scheduler"))

	if cfg.Monitoring.Addr != "" {
		a.monitor = &http.Server{
			Addr:              cfg.Monitoring.Addr,
			Handler:           a.routes(),
			ReadHeaderTimeout: 5 * time.Second,
		}
	}

	return a, nil
}

// Start launches the monitoring endpoint (if configured) and the daily schedule.
func (a *Application) Start(ctx context.Context) error {
	if a.monitor != nil {
		go func() {
			a.logger.Info("monitoring server listening", "addr", a.monitor.Addr)
			if err := a.monitor.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.Error("monitoring server stopped", "error", err)
			}
		}()
	}

	if err := a.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	return nil
}

// RunNow performs one pipeline execution immediately.
func (a *Application) RunNow(ctx context.Context) (domain.RunResult, error) {
	return a.scheduler.RunNow(ctx)
}

// NextRun reports the next scheduled activation.
func (a *Application) NextRun() time.Time {
	return a.cron.NextRun()
}

// History lists the most recently processed articles.
func (a *Application) History(ctx context.Context, limit int) ([]domain.ProcessedArticle, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	return a.store.ListProcessed(ctx, limit)
}

// ClearHistory forgets every processed article, so the next run treats all
// fetched articles as new.
func (a *Application) ClearHistory(ctx context.Context) (int64, error) {
	n, err := a.store.ClearProcessed(ctx)
	if err != nil {
		return 0, err
	}
	a.logger.Warn("processed article history cleared", "removed", n)
	return n, nil
}

// Stop shuts down the schedule, waits for the in-flight run within ctx and
// releases every resource. Resources stay open when a cancelled run has not
// returned yet.
func (a *Application) Stop(ctx context.Context) error {
	var errs []error

	runActive := false
	if err := a.scheduler.Stop(ctx); err != nil {
		errs = append(errs, err)
		runActive = errors.Is(err, usecase.ErrRunStillActive)
	}
	if a.monitor != nil {
		shutdownCtx, cancel := monitorContext(ctx)
		if err := a.monitor.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown monitoring: %w", err))
		}
		cancel()
	}
	if runActive {
		a.logger.Warn("leaving store and clients open, a run is still active")
	} else if err := a.closeAll(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// monitorContext gives the monitoring server its own drain deadline, since
// the caller's context may already be spent waiting for the run.
func monitorContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), monitorShutdownTimeout)
}

// Close releases resources without touching the scheduler; used by one-shot commands.
func (a *Application) Close() error {
	return a.closeAll()
}

type healthResponse struct {
	Status      string    `json:"status"`
	LastRunID   string    `json:"last_run_id,omitempty"`
	LastRunAt   time.Time `json:"last_run_at,omitzero"`
	LastSent    bool      `json:"last_sent"`
	LastMessage string    `json:"last_message,omitempty"`
	LastError   string    `json:"last_error,omitempty"`
	NextRunAt   time.Time `json:"next_run_at,omitzero"`
	CheckedAt   time.Time `json:"checked_at"`
}

func (a *Application) routes() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/metrics", gin.WrapH(a.metrics.Handler()))
	router.GET("/health", a.healthHandler)
	return router
}

func (a *Application) healthHandler(c *gin.Context) {
	resp := healthResponse{Status: "ok", NextRunAt: a.NextRun(), CheckedAt: time.Now().UTC()}

	status := http.StatusOK
	if last, ok := a.scheduler.LastRun(); ok {
		resp.LastRunID = last.RunID
		resp.LastRunAt = last.FinishedAt
		resp.LastSent = last.Sent
		resp.LastMessage = last.Message
		if last.Err != nil {
			resp.Status = "degraded"
			resp.LastError = last.Err.Error()
			status = http.StatusServiceUnavailable
		}
	}

	c.JSON(status, resp)
}

func (a *Application) closeAll() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func openStore(ctx context.Context, cfg config.DatabaseConfig) (Store, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		return storage.NewMemoryStore(), nil
	case config.DriverPostgres, config.DriverSQLite:
		store, err := storage.Open(ctx, storage.Dialect(cfg.Driver), cfg.DSN)
		if err != nil {
			return nil, err
		}
		if err := store.Migrate(ctx); err != nil {
			_ = store.Close()
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

func newNotifier(cfg config.NotifierConfig) (ports.Notifier, error) {
	switch cfg.Kind {
	case config.NotifierResend:
		return email.NewResendNotifier(cfg.Email, nil), nil
	case config.NotifierTelegram:
		return telegram.NewNotifier(cfg.Telegram, nil), nil
	default:
		return nil, fmt.Errorf("unknown notifier %q", cfg.Kind)
	}
}
