package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"NewsDigest/internal/app"
	"NewsDigest/internal/config"
	"NewsDigest/internal/logging"
	"NewsDigest/internal/usecase"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		runNow     bool
	)

	root := &cobra.Command{
		Use:   "newsdigest",
		Short: "Daily AI news digest",
		Long: `newsdigest fetches AI news, drops articles it has already processed,
keeps the relevant ones, summarizes them and emails a daily digest.

Examples:
  # Run on the configured schedule (default: every day at 08:00)
  newsdigest

  # Run once right away, then keep the schedule
  newsdigest --now`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), configPath, runNow)
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "path to the YAML configuration file")
	root.Flags().BoolVarP(&runNow, "now", "n", false, "run the digest immediately in addition to the schedule")
	root.AddCommand(newHistoryCmd(&configPath))

	return root
}

func serve(ctx context.Context, configPath string, runNow bool) error {
	cfg := config.Load(configPath)
	logger := logging.New(cfg.Logging.Level)

	if err := cfg.Validate(); err != nil {
		var missing *config.MissingError
		if errors.As(err, &missing) {
			for _, key := range missing.Keys {
				logger.Error("missing required configuration", "key", key)
			}
		}
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("application init failed", "error", err)
		return err
	}

	if err := application.Start(ctx); err != nil {
		_ = application.Close()
		logger.Error("application start failed", "error", err)
		return err
	}
	logger.Info("scheduler is running", "cron", cfg.Scheduler.CronExpression, "next_run", application.NextRun())

	if runNow {
		logger.Info("running digest immediately")
		go func() {
			if _, err := application.RunNow(context.WithoutCancel(ctx)); err != nil && !errors.Is(err, usecase.ErrSchedulerStopped) {
				logger.Error("manual run failed", "error", err)
			}
		}()
	}

	<-ctx.Done()
	logger.Info("shutting down gracefully", "timeout", cfg.Scheduler.ShutdownTimeout)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Scheduler.ShutdownTimeout)
	defer cancel()
	if err := application.Stop(shutdownCtx); err != nil {
		logger.Warn("shutdown incomplete", "error", err)
	}
	logger.Info("scheduler stopped")
	return nil
}

func newHistoryCmd(configPath *string) *cobra.Command {
	var (
		limit int
		clearAll bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List the most recently processed articles",
		Long: `history lists the most recently processed articles.

With --clear it deletes every processed article instead, so the next run
treats everything it fetches as new.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Load(*configPath)
			logger := logging.New(cfg.Logging.Level)

			application, err := app.New(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer application.Close()

			if clearAll {
				n, err := application.ClearHistory(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "removed %d processed articles\n", n)
				return nil
			}

			articles, err := application.History(cmd.Context(), limit)
			if err != nil {
				return err
			}

			return renderHistory(cmd.OutOrStdout(), articles)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "l", 20, "number of articles to list")
	cmd.Flags().BoolVar(&clearAll, "clear", false, "delete every processed article")
	return cmd
}
