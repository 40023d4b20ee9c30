package logger

import (
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Cron adapts a slog.Logger to the cron.Logger interface with a component tag.
func Cron(log *slog.Logger) cron.Logger {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return cronLogger{log: log.With("component", "cron")}
}

type cronLogger struct {
	log *slog.Logger
}

// Info is used by cron for routine events (schedule, wake, run). They are
// mapped to debug to keep the default output quiet.
func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.log.Debug(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.log.Error(msg, append(keysAndValues, "error", err)...)
}
