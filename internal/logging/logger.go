package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gorm.io/gorm/logger"
)

type Options struct {
	Level       string
	Format      string
	Environment string
}

// New builds a slog logger. Format "json" or "text" is honoured; otherwise
// production gets JSON and everything else gets text.
func New(w io.Writer, opts Options) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}

	handlerOpts := &slog.HandlerOptions{Level: ParseLevel(opts.Level)}

	format := strings.ToLower(opts.Format)
	if format == "" {
		format = "text"
		if opts.Environment == "production" {
			format = "json"
		}
	}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(w, handlerOpts)
	} else {
		handler = slog.NewTextHandler(w, handlerOpts)
	}

	return slog.New(handler).With("service", "todo-api")
}

// Setup builds the logger and installs it as the process default.
func Setup(opts Options) *slog.Logger {
	l := New(os.Stdout, opts)
	slog.SetDefault(l)
	return l
}

func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// GormLogLevel maps the environment to GORM's SQL logging level.
func GormLogLevel(environment, level string) logger.LogLevel {
	if strings.EqualFold(level, "debug") {
		return logger.Info
	}
	if environment == "production" {
		return logger.Error
	}
	return logger.Warn
}
