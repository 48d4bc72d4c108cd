package logger

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ekisa-team/scribe/internal/env"
)

type options struct {
	level     slog.Level
	logToFile bool
	logFile   string
}

// Option configures the logger.
type Option func(*options)

// WithLevel sets the minimum log level.
func WithLevel(level slog.Level) Option {
	return func(o *options) {
		o.level = level
	}
}

// WithLogToFile enables writing logs to a rotating file in addition to the console.
func WithLogToFile(enabled bool) Option {
	return func(o *options) {
		o.logToFile = enabled
	}
}

// WithLogFile sets the log file path.
func WithLogFile(path string) Option {
	return func(o *options) {
		o.logFile = path
	}
}

// New creates a slog.Logger for the given environment. Development uses a
// colorized console handler, production uses JSON. When file logging is
// enabled, output is duplicated to a size-rotated log file.
func New(environment env.Environment, opts ...Option) *slog.Logger {
	o := options{
		level:   slog.LevelInfo,
		logFile: "logs/scribed.log",
	}
	for _, opt := range opts {
		opt(&o)
	}

	var w io.Writer = os.Stderr
	if o.logToFile {
		w = io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   o.logFile,
			MaxSize:    50, // megabytes
			MaxBackups: 5,
			MaxAge:     30, // days
			Compress:   true,
		})
	}

	var handler slog.Handler
	if environment.IsProduction() {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: o.level})
	} else {
		handler = tint.NewHandler(w, &tint.Options{
			Level:      o.level,
			TimeFormat: time.Kitchen,
		})
	}

	return slog.New(handler)
}
