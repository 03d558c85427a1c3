package utils

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger provides leveled logging throughout the application. Messages keep
// the "[component] text" convention; the backend is zerolog.
type Logger struct {
	zl zerolog.Logger
}

// LogConfig selects level and output format ("console" or "json").
type LogConfig struct {
	Level  string
	Format string
	Output io.Writer
}

// NewLogger creates a console Logger at info level writing to stdout.
func NewLogger() *Logger {
	return NewLoggerWithConfig(LogConfig{Level: "info", Format: "console"})
}

// NewLoggerWithConfig creates a Logger from cfg.
func NewLoggerWithConfig(cfg LogConfig) *Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}

	var zl zerolog.Logger
	if cfg.Format == "json" {
		zl = zerolog.New(out)
	} else {
		zl = zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: "2006-01-02 15:04:05"})
	}
	zl = zl.Level(parseLevel(cfg.Level)).With().Timestamp().Logger()
	return &Logger{zl: zl}
}

// NewNopLogger returns a Logger that discards everything.
func NewNopLogger() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

func (l *Logger) Info(format string, args ...any) {
	l.zl.Info().Msg(fmt.Sprintf(format, args...))
}

func (l *Logger) Warn(format string, args ...any) {
	l.zl.Warn().Msg(fmt.Sprintf(format, args...))
}

func (l *Logger) Error(format string, args ...any) {
	l.zl.Error().Msg(fmt.Sprintf(format, args...))
}

func (l *Logger) Debug(format string, args ...any) {
	l.zl.Debug().Msg(fmt.Sprintf(format, args...))
}

// Elapsed logs an info line with the duration since start.
func (l *Logger) Elapsed(start time.Time, format string, args ...any) {
	l.zl.Info().Dur("elapsed", time.Since(start)).Msg(fmt.Sprintf(format, args...))
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
