// Package logger provides structured logging for timejump
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Logger wraps zerolog with timejump-specific helpers
type Logger struct {
	zlog zerolog.Logger
}

// Config holds logger configuration
type Config struct {
	Level      string // debug, info, warn, error
	Pretty     bool   // pretty-print for development
	Output     io.Writer
	WithCaller bool
}

// ParseLevel maps a level name to a zerolog level, defaulting to info.
func ParseLevel(s string) zerolog.Level {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}

// NewLogger creates a new structured logger
func NewLogger(cfg Config) *Logger {
	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}

	// Pretty printing for development
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
		}
	}

	zlog := zerolog.New(output).
		Level(ParseLevel(cfg.Level)).
		With().
		Timestamp().
		Str("service", "timejump").
		Logger()

	if cfg.WithCaller {
		zlog = zlog.With().Caller().Logger()
	}

	return &Logger{zlog: zlog}
}

// Nop returns a logger that discards everything
func Nop() *Logger {
	return &Logger{zlog: zerolog.Nop()}
}

// Zerolog returns the underlying zerolog logger
func (l *Logger) Zerolog() zerolog.Logger {
	return l.zlog
}

// Info starts an info event tagged with name
func (l *Logger) Info(name string) *zerolog.Event {
	return l.zlog.Info().Str("event", name)
}

// Debug starts a debug event tagged with name
func (l *Logger) Debug(name string) *zerolog.Event {
	return l.zlog.Debug().Str("event", name)
}

// Warn starts a warning event tagged with name
func (l *Logger) Warn(name string) *zerolog.Event {
	return l.zlog.Warn().Str("event", name)
}

// Error starts an error event tagged with name
func (l *Logger) Error(name string) *zerolog.Event {
	return l.zlog.Error().Str("event", name)
}

// WithFields returns a logger with additional fields
func (l *Logger) WithFields(fields map[string]any) *Logger {
	ctx := l.zlog.With()
	for k, v := range fields {
		ctx = ctx.Interface(k, v)
	}
	return &Logger{zlog: ctx.Logger()}
}

// Component returns a zerolog logger tagged with a component name, for
// handing to library packages.
func (l *Logger) Component(name string) zerolog.Logger {
	return l.zlog.With().Str("component", name).Logger()
}

// LogIndexBuild logs a search index rebuild
func (l *Logger) LogIndexBuild(revision uint64, documents, anomalies int, duration time.Duration) {
	event := l.zlog.Info()
	if anomalies > 0 {
		event = l.zlog.Warn()
	}
	event.
		Str("component", "index").
		Uint64("revision", revision).
		Int("documents", documents).
		Int("anomalies", anomalies).
		Dur("duration_ms", duration).
		Msg("Search index rebuilt")
}

// LogJournalReplay logs the edits recovered from the journal at startup
func (l *Logger) LogJournalReplay(path string, entries, applied, skipped int, lastLSN uint64) {
	event := l.zlog.Info()
	if skipped > 0 {
		event = l.zlog.Warn()
	}
	event.
		Str("component", "journal").
		Str("path", path).
		Int("entries", entries).
		Int("applied", applied).
		Int("skipped", skipped).
		Uint64("last_lsn", lastLSN).
		Msg("Journal replayed")
}

// LogQuery logs one resolved query
func (l *Logger) LogQuery(query, outcome string, results int, duration time.Duration) {
	l.zlog.Debug().
		Str("component", "resolver").
		Str("query", query).
		Str("outcome", outcome).
		Int("results", results).
		Dur("duration_ms", duration).
		Msg("Query resolved")
}

// LogHTTPRequest logs a completed HTTP request
func (l *Logger) LogHTTPRequest(method, path string, status int, duration time.Duration) {
	event := l.zlog.Info()
	switch {
	case status >= 500:
		event = l.zlog.Error()
	case status >= 400:
		event = l.zlog.Warn()
	}
	event.
		Str("component", "http").
		Str("method", method).
		Str("path", path).
		Int("status", status).
		Dur("duration_ms", duration).
		Msg("HTTP request completed")
}

// LogServerStart logs server startup
func (l *Logger) LogServerStart(addr, timelinePath string) {
	l.zlog.Info().
		Str("event", "server_start").
		Str("addr", addr).
		Str("timeline", timelinePath).
		Msg("timejump server starting")
}

// LogServerReady logs when server is ready
func (l *Logger) LogServerReady(addr string, revision uint64) {
	l.zlog.Info().
		Str("event", "server_ready").
		Str("addr", addr).
		Uint64("revision", revision).
		Msg("timejump server ready to accept connections")
}

// LogServerShutdown logs server shutdown
func (l *Logger) LogServerShutdown() {
	l.zlog.Info().
		Str("event", "server_shutdown").
		Msg("timejump server shutting down")
}

// Global logger instance
var globalLogger *Logger

// InitGlobalLogger initializes the global logger
func InitGlobalLogger(cfg Config) {
	globalLogger = NewLogger(cfg)
	log.Logger = globalLogger.zlog
}

// GetGlobalLogger returns the global logger instance
func GetGlobalLogger() *Logger {
	if globalLogger == nil {
		// Initialize with defaults if not set
		InitGlobalLogger(Config{
			Level:  "info",
			Pretty: true,
		})
	}
	return globalLogger
}
