package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	slogmulti "github.com/samber/slog-multi"
)

// Logger - key/value логгер, который используют репозитории, сервисы и handlers
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
	Fatal(msg string, keysAndValues ...any)
	With(keysAndValues ...any) Logger
}

type slogLogger struct {
	l *slog.Logger
}

// New создает логгер, пишущий текст в stderr
func New(level string) Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: ParseLevel(level)})
	return &slogLogger{l: slog.New(handler)}
}

// NewWithFile пишет текст в stderr и JSON в файл.
// Если файл открыть не удалось, остается только stderr.
func NewWithFile(level, path string) (Logger, func() error) {
	if path == "" {
		return New(level), func() error { return nil }
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		l := New(level)
		l.Error("Failed to open log file, using stderr only", "error", err, "file", path)
		return l, func() error { return nil }
	}

	return NewWithWriters(os.Stderr, file, level), file.Close
}

// NewWithWriters - fanout в два writer'а: text и JSON
func NewWithWriters(text, json io.Writer, level string) Logger {
	lvl := ParseLevel(level)
	textHandler := slog.NewTextHandler(text, &slog.HandlerOptions{Level: lvl})
	jsonHandler := slog.NewJSONHandler(json, &slog.HandlerOptions{Level: lvl})
	return &slogLogger{l: slog.New(slogmulti.Fanout(textHandler, jsonHandler))}
}

// Discard - для тестов
func Discard() Logger {
	return &slogLogger{l: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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

func (s *slogLogger) Debug(msg string, keysAndValues ...any) { s.l.Debug(msg, keysAndValues...) }
func (s *slogLogger) Info(msg string, keysAndValues ...any)  { s.l.Info(msg, keysAndValues...) }
func (s *slogLogger) Warn(msg string, keysAndValues ...any)  { s.l.Warn(msg, keysAndValues...) }
func (s *slogLogger) Error(msg string, keysAndValues ...any) { s.l.Error(msg, keysAndValues...) }

func (s *slogLogger) Fatal(msg string, keysAndValues ...any) {
	s.l.Error(msg, keysAndValues...)
	os.Exit(1)
}

func (s *slogLogger) With(keysAndValues ...any) Logger {
	return &slogLogger{l: s.l.With(keysAndValues...)}
}
