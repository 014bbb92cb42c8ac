// Package logger настраивает log/slog для бинарей и содержит помощники атрибутов.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// New создаёт текстовый логгер в w с уровнем level ("debug", "info", "warn", "error").
func New(w io.Writer, level string) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)}))
}

// FromEnv создаёт логгер в stderr; LOG_LEVEL переопределяет уровень, verbose включает debug.
func FromEnv(verbose bool) *slog.Logger {
	level := "info"
	if verbose {
		level = "debug"
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		level = v
	}
	return New(os.Stderr, level)
}

// Discard — логгер, который ничего не пишет.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// OrDiscard возвращает l или Discard(), если l == nil.
func OrDiscard(l *slog.Logger) *slog.Logger {
	if l == nil {
		return Discard()
	}
	return l
}

// ParseLevel разбирает имя уровня; неизвестное имя — info.
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

// Error — атрибут "error"; для nil возвращается пустой Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// Elapsed — длительность с момента start.
func Elapsed(start time.Time) slog.Attr {
	return slog.Duration("elapsed", time.Since(start))
}

// Component — имя компонента.
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// UploadID — идентификатор загрузки.
func UploadID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("upload_id", id)
}
