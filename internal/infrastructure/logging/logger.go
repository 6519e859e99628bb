// Package logging wraps log/slog to satisfy domain/service.Logger, the
// structured-logging contract every application service and
// infrastructure adapter logs through. The teacher's own go.mod pulls in
// no third-party structured-logging library (no zap/zerolog/logrus), so
// slog is this repo's ambient choice too, kept close to the teacher's
// plain Info/Error/Warn/With(...)-shaped logging interface.
package logging

import (
	"context"
	"log/slog"
	"os"

	"github.com/AI-Venture-Studio/Click-Creators-Scraper-Server/internal/domain/service"
)

// Logger adapts a *slog.Logger to service.Logger.
type Logger struct {
	slog *slog.Logger
}

// New builds a JSON-handler slog logger at info level, wrapped as
// service.Logger.
func New() *Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	return &Logger{slog: slog.New(handler)}
}

func (l *Logger) Debug(msg string, args ...any) { l.slog.Debug(msg, args...) }
func (l *Logger) Info(msg string, args ...any)  { l.slog.Info(msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.slog.Warn(msg, args...) }
func (l *Logger) Error(msg string, args ...any) { l.slog.Error(msg, args...) }

func (l *Logger) With(args ...any) service.Logger {
	return &Logger{slog: l.slog.With(args...)}
}

// WithContext is a no-op hook point for request-scoped fields (trace id,
// tenant id); none are threaded through slog's context today.
func (l *Logger) WithContext(ctx context.Context) service.Logger {
	return l
}

var _ service.Logger = (*Logger)(nil)
