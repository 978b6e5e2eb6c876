package blinktree

import "log/slog"

// Logger receives the tree's structural events (root growth and shrink),
// transaction aborts and validation failures. Arguments are slog-style
// alternating keys and values, so *slog.Logger works as is; package logger
// adapts logrus and zap.
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
	Info(msg string, args ...any)
}

var _ Logger = (*slog.Logger)(nil)

// DiscardLogger drops every message. It is the default.
type DiscardLogger struct{}

func (DiscardLogger) Error(string, ...any) {}

func (DiscardLogger) Warn(string, ...any) {}

func (DiscardLogger) Info(string, ...any) {}
