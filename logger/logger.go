// Package logger adapts common logging libraries to blinktree.Logger.
//
// The standard library's slog.Logger already satisfies blinktree.Logger and
// needs no adapter.
//
//	zapLogger, _ := zap.NewProduction()
//	tree, err := blinktree.New(64, blinktree.WithLogger(logger.NewZap(zapLogger)))
package logger
