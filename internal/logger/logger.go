// Package logger provides structured logging for merge runs.
package logger

import (
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap with merge-specific events.
type Logger struct {
	zap *zap.Logger
}

// New creates a Logger that writes JSON lines to logPath.
// If logPath is empty, logging is disabled.
// If development is true, debug events are recorded and the encoder uses
// zap's development settings.
func New(logPath string, development bool) (*Logger, error) {
	if logPath == "" {
		return Nop(), nil
	}

	logFile, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	level := zapcore.InfoLevel
	if development {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		level = zapcore.DebugLevel
	}
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(logFile),
		level,
	)
	return &Logger{zap: zap.New(core)}, nil
}

// Nop returns a Logger that discards everything.
func Nop() *Logger {
	return &Logger{zap: zap.NewNop()}
}

// FromZap wraps an existing zap logger (tests use zaptest/observer cores).
func FromZap(z *zap.Logger) *Logger {
	return &Logger{zap: z}
}

// Zap exposes the underlying logger for packages that take a *zap.Logger.
func (l *Logger) Zap() *zap.Logger {
	return l.zap
}

// Close syncs the logger (should be called on shutdown).
func (l *Logger) Close() error {
	return l.zap.Sync()
}

// BlocksParsed logs the result of parsing a response.
func (l *Logger) BlocksParsed(mode string, blocks, dropped int) {
	l.zap.Info("response parsed",
		zap.String("mode", mode),
		zap.Int("blocks", blocks),
		zap.Int("dropped", dropped),
	)
}

// EditPlanned logs a resolved edit.
func (l *Logger) EditPlanned(index int, path, outcome, method string, similarity float64) {
	l.zap.Info("edit planned",
		zap.Int("index", index),
		zap.String("path", path),
		zap.String("outcome", outcome),
		zap.String("method", method),
		zap.Float64("similarity", similarity),
	)
}

// EditUnmerged logs an edit that could not be placed.
func (l *Logger) EditUnmerged(index int, path, reason string, similarity float64) {
	l.zap.Warn("edit unmerged",
		zap.Int("index", index),
		zap.String("path", path),
		zap.String("reason", reason),
		zap.Float64("similarity", similarity),
	)
}

// AmbiguousMatch logs that several windows shared the best similarity.
func (l *Logger) AmbiguousMatch(path string, similarity float64, ties, startLine int) {
	l.zap.Debug("ambiguous fuzzy match, using first window",
		zap.String("path", path),
		zap.Float64("similarity", similarity),
		zap.Int("ties", ties),
		zap.Int("start_line", startLine),
	)
}

// FileWritten logs a completed file write.
func (l *Logger) FileWritten(path string, bytes int, created bool) {
	l.zap.Info("file written",
		zap.String("path", path),
		zap.Int("bytes", bytes),
		zap.Bool("created", created),
	)
}

// PatchApplied logs the result of applying one diff block.
func (l *Logger) PatchApplied(index int, files []string, err error) {
	if err != nil {
		l.zap.Warn("patch failed",
			zap.Int("index", index),
			zap.Strings("files", files),
			zap.Error(err),
		)
		return
	}
	l.zap.Info("patch applied",
		zap.Int("index", index),
		zap.Strings("files", files),
	)
}

// RunFinished logs the summary of a run.
func (l *Logger) RunFinished(mode string, filesChanged, applied, total, unmerged int, aborted bool, duration time.Duration) {
	l.zap.Info("run finished",
		zap.String("mode", mode),
		zap.Int("files_changed", filesChanged),
		zap.Int("blocks_applied", applied),
		zap.Int("blocks_total", total),
		zap.Int("unmerged", unmerged),
		zap.Bool("aborted", aborted),
		zap.Duration("duration", duration),
	)
}

// Info logs an informational message.
func (l *Logger) Info(msg string, fields ...zap.Field) {
	l.zap.Info(msg, fields...)
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, fields ...zap.Field) {
	l.zap.Debug(msg, fields...)
}

// Warn logs a warning.
func (l *Logger) Warn(msg string, fields ...zap.Field) {
	l.zap.Warn(msg, fields...)
}

// Error logs an error.
func (l *Logger) Error(msg string, err error) {
	l.zap.Error(msg, zap.Error(err))
}
