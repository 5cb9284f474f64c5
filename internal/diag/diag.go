// Package diag is the diagnostics sink shared by the tensor and graph packages.
//
// Data-shape problems never abort a computation: the offending operation
// returns a sentinel (tensor.None, tensor.Empty) and reports here. By default
// the report is a structured warning written through zap. With fail-fast
// enabled the first report panics with a *Error instead, which surfaces the
// bug at its origin rather than several operations downstream.
package diag

import (
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Error describes a single sentinel production.
type Error struct {
	Op      string // Operation that produced the sentinel (e.g. "plus", "matmul")
	Details string // Human-readable explanation
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Details)
}

var (
	logger   atomic.Pointer[zap.Logger]
	failFast atomic.Bool
)

func init() {
	logger.Store(newDefaultLogger())
}

// newDefaultLogger builds a console logger at warn level on stderr.
func newDefaultLogger() *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	cfg.Sampling = nil
	cfg.DisableStacktrace = true
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	l, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return l.Named("nodegraph")
}

// Logger returns the current process-wide diagnostics logger.
func Logger() *zap.Logger {
	return logger.Load()
}

// SetLogger replaces the diagnostics logger and returns the previous one.
// A nil logger silences diagnostics.
func SetLogger(l *zap.Logger) *zap.Logger {
	if l == nil {
		l = zap.NewNop()
	}
	return logger.Swap(l)
}

// SetFailFast toggles panicking on the first sentinel production and returns
// the previous setting.
func SetFailFast(enabled bool) bool {
	return failFast.Swap(enabled)
}

// FailFast reports whether fail-fast mode is enabled.
func FailFast() bool {
	return failFast.Load()
}

// Report records that op degraded to a sentinel value.
//
// In fail-fast mode Report panics with a *Error.
func Report(op, format string, args ...any) {
	e := &Error{Op: op, Details: fmt.Sprintf(format, args...)}
	if failFast.Load() {
		panic(e)
	}
	Logger().Warn("sentinel produced", zap.String("op", e.Op), zap.String("details", e.Details))
}

// Warn logs a soft rejection that leaves state unchanged (for example a
// SetData call with the wrong shape). Warn never panics.
func Warn(msg string, fields ...zap.Field) {
	Logger().Warn(msg, fields...)
}
