package furi

import (
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"furigo/kernel"
)

var logger atomic.Pointer[zap.Logger]

func init() { logger.Store(zap.NewNop()) }

// Logger returns the package logger. It uses a no-op logger by default.
func Logger() *zap.Logger { return logger.Load() }

// SetLogger replaces the package logger. It is safe to call while threads run.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	logger.Store(l)
}

// LogLevel is a firmware log level.
type LogLevel uint8

const (
	LogNone LogLevel = iota
	LogError
	LogWarn
	LogInfo
	LogDebug
	LogTrace
)

func (l LogLevel) String() string {
	switch l {
	case LogError:
		return "E"
	case LogWarn:
		return "W"
	case LogInfo:
		return "I"
	case LogDebug:
		return "D"
	case LogTrace:
		return "T"
	default:
		return "-"
	}
}

// ParseLogLevel accepts level names ("error", "warn", ...) or their letters.
func ParseLogLevel(s string) (LogLevel, bool) {
	switch strings.ToLower(s) {
	case "none":
		return LogNone, true
	case "error", "e":
		return LogError, true
	case "warn", "warning", "w":
		return LogWarn, true
	case "info", "i":
		return LogInfo, true
	case "debug", "d":
		return LogDebug, true
	case "trace", "t":
		return LogTrace, true
	}
	return LogNone, false
}

func (l LogLevel) zapLevel() zapcore.Level {
	switch l {
	case LogError:
		return zapcore.ErrorLevel
	case LogWarn:
		return zapcore.WarnLevel
	case LogInfo:
		return zapcore.InfoLevel
	default:
		return zapcore.DebugLevel
	}
}

// Log writes msg under tag, annotated with the calling thread's name.
// Trace messages are logged at debug level with trace=true.
func Log(level LogLevel, tag, msg string) {
	if level == LogNone {
		return
	}
	fields := []zap.Field{zap.String("tag", tag)}
	if name := kernel.ThreadName(kernel.CurrentThreadID()); name != "" {
		fields = append(fields, zap.String("thread", name))
	}
	if level == LogTrace {
		fields = append(fields, zap.Bool("trace", true))
	}
	if ce := Logger().Check(level.zapLevel(), msg); ce != nil {
		ce.Write(fields...)
	}
}

func logStatus(primitive string, st Status) {
	Logger().Warn("kernel call failed",
		zap.String("primitive", primitive),
		zap.String("status", st.String()),
		zap.Int32("code", int32(st)),
	)
}
