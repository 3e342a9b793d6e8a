package kernel

import (
	"sync/atomic"

	"go.uber.org/zap"
)

var logger atomic.Pointer[zap.Logger]

func init() { logger.Store(zap.NewNop()) }

// Logger returns the kernel's logger instance.
// It uses a no-op logger by default.
func Logger() *zap.Logger { return logger.Load() }

// SetLogger replaces the kernel logger. It is safe to call while threads run.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	logger.Store(l)
}
