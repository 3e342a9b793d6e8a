// Package rt runs an application entry point as a kernel thread.
package rt

import (
	"strings"
	"time"

	"go.uber.org/zap"

	"furigo/furi"
	"furigo/furi/thread"
	"furigo/kernel"
)

// Manifest describes an application.
type Manifest struct {
	Name      string `yaml:"name"`
	AppID     string `yaml:"app_id"`
	StackSize int    `yaml:"stack_size"`
}

// pollInterval is how often WaitForCompletion rescans the thread table.
const pollInterval = 10 * time.Millisecond

// Run starts entry on a thread tagged with m.AppID, waits for it and for
// every thread it spawned under the same app id, and returns its exit code.
func Run(m Manifest, entry func(args string) int32) int32 {
	return RunArgs(m, "", entry)
}

// RunArgs is Run with an argument string passed to entry.
func RunArgs(m Manifest, args string, entry func(args string) int32) int32 {
	b, err := thread.NewBuilder().Name(m.Name)
	if err != nil {
		furi.Logger().Error("bad app name", zap.String("name", m.Name), zap.Error(err))
		return -1
	}
	if m.StackSize > 0 {
		b = b.StackSize(m.StackSize)
	}
	h := b.AppID(m.AppID).Spawn(func() int32 {
		code := entry(args)
		WaitForCompletion()
		return code
	})

	code := h.Join()
	furi.Logger().Info("app exited",
		zap.String("app", m.Name),
		zap.String("app_id", m.AppID),
		zap.Int32("code", code),
	)
	return code
}

// WaitForCompletion blocks the calling kernel thread until no other thread
// with its app id is running. Service threads (names ending in "Srv") are
// not waited for. On a goroutine that is not a kernel thread it returns at once.
func WaitForCompletion() {
	self := kernel.CurrentThread()
	if self == nil {
		return
	}
	for othersRunning(self.AppID(), self.ID()) {
		thread.Sleep(pollInterval)
	}
}

func othersRunning(appID string, self kernel.ThreadID) bool {
	for _, info := range kernel.Threads() {
		if info.ID == self || info.AppID != appID {
			continue
		}
		if strings.HasSuffix(info.Name, "Srv") {
			continue
		}
		return true
	}
	return false
}
