package rt

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"tinygo.org/x/drivers"

	"furigo/kernel"
	"furigo/services/gui"
)

// InstallCrashHandler logs kernel crashes to l. When screens are given the
// crash report is also drawn on them.
func InstallCrashHandler(l *zap.Logger, screens ...drivers.Displayer) {
	if l == nil {
		l = zap.NewNop()
	}
	kernel.SetCrashHandler(func(info kernel.CrashInfo) {
		l.Error("furi crash",
			zap.String("message", info.Message),
			zap.Uint64("thread_id", uint64(info.Thread)),
			zap.String("thread", info.ThreadName),
			zap.ByteString("stack", info.Stack),
		)
		lines := crashLines(info)
		for _, d := range screens {
			if d == nil {
				continue
			}
			drawCrash(d, lines)
		}
	})
}

func crashLines(info kernel.CrashInfo) []string {
	name := info.ThreadName
	if name == "" {
		name = "?"
	}
	lines := []string{
		"Furi Crash:",
		fmt.Sprintf("thread: %s (%d)", name, info.Thread),
		info.Message,
	}
	if len(info.Stack) == 0 {
		return append(lines, "stack: unavailable")
	}
	lines = append(lines, "stack:")
	for _, line := range strings.Split(string(info.Stack), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func drawCrash(d drivers.Displayer, lines []string) {
	w, h := d.Size()
	for y := int16(0); y < h; y++ {
		for x := int16(0); x < w; x++ {
			d.SetPixel(x, y, gui.White)
		}
	}
	gui.DrawLines(d, gui.Font, lines, gui.Black)
	_ = d.Display()
}
