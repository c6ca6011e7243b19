package logger

import (
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"
)

// skipped packages never count as the call site of a log line.
var skipped = []string{"sirupsen/logrus", "cryptosnap/logger"}

// callerHook points entry.Caller at the first frame outside logrus and the
// wrappers in this package, so Entry helpers report the real call site.
type callerHook struct{}

func (h *callerHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *callerHook) Fire(entry *logrus.Entry) error {
	pcs := make([]uintptr, 16)
	n := runtime.Callers(6, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		if !isSkipped(frame.Function) {
			entry.Caller = &frame
			return nil
		}
		if !more {
			return nil
		}
	}
}

func isSkipped(fn string) bool {
	for _, pkg := range skipped {
		if strings.Contains(fn, pkg) {
			return true
		}
	}
	return false
}
