package util

import (
	"fmt"

	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"
)

// Hook forwards error level log entries to sentry.
type Hook struct {
	Hub *sentry.Hub
}

var (
	levels = []logrus.Level{logrus.PanicLevel, logrus.FatalLevel, logrus.ErrorLevel}
)

func (h *Hook) Levels() []logrus.Level {
	return levels
}

func (h *Hook) Fire(entry *logrus.Entry) error {
	h.Hub.WithScope(func(scope *sentry.Scope) {
		for key, value := range entry.Data {
			if key == logrus.ErrorKey {
				continue
			}
			scope.SetExtra(key, fmt.Sprintf("%v", value))
		}
		if err, ok := entry.Data[logrus.ErrorKey].(error); ok {
			scope.SetExtra("message", entry.Message)
			h.Hub.CaptureException(err)
			return
		}
		h.Hub.CaptureMessage(entry.Message)
	})
	return nil
}
