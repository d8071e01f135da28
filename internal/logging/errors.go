package logging

import (
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"
)

// InitSentry enables error reporting. An empty dsn leaves it off and every
// capture below becomes a no-op.
func InitSentry(dsn, environment string) error {
	if dsn == "" {
		return nil
	}

	return sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      environment,
		AttachStacktrace: true,
	})
}

func FlushSentry() {
	sentry.Flush(2 * time.Second)
}

// LogError logs err with its context and reports it to Sentry.
func LogError(err error, errorType string, context map[string]interface{}) {
	entry := Logger.WithError(err).WithField("error_type", errorType)
	for k, v := range context {
		entry = entry.WithField(k, v)
	}
	entry.Error("error occurred")

	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("error_type", errorType)
		for k, v := range context {
			scope.SetExtra(k, v)
		}
		sentry.CaptureException(err)
	})
}

// LogPanic reports a recovered panic value.
func LogPanic(recovered interface{}, context logrus.Fields) {
	Logger.WithFields(context).WithField("panic", recovered).Error("recovered from panic")

	hub := sentry.CurrentHub().Clone()
	hub.WithScope(func(scope *sentry.Scope) {
		for k, v := range context {
			scope.SetExtra(k, v)
		}
		hub.Recover(recovered)
	})
}
