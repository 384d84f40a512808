// logger.go — Shared logrus logging for the collaborator HTTP clients.
//
// The entitlement core services log through internal/logger (slog); the
// catalog proxy and watch-URL resolver predate that package and keep the
// logrus style.
//
// Usage:
//
//	log := logging.NewLogger("catalog")
//	log.WithField("endpoint", "/trending/all/week").Info("catalog fetch")
package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

// NewLogger creates a new logrus logger pre-configured for a named client.
// Output is JSON to stdout. Log level is controlled by LOG_LEVEL env var
// (default: info). The component field is embedded in every log line.
func NewLogger(component string) *logrus.Entry {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	log.SetOutput(os.Stdout)

	levelStr := os.Getenv("LOG_LEVEL")
	level, err := logrus.ParseLevel(levelStr)
	if err != nil || levelStr == "" {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	return log.WithField("component", component)
}
