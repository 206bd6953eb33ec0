package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Logger is the project-wide logger type.
type Logger = *logrus.Logger

// NewLogger creates a JSON logger writing to stdout.
func NewLogger() Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	logger.SetOutput(os.Stdout)
	logger.SetLevel(logrus.InfoLevel)
	return logger
}

// NewLoggerWithService creates a logger that tags every entry with the
// service name.
func NewLoggerWithService(service string) *logrus.Entry {
	return NewLogger().WithField("service", service)
}
