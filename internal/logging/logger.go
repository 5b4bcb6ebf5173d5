// Package logging holds the logger shared by the partitioning packages and
// the command-line tool.
package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

var logger *logrus.Logger

func init() {
	logger = logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	logger.SetLevel(logrus.InfoLevel)
}

// GetLogger returns the shared logger.
func GetLogger() *logrus.Logger {
	return logger
}

// SetLogLevel parses level (e.g. "debug", "warn") and applies it to the
// shared logger.
func SetLogLevel(level string) error {
	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}

	logger.SetLevel(logLevel)

	return nil
}

// SetFormatter sets the formatter of the shared logger.
func SetFormatter(formatter logrus.Formatter) {
	logger.SetFormatter(formatter)
}
