// Package logger builds the process-wide structured logger.
package logger

import (
	"io"
	"strings"

	log "github.com/sirupsen/logrus"
)

// New returns a logger writing to w. Unknown levels fall back to info, unknown formats to text.
func New(level, format string, w io.Writer) *log.Logger {
	logger := log.New()
	logger.SetOutput(w)
	logger.SetLevel(parseLevel(level))

	switch strings.ToLower(format) {
	case "json":
		logger.SetFormatter(&log.JSONFormatter{})
	default:
		logger.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	return logger
}

func parseLevel(level string) log.Level {
	lvl, err := log.ParseLevel(strings.TrimSpace(level))
	if err != nil || lvl > log.DebugLevel {
		return log.InfoLevel
	}
	return lvl
}
