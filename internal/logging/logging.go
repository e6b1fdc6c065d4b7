package logging

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// New builds the application logger. The TUI owns the terminal, so all log
// output goes to omniwork.log inside the state directory. If the file cannot
// be opened the logger is silenced rather than corrupting the screen.
func New(stateDir, level string) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logger.SetLevel(parseLevel(level))

	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		logger.SetOutput(io.Discard)
		return logger
	}
	path := filepath.Join(stateDir, "omniwork.log")
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		logger.SetOutput(io.Discard)
		return logger
	}
	logger.SetOutput(file)
	return logger
}

// Discard returns a logger that drops everything. Used by tests and as a
// default when callers pass nil.
func Discard() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func parseLevel(level string) logrus.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return logrus.DebugLevel
	case "warn":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}
