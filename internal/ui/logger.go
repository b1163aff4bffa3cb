package ui

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
)

// LogTimestampFormat is the timestamp layout of every log entry
const LogTimestampFormat = "2006-01-02 15:04:05.000"

// NewLogger creates a text logger writing to w at the given level
func NewLogger(w io.Writer, logLevel string) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level '%s': %w", logLevel, err)
	}

	logger := logrus.New()
	logger.SetLevel(level)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: LogTimestampFormat,
	})
	logger.SetOutput(w)
	return logger, nil
}

// InitializeLogger sets up file-based logging in logDir. The terminal host
// owns stdout, so nothing is logged to the terminal.
func InitializeLogger(logDir, logLevel string) (*logrus.Logger, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory '%s': %w", logDir, err)
	}

	timestamp := time.Now().Format("2006-01-02T15-04-05")
	logFile := filepath.Join(logDir, fmt.Sprintf("termynal-%s.log", timestamp))

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file '%s': %w", logFile, err)
	}

	logger, err := NewLogger(file, logLevel)
	if err != nil {
		file.Close()
		return nil, err
	}

	logger.WithField("log_file", logFile).Info("Logger initialized")
	return logger, nil
}
