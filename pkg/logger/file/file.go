package file

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"
)

// FileLogger implements LoggerInstance and appends JSON lines to a log file.
// It is used to keep an analysis.log next to the exported tables.
type FileLogger struct {
	logger *log.Logger
	file   *os.File
	once   sync.Once
}

// FileLoggerParams contains configuration for creating a FileLogger.
type FileLoggerParams struct {
	Path  string
	Debug bool
}

// NewFileLogger opens (or creates) the file at params.Path, creating parent
// directories as needed.
func NewFileLogger(params FileLoggerParams) (*FileLogger, error) {
	if params.Path == "" {
		return nil, fmt.Errorf("log file path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(params.Path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(params.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	level := log.InfoLevel
	if params.Debug {
		level = log.DebugLevel
	}
	logger := log.NewWithOptions(f, log.Options{
		ReportTimestamp: true,
		Level:           level,
		Formatter:       log.JSONFormatter,
	})

	return &FileLogger{logger: logger, file: f}, nil
}

// Close flushes and closes the underlying file. It is safe to call twice.
func (l *FileLogger) Close() error {
	var err error
	l.once.Do(func() {
		err = l.file.Close()
	})
	return err
}

func (l *FileLogger) Log(message string, keyvals ...any) {
	l.logger.Print(message, keyvals...)
}

func (l *FileLogger) Info(message string, keyvals ...any) {
	l.logger.Info(message, keyvals...)
}

func (l *FileLogger) Warn(message string, keyvals ...any) {
	l.logger.Warn(message, keyvals...)
}

func (l *FileLogger) Error(message string, keyvals ...any) {
	l.logger.Error(message, keyvals...)
}

func (l *FileLogger) Debug(message string, keyvals ...any) {
	l.logger.Debug(message, keyvals...)
}

// Fatal writes the message and exits. The file is closed first so the last
// line is not lost.
func (l *FileLogger) Fatal(message string, keyvals ...any) {
	l.logger.Error(message, keyvals...)
	_ = l.Close()
	os.Exit(1)
}
