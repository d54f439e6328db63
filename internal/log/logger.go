package log

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"modelctl/internal/core"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LineFormatter renders entries as "[time] [LEVEL] message".
type LineFormatter struct{}

// Format implements logrus.Formatter.
func (f *LineFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	buffer := entry.Buffer
	if buffer == nil {
		buffer = &bytes.Buffer{}
	}

	level := strings.ToUpper(entry.Level.String())
	if level == "WARNING" {
		level = "WARN"
	}

	fmt.Fprintf(buffer, "[%s] [%s] %s", entry.Time.Format(core.TimeFormatDateTime), level, strings.TrimRight(entry.Message, "\r\n"))
	for k, v := range entry.Data {
		fmt.Fprintf(buffer, " %s=%v", k, v)
	}
	buffer.WriteByte('\n')
	return buffer.Bytes(), nil
}

// AppLogger is the application logger implementation.
type AppLogger struct {
	logger     *logrus.Logger
	fileHandle io.Closer
	mu         sync.Mutex
}

// NewAppLoggerWithConfig creates a logger instance with configuration.
func NewAppLoggerWithConfig(output io.Writer, debugMode bool) *AppLogger {
	logger := logrus.New()
	logger.SetOutput(output)
	logger.SetFormatter(&LineFormatter{})
	if debugMode {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}
	return &AppLogger{logger: logger}
}

// Debug logs a message at DEBUG level.
func (l *AppLogger) Debug(format string, args ...any) {
	if l != nil {
		l.logger.Debugf(format, args...)
	}
}

// Info logs a message at INFO level.
func (l *AppLogger) Info(format string, args ...any) {
	if l != nil {
		l.logger.Infof(format, args...)
	}
}

// Warn logs a message at WARN level.
func (l *AppLogger) Warn(format string, args ...any) {
	if l != nil {
		l.logger.Warnf(format, args...)
	}
}

// Error logs a message at ERROR level.
func (l *AppLogger) Error(format string, args ...any) {
	if l != nil {
		l.logger.Errorf(format, args...)
	}
}

// Fatal logs a message at FATAL level and terminates the process.
func (l *AppLogger) Fatal(format string, args ...any) {
	if l != nil {
		l.logger.Fatalf(format, args...)
		return
	}
	logrus.Fatalf(format, args...)
}

// IsDebugEnabled reports whether debug messages are emitted.
func (l *AppLogger) IsDebugEnabled() bool {
	return l != nil && l.logger.IsLevelEnabled(logrus.DebugLevel)
}

// Writer returns a pipe that logs each written line at the given level.
// The caller owns the returned writer and must close it.
func (l *AppLogger) Writer(level logrus.Level) *io.PipeWriter {
	return l.logger.WriterLevel(level)
}

// Close safely closes the log file handle.
func (l *AppLogger) Close() error {
	if l == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.fileHandle != nil {
		err := l.fileHandle.Close()
		l.fileHandle = nil
		return err
	}
	return nil
}

// containsPathTraversal reports whether path tries to escape its directory.
func containsPathTraversal(path string) bool {
	for _, part := range strings.FieldsFunc(path, func(r rune) bool { return r == '/' || r == '\\' }) {
		if part == ".." {
			return true
		}
	}
	return false
}

// createFileOutput returns a rotating writer for LOG_FILE, or stdout when
// unset or unusable.
func createFileOutput(path string) (io.Writer, io.Closer, error) {
	if path == "" {
		return os.Stdout, nil, nil
	}
	if containsPathTraversal(path) {
		return os.Stdout, nil, fmt.Errorf("LOG_FILE %q contains path traversal", path)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return os.Stdout, nil, fmt.Errorf("failed to create log directory: %w", err)
		}
	}

	rotating := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    core.DefaultLogMaxSizeMB,
		MaxBackups: core.DefaultLogMaxBackups,
		MaxAge:     core.DefaultLogMaxAgeDays,
	}
	return io.MultiWriter(os.Stdout, rotating), rotating, nil
}

// IsDebug returns whether the app is running in debug mode.
func IsDebug() bool {
	return os.Getenv("GIN_MODE") == gin.DebugMode || strings.EqualFold(os.Getenv("LOG_LEVEL"), "debug")
}

// CreateLogger creates a logger instance (for dependency injection).
func CreateLogger() core.Logger {
	output, closer, fileErr := createFileOutput(os.Getenv("LOG_FILE"))

	logger := NewAppLoggerWithConfig(output, IsDebug())
	logger.fileHandle = closer

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		if parsed, err := logrus.ParseLevel(level); err == nil {
			logger.logger.SetLevel(parsed)
		} else {
			logger.Warn("Unknown LOG_LEVEL %q, keeping %s", level, logger.logger.GetLevel())
		}
	}
	if fileErr != nil {
		logger.Warn("%v, falling back to stdout", fileErr)
	}

	return logger
}
