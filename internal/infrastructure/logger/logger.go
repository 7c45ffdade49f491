package logger

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/haxorport/tunnel-bridge/internal/domain/port"
)

const timeLayout = "2006-01-02T15:04:05.000Z07:00"

// Level is a logging severity
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = [...]string{
	LevelDebug: "DEBUG",
	LevelInfo:  "INFO",
	LevelWarn:  "WARN",
	LevelError: "ERROR",
}

var levelAliases = map[string]Level{
	"debug":   LevelDebug,
	"info":    LevelInfo,
	"warn":    LevelWarn,
	"warning": LevelWarn,
	"error":   LevelError,
}

func (l Level) String() string {
	if l < LevelDebug || l > LevelError {
		return "UNKNOWN"
	}
	return levelNames[l]
}

// ParseLevel reads a configured level name. Unknown names mean info.
func ParseLevel(name string) Level {
	if level, ok := levelAliases[strings.ToLower(strings.TrimSpace(name))]; ok {
		return level
	}
	return LevelInfo
}

// Logger writes leveled printf-style lines to one or more sinks.
// It owns, and closes, only the log files it opened itself.
type Logger struct {
	mutex sync.RWMutex
	level Level
	out   *log.Logger
	files []*os.File
}

// NewLogger creates a logger writing to w
func NewLogger(w io.Writer, level string) *Logger {
	return &Logger{
		level: ParseLevel(level),
		out:   log.New(w, "", 0),
	}
}

// NewFileLogger creates a logger appending to filePath
func NewFileLogger(filePath string, level string) (*Logger, error) {
	return NewTeeLogger(filePath, level, nil)
}

// NewTeeLogger creates a logger appending to filePath and mirroring
// every line to console when it is not nil
func NewTeeLogger(filePath string, level string, console io.Writer) (*Logger, error) {
	file, err := openLogFile(filePath)
	if err != nil {
		return nil, err
	}

	sinks := []io.Writer{file}
	if console != nil {
		sinks = append([]io.Writer{console}, sinks...)
	}

	l := NewLogger(io.MultiWriter(sinks...), level)
	l.files = append(l.files, file)
	return l, nil
}

func openLogFile(filePath string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return file, nil
}

// SetLevel changes the minimum level that is written
func (l *Logger) SetLevel(level string) {
	l.mutex.Lock()
	l.level = ParseLevel(level)
	l.mutex.Unlock()
}

// Level returns the minimum level that is written
func (l *Logger) Level() Level {
	l.mutex.RLock()
	defer l.mutex.RUnlock()
	return l.level
}

func (l *Logger) emit(level Level, format string, args []interface{}) {
	if level < l.Level() {
		return
	}
	message := format
	if len(args) > 0 {
		message = fmt.Sprintf(format, args...)
	}
	l.out.Printf("%s %s %s", time.Now().Format(timeLayout), level, message)
}

func (l *Logger) Debug(format string, args ...interface{}) { l.emit(LevelDebug, format, args) }
func (l *Logger) Info(format string, args ...interface{})  { l.emit(LevelInfo, format, args) }
func (l *Logger) Warn(format string, args ...interface{})  { l.emit(LevelWarn, format, args) }
func (l *Logger) Error(format string, args ...interface{}) { l.emit(LevelError, format, args) }

// Close closes the log files opened by this logger
func (l *Logger) Close() error {
	l.mutex.Lock()
	files := l.files
	l.files = nil
	l.mutex.Unlock()

	var errs []error
	for _, file := range files {
		if err := file.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var _ port.Logger = (*Logger)(nil)
