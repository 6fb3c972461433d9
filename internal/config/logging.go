package config

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/mrz1836/chainpay/internal/fileutil"
)

// LogLevel represents logging verbosity levels.
type LogLevel int

// Log level constants.
const (
	LogLevelOff LogLevel = iota
	LogLevelError
	LogLevelWarn
	LogLevelInfo
	LogLevelDebug
)

// ParseLogLevel parses a log level string.
func ParseLogLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off", "none":
		return LogLevelOff
	case "error":
		return LogLevelError
	case "warn", "warning":
		return LogLevelWarn
	case "info":
		return LogLevelInfo
	case "debug":
		return LogLevelDebug
	default:
		return LogLevelError
	}
}

// String returns the string representation of a log level.
func (l LogLevel) String() string {
	switch l {
	case LogLevelOff:
		return "off"
	case LogLevelError:
		return "error"
	case LogLevelWarn:
		return "warn"
	case LogLevelInfo:
		return "info"
	case LogLevelDebug:
		return "debug"
	default:
		return "error"
	}
}

func (l LogLevel) zapLevel() zapcore.Level {
	switch l {
	case LogLevelDebug:
		return zapcore.DebugLevel
	case LogLevelInfo:
		return zapcore.InfoLevel
	case LogLevelWarn:
		return zapcore.WarnLevel
	default:
		return zapcore.ErrorLevel
	}
}

// Logger writes leveled, printf-style log lines through zap.
type Logger struct {
	mu    sync.Mutex
	level zap.AtomicLevel
	off   bool
	sugar *zap.SugaredLogger
	file  *os.File
}

// NewLogger creates a logger appending to filePath.
// Level off or an empty path yields a logger that discards everything.
func NewLogger(level LogLevel, filePath string) (*Logger, error) {
	if level == LogLevelOff || filePath == "" {
		return NullLogger(), nil
	}

	filePath = ExpandHome(filePath)

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(filePath), fileutil.DirPerm); err != nil {
		return nil, err
	}

	// #nosec G304 -- log file path is from validated config
	f, err := os.OpenFile(filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, err
	}

	l := NewWriterLogger(level, f)
	l.file = f
	return l, nil
}

// NewWriterLogger creates a logger writing to w.
func NewWriterLogger(level LogLevel, w io.Writer) *Logger {
	atom := zap.NewAtomicLevelAt(level.zapLevel())
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05.000")
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(w), atom)

	return &Logger{
		level: atom,
		off:   level == LogLevelOff,
		sugar: zap.New(core).Sugar(),
	}
}

// NullLogger returns a logger that discards all output.
func NullLogger() *Logger {
	return &Logger{
		level: zap.NewAtomicLevelAt(zapcore.ErrorLevel),
		off:   true,
		sugar: zap.NewNop().Sugar(),
	}
}

// Close flushes and closes the log file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	_ = l.sugar.Sync()
	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		return err
	}
	return nil
}

// SetLevel changes the log level.
func (l *Logger) SetLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.off = level == LogLevelOff
	l.level.SetLevel(level.zapLevel())
}

// Level returns the current log level.
func (l *Logger) Level() LogLevel {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.off {
		return LogLevelOff
	}
	switch l.level.Level() {
	case zapcore.DebugLevel:
		return LogLevelDebug
	case zapcore.InfoLevel:
		return LogLevelInfo
	case zapcore.WarnLevel:
		return LogLevelWarn
	default:
		return LogLevelError
	}
}

// Debug logs a debug message.
func (l *Logger) Debug(format string, args ...any) {
	if l.enabled() {
		l.sugar.Debugf(format, args...)
	}
}

// Info logs an informational message.
func (l *Logger) Info(format string, args ...any) {
	if l.enabled() {
		l.sugar.Infof(format, args...)
	}
}

// Warn logs a warning.
func (l *Logger) Warn(format string, args ...any) {
	if l.enabled() {
		l.sugar.Warnf(format, args...)
	}
}

// Error logs an error message.
func (l *Logger) Error(format string, args ...any) {
	if l.enabled() {
		l.sugar.Errorf(format, args...)
	}
}

func (l *Logger) enabled() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return !l.off
}

// Writer returns an io.Writer that writes to the logger at the specified level.
func (l *Logger) Writer(level LogLevel) io.Writer {
	return &logWriter{logger: l, level: level}
}

// logWriter implements io.Writer for the logger.
type logWriter struct {
	logger *Logger
	level  LogLevel
}

func (w *logWriter) Write(p []byte) (n int, err error) {
	msg := strings.TrimSpace(string(p))
	switch w.level {
	case LogLevelOff:
	case LogLevelDebug:
		w.logger.Debug("%s", msg)
	case LogLevelInfo:
		w.logger.Info("%s", msg)
	case LogLevelWarn:
		w.logger.Warn("%s", msg)
	default:
		w.logger.Error("%s", msg)
	}
	return len(p), nil
}
