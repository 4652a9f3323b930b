package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
)

// Level is a log severity; messages below the active level are dropped.
type Level int

const (
	Critical Level = 50
	Fatal    Level = Critical
	Error    Level = 40
	Warning  Level = 30
	Info     Level = 20
	Debug    Level = 10
	NotSet   Level = 0
)

var (
	logLevel      = Warning
	logLevelMutex sync.Mutex
)

func init() {
	localEnv := os.Getenv("LOCAL")
	if strings.ToLower(localEnv) == "true" || localEnv == "1" {
		SetLogLevel(Debug)
	}
}

// ParseLevel maps a level name such as "debug" or "warn" to a Level.
func ParseLevel(name string) (Level, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return Debug, true
	case "info":
		return Info, true
	case "warn", "warning":
		return Warning, true
	case "error":
		return Error, true
	case "critical", "fatal":
		return Critical, true
	}
	return NotSet, false
}

// SetLogLevel sets the process-wide level used by the package functions.
func SetLogLevel(level Level) {
	logLevelMutex.Lock()
	defer logLevelMutex.Unlock()
	logLevel = level
}

// CurrentLevel returns the process-wide level.
func CurrentLevel() Level {
	logLevelMutex.Lock()
	defer logLevelMutex.Unlock()
	return logLevel
}

func enabled(level Level) bool {
	return CurrentLevel() <= level
}

func Debugf(format string, v ...interface{}) {
	if enabled(Debug) {
		log.Printf("[DEBUG] "+format, v...)
	}
}

func Infof(format string, v ...interface{}) {
	if enabled(Info) {
		log.Printf("[INFO] "+format, v...)
	}
}

func Warningf(format string, v ...interface{}) {
	if enabled(Warning) {
		log.Printf("[WARN] "+format, v...)
	}
}

func Errorf(format string, v ...interface{}) {
	if enabled(Error) {
		log.Printf("[ERROR] "+format, v...)
	}
}

func Fatalf(format string, v ...interface{}) {
	log.Fatalf("[FATAL] "+format, v...)
}

// Logger writes prefixed key/value lines. A Logger without its own level
// follows the process-wide level.
type Logger struct {
	prefix string
	logger *log.Logger

	mu    sync.Mutex
	level Level
}

// NewLogger creates a logger writing to stdout with the given prefix.
func NewLogger(prefix string) *Logger {
	return NewLoggerTo(os.Stdout, prefix)
}

// NewLoggerTo creates a logger writing to w.
func NewLoggerTo(w io.Writer, prefix string) *Logger {
	return &Logger{
		prefix: prefix,
		logger: log.New(w, fmt.Sprintf("[%s] ", prefix), log.LstdFlags),
		level:  NotSet,
	}
}

// SetLogLevel pins this logger's level, detaching it from the process-wide level.
func (l *Logger) SetLogLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

func (l *Logger) enabled(level Level) bool {
	l.mu.Lock()
	own := l.level
	l.mu.Unlock()
	if own == NotSet {
		return enabled(level)
	}
	return own <= level
}

// Debug logs a debug message
func (l *Logger) Debug(msg string, keyvals ...interface{}) {
	l.write(Debug, "DEBUG", msg, keyvals...)
}

// Info logs an informational message
func (l *Logger) Info(msg string, keyvals ...interface{}) {
	l.write(Info, "INFO", msg, keyvals...)
}

// Warn logs a warning message
func (l *Logger) Warn(msg string, keyvals ...interface{}) {
	l.write(Warning, "WARN", msg, keyvals...)
}

// Error logs an error message
func (l *Logger) Error(msg string, keyvals ...interface{}) {
	l.write(Error, "ERROR", msg, keyvals...)
}

func (l *Logger) write(level Level, tag, msg string, keyvals ...interface{}) {
	if l == nil || !l.enabled(level) {
		return
	}
	l.logger.Println(formatMessage(tag, msg, keyvals...))
}

// formatMessage formats a message with key-value pairs
func formatMessage(level, msg string, keyvals ...interface{}) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", level, msg)
	for i := 0; i+1 < len(keyvals); i += 2 {
		fmt.Fprintf(&b, " %v=%v", keyvals[i], keyvals[i+1])
	}
	return b.String()
}
