// Package logging provides structured logging for touchline.
//
// The logger supports multiple levels (DEBUG, INFO, WARN, ERROR, FATAL) and
// structured key-value fields. Each component obtains a named logger:
//
//	logger := logging.GetLogger("resolver")
//	logger.Info("resolved fixture %d", id)
//
// Structured fields are preferred for anything that gets searched later:
//
//	logger.InfoWithFields("store query complete",
//	    logging.Field("mode", "league"),
//	    logging.Field("candidates", len(records)),
//	)
//
// Logger instances are immutable; WithField and WithFields return copies,
// so loggers are safe to share across goroutines.
package logging

import (
	"os"
	"strings"
	"sync"
)

// LogLevel represents the logging level.
type LogLevel int

const (
	// DEBUG level for detailed debugging information
	DEBUG LogLevel = iota
	// INFO level for informational messages
	INFO
	// WARN level for warning messages
	WARN
	// ERROR level for error messages
	ERROR
	// FATAL level for fatal messages
	FATAL
)

const strError = "ERROR"

// LogField represents a structured logging field.
type LogField struct {
	Key   string
	Value interface{}
}

// Field creates a structured logging field.
func Field(key string, value interface{}) LogField {
	return LogField{Key: key, Value: value}
}

// Logger provides structured logging throughout the application.
type Logger struct {
	level  LogLevel
	name   string
	fields map[string]interface{}
}

var (
	globalLogger *Logger
	initOnce     sync.Once
	// exitFunc is called by Fatal. Overridable for testing.
	exitFunc = os.Exit

	// componentLogLevels holds per-component overrides, keyed by component
	// name or a "prefix.*" wildcard pattern.
	componentLogLevels = make(map[string]LogLevel)
	componentLogMutex  sync.RWMutex
)

// Initialize sets up the global logger with the given default level and
// optional per-component overrides, e.g. {"supervisor": "debug", "agent.*": "warn"}.
func Initialize(levelStr string, componentLevels ...map[string]string) error {
	level, err := parseLevel(levelStr)
	if err != nil {
		level = INFO
	}

	globalLogger = &Logger{
		level: level,
		name:  "touchline",
	}

	if len(componentLevels) > 0 && componentLevels[0] != nil {
		if err := SetComponentLogLevels(componentLevels[0]); err != nil {
			return err
		}
	}
	return nil
}

// SetComponentLogLevels configures per-component log levels. Patterns ending
// in ".*" match every component under that prefix.
func SetComponentLogLevels(levels map[string]string) error {
	if levels == nil {
		return nil
	}

	componentLogMutex.Lock()
	defer componentLogMutex.Unlock()

	componentLogLevels = make(map[string]LogLevel)
	for name, levelStr := range levels {
		level, err := parseLevel(levelStr)
		if err != nil {
			return err
		}
		componentLogLevels[name] = level
	}
	return nil
}

// GetLogger returns a logger for the named component.
// Thread-safe: the global logger is lazily initialized exactly once.
func GetLogger(name string) *Logger {
	initOnce.Do(func() {
		if globalLogger == nil {
			_ = Initialize("info")
		}
	})
	return &Logger{
		level:  globalLogger.level,
		name:   name,
		fields: make(map[string]interface{}),
	}
}

// componentLevel returns the override level for a component, or -1 if none
// is configured. Exact matches win over wildcard patterns.
func componentLevel(name string) LogLevel {
	componentLogMutex.RLock()
	defer componentLogMutex.RUnlock()

	if level, ok := componentLogLevels[name]; ok {
		return level
	}
	for pattern, level := range componentLogLevels {
		if strings.HasSuffix(pattern, ".*") {
			prefix := strings.TrimSuffix(pattern, ".*")
			if strings.HasPrefix(name, prefix+".") {
				return level
			}
		}
	}
	return LogLevel(-1)
}

func (l *Logger) shouldLog(level LogLevel) bool {
	if override := componentLevel(l.name); override >= 0 {
		return level >= override
	}
	return level >= l.level
}

func parseLevel(levelStr string) (LogLevel, error) {
	switch strings.ToUpper(levelStr) {
	case "DEBUG":
		return DEBUG, nil
	case "INFO":
		return INFO, nil
	case "WARN":
		return WARN, nil
	case strError:
		return ERROR, nil
	case "FATAL":
		return FATAL, nil
	default:
		return -1, &InvalidLevelError{Level: levelStr}
	}
}

// InvalidLevelError reports an unrecognized log level string.
type InvalidLevelError struct {
	Level string
}

func (e *InvalidLevelError) Error() string {
	return "invalid log level: " + e.Level + " (must be DEBUG, INFO, WARN, ERROR, or FATAL)"
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, args ...interface{}) {
	if l.shouldLog(DEBUG) {
		l.logf("DEBUG", msg, args...)
	}
}

// Info logs an info message.
func (l *Logger) Info(msg string, args ...interface{}) {
	if l.shouldLog(INFO) {
		l.logf("INFO", msg, args...)
	}
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string, args ...interface{}) {
	if l.shouldLog(WARN) {
		l.logf("WARN", msg, args...)
	}
}

// Error logs an error message.
func (l *Logger) Error(msg string, args ...interface{}) {
	if l.shouldLog(ERROR) {
		l.logf(strError, msg, args...)
	}
}

// ErrorWithErr logs an error message with an error object.
func (l *Logger) ErrorWithErr(msg string, err error, args ...interface{}) {
	if l.shouldLog(ERROR) {
		args = append(args, err)
		l.logf(strError, msg+" - %v", args...)
	}
}

// Fatal logs a fatal message and exits the program with code 1.
func (l *Logger) Fatal(msg string, args ...interface{}) {
	if l.shouldLog(FATAL) {
		l.logf("FATAL", msg, args...)
		exitFunc(1)
	}
}

// WithName returns a new logger with a different component name.
func (l *Logger) WithName(name string) *Logger {
	return &Logger{
		level:  l.level,
		name:   name,
		fields: make(map[string]interface{}),
	}
}

// WithField returns a new logger carrying an additional persistent field.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	newLogger := &Logger{
		level:  l.level,
		name:   l.name,
		fields: cloneFields(l.fields),
	}
	newLogger.fields[key] = value
	return newLogger
}

// WithFields returns a new logger carrying additional persistent fields.
func (l *Logger) WithFields(fields ...LogField) *Logger {
	newLogger := &Logger{
		level:  l.level,
		name:   l.name,
		fields: cloneFields(l.fields),
	}
	for _, f := range fields {
		newLogger.fields[f.Key] = f.Value
	}
	return newLogger
}

// DebugWithFields logs a debug message with structured fields.
func (l *Logger) DebugWithFields(msg string, fields ...LogField) {
	if l.shouldLog(DEBUG) {
		l.logWithFields("DEBUG", msg, fields...)
	}
}

// InfoWithFields logs an info message with structured fields.
func (l *Logger) InfoWithFields(msg string, fields ...LogField) {
	if l.shouldLog(INFO) {
		l.logWithFields("INFO", msg, fields...)
	}
}

// WarnWithFields logs a warning message with structured fields.
func (l *Logger) WarnWithFields(msg string, fields ...LogField) {
	if l.shouldLog(WARN) {
		l.logWithFields("WARN", msg, fields...)
	}
}

// ErrorWithFields logs an error message with structured fields.
func (l *Logger) ErrorWithFields(msg string, fields ...LogField) {
	if l.shouldLog(ERROR) {
		l.logWithFields(strError, msg, fields...)
	}
}

func (l *Logger) logWithFields(level, msg string, fields ...LogField) {
	var merged map[string]interface{}
	if len(l.fields) > 0 || len(fields) > 0 {
		merged = cloneFields(l.fields)
		for _, f := range fields {
			merged[f.Key] = f.Value
		}
	}
	l.writeLog(level, msg, merged)
}

// cloneFields copies a fields map. Returns an empty map for nil input.
func cloneFields(src map[string]interface{}) map[string]interface{} {
	if len(src) == 0 {
		return make(map[string]interface{})
	}
	dst := make(map[string]interface{}, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
