package logger

import (
	"fmt"
	"os"
	"strings"

	"github.com/vherrmann/twilight/pkg/env"
)

// LogScope represents the scope/context information for logging
type LogScope struct {
	Label string `json:"label,omitempty"`
	Entry string `json:"entry,omitempty"`
}

// LogMeta represents additional metadata for structured logging
type LogMeta map[string]interface{}

// LogLevel represents the severity level of a log message
type LogLevel string

const (
	LogLevelError   LogLevel = "error"
	LogLevelWarning LogLevel = "warning"
	LogLevelInfo    LogLevel = "info"
	LogLevelDebug   LogLevel = "debug"
)

// LogFunction is the function signature for logging
type LogFunction func(level LogLevel, message string, meta ...LogMeta)

// LogFunctionFactory creates a LogFunction with the given scope
type LogFunctionFactory func(scope LogScope) LogFunction

// Logger provides structured logging capabilities
type Logger struct {
	scope      LogScope
	logFactory LogFunctionFactory
	logFn      LogFunction
}

// NewLogger creates a new Logger instance
func NewLogger(logFactory LogFunctionFactory, scope ...LogScope) *Logger {
	var finalScope LogScope
	if len(scope) > 0 {
		finalScope = scope[0]
	}

	return &Logger{
		scope:      finalScope,
		logFactory: logFactory,
		logFn:      logFactory(finalScope),
	}
}

// Scope returns a new Logger with additional scope information
func (l *Logger) Scope(additionalScope LogScope) *Logger {
	newScope := l.scope

	// Merge scopes, with additionalScope taking precedence
	if additionalScope.Label != "" {
		newScope.Label = additionalScope.Label
	}
	if additionalScope.Entry != "" {
		newScope.Entry = additionalScope.Entry
	}

	return &Logger{
		scope:      newScope,
		logFactory: l.logFactory,
		logFn:      l.logFactory(newScope),
	}
}

// Error logs an error message
func (l *Logger) Error(message string, meta ...LogMeta) {
	l.logFn(LogLevelError, message, meta...)
}

// Warn logs a warning message
func (l *Logger) Warn(message string, meta ...LogMeta) {
	l.logFn(LogLevelWarning, message, meta...)
}

// Info logs an informational message
func (l *Logger) Info(message string, meta ...LogMeta) {
	l.logFn(LogLevelInfo, message, meta...)
}

// Debug logs a debug message
func (l *Logger) Debug(message string, meta ...LogMeta) {
	l.logFn(LogLevelDebug, message, meta...)
}

// levelRank orders levels from most to least severe.
func levelRank(level LogLevel) int {
	switch level {
	case LogLevelError:
		return 0
	case LogLevelWarning:
		return 1
	case LogLevelInfo:
		return 2
	case LogLevelDebug:
		return 3
	}
	return 2
}

// levelEnabled reports whether the configured log level admits a message.
// TWILIGHT_DEBUG is a shortcut for TWILIGHT_LOG_LEVEL=debug.
func levelEnabled(level LogLevel) bool {
	threshold := LogLevel(env.LogLevel())
	if env.IsDebugEnabled() {
		threshold = LogLevelDebug
	}
	return levelRank(level) <= levelRank(threshold)
}

// ConsoleLogFactory is the default console-based log factory
func ConsoleLogFactory(scope LogScope) LogFunction {
	return func(level LogLevel, message string, meta ...LogMeta) {
		if !levelEnabled(level) {
			return
		}

		scopeStr := scope.Label
		if scopeStr == "" {
			scopeStr = "core"
		}

		entryPart := ""
		if scope.Entry != "" {
			entryPart = fmt.Sprintf("(%s)", scope.Entry)
		}

		var logMethod func(string, ...interface{})
		switch level {
		case LogLevelError, LogLevelWarning:
			logMethod = func(format string, args ...interface{}) {
				fmt.Fprintf(os.Stderr, format+"\n", args...)
			}
		default:
			logMethod = func(format string, args ...interface{}) {
				_, _ = fmt.Fprintf(os.Stdout, format+"\n", args...)
			}
		}

		levelStr := strings.ToUpper(string(level))
		logMethod("[%s%s] %s: %s", scopeStr, entryPart, levelStr, message)

		if len(meta) > 0 && len(meta[0]) > 0 {
			logMethod("[%s%s] %s: metadata: %+v", scopeStr, entryPart, levelStr, meta[0])
		}
	}
}

// DefaultLogger provides a default logger instance
var DefaultLogger = NewLogger(ConsoleLogFactory)
