// Package log provides a structured logging system for logpager components.
package log

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"
)

// Level represents the severity level of a log message.
type Level int

// Log levels
const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
	FatalLevel
)

// String returns the string representation of the log level.
func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	case FatalLevel:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// Fields is a map of field names to values.
type Fields map[string]interface{}

// Context keys for propagating logging context
const (
	RequestIDKey = "request_id"
	ComponentKey = "component"
	OperationKey = "operation"
)

type ctxKey string

// Entry represents a single log entry.
type Entry struct {
	Level     Level
	Message   string
	Fields    Fields
	Timestamp time.Time
	Caller    string
	Error     error
}

// Logger defines the core logging interface for logpager components.
type Logger interface {
	// Leveled methods with structured context (Field-based API)
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	Fatal(msg string, fields ...Field)

	// Leveled methods with key-value pairs
	Debugf(msg string, args ...interface{})
	Infof(msg string, args ...interface{})
	Warnf(msg string, args ...interface{})
	Errorf(msg string, args ...interface{})

	WithField(key string, value interface{}) Logger
	WithFields(fields Fields) Logger
	WithError(err error) Logger

	// With adds multiple fields to the logger
	With(fields ...Field) Logger

	// WithContext adds request context to the Logger
	WithContext(ctx context.Context) Logger

	// WithComponent tags logs with a component name
	WithComponent(component string) Logger

	SetLevel(level Level)
	GetLevel() Level
}

// Formatter defines the interface for formatting log entries.
type Formatter interface {
	Format(entry *Entry) ([]byte, error)
}

// Output defines the interface for log outputs.
type Output interface {
	Write(entry *Entry, formattedEntry []byte) error
	Close() error
}

// LoggerOption is a function that configures a logger.
type LoggerOption func(*BaseLogger)

// BaseLogger implements the Logger interface.
type BaseLogger struct {
	level      *levelVar
	fields     Fields
	formatter  Formatter
	outputs    []Output
	redactions map[string]struct{}
	sampler    *sampler
	slogLogger *slog.Logger
}

// ContextExtractor extracts logging context from a context.Context.
func ContextExtractor(ctx context.Context) Fields {
	fields := Fields{}
	if ctx == nil {
		return fields
	}
	for _, k := range []string{RequestIDKey, ComponentKey, OperationKey} {
		if v := ctx.Value(ctxKey(k)); v != nil {
			fields[k] = v
		}
	}
	return fields
}

// ContextWith returns a child context carrying a logging value under one of
// the standard keys, picked up later by WithContext.
func ContextWith(ctx context.Context, key string, value any) context.Context {
	return context.WithValue(ctx, ctxKey(key), value)
}

// NewLogger creates a new logger with the given options.
func NewLogger(options ...LoggerOption) Logger {
	logger := &BaseLogger{
		level:     newLevelVar(InfoLevel),
		fields:    Fields{},
		formatter: &JSONFormatter{},
		outputs:   []Output{},
	}

	for _, option := range options {
		option(logger)
	}

	if len(logger.outputs) == 0 {
		logger.outputs = append(logger.outputs, &ConsoleOutput{})
	}

	logger.slogLogger = slog.New(newBridgeHandler(logger))
	return logger
}

// NewNopLogger returns a logger that discards everything.
func NewNopLogger() Logger {
	return NewLogger(WithLevel(FatalLevel+1), WithOutput(&NullOutput{}))
}

// WithLevel sets the minimum log level.
func WithLevel(level Level) LoggerOption {
	return func(l *BaseLogger) {
		l.level.set(level)
	}
}

// WithFormatter sets the log formatter.
func WithFormatter(formatter Formatter) LoggerOption {
	return func(l *BaseLogger) {
		l.formatter = formatter
	}
}

// WithOutput adds an output to the logger.
func WithOutput(output Output) LoggerOption {
	return func(l *BaseLogger) {
		l.outputs = append(l.outputs, output)
	}
}

// clone shares level, formatter and outputs, copying fields.
func (l *BaseLogger) clone(extra Fields) *BaseLogger {
	fields := make(Fields, len(l.fields)+len(extra))
	for k, v := range l.fields {
		fields[k] = v
	}
	for k, v := range extra {
		fields[k] = v
	}
	nl := &BaseLogger{
		level:      l.level,
		fields:     fields,
		formatter:  l.formatter,
		outputs:    l.outputs,
		redactions: l.redactions,
		sampler:    l.sampler,
	}
	nl.slogLogger = slog.New(newBridgeHandler(nl)).With(attrsToAny(attrsFromMap(fields))...)
	return nl
}

func (l *BaseLogger) log(level Level, msg string, fields []Field) {
	if level < l.level.get() {
		return
	}
	l.slogLogger.LogAttrs(context.Background(), toSlogLevel(level), msg, attrsFromFieldSlice(fields)...)
}

func (l *BaseLogger) logf(level Level, msg string, args []interface{}) {
	if level < l.level.get() {
		return
	}
	l.slogLogger.LogAttrs(context.Background(), toSlogLevel(level), msg, argsToAttrs(args)...)
}

func (l *BaseLogger) Debug(msg string, fields ...Field) { l.log(DebugLevel, msg, fields) }
func (l *BaseLogger) Info(msg string, fields ...Field)  { l.log(InfoLevel, msg, fields) }
func (l *BaseLogger) Warn(msg string, fields ...Field)  { l.log(WarnLevel, msg, fields) }
func (l *BaseLogger) Error(msg string, fields ...Field) { l.log(ErrorLevel, msg, fields) }

// Fatal logs at error severity and exits the process.
func (l *BaseLogger) Fatal(msg string, fields ...Field) {
	l.log(FatalLevel, msg, fields)
	os.Exit(1)
}

func (l *BaseLogger) Debugf(msg string, args ...interface{}) { l.logf(DebugLevel, msg, args) }
func (l *BaseLogger) Infof(msg string, args ...interface{})  { l.logf(InfoLevel, msg, args) }
func (l *BaseLogger) Warnf(msg string, args ...interface{})  { l.logf(WarnLevel, msg, args) }
func (l *BaseLogger) Errorf(msg string, args ...interface{}) { l.logf(ErrorLevel, msg, args) }

func (l *BaseLogger) WithField(key string, value interface{}) Logger {
	return l.clone(Fields{key: value})
}

func (l *BaseLogger) WithFields(fields Fields) Logger { return l.clone(fields) }

func (l *BaseLogger) WithError(err error) Logger {
	if err == nil {
		return l
	}
	return l.clone(Fields{"error": err.Error()})
}

func (l *BaseLogger) With(fields ...Field) Logger {
	extra := make(Fields, len(fields))
	for _, f := range fields {
		extra[f.Key] = f.Value
	}
	return l.clone(extra)
}

func (l *BaseLogger) WithContext(ctx context.Context) Logger {
	return l.clone(ContextExtractor(ctx))
}

func (l *BaseLogger) WithComponent(component string) Logger {
	return l.clone(Fields{ComponentKey: component})
}

// SetLevel changes the level for this logger and every logger derived from it.
func (l *BaseLogger) SetLevel(level Level) { l.level.set(level) }

func (l *BaseLogger) GetLevel() Level { return l.level.get() }

// ParseLevel parses a level name (debug, info, warn, error, fatal).
func ParseLevel(s string) (Level, error) {
	switch s {
	case "debug", "DEBUG":
		return DebugLevel, nil
	case "info", "INFO", "":
		return InfoLevel, nil
	case "warn", "warning", "WARN":
		return WarnLevel, nil
	case "error", "ERROR":
		return ErrorLevel, nil
	case "fatal", "FATAL":
		return FatalLevel, nil
	}
	return InfoLevel, fmt.Errorf("unknown log level %q", s)
}
