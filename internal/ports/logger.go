package ports

import "context"

// Level represents the severity of a log message.
type Level int

const (
	// LevelDebug traces engine internals: step resolution, lifecycle
	// transitions, journal appends.
	LevelDebug Level = iota
	// LevelInfo carries the run narrative: steps starting, outcomes,
	// the final summary.
	LevelInfo
	// LevelWarn flags recoverable failures and idempotence doubts.
	LevelWarn
	// LevelError flags fatal failures and aborted runs.
	LevelError
)

// String returns the string representation of the log level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Field represents a structured logging field.
type Field struct {
	Key   string
	Value interface{}
}

// F creates a new Field.
func F(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// Step tags an entry with the step id; every log line a run emits for
// one step carries it, so journal records and log lines correlate.
func Step(id string) Field {
	return Field{Key: "step", Value: id}
}

// Run tags an entry with the run id.
func Run(id string) Field {
	return Field{Key: "run_id", Value: id}
}

// Err tags an entry with an error's message.
func Err(err error) Field {
	return Field{Key: "error", Value: err.Error()}
}

// Logger defines the interface for structured logging.
// Every step transition the engine records is also emitted here.
type Logger interface {
	// Debug logs a debug message with optional structured fields.
	Debug(ctx context.Context, msg string, fields ...Field)

	// Info logs an informational message with optional structured fields.
	Info(ctx context.Context, msg string, fields ...Field)

	// Warn logs a warning message with optional structured fields.
	Warn(ctx context.Context, msg string, fields ...Field)

	// Error logs an error message with optional structured fields.
	Error(ctx context.Context, msg string, fields ...Field)

	// With returns a new Logger with the given fields added to every log entry.
	With(fields ...Field) Logger

	// Level returns the minimum log level.
	Level() Level

	// SetLevel sets the minimum log level.
	SetLevel(level Level)
}

// LoggerFromContext retrieves a Logger from the context.
// Returns nil if no logger is present.
func LoggerFromContext(ctx context.Context) Logger {
	if logger, ok := ctx.Value(loggerKey{}).(Logger); ok {
		return logger
	}
	return nil
}

// ContextWithLogger returns a new context with the logger attached.
func ContextWithLogger(ctx context.Context, logger Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// loggerKey is the context key for Logger.
type loggerKey struct{}
