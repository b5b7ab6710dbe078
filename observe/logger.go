package observe

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// LogLevel represents a logging level.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLogLevel parses a string log level.
func ParseLogLevel(s string) LogLevel {
	switch s {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "warn":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// structuredLogger is a JSON structured logger implementation.
//
// Loggers derived with WithBlock share the level and writer of their
// parent, so SetLevel on the root affects all of them.
type structuredLogger struct {
	level     *atomic.Int32
	writer    io.Writer
	mu        *sync.Mutex
	blockMeta *BlockMeta
	baseAttrs map[string]any
}

// NewLogger creates a new structured logger with the given level.
func NewLogger(level string) Logger {
	return NewLoggerWithWriter(level, os.Stderr)
}

// NewLoggerWithWriter creates a new structured logger with a custom writer.
func NewLoggerWithWriter(level string, w io.Writer) Logger {
	lvl := new(atomic.Int32)
	lvl.Store(int32(ParseLogLevel(level)))
	return &structuredLogger{
		level:     lvl,
		writer:    w,
		mu:        new(sync.Mutex),
		baseAttrs: make(map[string]any),
	}
}

// WithBlock returns a logger with block context attached.
func (l *structuredLogger) WithBlock(meta BlockMeta) Logger {
	attrs := make(map[string]any, len(l.baseAttrs)+3)
	for k, v := range l.baseAttrs {
		attrs[k] = v
	}

	attrs["block.name"] = meta.Name
	if ns := meta.Namespace(); ns != "" {
		attrs["block.namespace"] = ns
	}
	if meta.Dynamic {
		attrs["block.dynamic"] = true
	}

	return &structuredLogger{
		level:     l.level,
		writer:    l.writer,
		mu:        l.mu,
		blockMeta: &meta,
		baseAttrs: attrs,
	}
}

// SetLevel changes the minimum level for this logger and every logger
// derived from it.
func (l *structuredLogger) SetLevel(level string) {
	l.level.Store(int32(ParseLogLevel(level)))
}

// Level returns the current minimum level.
func (l *structuredLogger) Level() LogLevel {
	return LogLevel(l.level.Load())
}

func (l *structuredLogger) Info(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, LevelInfo, msg, fields)
}

func (l *structuredLogger) Warn(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, LevelWarn, msg, fields)
}

func (l *structuredLogger) Error(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, LevelError, msg, fields)
}

func (l *structuredLogger) Debug(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, LevelDebug, msg, fields)
}

func (l *structuredLogger) log(ctx context.Context, level LogLevel, msg string, fields []Field) {
	// Filter by level
	if level < l.Level() {
		return
	}

	entry := make(map[string]any, len(l.baseAttrs)+len(fields)+4)

	entry["timestamp"] = time.Now().UTC().Format(time.RFC3339Nano)
	entry["level"] = level.String()
	entry["msg"] = msg

	// Add base attributes (block context)
	for k, v := range l.baseAttrs {
		entry[k] = v
	}

	if id, ok := RequestIDFromContext(ctx); ok {
		entry["request_id"] = id
	}

	// Add fields (with redaction)
	for _, f := range fields {
		if isRedactedField(f.Key) {
			entry[f.Key] = "[REDACTED]"
		} else {
			entry[f.Key] = f.Value
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	data, err := json.Marshal(entry)
	if err != nil {
		return // Silently drop malformed log entries
	}

	l.writer.Write(data)
	l.writer.Write([]byte("\n"))
}

var redactedKeys = func() map[string]bool {
	m := make(map[string]bool, len(RedactedFields))
	for _, k := range RedactedFields {
		m[k] = true
	}
	return m
}()

// isRedactedField returns true if the field should be redacted.
func isRedactedField(key string) bool {
	return redactedKeys[key]
}

// LevelSetter is implemented by loggers whose level can change at runtime.
//
// Contract:
// - Concurrency: SetLevel may be called concurrently with logging.
type LevelSetter interface {
	SetLevel(level string)
}

// Ensure structuredLogger implements the optional interfaces.
var (
	_ Logger      = (*structuredLogger)(nil)
	_ LevelSetter = (*structuredLogger)(nil)
)

type requestIDKey struct{}

// WithRequestID returns a context carrying a request ID that loggers add
// to every entry.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the request ID stored in ctx.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(requestIDKey{}).(string)
	return id, ok && id != ""
}
