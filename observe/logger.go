package observe

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"strings"
	"sync"
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

// repeatSuppressor drops log lines that repeat the same (level, message)
// pair more than burst times within window, emitting a "suppressed N
// repeats" marker on the next admitted line instead. A connection stuck
// in a redial loop logs the same dial-failure message on every attempt;
// without this a flapping broker floods the log at the backoff's pace
// rather than the operator's.
type repeatSuppressor struct {
	window time.Duration
	burst  int

	mu       sync.Mutex
	since    time.Time
	key      string
	count    int
	dropped  int
	lastSeen time.Time
}

func newRepeatSuppressor(window time.Duration, burst int) *repeatSuppressor {
	if window <= 0 {
		window = time.Second
	}
	if burst <= 0 {
		burst = 1
	}
	return &repeatSuppressor{window: window, burst: burst}
}

// admit reports whether the (level, msg) pair should be logged now, and
// how many occurrences of the previously tracked key were dropped; that
// count is reported only when a new key or a new window starts.
func (s *repeatSuppressor) admit(level LogLevel, msg string) (ok bool, suppressed int) {
	key := level.String() + "|" + msg

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if key != s.key || now.Sub(s.since) > s.window {
		s.key = key
		s.since = now
		s.count = 0
		suppressed = s.dropped
		s.dropped = 0
	} else {
		suppressed = 0
	}

	s.count++
	s.lastSeen = now
	if s.count <= s.burst {
		return true, suppressed
	}
	s.dropped++
	return false, 0
}

// structuredLogger is a JSON structured logger implementation.
type structuredLogger struct {
	level        LogLevel
	writer       io.Writer
	mu           sync.Mutex
	resourceMeta *ResourceMeta
	baseAttrs    map[string]any
	suppressor   *repeatSuppressor
}

// NewLogger creates a new structured logger with the given level.
func NewLogger(level string) Logger {
	return NewLoggerWithWriter(level, os.Stderr)
}

// NewLoggerWithWriter creates a new structured logger with a custom writer.
func NewLoggerWithWriter(level string, w io.Writer) Logger {
	return &structuredLogger{
		level:      ParseLogLevel(level),
		writer:     w,
		baseAttrs:  make(map[string]any),
		suppressor: newRepeatSuppressor(time.Second, 5),
	}
}

// WithResource returns a logger with resource context attached.
func (l *structuredLogger) WithResource(meta ResourceMeta) Logger {
	attrs := make(map[string]any, len(l.baseAttrs)+4)
	for k, v := range l.baseAttrs {
		attrs[k] = v
	}

	attrs["resource.id"] = meta.ResourceID()
	attrs["resource.name"] = meta.Name
	if meta.Namespace != "" {
		attrs["resource.namespace"] = meta.Namespace
	}
	if meta.Version != "" {
		attrs["resource.version"] = meta.Version
	}

	return &structuredLogger{
		level:        l.level,
		writer:       l.writer,
		resourceMeta: &meta,
		baseAttrs:    attrs,
		suppressor:   l.suppressor,
	}
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
	if level < l.level {
		return
	}

	admitted, suppressed := l.suppressor.admit(level, msg)
	if !admitted {
		return
	}

	entry := make(map[string]any, len(l.baseAttrs)+len(fields)+4)

	entry["timestamp"] = time.Now().UTC().Format(time.RFC3339Nano)
	entry["level"] = level.String()
	entry["msg"] = msg
	if suppressed > 0 {
		entry["suppressed_repeats"] = suppressed
	}

	for k, v := range l.baseAttrs {
		entry[k] = v
	}

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
		return
	}

	l.writer.Write(data)
	l.writer.Write([]byte("\n"))
}

// isRedactedField reports whether a field's value should be masked before
// it reaches the log writer. Every entry in [RedactedFields] matches as a
// case-insensitive suffix (an exact name is the trivial suffix), catching
// the broker's own vocabulary —
// dial_url, amqp_dsn, auth_token — without needing an exact key for every
// spelling a caller might use.
func isRedactedField(key string) bool {
	lower := strings.ToLower(key)
	for _, suffix := range RedactedFields {
		if lower == strings.ToLower(suffix) || strings.HasSuffix(lower, strings.ToLower(suffix)) {
			return true
		}
	}
	return false
}

// ExtendedLogger extends Logger with WithResource for creating resource-scoped loggers.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Ownership: WithResource returns a logger bound to ResourceMeta; returned logger may share state.
type ExtendedLogger interface {
	Logger
	WithResource(meta ResourceMeta) Logger
}

// Ensure structuredLogger implements ExtendedLogger
var _ ExtendedLogger = (*structuredLogger)(nil)
