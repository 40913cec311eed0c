package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/felixgeelhaar/slicecore/internal/ports"
)

// ConsoleLogger writes structured entries as text lines or JSON objects.
// Loggers derived with With share the writer and its lock.
type ConsoleLogger struct {
	mu           *sync.Mutex
	out          io.Writer
	level        ports.Level
	fields       []ports.Field
	jsonFormat   bool
	includeTime  bool
	includeLevel bool
	now          func() time.Time
}

// ConsoleLoggerOption configures the console logger.
type ConsoleLoggerOption func(*ConsoleLogger)

// WithOutput sets the output writer (default: os.Stderr).
func WithOutput(w io.Writer) ConsoleLoggerOption {
	return func(l *ConsoleLogger) {
		l.out = w
	}
}

// WithLevel sets the minimum log level (default: Info).
func WithLevel(level ports.Level) ConsoleLoggerOption {
	return func(l *ConsoleLogger) {
		l.level = level
	}
}

// WithJSONFormat enables JSON output.
func WithJSONFormat(enabled bool) ConsoleLoggerOption {
	return func(l *ConsoleLogger) {
		l.jsonFormat = enabled
	}
}

// WithTimestamp includes a timestamp in every entry.
func WithTimestamp(enabled bool) ConsoleLoggerOption {
	return func(l *ConsoleLogger) {
		l.includeTime = enabled
	}
}

// WithLevelLabel includes the level label in every entry.
func WithLevelLabel(enabled bool) ConsoleLoggerOption {
	return func(l *ConsoleLogger) {
		l.includeLevel = enabled
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) ConsoleLoggerOption {
	return func(l *ConsoleLogger) {
		l.now = now
	}
}

// NewConsoleLogger creates a console logger.
func NewConsoleLogger(opts ...ConsoleLoggerOption) *ConsoleLogger {
	l := &ConsoleLogger{
		mu:           &sync.Mutex{},
		out:          os.Stderr,
		level:        ports.LevelInfo,
		includeTime:  true,
		includeLevel: true,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Debug logs a debug message.
func (l *ConsoleLogger) Debug(ctx context.Context, msg string, fields ...ports.Field) {
	l.log(ctx, ports.LevelDebug, msg, fields)
}

// Info logs an informational message.
func (l *ConsoleLogger) Info(ctx context.Context, msg string, fields ...ports.Field) {
	l.log(ctx, ports.LevelInfo, msg, fields)
}

// Warn logs a warning message.
func (l *ConsoleLogger) Warn(ctx context.Context, msg string, fields ...ports.Field) {
	l.log(ctx, ports.LevelWarn, msg, fields)
}

// Error logs an error message.
func (l *ConsoleLogger) Error(ctx context.Context, msg string, fields ...ports.Field) {
	l.log(ctx, ports.LevelError, msg, fields)
}

// With returns a logger that adds fields to every entry.
func (l *ConsoleLogger) With(fields ...ports.Field) ports.Logger {
	l.mu.Lock()
	defer l.mu.Unlock()

	child := *l
	child.fields = append(append([]ports.Field(nil), l.fields...), fields...)
	return &child
}

// Level returns the minimum log level.
func (l *ConsoleLogger) Level() ports.Level {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level
}

// SetLevel sets the minimum log level of this logger.
func (l *ConsoleLogger) SetLevel(level ports.Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

func (l *ConsoleLogger) log(_ context.Context, level ports.Level, msg string, fields []ports.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if level < l.level {
		return
	}
	all := make([]ports.Field, 0, len(l.fields)+len(fields))
	all = append(all, l.fields...)
	all = append(all, fields...)

	if l.jsonFormat {
		l.writeJSON(level, msg, all)
	} else {
		l.writeText(level, msg, all)
	}
}

func (l *ConsoleLogger) writeJSON(level ports.Level, msg string, fields []ports.Field) {
	entry := make(map[string]any, len(fields)+3)
	if l.includeTime {
		entry["time"] = l.now().UTC().Format(time.RFC3339)
	}
	if l.includeLevel {
		entry["level"] = level.String()
	}
	entry["msg"] = msg
	for _, f := range fields {
		entry[f.Key] = jsonValue(f.Value)
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	_, _ = fmt.Fprintln(l.out, string(data))
}

func (l *ConsoleLogger) writeText(level ports.Level, msg string, fields []ports.Field) {
	var b strings.Builder
	if l.includeTime {
		b.WriteString(l.now().Format("15:04:05.000"))
		b.WriteByte(' ')
	}
	if l.includeLevel {
		fmt.Fprintf(&b, "[%s] ", level)
	}
	b.WriteString(msg)
	for _, f := range fields {
		fmt.Fprintf(&b, " %s=%v", f.Key, f.Value)
	}
	_, _ = fmt.Fprintln(l.out, b.String())
}

// jsonValue renders values encoding/json would lose.
func jsonValue(v any) any {
	switch x := v.(type) {
	case error:
		return x.Error()
	case time.Duration:
		return x.String()
	case fmt.Stringer:
		return x.String()
	default:
		return v
	}
}

var _ ports.Logger = (*ConsoleLogger)(nil)
