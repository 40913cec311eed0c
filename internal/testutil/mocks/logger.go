package mocks

import (
	"context"
	"sync"

	"github.com/felixgeelhaar/slicecore/internal/ports"
)

// Entry is one recorded log call.
type Entry struct {
	Level   ports.Level
	Message string
	Fields  []ports.Field
}

// Field returns the value of the field named key.
func (e Entry) Field(key string) (any, bool) {
	for _, f := range e.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

type logSink struct {
	mu      sync.Mutex
	entries []Entry
}

// Logger is a ports.Logger that records entries at or above its level.
// Loggers derived with With share the recording.
type Logger struct {
	sink   *logSink
	level  ports.Level
	fields []ports.Field
}

// NewLogger returns a recording logger at debug level.
func NewLogger() *Logger {
	return &Logger{sink: &logSink{}, level: ports.LevelDebug}
}

func (l *Logger) log(level ports.Level, msg string, fields []ports.Field) {
	if level < l.level {
		return
	}
	all := append(append([]ports.Field(nil), l.fields...), fields...)
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	l.sink.entries = append(l.sink.entries, Entry{Level: level, Message: msg, Fields: all})
}

func (l *Logger) Debug(_ context.Context, msg string, fields ...ports.Field) {
	l.log(ports.LevelDebug, msg, fields)
}

func (l *Logger) Info(_ context.Context, msg string, fields ...ports.Field) {
	l.log(ports.LevelInfo, msg, fields)
}

func (l *Logger) Warn(_ context.Context, msg string, fields ...ports.Field) {
	l.log(ports.LevelWarn, msg, fields)
}

func (l *Logger) Error(_ context.Context, msg string, fields ...ports.Field) {
	l.log(ports.LevelError, msg, fields)
}

// With returns a logger adding fields to every entry.
func (l *Logger) With(fields ...ports.Field) ports.Logger {
	return &Logger{
		sink:   l.sink,
		level:  l.level,
		fields: append(append([]ports.Field(nil), l.fields...), fields...),
	}
}

func (l *Logger) Level() ports.Level { return l.level }

func (l *Logger) SetLevel(level ports.Level) { l.level = level }

// Entries returns the recorded entries.
func (l *Logger) Entries() []Entry {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	return append([]Entry(nil), l.sink.entries...)
}

// Messages returns the messages recorded at level.
func (l *Logger) Messages(level ports.Level) []string {
	var out []string
	for _, e := range l.Entries() {
		if e.Level == level {
			out = append(out, e.Message)
		}
	}
	return out
}

var _ ports.Logger = (*Logger)(nil)
