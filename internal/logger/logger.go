package logger

import (
	"encoding/json"
	"fmt"
	"io"
	stdlog "log"
	"os"
	"strings"
	"sync"
	"time"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

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

// ParseLevel maps a case-insensitive level name to a Level.
func ParseLevel(level string) (Level, bool) {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return LevelDebug, true
	case "INFO":
		return LevelInfo, true
	case "WARN":
		return LevelWarn, true
	case "ERROR":
		return LevelError, true
	}
	return LevelInfo, false
}

type Format int

const (
	// FormatText: [timestamp] [LEVEL] message key=value ...
	FormatText Format = iota

	// FormatJSON: one JSON object per line
	FormatJSON
)

// ParseFormat maps "text" or "json" to a Format.
func ParseFormat(format string) (Format, bool) {
	switch strings.ToLower(format) {
	case "text", "":
		return FormatText, true
	case "json":
		return FormatJSON, true
	}
	return FormatText, false
}

type field struct {
	key   string
	value any
}

// sink is shared between a Logger and every logger derived from it with
// With, so level changes apply to all of them.
type sink struct {
	mu     sync.Mutex
	out    *stdlog.Logger
	level  Level
	format Format
}

// Logger is a leveled printf-style logger. Derived loggers created with
// With carry extra key/value fields.
//
// A nil *Logger is valid and logs through the package default.
type Logger struct {
	sink   *sink
	fields []field
}

// New creates a logger writing to out.
func New(out io.Writer, level Level, format Format) *Logger {
	return &Logger{sink: &sink{
		out:    stdlog.New(out, "", 0),
		level:  level,
		format: format,
	}}
}

var (
	defaultMu     sync.RWMutex
	defaultLogger = New(os.Stdout, LevelInfo, FormatText)
)

// Default returns the package-level logger.
func Default() *Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}

// SetDefault replaces the package-level logger.
func SetDefault(l *Logger) {
	if l == nil {
		return
	}
	defaultMu.Lock()
	defaultLogger = l
	defaultMu.Unlock()
}

func (l *Logger) resolve() *Logger {
	if l == nil || l.sink == nil {
		return Default()
	}
	return l
}

// With returns a logger that appends key=value to every line.
func (l *Logger) With(key string, value any) *Logger {
	l = l.resolve()
	fields := make([]field, len(l.fields), len(l.fields)+1)
	copy(fields, l.fields)
	return &Logger{sink: l.sink, fields: append(fields, field{key, value})}
}

func (l *Logger) SetLevel(level Level) {
	s := l.resolve().sink
	s.mu.Lock()
	s.level = level
	s.mu.Unlock()
}

func (l *Logger) Level() Level {
	s := l.resolve().sink
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.level
}

// Enabled reports whether messages at level are written.
func (l *Logger) Enabled(level Level) bool {
	return level >= l.Level()
}

func (l *Logger) log(level Level, format string, v ...any) {
	l = l.resolve()
	s := l.sink

	s.mu.Lock()
	defer s.mu.Unlock()
	if level < s.level {
		return
	}

	now := time.Now()
	message := fmt.Sprintf(format, v...)

	if s.format == FormatJSON {
		entry := make(map[string]any, len(l.fields)+3)
		for _, f := range l.fields {
			entry[f.key] = jsonValue(f.value)
		}
		entry["time"] = now.Format(time.RFC3339Nano)
		entry["level"] = level.String()
		entry["msg"] = message
		line, err := json.Marshal(entry)
		if err != nil {
			line = []byte(fmt.Sprintf(`{"level":%q,"msg":%q}`, level.String(), message))
		}
		s.out.Println(string(line))
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] [%s] %s", now.Format("2006-01-02 15:04:05"), level.String(), message)
	for _, f := range l.fields {
		fmt.Fprintf(&b, " %s=%v", f.key, f.value)
	}
	s.out.Println(b.String())
}

// jsonValue keeps errors readable in JSON output.
func jsonValue(v any) any {
	switch x := v.(type) {
	case error:
		return x.Error()
	case fmt.Stringer:
		return x.String()
	}
	return v
}

func (l *Logger) Debug(format string, v ...any) {
	l.log(LevelDebug, format, v...)
}

func (l *Logger) Info(format string, v ...any) {
	l.log(LevelInfo, format, v...)
}

func (l *Logger) Warn(format string, v ...any) {
	l.log(LevelWarn, format, v...)
}

func (l *Logger) Error(format string, v ...any) {
	l.log(LevelError, format, v...)
}

// ============================================================================
// Package-level helpers operating on the default logger
// ============================================================================

// SetLevel sets the default logger's level by name. Unknown names are ignored.
func SetLevel(level string) {
	if lvl, ok := ParseLevel(level); ok {
		Default().SetLevel(lvl)
	}
}

func Debug(format string, v ...any) {
	Default().log(LevelDebug, format, v...)
}

func Info(format string, v ...any) {
	Default().log(LevelInfo, format, v...)
}

func Warn(format string, v ...any) {
	Default().log(LevelWarn, format, v...)
}

func Error(format string, v ...any) {
	Default().log(LevelError, format, v...)
}
