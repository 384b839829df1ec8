package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
)

type Format string

const (
	FormatConsole Format = "console"
	FormatJSON    Format = "json"
)

type Field struct {
	Key   string
	Value any
}

type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	With(fields ...Field) Logger
	Enabled(level Level) bool
}

type zeroLogger struct {
	zl    zerolog.Logger
	level Level
}

// New writes human-readable console lines to out.
func New(out io.Writer, level Level) Logger {
	return NewWithFormat(out, level, FormatConsole)
}

func NewWithFormat(out io.Writer, level Level, format Format) Logger {
	if out == nil {
		out = os.Stdout
	}
	writer := out
	if format != FormatJSON {
		writer = zerolog.ConsoleWriter{
			Out:        out,
			NoColor:    true,
			TimeFormat: time.RFC3339,
		}
	}
	zl := zerolog.New(writer).Level(zerologLevel(level)).With().Timestamp().Logger()
	return &zeroLogger{zl: zl, level: level}
}

func Nop() Logger {
	return &zeroLogger{zl: zerolog.Nop(), level: Error + 1}
}

func (l *zeroLogger) Enabled(level Level) bool {
	if l == nil {
		return false
	}
	return level >= l.level
}

func (l *zeroLogger) With(fields ...Field) Logger {
	if l == nil {
		return Nop()
	}
	ctx := l.zl.With()
	for _, field := range fields {
		ctx = ctx.Interface(field.Key, plainValue(field.Value))
	}
	return &zeroLogger{zl: ctx.Logger(), level: l.level}
}

func (l *zeroLogger) Debug(msg string, fields ...Field) { l.log(l.zl.Debug(), msg, fields) }
func (l *zeroLogger) Info(msg string, fields ...Field)  { l.log(l.zl.Info(), msg, fields) }
func (l *zeroLogger) Warn(msg string, fields ...Field)  { l.log(l.zl.Warn(), msg, fields) }
func (l *zeroLogger) Error(msg string, fields ...Field) { l.log(l.zl.Error(), msg, fields) }

func (l *zeroLogger) log(event *zerolog.Event, msg string, fields []Field) {
	if l == nil || event == nil {
		return
	}
	for _, field := range fields {
		event = emit(event, field)
	}
	event.Msg(msg)
}

func emit(event *zerolog.Event, field Field) *zerolog.Event {
	switch v := field.Value.(type) {
	case nil:
		return event.Interface(field.Key, nil)
	case error:
		return event.AnErr(field.Key, v)
	case string:
		return event.Str(field.Key, v)
	case []byte:
		return event.Str(field.Key, string(v))
	case bool:
		return event.Bool(field.Key, v)
	case int:
		return event.Int(field.Key, v)
	case int64:
		return event.Int64(field.Key, v)
	case uint64:
		return event.Uint64(field.Key, v)
	case float64:
		return event.Float64(field.Key, v)
	case time.Duration:
		return event.Str(field.Key, v.String())
	case time.Time:
		return event.Time(field.Key, v)
	case fmt.Stringer:
		return event.Str(field.Key, v.String())
	default:
		return event.Interface(field.Key, v)
	}
}

func plainValue(value any) any {
	switch v := value.(type) {
	case error:
		return v.Error()
	case time.Duration:
		return v.String()
	case fmt.Stringer:
		return v.String()
	default:
		return v
	}
}

func zerologLevel(level Level) zerolog.Level {
	switch level {
	case Debug:
		return zerolog.DebugLevel
	case Info:
		return zerolog.InfoLevel
	case Warn:
		return zerolog.WarnLevel
	case Error:
		return zerolog.ErrorLevel
	default:
		return zerolog.Disabled
	}
}

func ParseLevel(raw string) Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return Debug
	case "warn", "warning":
		return Warn
	case "error":
		return Error
	default:
		return Info
	}
}

func ParseFormat(raw string) Format {
	if strings.EqualFold(strings.TrimSpace(raw), string(FormatJSON)) {
		return FormatJSON
	}
	return FormatConsole
}

func NewRequestID() string {
	return uuid.NewString()
}

func F(key string, value any) Field {
	return Field{Key: key, Value: value}
}
