// Package logging wraps zerolog behind the narrow Logger interface every
// component depends on, so call sites stay agnostic of the backing
// implementation (tests substitute a no-op logger).
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Field is a single structured logging key/value pair.
type Field struct {
	Key   string
	Value any
}

// String builds a string Field.
func String(key, value string) Field { return Field{Key: key, Value: value} }

// Int builds an int Field.
func Int(key string, value int) Field { return Field{Key: key, Value: value} }

// Bool builds a bool Field.
func Bool(key string, value bool) Field { return Field{Key: key, Value: value} }

// Duration builds a time.Duration Field.
func Duration(key string, value time.Duration) Field { return Field{Key: key, Value: value} }

// Err builds an error Field under the conventional "error" key.
func Err(err error) Field { return Field{Key: "error", Value: err} }

// Logger is the structured logging contract used throughout the service;
// every component takes one of these rather than a concrete zerolog
// logger, so tests can swap in a buffer-backed logger.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	With(fields ...Field) Logger
}

type zlogger struct {
	z zerolog.Logger
}

// New returns a Logger writing structured JSON (or, if pretty is true, a
// human-readable console) to w at the given minimum level.
func New(w io.Writer, level string, pretty bool) Logger {
	if pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	l := zerolog.New(w).With().Timestamp().Logger()
	if lvl, err := zerolog.ParseLevel(level); err == nil {
		l = l.Level(lvl)
	}
	return &zlogger{z: l}
}

// Default returns a pretty console logger writing to stderr at info level,
// the logger every daemon's main() uses.
func Default() Logger {
	return New(os.Stderr, "info", true)
}

func apply(ctx zerolog.Context, fields []Field) zerolog.Context {
	for _, f := range fields {
		switch v := f.Value.(type) {
		case string:
			ctx = ctx.Str(f.Key, v)
		case int:
			ctx = ctx.Int(f.Key, v)
		case bool:
			ctx = ctx.Bool(f.Key, v)
		case time.Duration:
			ctx = ctx.Dur(f.Key, v)
		case error:
			ctx = ctx.AnErr(f.Key, v)
		default:
			ctx = ctx.Interface(f.Key, v)
		}
	}
	return ctx
}

func (l *zlogger) event(ev *zerolog.Event, msg string, fields []Field) {
	for _, f := range fields {
		switch v := f.Value.(type) {
		case string:
			ev = ev.Str(f.Key, v)
		case int:
			ev = ev.Int(f.Key, v)
		case bool:
			ev = ev.Bool(f.Key, v)
		case time.Duration:
			ev = ev.Dur(f.Key, v)
		case error:
			ev = ev.AnErr(f.Key, v)
		default:
			ev = ev.Interface(f.Key, v)
		}
	}
	ev.Msg(msg)
}

func (l *zlogger) Debug(msg string, fields ...Field) { l.event(l.z.Debug(), msg, fields) }
func (l *zlogger) Info(msg string, fields ...Field)  { l.event(l.z.Info(), msg, fields) }
func (l *zlogger) Warn(msg string, fields ...Field)  { l.event(l.z.Warn(), msg, fields) }
func (l *zlogger) Error(msg string, fields ...Field) { l.event(l.z.Error(), msg, fields) }

func (l *zlogger) With(fields ...Field) Logger {
	return &zlogger{z: apply(l.z.With(), fields).Logger()}
}
