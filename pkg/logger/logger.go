package logger

import (
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger is a leveled key/value logger shared by every layer of the service.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
	Fatal(msg string, keysAndValues ...any)
	With(keysAndValues ...any) Logger
}

type zeroLogger struct {
	l zerolog.Logger
}

// NewWithWriter writes console lines to w, or plain JSON lines when format is "json".
func NewWithWriter(w io.Writer, level, format string) Logger {
	if strings.ToLower(format) != "json" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339, NoColor: true}
	}

	l := zerolog.New(w).Level(parseLevel(level)).With().Timestamp().Logger()
	return &zeroLogger{l: l}
}

// Nop discards everything. Used by tests.
func Nop() Logger {
	return &zeroLogger{l: zerolog.Nop()}
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func (z *zeroLogger) Debug(msg string, keysAndValues ...any) {
	z.l.Debug().Fields(keysAndValues).Msg(msg)
}

func (z *zeroLogger) Info(msg string, keysAndValues ...any) {
	z.l.Info().Fields(keysAndValues).Msg(msg)
}

func (z *zeroLogger) Warn(msg string, keysAndValues ...any) {
	z.l.Warn().Fields(keysAndValues).Msg(msg)
}

func (z *zeroLogger) Error(msg string, keysAndValues ...any) {
	z.l.Error().Fields(keysAndValues).Msg(msg)
}

// Fatal logs and exits with status 1.
func (z *zeroLogger) Fatal(msg string, keysAndValues ...any) {
	z.l.Fatal().Fields(keysAndValues).Msg(msg)
}

func (z *zeroLogger) With(keysAndValues ...any) Logger {
	return &zeroLogger{l: z.l.With().Fields(keysAndValues).Logger()}
}
