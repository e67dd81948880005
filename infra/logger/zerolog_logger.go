package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Options configures the root logger built at startup.
type Options struct {
	// Level is one of DEBUG, INFO, WARNING or ERROR. Empty means INFO.
	Level string
	// Format is "json" or "console". Empty selects console when APP_ENV=dev.
	Format string
	// Out defaults to os.Stdout.
	Out io.Writer
}

// ZerologLogger implements Logger using rs/zerolog.
type ZerologLogger struct {
	// root carries level, output and timestamp but no component field.
	root zerolog.Logger
	log  zerolog.Logger
}

// NewZerologLogger creates a ZerologLogger using the APP_ENV environment variable
// to determine the output format. All logs include the provided component field.
func NewZerologLogger(component string) Logger {
	l, _ := NewWithOptions(component, Options{})
	return l
}

// NewWithOptions builds a logger with an explicit level and format. The level
// is applied to this logger and every child derived from it.
func NewWithOptions(component string, opts Options) (Logger, error) {
	lvl, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	format := strings.ToLower(opts.Format)
	if format == "" && strings.ToLower(os.Getenv("APP_ENV")) == "dev" {
		format = "console"
	}
	if format == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	root := zerolog.New(out).Level(lvl).With().Timestamp().Logger()
	return newChild(root, component), nil
}

func newChild(root zerolog.Logger, component string) *ZerologLogger {
	return &ZerologLogger{root: root, log: root.With().Str("component", component).Logger()}
}

func (l *ZerologLogger) Debugf(format string, args ...any) {
	l.log.Debug().Msgf(format, args...)
}

func (l *ZerologLogger) Debugw(msg string, fields map[string]any) {
	ev := l.log.Debug()
	for k, v := range fields {
		ev = ev.Interface(k, v)
	}
	ev.Msg(msg)
}

func (l *ZerologLogger) Infof(format string, args ...any) {
	l.log.Info().Msgf(format, args...)
}

func (l *ZerologLogger) Warnf(format string, args ...any) {
	l.log.Warn().Msgf(format, args...)
}

func (l *ZerologLogger) Errorf(format string, args ...any) {
	l.log.Error().Msgf(format, args...)
}

// With returns a child logger sharing the level and output, with the
// component field replaced.
func (l *ZerologLogger) With(component string) Logger {
	return newChild(l.root, component)
}
