package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Level represents logging level
type Level = zerolog.Level

// Logger levels
const (
	DebugLevel = zerolog.DebugLevel
	InfoLevel  = zerolog.InfoLevel
	WarnLevel  = zerolog.WarnLevel
	ErrorLevel = zerolog.ErrorLevel
	FatalLevel = zerolog.FatalLevel
)

// Config holds logger configuration
type Config struct {
	Level      Level
	TimeFormat string
	Output     io.Writer
	Pretty     bool
}

// Logger wraps zerolog.Logger
type Logger struct {
	ZL zerolog.Logger
}

// NewLogger creates a new logger instance
func NewLogger(cfg *Config) *Logger {
	if cfg == nil {
		cfg = &Config{
			Level:      InfoLevel,
			TimeFormat: time.RFC3339,
			Output:     os.Stdout,
			Pretty:     true,
		}
	}
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}
	if cfg.TimeFormat == "" {
		cfg.TimeFormat = time.RFC3339
	}

	output := cfg.Output
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{
			Out:        cfg.Output,
			TimeFormat: cfg.TimeFormat,
		}
	}

	zl := zerolog.New(output).
		Level(cfg.Level).
		With().
		Timestamp().
		Caller().
		Logger()

	return &Logger{ZL: zl}
}

// WithFields returns a logger with the given fields attached to every entry
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	ctx := l.ZL.With()
	for k, v := range fields {
		ctx = ctx.Interface(k, v)
	}
	return &Logger{ZL: ctx.Logger()}
}

func (l *Logger) Debug(msg string, keysAndValues ...interface{}) {
	l.log(l.ZL.Debug(), msg, keysAndValues)
}

func (l *Logger) Info(msg string, keysAndValues ...interface{}) {
	l.log(l.ZL.Info(), msg, keysAndValues)
}

func (l *Logger) Warn(msg string, keysAndValues ...interface{}) {
	l.log(l.ZL.Warn(), msg, keysAndValues)
}

func (l *Logger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log(l.ZL.Error().Err(err), msg, keysAndValues)
}

func (l *Logger) Fatal(err error, msg string, keysAndValues ...interface{}) {
	l.log(l.ZL.Fatal().Err(err), msg, keysAndValues)
}

func (l *Logger) log(evt *zerolog.Event, msg string, keysAndValues []interface{}) {
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		evt = evt.Interface(key, keysAndValues[i+1])
	}
	evt.Msg(msg)
}
