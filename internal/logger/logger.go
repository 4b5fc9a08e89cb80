package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/funnyzak/reqwatch/internal/config"
	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger logging interface
type Logger interface {
	// Debug logs a Debug event.
	Debug(msg string, fields ...interface{})
	// Info logs an Info event.
	Info(msg string, fields ...interface{})
	// Warn logs a Warn event.
	Warn(msg string, fields ...interface{})
	// Error logs an Error event.
	Error(msg string, fields ...interface{})
	// Fatal logs a Fatal event and terminates the program.
	Fatal(msg string, fields ...interface{})
	// With returns a child logger that adds fields to every event.
	With(fields ...interface{}) Logger
}

// zerologAdapter zerolog adapter
type zerologAdapter struct {
	logger *zerolog.Logger
}

type fieldAdder[T any] interface {
	Str(key, val string) T
	Int(key string, i int) T
	Int64(key string, i int64) T
	Uint64(key string, i uint64) T
	Float64(key string, f float64) T
	Bool(key string, b bool) T
	AnErr(key string, err error) T
	Strs(key string, vals []string) T
	Stringer(key string, val fmt.Stringer) T
	Interface(key string, i interface{}) T
}

// addFields adds key-value pairs to a zerolog event or context
func addFields[T fieldAdder[T]](target T, fields ...interface{}) T {
	for i := 0; i < len(fields)-1; i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			continue
		}

		switch v := fields[i+1].(type) {
		case string:
			target = target.Str(key, v)
		case int:
			target = target.Int(key, v)
		case int64:
			target = target.Int64(key, v)
		case uint64:
			target = target.Uint64(key, v)
		case float64:
			target = target.Float64(key, v)
		case bool:
			target = target.Bool(key, v)
		case error:
			target = target.AnErr(key, v)
		case []string:
			target = target.Strs(key, v)
		case fmt.Stringer:
			target = target.Stringer(key, v)
		default:
			target = target.Interface(key, v)
		}
	}
	return target
}

// Debug implements Logger
func (z *zerologAdapter) Debug(msg string, fields ...interface{}) {
	addFields(z.logger.Debug(), fields...).Msg(msg)
}

// Info implements Logger
func (z *zerologAdapter) Info(msg string, fields ...interface{}) {
	addFields(z.logger.Info(), fields...).Msg(msg)
}

// Warn implements Logger
func (z *zerologAdapter) Warn(msg string, fields ...interface{}) {
	addFields(z.logger.Warn(), fields...).Msg(msg)
}

// Error implements Logger
func (z *zerologAdapter) Error(msg string, fields ...interface{}) {
	addFields(z.logger.Error(), fields...).Msg(msg)
}

// Fatal implements Logger
func (z *zerologAdapter) Fatal(msg string, fields ...interface{}) {
	addFields(z.logger.Fatal(), fields...).Msg(msg)
}

// With implements Logger
func (z *zerologAdapter) With(fields ...interface{}) Logger {
	child := addFields(z.logger.With(), fields...).Logger()
	return &zerologAdapter{logger: &child}
}

// NewLogger creates new logger instance.
// outputMode follows output.mode: json writes JSON lines to stderr, plain
// writes a console format to stderr, and tui writes only to the log file (or
// nowhere) so the terminal screen stays intact.
func NewLogger(cfg *config.LogConfig, outputMode string) Logger {
	return newLogger(cfg, outputMode, os.Stderr)
}

func newLogger(cfg *config.LogConfig, outputMode string, console io.Writer) Logger {
	logLevel, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		logLevel = zerolog.InfoLevel
	}

	var writers []io.Writer
	switch strings.ToLower(outputMode) {
	case config.OutputJSON:
		writers = append(writers, console)
	case config.OutputTUI:
	default:
		writers = append(writers, zerolog.ConsoleWriter{
			Out:        console,
			TimeFormat: "2006-01-02 15:04:05",
		})
	}

	// If file logging is enabled, add file output
	if cfg.FileLogging.Enable {
		writers = append(writers, &lumberjack.Logger{
			Filename:   cfg.FileLogging.Path,
			MaxSize:    cfg.FileLogging.MaxSizeMB,
			MaxBackups: cfg.FileLogging.MaxBackups,
			MaxAge:     cfg.FileLogging.MaxAgeDays,
			Compress:   cfg.FileLogging.Compress,
		})
	}

	var out io.Writer = io.Discard
	if len(writers) > 0 {
		out = io.MultiWriter(writers...)
	}

	logger := zerolog.New(out).Level(logLevel).With().Timestamp().Logger()
	return &zerologAdapter{logger: &logger}
}
