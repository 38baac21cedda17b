// Package logger provides a structured logging interface for this module
// and the applications using it.
//
// It wraps the zap logging library to provide a simpler API while keeping
// its performance. The package supports leveled logging, formatted and
// key-value variants, and first-class logging of errx errors.
package logger

import (
	"errors"

	"github.com/code19m/errx"
	"github.com/creasty/defaults"
	"github.com/rise-and-shine/repokit/val"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger defines the standard logging interface used across the module.
// It provides methods for different log levels and formatting options.
type Logger interface {
	// Debug logs a message at debug level.
	Debug(args ...any)
	// Info logs a message at info level.
	Info(args ...any)
	// Warn logs a message at warn level.
	Warn(args ...any)
	// Error logs a message at error level.
	Error(args ...any)
	// Fatal logs a message at fatal level and then calls os.Exit(1).
	Fatal(args ...any)

	// Debugf logs a formatted message at debug level.
	Debugf(format string, args ...any)
	// Infof logs a formatted message at info level.
	Infof(format string, args ...any)
	// Warnf logs a formatted message at warn level.
	Warnf(format string, args ...any)
	// Errorf logs a formatted message at error level.
	Errorf(format string, args ...any)
	// Fatalf logs a formatted message at fatal level and then calls os.Exit(1).
	Fatalf(format string, args ...any)

	// Debugw logs a message with key-value pairs at debug level.
	Debugw(msg string, keysAndValues ...any)
	// Infow logs a message with key-value pairs at info level.
	Infow(msg string, keysAndValues ...any)
	// Warnw logs a message with key-value pairs at warn level.
	Warnw(msg string, keysAndValues ...any)
	// Errorw logs a message with key-value pairs at error level.
	Errorw(msg string, keysAndValues ...any)
	// Fatalw logs a message with key-value pairs at fatal level and then calls os.Exit(1).
	Fatalw(msg string, keysAndValues ...any)

	// Warnx logs an errx error at warn level, attaching its code, type,
	// trace, fields and details as structured context.
	Warnx(err error)
	// Errorx logs an errx error at error level, attaching its code, type,
	// trace, fields and details as structured context.
	Errorx(err error)
	// Fatalx logs an errx error at fatal level and then calls os.Exit(1).
	Fatalx(err error)

	// With creates a new logger with the given key-value pairs.
	// The returned logger inherits the properties of the original logger
	// and includes the provided key-value pairs in all subsequent log entries.
	With(keysAndValues ...any) Logger

	// Named adds a sub-scope to the logger's name.
	Named(name string) Logger

	// Sync flushes any buffered log entries.
	// Intended for use on application shutdown to ensure all logs are written.
	Sync() error
}

// logger implements the Logger interface using zap's SugaredLogger.
type logger struct {
	*zap.SugaredLogger
}

// New creates a new Logger instance with the provided configuration.
// Defaults are applied and the configuration is validated; the zero Config
// yields a debug-level JSON logger.
func New(cfg Config) (Logger, error) {
	if err := defaults.Set(&cfg); err != nil {
		return nil, errx.Wrap(err)
	}
	if err := val.ValidateSchema(cfg); err != nil {
		return nil, err
	}

	if cfg.Disable {
		return NewNop(), nil
	}

	zapConfig, err := cfg.getZapConfig()
	if err != nil {
		return nil, errx.Wrap(err)
	}

	var zapLogger *zap.Logger
	if cfg.Encoding == EncodingConsole {
		zapLogger = newConsoleLogger(zapConfig)
	} else {
		zapLogger, err = zapConfig.Build()
		if err != nil {
			return nil, errx.Wrap(err)
		}
	}

	return &logger{
		SugaredLogger: zapLogger.Sugar(),
	}, nil
}

// MustNew is like New but panics on error.
func MustNew(cfg Config) Logger {
	log, err := New(cfg)
	if err != nil {
		panic(err)
	}
	return log
}

// NewNop returns a Logger that discards everything it is given.
func NewNop() Logger {
	return &logger{
		SugaredLogger: zap.NewNop().Sugar(),
	}
}

func (l *logger) With(keysAndValues ...any) Logger {
	return &logger{
		SugaredLogger: l.SugaredLogger.With(keysAndValues...),
	}
}

func (l *logger) Named(name string) Logger {
	return &logger{
		SugaredLogger: l.SugaredLogger.Named(name),
	}
}

func (l *logger) Warnx(err error) {
	l.logx(err, zapcore.WarnLevel)
}

func (l *logger) Errorx(err error) {
	l.logx(err, zapcore.ErrorLevel)
}

func (l *logger) Fatalx(err error) {
	l.logx(err, zapcore.FatalLevel)
}

// logx logs err at the given level, attaching errx context when available.
func (l *logger) logx(err error, level zapcore.Level) {
	target := Logger(l)

	var e errx.ErrorX
	if errors.As(err, &e) {
		target = l.With(
			"error_code", e.Code(),
			"error_type", e.Type().String(),
			"error_trace", e.Trace(),
			"error_fields", e.Fields(),
			"error_details", e.Details(),
		)
	}

	switch level {
	case zapcore.WarnLevel:
		target.Warn(err.Error())
	case zapcore.FatalLevel:
		target.Fatal(err.Error())
	default:
		target.Error(err.Error())
	}
}
