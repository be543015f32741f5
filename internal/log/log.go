// Package log carries a logrus entry through context so every layer of a job
// run logs with the fields its callers attached.
package log

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

type loggerKey struct{}

// NewEntry builds a logrus entry writing plain-text lines to out.
func NewEntry(out io.Writer, level logrus.Level) *logrus.Entry {
	return logrus.NewEntry(&logrus.Logger{
		Out: out,
		Formatter: &logrus.TextFormatter{
			DisableQuote:    true,
			FullTimestamp:   true,
			DisableSorting:  true,
			TimestampFormat: "2006-01-02T15:04:05.999999Z07:00",
		},
		Hooks: make(logrus.LevelHooks),
		Level: level,
	})
}

var DefaultEntry = NewEntry(os.Stderr, logrus.InfoLevel)

// WithLogger returns a context carrying logger. Use with WithField(s) to scope
// fields to a subtree of calls.
func WithLogger(ctx context.Context, logger *logrus.Entry) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger.WithContext(ctx))
}

// GetLogger returns the logger carried by ctx, or DefaultEntry if none is.
func GetLogger(ctx context.Context) *logrus.Entry {
	if logger, ok := ctx.Value(loggerKey{}).(*logrus.Entry); ok {
		return logger
	}
	return DefaultEntry.WithContext(ctx)
}

func Error(ctx context.Context, msg string, kv ...interface{}) {
	GetLogger(ctx).WithFields(fields(ctx, kv)).Error(msg)
}

func Warning(ctx context.Context, msg string, kv ...interface{}) {
	GetLogger(ctx).WithFields(fields(ctx, kv)).Warning(msg)
}

func Info(ctx context.Context, msg string, kv ...interface{}) {
	GetLogger(ctx).WithFields(fields(ctx, kv)).Info(msg)
}

func Debug(ctx context.Context, msg string, kv ...interface{}) {
	GetLogger(ctx).WithFields(fields(ctx, kv)).Debug(msg)
}

// fields folds a flat key-value vararg list into logrus fields. Malformed
// pairs are reported rather than dropped silently.
func fields(ctx context.Context, kv []interface{}) logrus.Fields {
	f := make(logrus.Fields, len(kv)/2)
	if len(kv)%2 != 0 {
		GetLogger(ctx).WithField("count", len(kv)).Warning("log arguments must come in key-value pairs")
	}
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			GetLogger(ctx).WithField("key_type", fmt.Sprintf("%T", kv[i])).Warning("log argument key must be a string")
			continue
		}
		f[key] = kv[i+1]
	}
	return f
}
