package logging

import (
	"context"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Options logrus 日志配置
type Options struct {
	Level  string    // debug/info/warn/error
	Format string    // text/json
	Output io.Writer // 默认 os.Stdout
}

// LogrusLogger 基于 logrus 的 Logger 实现
type LogrusLogger struct {
	entry *logrus.Entry
}

// NewLogrusLogger 创建 logrus Logger
func NewLogrusLogger(opts Options) *LogrusLogger {
	l := logrus.New()
	if opts.Output != nil {
		l.SetOutput(opts.Output)
	} else {
		l.SetOutput(os.Stdout)
	}
	if opts.Format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "2006-01-02 15:04:05.000"})
	}
	l.SetLevel(toLogrusLevel(ParseLevel(opts.Level)))
	return &LogrusLogger{entry: logrus.NewEntry(l)}
}

func toLogrusLevel(level Level) logrus.Level {
	switch level {
	case DebugLevel:
		return logrus.DebugLevel
	case WarnLevel:
		return logrus.WarnLevel
	case ErrorLevel:
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

func (l *LogrusLogger) with(ctx context.Context, fields []Field) *logrus.Entry {
	entry := l.entry
	if id := RequestID(ctx); id != "" {
		entry = entry.WithField("request_id", id)
	}
	if len(fields) == 0 {
		return entry
	}
	data := make(logrus.Fields, len(fields))
	for _, f := range fields {
		if err, ok := f.Value.(error); ok && err != nil {
			data[f.Key] = err.Error()
			continue
		}
		data[f.Key] = f.Value
	}
	return entry.WithFields(data)
}

func (l *LogrusLogger) Debug(ctx context.Context, msg string, fields ...Field) {
	l.with(ctx, fields).Debug(msg)
}

func (l *LogrusLogger) Info(ctx context.Context, msg string, fields ...Field) {
	l.with(ctx, fields).Info(msg)
}

func (l *LogrusLogger) Warn(ctx context.Context, msg string, fields ...Field) {
	l.with(ctx, fields).Warn(msg)
}

func (l *LogrusLogger) Error(ctx context.Context, msg string, fields ...Field) {
	l.with(ctx, fields).Error(msg)
}

func (l *LogrusLogger) WithFields(fields ...Field) Logger {
	return &LogrusLogger{entry: l.with(context.Background(), fields)}
}
