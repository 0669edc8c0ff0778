// Package rpclog is the process-wide structured logger.
package rpclog

import (
	"os"
	"path"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	mu     sync.RWMutex
	logger *zap.Logger
	atom   = zap.NewAtomicLevel()
)

// Configure replaces the process logger. It is safe to call again, e.g.
// after flags are parsed.
func Configure(opts *Options) {
	atom.SetLevel(opts.Level)

	loggerOpts := make([]zap.Option, 0)
	if opts.LineNum {
		loggerOpts = append(loggerOpts, zap.AddCaller(), zap.AddCallerSkip(2))
	}

	writers := make([]zapcore.WriteSyncer, 0)
	if !opts.NoStdout {
		console := os.Stdout
		if opts.Stderr {
			console = os.Stderr
		}
		writers = append(writers, zapcore.Lock(console))
	}
	if opts.LogDir != "" {
		writers = append(writers, zapcore.AddSync(&lumberjack.Logger{
			Filename:   path.Join(opts.LogDir, "rpc.log"),
			MaxSize:    100, // megabytes
			MaxBackups: 3,
			MaxAge:     7, // days
		}))
	}

	var l *zap.Logger
	if len(writers) == 0 {
		l = zap.NewNop()
	} else {
		core := zapcore.NewCore(
			zapcore.NewJSONEncoder(newEncoderConfig()),
			zapcore.NewMultiWriteSyncer(writers...),
			atom,
		)
		l = zap.New(core, loggerOpts...)
	}

	mu.Lock()
	logger = l
	mu.Unlock()
}

func current() *zap.Logger {
	mu.RLock()
	l := logger
	mu.RUnlock()
	if l != nil {
		return l
	}
	Configure(NewOptions())
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

func newEncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:       "time",
		LevelKey:      "level",
		NameKey:       "logger",
		CallerKey:     "linenum",
		MessageKey:    "msg",
		StacktraceKey: "stacktrace",
		LineEnding:    zapcore.DefaultLineEnding,
		EncodeLevel:   zapcore.LowercaseLevelEncoder,
		EncodeCaller:  zapcore.ShortCallerEncoder,
		EncodeName:    zapcore.FullNameEncoder,
		EncodeTime: func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
			enc.AppendString(t.Format("2006-01-02T15:04:05.000-07:00"))
		},
		EncodeDuration: zapcore.MillisDurationEncoder,
	}
}

// SetLevel changes the level of every logger without reconfiguring outputs.
func SetLevel(level zapcore.Level) {
	atom.SetLevel(level)
}

func Debug(msg string, fields ...zap.Field) { current().Debug(msg, fields...) }

func Info(msg string, fields ...zap.Field) { current().Info(msg, fields...) }

func Warn(msg string, fields ...zap.Field) { current().Warn(msg, fields...) }

func Error(msg string, fields ...zap.Field) { current().Error(msg, fields...) }

func Sync() error {
	return current().Sync()
}

// Log is a logger that prefixes every message with a component name.
type Log struct {
	prefix string
}

func NewLog(prefix string) *Log {
	return &Log{prefix: prefix}
}

func (l *Log) msg(m string) string {
	var b strings.Builder
	b.WriteString("[")
	b.WriteString(l.prefix)
	b.WriteString("] ")
	b.WriteString(m)
	return b.String()
}

func (l *Log) Debug(msg string, fields ...zap.Field) { Debug(l.msg(msg), fields...) }

func (l *Log) Info(msg string, fields ...zap.Field) { Info(l.msg(msg), fields...) }

func (l *Log) Warn(msg string, fields ...zap.Field) { Warn(l.msg(msg), fields...) }

func (l *Log) Error(msg string, fields ...zap.Field) { Error(l.msg(msg), fields...) }
