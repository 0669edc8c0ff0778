package rpclog

import "go.uber.org/zap/zapcore"

type Options struct {
	Level    zapcore.Level
	LogDir   string // empty disables file output
	LineNum  bool
	NoStdout bool
	// Stderr sends console output to stderr, for tools that print results
	// on stdout.
	Stderr bool
}

func NewOptions() *Options {
	return &Options{
		Level: zapcore.InfoLevel,
	}
}
