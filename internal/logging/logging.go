// Package logging builds the zap loggers used by the commands.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configure a logger.
type Options struct {
	// Level is one of debug, info, warn or error. Empty means info.
	Level string

	// File, when set, sends logs to a rotated file instead of Writer.
	File string

	// Writer receives JSON logs when File is empty. Defaults to stderr.
	Writer io.Writer

	// Console switches the encoder to the human-readable console format.
	Console bool

	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

const (
	defaultMaxSizeMB  = 10
	defaultMaxBackups = 3
	defaultMaxAgeDays = 28
)

// ParseLevel converts a level name into a zap level.
func ParseLevel(s string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return zapcore.InfoLevel, nil
	case "debug":
		return zapcore.DebugLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	}
	return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", s)
}

// New builds a logger from opts. The returned close function flushes
// buffered entries and releases the log file.
func New(opts Options) (*zap.Logger, func() error, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, nil, err
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if opts.Console {
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encCfg)
	} else {
		encoder = zapcore.NewJSONEncoder(encCfg)
	}

	var (
		sink    zapcore.WriteSyncer
		closeFn = func() error { return nil }
	)
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return nil, nil, fmt.Errorf("create log dir: %w", err)
		}
		rotator := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    orDefault(opts.MaxSizeMB, defaultMaxSizeMB),
			MaxBackups: orDefault(opts.MaxBackups, defaultMaxBackups),
			MaxAge:     orDefault(opts.MaxAgeDays, defaultMaxAgeDays),
			Compress:   true,
		}
		sink = zapcore.AddSync(rotator)
		closeFn = rotator.Close
	} else {
		w := opts.Writer
		if w == nil {
			w = os.Stderr
		}
		sink = zapcore.AddSync(w)
	}

	core := zapcore.NewCore(encoder, sink, zap.NewAtomicLevelAt(level))
	logger := zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))

	return logger, func() error {
		_ = logger.Sync()
		return closeFn()
	}, nil
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
