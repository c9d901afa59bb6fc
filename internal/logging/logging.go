// Package logging builds the process logger. Components get named children
// (pool, uow, api, ratelimit, health, main) through Logger.Named.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/joao-brasil/collectflow/internal/config"
)

// ParseLevel maps the configured level name to a zap level. CRITICAL maps
// to DPanic, which only panics in development loggers.
func ParseLevel(name string) (zapcore.Level, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "DEBUG":
		return zapcore.DebugLevel, nil
	case "", "INFO":
		return zapcore.InfoLevel, nil
	case "WARNING", "WARN":
		return zapcore.WarnLevel, nil
	case "ERROR":
		return zapcore.ErrorLevel, nil
	case "CRITICAL":
		return zapcore.DPanicLevel, nil
	}
	return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", name)
}

func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      zapcore.OmitKey,
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05"),
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeName:     zapcore.FullNameEncoder,
	}
}

// New builds the logger described by cfg. With Stdout set every entry goes
// to stdout and ERROR and above are copied to stderr; otherwise entries are
// appended to cfg.Path, whose directory is created. The returned func
// flushes and closes the sinks.
func New(cfg config.LoggingConfig) (*zap.Logger, func(), error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}
	enc := zapcore.NewConsoleEncoder(encoderConfig())
	enabled := zap.NewAtomicLevelAt(level)

	if cfg.Stdout {
		errLevel := zap.LevelEnablerFunc(func(l zapcore.Level) bool {
			return l >= zapcore.ErrorLevel && enabled.Enabled(l)
		})
		core := zapcore.NewTee(
			zapcore.NewCore(enc, zapcore.Lock(os.Stdout), enabled),
			zapcore.NewCore(enc.Clone(), zapcore.Lock(os.Stderr), errLevel),
		)
		logger := zap.New(core)
		return logger, func() { _ = logger.Sync() }, nil
	}

	if dir := filepath.Dir(cfg.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("creating log directory: %w", err)
		}
	}
	sink, closeSink, err := zap.Open(cfg.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file %s: %w", cfg.Path, err)
	}
	logger := zap.New(zapcore.NewCore(enc, sink, enabled))
	return logger, func() {
		_ = logger.Sync()
		closeSink()
	}, nil
}
