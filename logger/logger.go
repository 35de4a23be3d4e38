// Package logger builds the zap loggers used across the service.
package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds logger configuration
type Config struct {
	Level      string // debug, info, warn, error
	Format     string // json, console
	Output     string // stdout, stderr, or file path
	TimeFormat string
}

const defaultTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// DefaultConfig returns a configuration suitable for development
func DefaultConfig() *Config {
	return &Config{Level: "info", Format: "console", Output: "stdout", TimeFormat: defaultTimeFormat}
}

// New builds a logger from cfg. A nil cfg means DefaultConfig. It fails
// when the format is unknown or the output cannot be opened.
func New(cfg *Config) (*zap.Logger, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	zc := zap.Config{
		Level:            zap.NewAtomicLevelAt(ParseLevel(cfg.Level)),
		Encoding:         "json",
		EncoderConfig:    encoderConfig(cfg.TimeFormat),
		OutputPaths:      []string{outputPath(cfg.Output)},
		ErrorOutputPaths: []string{"stderr"},
	}
	switch strings.ToLower(cfg.Format) {
	case "", "json":
	case "console":
		zc.Encoding = "console"
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	l, err := zc.Build(zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return l, nil
}

// ParseLevel converts a level name; unknown names mean info
func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func encoderConfig(timeFormat string) zapcore.EncoderConfig {
	if timeFormat == "" {
		timeFormat = defaultTimeFormat
	}
	ec := zap.NewProductionEncoderConfig()
	ec.TimeKey = "time"
	ec.MessageKey = "msg"
	ec.EncodeTime = zapcore.TimeEncoderOfLayout(timeFormat)
	ec.EncodeDuration = zapcore.MillisDurationEncoder
	return ec
}

// outputPath maps the configured output to a zap sink. Anything other than
// stdout or stderr is a file path, opened for append.
func outputPath(output string) string {
	switch strings.ToLower(output) {
	case "", "stdout":
		return "stdout"
	case "stderr":
		return "stderr"
	}
	return output
}
