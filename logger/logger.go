package logger

import (
	"fmt"
	"os"
	"path/filepath"

	"perpscanner/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// New creates a zap.Logger writing to stdout and, when OutputFile is set,
// to a rotated JSON log file.
func New(opts config.LogConfig) (*zap.Logger, error) {
	// Parse level from config
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(opts.Level)); err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	// Console encoding in dev, JSON otherwise
	encoding := "json"
	if opts.Environment == "dev" || opts.Format == "console" {
		encoding = "console"
	}
	encoderCfg := encoderConfig(encoding)

	// Stdout core is always present
	cores := []zapcore.Core{
		zapcore.NewCore(newEncoder(encoding, encoderCfg), zapcore.Lock(os.Stdout), lvl),
	}

	// Optional rotated file core
	if opts.OutputFile != "" {
		sink, err := fileSink(opts.OutputFile)
		if err != nil {
			return nil, err
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), sink, lvl))
	}

	// Tee the cores, with caller info and stacktraces from error level
	logger := zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	return logger.Named("perpscanner"), nil
}

// fileSink rotates path through lumberjack.
func fileSink(path string) (zapcore.WriteSyncer, error) {
	// Make sure the log directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   path,
		MaxSize:    10,   // size (MB) before rotation
		MaxBackups: 5,    // rotated files kept
		MaxAge:     7,    // days a rotated file is kept
		Compress:   true, // gzip rotated files
	}), nil
}

func newEncoder(format string, cfg zapcore.EncoderConfig) zapcore.Encoder {
	if format == "console" {
		return zapcore.NewConsoleEncoder(cfg)
	}
	return zapcore.NewJSONEncoder(cfg)
}

// encoderConfig returns a zapcore.EncoderConfig based on log format.
func encoderConfig(format string) zapcore.EncoderConfig {
	if format == "console" {
		return zap.NewDevelopmentEncoderConfig()
	}
	cfg := zap.NewProductionEncoderConfig()
	// Human-readable timestamps in JSON output
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg
}
