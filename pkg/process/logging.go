// Copyright (C) 2019 Storj Labs, Inc.
// See LICENSE for copying information.

package process

import (
	"runtime"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogConfig configures the process logger.
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
	Caller      bool   `mapstructure:"caller"`
	Stack       bool   `mapstructure:"stack"`
	Encoding    string `mapstructure:"encoding"`
	Output      string `mapstructure:"output"`
}

// BindLogFlags registers the log.* flags on flags.
func BindLogFlags(flags *pflag.FlagSet) {
	flags.String("log.level", "info", "the minimum log level to log")
	flags.Bool("log.development", false, "if true, set logging to development mode")
	flags.Bool("log.caller", false, "if true, log function filename and line number")
	flags.Bool("log.stack", false, "if true, log stack traces")
	flags.String("log.encoding", "console", "configures log encoding. can either be 'console' or 'json'")
	flags.String("log.output", "stderr", "can be stdout, stderr, or a filename")
}

// NewLogger creates a new logger configured by config.
func NewLogger(config LogConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(config.Level)
	if err != nil {
		return nil, Error.Wrap(err)
	}

	levelEncoder := zapcore.CapitalColorLevelEncoder
	if runtime.GOOS == "windows" || config.Encoding == "json" {
		levelEncoder = zapcore.CapitalLevelEncoder
	}

	output := config.Output
	if output == "" {
		output = "stderr"
	}

	log, err := zap.Config{
		Level:             zap.NewAtomicLevelAt(level),
		Development:       config.Development,
		DisableCaller:     !config.Caller,
		DisableStacktrace: !config.Stack,
		Encoding:          config.Encoding,
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "T",
			LevelKey:       "L",
			NameKey:        "N",
			CallerKey:      "C",
			MessageKey:     "M",
			StacktraceKey:  "S",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    levelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.StringDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		OutputPaths:      []string{output},
		ErrorOutputPaths: []string{output},
	}.Build()
	return log, Error.Wrap(err)
}
