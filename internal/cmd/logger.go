package cmd

import (
	"fmt"
	"io"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// newLogger builds the CLI logger. With a file name, JSON entries go to a
// rotating log file; otherwise console entries go to stderr. The returned
// function flushes the logger and closes the file.
func newLogger(level, file string, stderr io.Writer) (*zap.Logger, func() error, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid log level: %w", err)
	}

	if file == "" {
		core := zapcore.NewCore(
			zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
			zapcore.Lock(zapcore.AddSync(stderr)),
			lvl)
		logger := zap.New(core)
		// Syncing a terminal fails on some platforms; nothing is buffered.
		return logger, func() error { return nil }, nil
	}

	sink := &lumberjack.Logger{
		Filename:   file,
		MaxSize:    100, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
		Compress:   true,
	}
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		zapcore.AddSync(sink),
		lvl)
	logger := zap.New(core)

	return logger, func() error {
		return multierr.Combine(logger.Sync(), sink.Close())
	}, nil
}
