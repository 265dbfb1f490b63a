package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// setupLogger installs the global logger. Levels below ERROR go to stdout,
// ERROR and above to stderr. If logPath is non-empty, every enabled level is
// also appended to that file. The returned cleanup flushes and closes it.
func setupLogger(level, logPath string) (func(), error) {
	minLevel, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parsing log level: %w", err)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	console := zapcore.NewConsoleEncoder(encCfg)

	low := zap.LevelEnablerFunc(func(l zapcore.Level) bool { return l >= minLevel && l < zapcore.ErrorLevel })
	high := zap.LevelEnablerFunc(func(l zapcore.Level) bool { return l >= minLevel && l >= zapcore.ErrorLevel })

	cores := []zapcore.Core{
		zapcore.NewCore(console, zapcore.Lock(os.Stdout), low),
		zapcore.NewCore(console, zapcore.Lock(os.Stderr), high),
	}

	closeFile := func() {}
	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		closeFile = func() { f.Close() }
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(f), minLevel))
	}

	logger := zap.New(zapcore.NewTee(cores...))
	restore := zap.ReplaceGlobals(logger)
	return func() {
		logger.Sync()
		restore()
		closeFile()
	}, nil
}
