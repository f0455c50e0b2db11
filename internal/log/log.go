package log

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelError Level = "ERROR"
)

var (
	logger     *zap.SugaredLogger
	level      zap.AtomicLevel
	loggerOnce sync.Once
)

// initLogger initializes the global logger to write console-encoded
// lines to stderr with timestamps.
func initLogger() {
	loggerOnce.Do(func() {
		level = zap.NewAtomicLevelAt(zapcore.InfoLevel)

		cfg := zap.NewDevelopmentConfig()
		cfg.Level = level
		cfg.OutputPaths = []string{"stderr"}
		cfg.ErrorOutputPaths = []string{"stderr"}
		cfg.DisableStacktrace = true

		base, err := cfg.Build()
		if err != nil {
			// Building a development config cannot reasonably fail;
			// fall back to the no-op logger rather than crash.
			base = zap.NewNop()
		}
		logger = base.Sugar()
	})
}

func SetLevel(l Level) {
	initLogger()
	switch l {
	case LevelDebug:
		level.SetLevel(zapcore.DebugLevel)
	case LevelInfo:
		level.SetLevel(zapcore.InfoLevel)
	case LevelError:
		level.SetLevel(zapcore.ErrorLevel)
	}
}

func Debug(msg string, kv ...any) {
	initLogger()
	logger.Debugw(msg, kv...)
}

func Info(msg string, kv ...any) {
	initLogger()
	logger.Infow(msg, kv...)
}

func Error(msg string, err error, kv ...any) {
	initLogger()
	// Prepend error into key-value list.
	extended := append([]any{"err", err}, kv...)
	logger.Errorw(msg, extended...)
}
