// Package rlog is the process-wide debug logger. It is enabled by the
// --debug flag and otherwise stays quiet, mirroring the single global
// `debug` boolean that gates every `fprintf(stderr, "DEBUG: ...")` call
// in the original implementation.
package rlog

import (
	"sync"

	"go.uber.org/zap"
)

var (
	once   sync.Once
	logger *zap.SugaredLogger
)

// Init installs the process-wide logger. debug selects zap.DebugLevel;
// otherwise only warnings and above are emitted. Safe to call more than
// once; only the first call takes effect, matching the original's
// write-once-at-startup `debug` global.
func Init(debug bool) {
	once.Do(func() {
		level := zap.WarnLevel
		if debug {
			level = zap.DebugLevel
		}
		cfg := zap.Config{
			Level:            zap.NewAtomicLevelAt(level),
			Development:      true,
			Encoding:         "console",
			EncoderConfig:    zap.NewDevelopmentEncoderConfig(),
			OutputPaths:      []string{"stderr"},
			ErrorOutputPaths: []string{"stderr"},
		}
		built, err := cfg.Build()
		if err != nil {
			panic(err)
		}
		logger = built.Sugar()
	})
}

func get() *zap.SugaredLogger {
	if logger == nil {
		Init(false)
	}
	return logger
}

// Debugf logs at debug level; a no-op unless Init(true) was called.
func Debugf(template string, args ...any) { get().Debugf(template, args...) }

// Infof logs at info level.
func Infof(template string, args ...any) { get().Infof(template, args...) }

// Warnf logs at warn level.
func Warnf(template string, args ...any) { get().Warnf(template, args...) }

// Errorf logs at error level.
func Errorf(template string, args ...any) { get().Errorf(template, args...) }

// Sync flushes any buffered log entries; call before process exit.
func Sync() {
	if logger != nil {
		_ = logger.Sync()
	}
}
