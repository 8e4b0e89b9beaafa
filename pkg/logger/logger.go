package logger

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var log *zap.Logger

// Init builds the process logger. Production emits JSON with ISO8601
// timestamps, anything else a colored console encoder. LOG_LEVEL overrides the
// default level. fields are attached to every entry.
func Init(environment string, fields ...zap.Field) error {
	var cfg zap.Config
	if environment == "production" {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "timestamp"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	if raw := strings.TrimSpace(os.Getenv("LOG_LEVEL")); raw != "" {
		level, err := zapcore.ParseLevel(raw)
		if err != nil {
			return err
		}
		cfg.Level = zap.NewAtomicLevelAt(level)
	}

	built, err := cfg.Build(zap.Fields(fields...))
	if err != nil {
		return err
	}
	log = built
	return nil
}

// Get returns the process logger, a development logger until Init runs.
func Get() *zap.Logger {
	if log == nil {
		log, _ = zap.NewDevelopment()
	}
	return log
}

func helper() *zap.Logger {
	return Get().WithOptions(zap.AddCallerSkip(1))
}

func Info(msg string, fields ...zap.Field)  { helper().Info(msg, fields...) }
func Warn(msg string, fields ...zap.Field)  { helper().Warn(msg, fields...) }
func Error(msg string, fields ...zap.Field) { helper().Error(msg, fields...) }
func Debug(msg string, fields ...zap.Field) { helper().Debug(msg, fields...) }

// Fatal logs and exits the process
func Fatal(msg string, fields ...zap.Field) { helper().Fatal(msg, fields...) }

// Sync flushes buffered entries
func Sync() error {
	if log == nil {
		return nil
	}
	return log.Sync()
}
