package logger

import (
	"log/slog"
	"time"

	slogzap "github.com/samber/slog-zap/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	defaultSampleInitial    = 100
	defaultSampleThereafter = 10
)

// newZapHandler writes JSON through a sampled zap core. Sampling is per message per second.
func newZapHandler(cfg Config) slog.Handler {
	level := cfg.level()

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(zapEncoderConfig(cfg.AddSource)),
		zapcore.AddSync(cfg.Output),
		zapLevel(level),
	)
	core = zapcore.NewSamplerWithOptions(core, time.Second,
		positiveOr(cfg.SampleInitial, defaultSampleInitial),
		positiveOr(cfg.SampleThereafter, defaultSampleThereafter))

	z := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))

	return slogzap.Option{Level: level, Logger: z}.NewZapHandler()
}

func zapEncoderConfig(withCaller bool) zapcore.EncoderConfig {
	enc := zap.NewProductionEncoderConfig()
	enc.TimeKey = "ts"
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	enc.EncodeLevel = zapcore.CapitalLevelEncoder
	if withCaller {
		enc.EncodeCaller = zapcore.ShortCallerEncoder
	} else {
		enc.CallerKey = zapcore.OmitKey
	}
	return enc
}

// zapLevel rounds a slog level up to the nearest zap level.
func zapLevel(l slog.Level) zapcore.Level {
	switch {
	case l > slog.LevelWarn:
		return zapcore.ErrorLevel
	case l > slog.LevelInfo:
		return zapcore.WarnLevel
	case l > slog.LevelDebug:
		return zapcore.InfoLevel
	default:
		return zapcore.DebugLevel
	}
}

func positiveOr(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}
