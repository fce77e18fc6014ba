package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options adjust the environment preset.
type Options struct {
	// Level overrides the preset level: debug, info, warn or error.
	Level string
	// Service is stamped on every prod entry; "patsim" when empty.
	Service string
}

type preset func(service string) zap.Config

var presets = map[string]preset{
	"prod": func(service string) zap.Config {
		cfg := zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "ts"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		cfg.InitialFields = map[string]any{"service": service}
		return cfg
	},
	"local":  console,
	"dev":    console,
	"docker": console,
}

func console(string) zap.Config {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.DisableStacktrace = true
	return cfg
}

// New builds the process logger for env. The "test" env logs nothing.
func New(env string, opts Options) (*zap.Logger, error) {
	if env == "test" {
		return zap.NewNop(), nil
	}
	mk, ok := presets[env]
	if !ok {
		return nil, fmt.Errorf("logger: unknown env %q", env)
	}
	service := opts.Service
	if service == "" {
		service = "patsim"
	}
	cfg := mk(service)

	if opts.Level != "" {
		level, err := zapcore.ParseLevel(opts.Level)
		if err != nil {
			return nil, fmt.Errorf("logger: level %q: %w", opts.Level, err)
		}
		cfg.Level = zap.NewAtomicLevelAt(level)
	}

	l, err := cfg.Build(zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		return nil, fmt.Errorf("logger: build: %w", err)
	}
	return l, nil
}
