// Package logging constructs the service logger: an ectologger facade with
// a zap-backed sink.
package logging

import (
	"github.com/Gobusters/ectologger"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the production logger. Entries flow through ectologger and are
// encoded by zap as structured JSON.
func New(serviceName, level string) (ectologger.Logger, func(), error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(parseLevel(level))

	zl, err := cfg.Build(zap.Fields(zap.String("service", serviceName)))
	if err != nil {
		return nil, nil, err
	}

	sink := func(msg ectologger.EctoLogMessage) {
		zl.Info("log", zap.Any("entry", msg))
	}

	flush := func() { _ = zl.Sync() }
	return ectologger.NewEctoLogger(sink), flush, nil
}

// NewNop returns a logger that discards everything. Used in tests.
func NewNop() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
