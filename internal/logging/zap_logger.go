package logging

import (
	"context"

	"github.com/alekl79/peachtree-bank-poc/internal/config"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type ctxFieldsKey struct{}

type ZapLogger struct {
	logger *zap.Logger
	level  zap.AtomicLevel
}

func NewZapLogger(cfg *config.Config) (*ZapLogger, error) {
	level := zap.NewAtomicLevelAt(zapcore.Level(cfg.LogLevel))

	zcfg := zap.NewProductionConfig()
	zcfg.Level = level
	zcfg.EncoderConfig.EncodeTime = zapcore.RFC3339NanoTimeEncoder

	logger, err := zcfg.Build(zap.AddCallerSkip(2))
	if err != nil {
		return nil, err
	}

	return &ZapLogger{logger: logger, level: level}, nil
}

// NewNopLogger is used by tests and tools that do not need log output.
func NewNopLogger() *ZapLogger {
	return &ZapLogger{logger: zap.NewNop(), level: zap.NewAtomicLevel()}
}

// NewFxLogger routes fx lifecycle events through the application logger.
func NewFxLogger(lg *ZapLogger) fxevent.Logger {
	return &fxevent.ZapLogger{Logger: lg.logger.WithOptions(zap.AddCallerSkip(-2))}
}

func (l *ZapLogger) WithContextFields(ctx context.Context, fields ...zap.Field) context.Context {
	existing := fieldsFromContext(ctx)
	merged := make([]zap.Field, 0, len(existing)+len(fields))
	merged = append(merged, existing...)
	merged = append(merged, fields...)

	return context.WithValue(ctx, ctxFieldsKey{}, merged)
}

func (l *ZapLogger) DebugCtx(ctx context.Context, msg string, fields ...zap.Field) {
	l.logCtx(ctx, zapcore.DebugLevel, msg, fields...)
}

func (l *ZapLogger) InfoCtx(ctx context.Context, msg string, fields ...zap.Field) {
	l.logCtx(ctx, zapcore.InfoLevel, msg, fields...)
}

func (l *ZapLogger) WarnCtx(ctx context.Context, msg string, fields ...zap.Field) {
	l.logCtx(ctx, zapcore.WarnLevel, msg, fields...)
}

func (l *ZapLogger) ErrorCtx(ctx context.Context, msg string, fields ...zap.Field) {
	l.logCtx(ctx, zapcore.ErrorLevel, msg, fields...)
}

func (l *ZapLogger) Sync() error {
	return l.logger.Sync()
}

func (l *ZapLogger) logCtx(ctx context.Context, level zapcore.Level, msg string, fields ...zap.Field) {
	if !l.level.Enabled(level) {
		return
	}

	all := append(fieldsFromContext(ctx), fields...)
	l.logger.Log(level, msg, all...)
}

func fieldsFromContext(ctx context.Context) []zap.Field {
	if ctx == nil {
		return nil
	}

	fields, ok := ctx.Value(ctxFieldsKey{}).([]zap.Field)
	if !ok {
		return nil
	}

	return fields[:len(fields):len(fields)]
}
