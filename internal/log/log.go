// Package log provides a context-aware logging facade over zap.
//
// All logging goes through the package-level functions, which take a
// context.Context first so that registered hooks can contribute fields
// (principal, layer, trace identifiers) resolved from the context.
package log

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config controls logger construction.
type Config struct {
	Name     string `conf:"name" yaml:"name" json:"name"`
	Level    string `conf:"level" yaml:"level" json:"level"`
	Encoding string `conf:"encoding" yaml:"encoding" json:"encoding"`
	Debug    bool   `conf:"debug" yaml:"debug" json:"debug"`
}

// Logger wraps a zap.Logger with context hooks.
type Logger struct {
	zl *zap.Logger
}

var (
	mu     sync.RWMutex
	global = newDefault()
)

func newDefault() *Logger {
	zl, _ := zap.NewProduction(zap.AddCallerSkip(2))
	return &Logger{zl: zl}
}

// New builds a Logger from config.
func New(cfg Config) (*Logger, error) {
	var zc zap.Config
	if cfg.Debug {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
	}

	if cfg.Level != "" {
		lvl, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, err
		}

		zc.Level = zap.NewAtomicLevelAt(lvl)
	}

	if cfg.Encoding != "" {
		zc.Encoding = cfg.Encoding
	}

	zl, err := zc.Build(zap.AddCallerSkip(2))
	if err != nil {
		return nil, err
	}

	if cfg.Name != "" {
		zl = zl.Named(cfg.Name)
	}

	return &Logger{zl: zl}, nil
}

// SetGlobal replaces the package-level logger.
func SetGlobal(l *Logger) {
	if l == nil {
		return
	}

	mu.Lock()
	defer mu.Unlock()

	global = l
}

func logger() *Logger {
	mu.RLock()
	defer mu.RUnlock()

	return global
}

func (l *Logger) log(ctx context.Context, lvl zapcore.Level, msg string, fields []Field) {
	fields = append(fields, applyHooks(ctx, msg)...)

	switch lvl {
	case zapcore.DebugLevel:
		l.zl.Debug(msg, fields...)
	case zapcore.InfoLevel:
		l.zl.Info(msg, fields...)
	case zapcore.WarnLevel:
		l.zl.Warn(msg, fields...)
	case zapcore.ErrorLevel:
		l.zl.Error(msg, fields...)
	default:
		l.zl.Info(msg, fields...)
	}
}

// Debug logs at debug level with context hook fields.
func Debug(ctx context.Context, msg string, fields ...Field) {
	logger().log(ctx, zapcore.DebugLevel, msg, fields)
}

// Info logs at info level with context hook fields.
func Info(ctx context.Context, msg string, fields ...Field) {
	logger().log(ctx, zapcore.InfoLevel, msg, fields)
}

// Warn logs at warn level with context hook fields.
func Warn(ctx context.Context, msg string, fields ...Field) {
	logger().log(ctx, zapcore.WarnLevel, msg, fields)
}

// Error logs at error level with context hook fields.
func Error(ctx context.Context, msg string, fields ...Field) {
	logger().log(ctx, zapcore.ErrorLevel, msg, fields)
}

// Sync flushes buffered entries.
func Sync() error {
	return logger().zl.Sync()
}
