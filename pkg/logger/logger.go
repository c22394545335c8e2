package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level aliases kept short so call sites read like logger.SetLevel(logger.DEBUG).
const (
	DEBUG = zapcore.DebugLevel
	INFO  = zapcore.InfoLevel
	WARN  = zapcore.WarnLevel
	ERROR = zapcore.ErrorLevel
)

var (
	level = zap.NewAtomicLevelAt(INFO)
	root  = mustBuild()
)

func mustBuild() *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.Level = level
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	l, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		panic(err)
	}
	return l
}

// SetLevel adjusts the global log level at runtime (e.g. --debug flag).
func SetLevel(l zapcore.Level) {
	level.SetLevel(l)
}

// Named returns a component-scoped logger for packages that prefer
// holding their own handle over the package-level helpers.
func Named(component string) *zap.SugaredLogger {
	return root.Named(component).Sugar()
}

// Sync flushes buffered log entries. Called on shutdown.
func Sync() {
	_ = root.Sync()
}

func fieldsOf(kv map[string]any) []zap.Field {
	out := make([]zap.Field, 0, len(kv))
	for k, v := range kv {
		out = append(out, zap.Any(k, v))
	}
	return out
}

func DebugC(component, msg string) { root.Named(component).Debug(msg) }
func InfoC(component, msg string)  { root.Named(component).Info(msg) }
func WarnC(component, msg string)  { root.Named(component).Warn(msg) }
func ErrorC(component, msg string) { root.Named(component).Error(msg) }

func DebugCF(component, msg string, kv map[string]any) {
	root.Named(component).Debug(msg, fieldsOf(kv)...)
}

func InfoCF(component, msg string, kv map[string]any) {
	root.Named(component).Info(msg, fieldsOf(kv)...)
}

func WarnCF(component, msg string, kv map[string]any) {
	root.Named(component).Warn(msg, fieldsOf(kv)...)
}

func ErrorCF(component, msg string, kv map[string]any) {
	root.Named(component).Error(msg, fieldsOf(kv)...)
}
