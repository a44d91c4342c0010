// File: internal/observability/logger.go
package observability

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/xkilldash9x/synthmind/internal/config"
)

var (
	// globalLogger stores the process logger; reads are lock free.
	globalLogger atomic.Pointer[zap.Logger]
	once         sync.Once
)

const colorReset = "\x1b[0m"

var ansiColors = map[string]string{
	"black":   "\x1b[30m",
	"red":     "\x1b[31m",
	"green":   "\x1b[32m",
	"yellow":  "\x1b[33m",
	"blue":    "\x1b[34m",
	"magenta": "\x1b[35m",
	"cyan":    "\x1b[36m",
	"white":   "\x1b[37m",
}

// Initialize sets up the global logger once. Console output goes to consoleWriter
// in the configured format; when a log file is configured a JSON copy is written
// to a rotating file as well.
func Initialize(cfg config.LoggerConfig, consoleWriter zapcore.WriteSyncer) {
	once.Do(func() {
		level := zap.NewAtomicLevel()
		if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
			level.SetLevel(zap.InfoLevel)
		}

		cores := []zapcore.Core{zapcore.NewCore(newEncoder(cfg), consoleWriter, level)}
		if cfg.LogFile != "" {
			rotating := zapcore.AddSync(&lumberjack.Logger{
				Filename:   cfg.LogFile,
				MaxSize:    cfg.MaxSize,
				MaxBackups: cfg.MaxBackups,
				MaxAge:     cfg.MaxAge,
				Compress:   cfg.Compress,
			})
			cores = append(cores, zapcore.NewCore(newEncoder(config.LoggerConfig{Format: "json"}), rotating, level))
		}

		opts := []zap.Option{zap.AddStacktrace(zap.ErrorLevel)}
		if cfg.AddSource {
			opts = append(opts, zap.AddCaller())
		}

		logger := zap.New(zapcore.NewTee(cores...), opts...)
		if cfg.ServiceName != "" {
			logger = logger.Named(cfg.ServiceName)
		}
		globalLogger.Store(logger)

		zap.ReplaceGlobals(logger)
		zap.RedirectStdLog(logger)
	})
}

// InitializeLogger initializes the global logger writing to stdout.
func InitializeLogger(cfg config.LoggerConfig) {
	Initialize(cfg, zapcore.Lock(os.Stdout))
}

// ResetForTest clears the global logger so Initialize can run again.
// Only tests should call it.
func ResetForTest() {
	globalLogger.Store(nil)
	once = sync.Once{}
}

func levelColor(level zapcore.Level, colors config.ColorConfig) string {
	var name string
	switch level {
	case zapcore.DebugLevel:
		name = colors.Debug
	case zapcore.InfoLevel:
		name = colors.Info
	case zapcore.WarnLevel:
		name = colors.Warn
	case zapcore.ErrorLevel:
		name = colors.Error
	case zapcore.DPanicLevel:
		name = colors.DPanic
	case zapcore.PanicLevel:
		name = colors.Panic
	case zapcore.FatalLevel:
		name = colors.Fatal
	}
	return ansiColors[name]
}

// newEncoder returns a colorized console encoder for "console" and a JSON
// encoder for anything else.
func newEncoder(cfg config.LoggerConfig) zapcore.Encoder {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02T15:04:05.000Z07:00")

	if cfg.Format != "console" {
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		return zapcore.NewJSONEncoder(encCfg)
	}

	colors := cfg.Colors
	encCfg.EncodeLevel = func(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
		label := strings.ToUpper(level.String())
		if c := levelColor(level, colors); c != "" {
			label = c + label + colorReset
		}
		enc.AppendString(label)
	}
	// Trailing dot keeps the component name visually apart, e.g. "synthmind.orchestrator.".
	encCfg.EncodeName = func(name string, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(name + ".")
	}
	return zapcore.NewConsoleEncoder(encCfg)
}

// GetLogger returns the global logger, or a development logger if Initialize
// has not been called.
func GetLogger() *zap.Logger {
	if logger := globalLogger.Load(); logger != nil {
		return logger
	}
	l, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	l.Warn("Global logger requested before initialization; using fallback.")
	return l.Named("fallback")
}

// Sync flushes buffered log entries. Errors from syncing a terminal are ignored.
func Sync() {
	logger := globalLogger.Load()
	if logger == nil {
		return
	}
	if err := logger.Sync(); err != nil {
		msg := err.Error()
		if strings.Contains(msg, "sync /dev/stdout") ||
			strings.Contains(msg, "invalid argument") ||
			strings.Contains(msg, "operation not supported") {
			return
		}
		fmt.Fprintln(os.Stderr, "Error: failed to sync logger:", err)
	}
}
