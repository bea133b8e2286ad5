package logger

import (
	"os"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global logger instance
	Logger *zap.SugaredLogger
	// JSONOutput reports whether Initialize chose the JSON encoder
	JSONOutput bool
	// level backs every logger built by Initialize so verbosity can change at runtime
	level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	// tracing enables per-message surface logging at -vvv
	tracing atomic.Bool
)

func init() {
	// Safe no-op logger until Initialize is called
	Logger = zap.NewNop().Sugar()
}

// Initialize sets up the global logger.
// JSON output goes to stdout for machine consumption; console output goes to
// stderr so it never interleaves with the explore prompt on stdout.
func Initialize(jsonOutput bool, verbosity int) error {
	sink := zapcore.Lock(os.Stderr)
	if jsonOutput {
		sink = zapcore.Lock(os.Stdout)
	}
	return InitializeWithSink(jsonOutput, verbosity, sink)
}

// InitializeWithSink is Initialize with every entry written to sink.
func InitializeWithSink(jsonOutput bool, verbosity int, sink zapcore.WriteSyncer) error {
	JSONOutput = jsonOutput
	SetVerbosity(verbosity)

	var encoder zapcore.Encoder
	if jsonOutput {
		encoder = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	} else {
		encoderConfig := zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	}

	Logger = zap.New(zapcore.NewCore(encoder, sink, level), zap.ErrorOutput(zapcore.Lock(os.Stderr))).Sugar()
	return nil
}

// SetVerbosity changes the level of the logger built by Initialize
func SetVerbosity(verbosity int) {
	level.SetLevel(VerbosityToLevel(verbosity))
	tracing.Store(ShouldLogTrace(verbosity))
}

// Tracing reports whether -vvv was given
func Tracing() bool {
	return tracing.Load()
}

// Cleanup flushes any buffered log entries
func Cleanup() {
	if Logger != nil {
		_ = Logger.Sync()
	}
}

// Infow logs an info message with structured fields
func Infow(msg string, keysAndValues ...interface{}) {
	Logger.Infow(msg, keysAndValues...)
}

// Warnw logs a warning message with structured fields
func Warnw(msg string, keysAndValues ...interface{}) {
	Logger.Warnw(msg, keysAndValues...)
}

// Errorw logs an error message with structured fields
func Errorw(msg string, keysAndValues ...interface{}) {
	Logger.Errorw(msg, keysAndValues...)
}

// Debugw logs a debug message with structured fields
func Debugw(msg string, keysAndValues ...interface{}) {
	Logger.Debugw(msg, keysAndValues...)
}
