// Package logger provides structured logging for the trainer hub.
// It wraps a zap SugaredLogger so call sites log with alternating
// key/value pairs (or typed zap fields) and carries the logger through
// context for request-scoped fields.
package logger

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level represents the severity of a log message.
type Level = zapcore.Level

const (
	LevelDebug = zapcore.DebugLevel
	LevelInfo  = zapcore.InfoLevel
	LevelWarn  = zapcore.WarnLevel
	LevelError = zapcore.ErrorLevel
	LevelFatal = zapcore.FatalLevel
)

// ParseLevel parses a level name. Unknown names fall back to info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	case "fatal":
		return LevelFatal
	default:
		return LevelInfo
	}
}

// Options configures the logger.
type Options struct {
	// Output defaults to stdout.
	Output io.Writer
	Level  Level
	// Format is "json" or "console".
	Format    string
	AddCaller bool
}

// DefaultOptions returns sensible defaults for the logger.
func DefaultOptions() Options {
	return Options{
		Output:    os.Stdout,
		Level:     LevelInfo,
		Format:    "json",
		AddCaller: true,
	}
}

// Logger is a thin wrapper around zap.SugaredLogger.
type Logger struct {
	sugar *zap.SugaredLogger
	level zap.AtomicLevel
}

// New creates a new Logger with the given options.
func New(opts Options) *Logger {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	var encCfg zapcore.EncoderConfig
	var enc zapcore.Encoder
	if strings.EqualFold(opts.Format, "console") {
		encCfg = zap.NewDevelopmentEncoderConfig()
		enc = zapcore.NewConsoleEncoder(encCfg)
	} else {
		encCfg = zap.NewProductionEncoderConfig()
		encCfg.TimeKey = "timestamp"
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		enc = zapcore.NewJSONEncoder(encCfg)
	}

	level := zap.NewAtomicLevelAt(opts.Level)
	core := zapcore.NewCore(enc, zapcore.AddSync(opts.Output), level)

	zopts := []zap.Option{}
	if opts.AddCaller {
		zopts = append(zopts, zap.AddCaller(), zap.AddCallerSkip(1))
	}

	return &Logger{sugar: zap.New(core, zopts...).Sugar(), level: level}
}

// NewFromMode builds a logger from the zap presets: "production" gives JSON
// at info, anything else gives the development console encoder at debug.
func NewFromMode(mode string) (*Logger, error) {
	var cfg zap.Config
	switch strings.ToLower(mode) {
	case "prod", "production":
		cfg = zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	default:
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	zl, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, err
	}
	return &Logger{sugar: zl.Sugar(), level: cfg.Level}, nil
}

// FromZap wraps an existing zap logger (zaptest, observer cores).
func FromZap(zl *zap.Logger) *Logger {
	return &Logger{sugar: zl.WithOptions(zap.AddCallerSkip(1)).Sugar(), level: zap.NewAtomicLevelAt(LevelDebug)}
}

// Default creates a logger with default options.
func Default() *Logger {
	return New(DefaultOptions())
}

// NewNop returns a logger that discards everything.
func NewNop() *Logger {
	return &Logger{sugar: zap.NewNop().Sugar(), level: zap.NewAtomicLevelAt(LevelFatal)}
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l *Logger) *Logger {
	if l == nil {
		return NewNop()
	}
	return l
}

// SetLevel changes the minimum level at runtime.
func (l *Logger) SetLevel(level Level) { l.level.SetLevel(level) }

// Zap exposes the underlying structured logger.
func (l *Logger) Zap() *zap.Logger { return l.sugar.Desugar() }

// With returns a new Logger with the given key/value pairs attached.
func (l *Logger) With(keysAndValues ...any) *Logger {
	return &Logger{sugar: l.sugar.With(keysAndValues...), level: l.level}
}

// Named adds a sub-scope to the logger name.
func (l *Logger) Named(name string) *Logger {
	return &Logger{sugar: l.sugar.Named(name), level: l.level}
}

func (l *Logger) Debug(msg string, keysAndValues ...any) { l.sugar.Debugw(msg, keysAndValues...) }
func (l *Logger) Info(msg string, keysAndValues ...any)  { l.sugar.Infow(msg, keysAndValues...) }
func (l *Logger) Warn(msg string, keysAndValues ...any)  { l.sugar.Warnw(msg, keysAndValues...) }
func (l *Logger) Error(msg string, keysAndValues ...any) { l.sugar.Errorw(msg, keysAndValues...) }

// Fatal logs a fatal message and exits the program.
func (l *Logger) Fatal(msg string, keysAndValues ...any) { l.sugar.Fatalw(msg, keysAndValues...) }

// Infof logs a formatted info message.
func (l *Logger) Infof(format string, args ...any) { l.sugar.Infof(format, args...) }

// Errorf logs a formatted error message.
func (l *Logger) Errorf(format string, args ...any) { l.sugar.Errorf(format, args...) }

// Sync flushes buffered entries.
func (l *Logger) Sync() {
	_ = l.sugar.Sync()
}

// Context key for logger.
type ctxKey struct{}

// WithContext returns a new context with the logger attached.
func WithContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext retrieves the logger from context, or returns fallback.
// A nil fallback yields a no-op logger.
func FromContext(ctx context.Context, fallback *Logger) *Logger {
	if l, ok := ctx.Value(ctxKey{}).(*Logger); ok && l != nil {
		return l
	}
	return OrNop(fallback)
}

// RequestIDKey is a common field key for request tracing.
const RequestIDKey = "request_id"

// WithRequestID returns a logger with request ID field added.
func (l *Logger) WithRequestID(requestID string) *Logger {
	return l.With(RequestIDKey, requestID)
}

// Typed fields for the ledger. Sugared calls accept them mixed with
// plain key/value pairs.
func MemberID(id string) zap.Field      { return zap.String("member_id", id) }
func GoalKind(kind string) zap.Field    { return zap.String("goal_kind", kind) }
func Period(p string) zap.Field         { return zap.String("period", p) }
func Component(name string) zap.Field   { return zap.String("component", name) }
func Operation(name string) zap.Field   { return zap.String("operation", name) }
func Latency(d time.Duration) zap.Field { return zap.Duration("latency", d) }
func Err(err error) zap.Field           { return zap.Error(err) }
