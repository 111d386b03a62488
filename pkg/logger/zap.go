package logger

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options configures the zap-backed logger
type Options struct {
	Level  string // debug, info, warn, error
	Format string // json or console
}

// ZapLogger implements Logger on top of a zap SugaredLogger
type ZapLogger struct {
	level zap.AtomicLevel
	sugar *zap.SugaredLogger
}

// New creates a zap-backed logger writing to stderr
func New(opts Options) (*ZapLogger, error) {
	cfg := zap.NewProductionConfig()
	if strings.EqualFold(opts.Format, "console") {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(parseLevel(opts.Level))
	cfg.OutputPaths = []string{"stderr"}

	base, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build zap logger: %w", err)
	}
	return &ZapLogger{level: cfg.Level, sugar: base.Sugar()}, nil
}

// NewFromZap wraps an existing zap logger
func NewFromZap(base *zap.Logger, level zap.AtomicLevel) *ZapLogger {
	return &ZapLogger{level: level, sugar: base.Sugar()}
}

// NewNop returns a logger that discards everything
func NewNop() *ZapLogger {
	return &ZapLogger{level: zap.NewAtomicLevel(), sugar: zap.NewNop().Sugar()}
}

// NewDefaultLogger creates a logger using LOG_LEVEL and LOG_FORMAT, falling
// back to a no-op logger if zap cannot be configured.
func NewDefaultLogger() Logger {
	l, err := New(Options{Level: GetLogLevel(), Format: os.Getenv("LOG_FORMAT")})
	if err != nil {
		return NewNop()
	}
	return l
}

func (l *ZapLogger) Debug(msg string, fields ...interface{}) {
	l.sugar.Debugw(msg, normalize(fields)...)
}

func (l *ZapLogger) Info(msg string, fields ...interface{}) {
	l.sugar.Infow(msg, normalize(fields)...)
}

func (l *ZapLogger) Warn(msg string, fields ...interface{}) {
	l.sugar.Warnw(msg, normalize(fields)...)
}

func (l *ZapLogger) Error(msg string, fields ...interface{}) {
	l.sugar.Errorw(msg, normalize(fields)...)
}

// SetLevel changes the level of this logger and every logger derived from it
func (l *ZapLogger) SetLevel(level string) {
	l.level.SetLevel(parseLevel(level))
}

// Level reports the current level name
func (l *ZapLogger) Level() string {
	return l.level.Level().String()
}

func (l *ZapLogger) WithField(key string, value interface{}) Logger {
	return &ZapLogger{level: l.level, sugar: l.sugar.With(key, value)}
}

func (l *ZapLogger) WithFields(fields map[string]interface{}) Logger {
	kv := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		kv = append(kv, k, v)
	}
	return &ZapLogger{level: l.level, sugar: l.sugar.With(kv...)}
}

func (l *ZapLogger) With(fields ...Field) Logger {
	kv := make([]interface{}, 0, len(fields)*2)
	for _, f := range fields {
		kv = append(kv, f.Key, f.Value)
	}
	return &ZapLogger{level: l.level, sugar: l.sugar.With(kv...)}
}

// Sync flushes buffered entries
func (l *ZapLogger) Sync() error {
	return l.sugar.Sync()
}

// normalize flattens Field values into key/value pairs. A trailing key
// without a value is kept under "extra" rather than dropped.
func normalize(fields []interface{}) []interface{} {
	if len(fields) == 0 {
		return nil
	}
	out := make([]interface{}, 0, len(fields)*2)
	for i := 0; i < len(fields); i++ {
		switch f := fields[i].(type) {
		case Field:
			out = append(out, f.Key, f.Value)
		case map[string]interface{}:
			for k, v := range f {
				out = append(out, k, v)
			}
		default:
			if i+1 < len(fields) {
				out = append(out, fmt.Sprint(f), fields[i+1])
				i++
			} else {
				out = append(out, "extra", f)
			}
		}
	}
	return out
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return zapcore.DebugLevel
	case "WARN", "WARNING":
		return zapcore.WarnLevel
	case "ERROR":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// GetLogLevel gets the current log level from environment
func GetLogLevel() string {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		return "INFO"
	}
	return level
}
