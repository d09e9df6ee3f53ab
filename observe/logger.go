package observe

import (
	"context"
	"io"
	"os"
	"strings"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is a structured, context-aware logging interface.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: logging is best-effort and must not panic.
type Logger interface {
	Info(ctx context.Context, msg string, fields ...Field)
	Warn(ctx context.Context, msg string, fields ...Field)
	Error(ctx context.Context, msg string, fields ...Field)
	Debug(ctx context.Context, msg string, fields ...Field)

	// With returns a logger that adds fields to every entry.
	With(fields ...Field) Logger
}

// Field represents a structured log field.
type Field struct {
	Key   string
	Value any
}

// F is shorthand for constructing a Field.
func F(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// RedactedValue replaces the value of sensitive fields.
const RedactedValue = "[REDACTED]"

var redacted = func() map[string]struct{} {
	m := make(map[string]struct{}, len(RedactedFields))
	for _, k := range RedactedFields {
		m[strings.ToLower(k)] = struct{}{}
	}
	return m
}()

func isRedactedField(key string) bool {
	_, ok := redacted[strings.ToLower(key)]
	return ok
}

// ParseLogLevel parses a string log level. Unknown values map to info.
func ParseLogLevel(s string) zapcore.Level {
	switch strings.ToLower(s) {
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

func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		MessageKey:     "msg",
		NameKey:        "logger",
		StacktraceKey:  "",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeTime:     zapcore.RFC3339NanoTimeEncoder,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeDuration: zapcore.MillisDurationEncoder,
	}
}

type zapLogger struct {
	z *zap.Logger
}

// NewLogger creates a JSON logger writing to stderr.
func NewLogger(level string) Logger {
	return NewLoggerWithWriter(level, os.Stderr)
}

// NewLoggerWithWriter creates a JSON logger writing to w.
func NewLoggerWithWriter(level string, w io.Writer) Logger {
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig()),
		zapcore.AddSync(w),
		ParseLogLevel(level),
	)
	return &zapLogger{z: zap.New(core)}
}

// NewZapLogger adapts an existing zap logger.
func NewZapLogger(z *zap.Logger) Logger {
	if z == nil {
		return NopLogger()
	}
	return &zapLogger{z: z}
}

func (l *zapLogger) With(fields ...Field) Logger {
	return &zapLogger{z: l.z.With(zapFields(context.Background(), fields)...)}
}

func (l *zapLogger) Info(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, zapcore.InfoLevel, msg, fields)
}

func (l *zapLogger) Warn(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, zapcore.WarnLevel, msg, fields)
}

func (l *zapLogger) Error(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, zapcore.ErrorLevel, msg, fields)
}

func (l *zapLogger) Debug(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, zapcore.DebugLevel, msg, fields)
}

func (l *zapLogger) log(ctx context.Context, level zapcore.Level, msg string, fields []Field) {
	ce := l.z.Check(level, msg)
	if ce == nil {
		return
	}
	ce.Write(zapFields(ctx, fields)...)
}

func zapFields(ctx context.Context, fields []Field) []zap.Field {
	out := make([]zap.Field, 0, len(fields)+2)
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		out = append(out,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
	}
	for _, f := range fields {
		if isRedactedField(f.Key) {
			out = append(out, zap.String(f.Key, RedactedValue))
			continue
		}
		if err, ok := f.Value.(error); ok {
			out = append(out, zap.String(f.Key, err.Error()))
			continue
		}
		out = append(out, zap.Any(f.Key, f.Value))
	}
	return out
}

type noopLogger struct{}

// NopLogger returns a Logger that discards everything.
func NopLogger() Logger { return noopLogger{} }

func (noopLogger) Info(context.Context, string, ...Field)  {}
func (noopLogger) Warn(context.Context, string, ...Field)  {}
func (noopLogger) Error(context.Context, string, ...Field) {}
func (noopLogger) Debug(context.Context, string, ...Field) {}
func (l noopLogger) With(...Field) Logger                  { return l }
