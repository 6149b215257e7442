package logging

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel represents the severity of a log entry.
type LogLevel string

const (
	LogLevelDebug LogLevel = "DEBUG"
	LogLevelInfo  LogLevel = "INFO"
	LogLevelWarn  LogLevel = "WARN"
	LogLevelError LogLevel = "ERROR"
)

// ParseLevel converts a user supplied level name into a LogLevel.
func ParseLevel(raw string) (LogLevel, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "DEBUG":
		return LogLevelDebug, nil
	case "INFO":
		return LogLevelInfo, nil
	case "WARN", "WARNING":
		return LogLevelWarn, nil
	case "ERROR":
		return LogLevelError, nil
	default:
		return "", fmt.Errorf("unknown log level %q", raw)
	}
}

// LogField represents a key-value pair in structured logging.
type LogField struct {
	Key   string
	Value any
}

// Field creates a LogField from a key-value pair.
func Field(key string, value any) LogField {
	return LogField{Key: key, Value: value}
}

// Logger provides structured logging capabilities with context support.
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...LogField)
	Info(ctx context.Context, msg string, fields ...LogField)
	Warn(ctx context.Context, msg string, fields ...LogField)
	Error(ctx context.Context, msg string, err error, fields ...LogField)
	WithFields(fields ...LogField) Logger
}

// NoOpLogger is a logger that discards all log entries.
type NoOpLogger struct{}

func (n *NoOpLogger) Debug(_ context.Context, _ string, _ ...LogField)          {}
func (n *NoOpLogger) Info(_ context.Context, _ string, _ ...LogField)           {}
func (n *NoOpLogger) Warn(_ context.Context, _ string, _ ...LogField)           {}
func (n *NoOpLogger) Error(_ context.Context, _ string, _ error, _ ...LogField) {}
func (n *NoOpLogger) WithFields(_ ...LogField) Logger                           { return n }

// ZapLogger writes structured log entries through zap.
// It includes trace IDs from context when available.
type ZapLogger struct {
	logger *zap.Logger
}

// NewZapLogger creates a console logger with the specified minimum level.
// If writer is nil, logs are discarded.
func NewZapLogger(minLevel LogLevel, writer io.Writer) *ZapLogger {
	if writer == nil {
		return &ZapLogger{logger: zap.NewNop()}
	}
	encoderCfg := zap.NewDevelopmentEncoderConfig()
	encoderCfg.TimeKey = "time"
	encoderCfg.EncodeTime = zapcore.RFC3339TimeEncoder
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderCfg),
		zapcore.AddSync(writer),
		toZapLevel(minLevel),
	)
	return &ZapLogger{logger: zap.New(core)}
}

// Sync flushes buffered entries.
func (z *ZapLogger) Sync() error {
	return z.logger.Sync()
}

func (z *ZapLogger) Debug(ctx context.Context, msg string, fields ...LogField) {
	z.logger.Debug(msg, z.zapFields(ctx, nil, fields)...)
}

func (z *ZapLogger) Info(ctx context.Context, msg string, fields ...LogField) {
	z.logger.Info(msg, z.zapFields(ctx, nil, fields)...)
}

func (z *ZapLogger) Warn(ctx context.Context, msg string, fields ...LogField) {
	z.logger.Warn(msg, z.zapFields(ctx, nil, fields)...)
}

func (z *ZapLogger) Error(ctx context.Context, msg string, err error, fields ...LogField) {
	z.logger.Error(msg, z.zapFields(ctx, err, fields)...)
}

func (z *ZapLogger) WithFields(fields ...LogField) Logger {
	return &ZapLogger{logger: z.logger.With(toZap(fields)...)}
}

func (z *ZapLogger) zapFields(ctx context.Context, err error, fields []LogField) []zap.Field {
	out := toZap(fields)
	if err != nil {
		out = append(out, zap.Error(err))
	}
	if traceID := getTraceID(ctx); traceID != "" {
		out = append(out, zap.String("trace_id", traceID))
	}
	return out
}

func toZap(fields []LogField) []zap.Field {
	out := make([]zap.Field, 0, len(fields)+2)
	for _, f := range fields {
		out = append(out, zap.Any(f.Key, f.Value))
	}
	return out
}

func toZapLevel(level LogLevel) zapcore.Level {
	switch level {
	case LogLevelDebug:
		return zapcore.DebugLevel
	case LogLevelInfo:
		return zapcore.InfoLevel
	case LogLevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.WarnLevel
	}
}

// traceIDKey is the context key for trace IDs.
type traceIDKey struct{}

// WithTraceID adds a trace ID to the context for run correlation.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey{}, traceID)
}

// getTraceID extracts the trace ID from context, if present.
func getTraceID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(traceIDKey{}).(string); ok {
		return id
	}
	return ""
}

// NewTraceID creates a new trace ID for run correlation.
func NewTraceID() string {
	return uuid.NewString()
}
