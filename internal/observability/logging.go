// Package observability provides logging, metrics, and tracing.
package observability

import (
	"context"
	"log/slog"
	"os"

	"github.com/google/uuid"
)

// Logger wraps slog.Logger so callers share one replaceable instance.
type Logger struct {
	*slog.Logger
}

// GlobalLogger is the process-wide logger. main swaps it for the
// request-aware handler from the middleware package.
var GlobalLogger = &Logger{Logger: slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))}

// SetLogger replaces GlobalLogger. A nil logger is ignored.
func SetLogger(l *slog.Logger) {
	if l != nil {
		GlobalLogger = &Logger{Logger: l}
	}
}

type correlationKey struct{}

// GenerateCorrelationID creates a new unique correlation ID.
func GenerateCorrelationID() string {
	return uuid.NewString()
}

// WithCorrelationID returns a new context with the given correlation ID.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey{}, id)
}

// ExtractCorrelationID retrieves the correlation ID from the context.
func ExtractCorrelationID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}

// StoreLoggingEnabled toggles the debug lines emitted for every collection
// mutation.
var StoreLoggingEnabled = true

// StoreLogger logs mutations of one in-memory collection.
type StoreLogger struct {
	collection string
}

// NewStoreLogger creates a StoreLogger for the named collection.
func NewStoreLogger(collection string) *StoreLogger {
	return &StoreLogger{collection: collection}
}

func (l *StoreLogger) emit(ctx context.Context, operation string, fields map[string]interface{}) {
	if !StoreLoggingEnabled {
		return
	}
	attrs := withFields(ctx, fields,
		slog.String("collection", l.collection),
		slog.String("operation", operation),
	)
	GlobalLogger.DebugContext(ctx, "store "+operation, attrs...)
}

// LogCreate logs an insert.
func (l *StoreLogger) LogCreate(ctx context.Context, fields map[string]interface{}) {
	l.emit(ctx, "create", fields)
}

// LogUpdate logs an in-place mutation.
func (l *StoreLogger) LogUpdate(ctx context.Context, fields map[string]interface{}) {
	l.emit(ctx, "update", fields)
}

// LogError logs a failed store operation.
func (l *StoreLogger) LogError(ctx context.Context, err error, operation string) {
	GlobalLogger.ErrorContext(ctx, "store error", withFields(ctx, nil,
		slog.String("collection", l.collection),
		slog.String("operation", operation),
		slog.String("error", err.Error()),
	)...)
}

// LogAsyncOperationStart logs the start of a background worker.
func LogAsyncOperationStart(ctx context.Context, operation string, fields map[string]interface{}) {
	GlobalLogger.InfoContext(ctx, "async operation started", withFields(ctx, fields,
		slog.String("operation", operation),
		slog.String("type", "async_start"),
	)...)
}

// LogAsyncOperationEnd logs the exit of a background worker.
func LogAsyncOperationEnd(ctx context.Context, operation string, fields map[string]interface{}) {
	GlobalLogger.InfoContext(ctx, "async operation completed", withFields(ctx, fields,
		slog.String("operation", operation),
		slog.String("type", "async_end"),
	)...)
}

func withFields(ctx context.Context, fields map[string]interface{}, base ...slog.Attr) []any {
	attrs := make([]any, 0, len(base)+len(fields)+1)
	for _, a := range base {
		attrs = append(attrs, a)
	}
	attrs = append(attrs, slog.String("correlation_id", ExtractCorrelationID(ctx)))
	for k, v := range fields {
		attrs = append(attrs, slog.Any(k, v))
	}
	return attrs
}
