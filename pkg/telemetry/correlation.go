package telemetry

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	// HeaderCorrelationID is the HTTP header for correlation ID
	HeaderCorrelationID = "X-Correlation-ID"
	// HeaderRequestID is the HTTP header for request ID
	HeaderRequestID = "X-Request-ID"
)

type correlationKey struct{}

// Correlation identifies one request across logs, traces and responses
type Correlation struct {
	CorrelationID string
	RequestID     string
}

// CorrelationMiddleware reads or generates correlation and request IDs,
// stores them in the request context and echoes them on the response.
func CorrelationMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c := Correlation{
			CorrelationID: r.Header.Get(HeaderCorrelationID),
			RequestID:     r.Header.Get(HeaderRequestID),
		}
		if c.CorrelationID == "" {
			c.CorrelationID = uuid.NewString()
		}
		if c.RequestID == "" {
			c.RequestID = uuid.NewString()
		}

		ctx := WithCorrelation(r.Context(), c)
		if span := trace.SpanFromContext(ctx); span.IsRecording() {
			span.SetAttributes(
				attribute.String("correlation.id", c.CorrelationID),
				attribute.String("request.id", c.RequestID),
			)
		}

		w.Header().Set(HeaderCorrelationID, c.CorrelationID)
		w.Header().Set(HeaderRequestID, c.RequestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// WithCorrelation returns a context carrying c
func WithCorrelation(ctx context.Context, c Correlation) context.Context {
	return context.WithValue(ctx, correlationKey{}, c)
}

// CorrelationFromContext returns the correlation stored in ctx, if any
func CorrelationFromContext(ctx context.Context) Correlation {
	c, _ := ctx.Value(correlationKey{}).(Correlation)
	return c
}

// InjectCorrelationHeaders copies the IDs in ctx onto outbound headers
func InjectCorrelationHeaders(ctx context.Context, headers http.Header) {
	c := CorrelationFromContext(ctx)
	if c.CorrelationID != "" {
		headers.Set(HeaderCorrelationID, c.CorrelationID)
	}
	if c.RequestID != "" {
		headers.Set(HeaderRequestID, c.RequestID)
	}
}

// LogFields returns key/value pairs identifying the request in ctx, ready
// to pass to a logger.
func LogFields(ctx context.Context) []interface{} {
	var fields []interface{}
	c := CorrelationFromContext(ctx)
	if c.CorrelationID != "" {
		fields = append(fields, "correlation_id", c.CorrelationID)
	}
	if c.RequestID != "" {
		fields = append(fields, "request_id", c.RequestID)
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields, "trace_id", sc.TraceID().String(), "span_id", sc.SpanID().String())
	}
	return fields
}
