package telemetry

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric/noop"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newRecordingProvider(t *testing.T) (*Provider, *tracetest.SpanRecorder) {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return newProvider(tp, noop.NewMeterProvider().Meter("test")), recorder
}

func TestProvider_SpansAndErrors(t *testing.T) {
	p, recorder := newRecordingProvider(t)

	_, span := p.StartSpan(context.Background(), "weather.fetch", attribute.String("location", "Fresno"))
	EndSpan(span, errors.New("upstream 500"))

	_, ok := p.StartSpan(context.Background(), "cart.checkout")
	EndSpan(ok, nil)

	ended := recorder.Ended()
	require.Len(t, ended, 2)
	assert.Equal(t, "weather.fetch", ended[0].Name())
	assert.Equal(t, codes.Error, ended[0].Status().Code)
	assert.Contains(t, ended[0].Attributes(), attribute.String("location", "Fresno"))
	assert.Equal(t, codes.Unset, ended[1].Status().Code)

	// metrics on a noop meter must not panic
	p.RecordOperation(context.Background(), "weather.fetch", 120*time.Millisecond, errors.New("x"))
}

func TestNew_Disabled(t *testing.T) {
	p, err := New(context.Background(), Options{Enabled: false})
	require.NoError(t, err)

	ctx, span := p.StartSpan(context.Background(), "noop")
	assert.False(t, span.IsRecording())
	EndSpan(span, nil)
	p.RecordOperation(ctx, "noop", time.Millisecond, nil)
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestNew_StdoutExporter(t *testing.T) {
	var buf bytes.Buffer
	p, err := New(context.Background(), Options{
		Enabled:     true,
		ServiceName: "agrimarket-test",
		Development: true,
		Writer:      &buf,
	})
	require.NoError(t, err)

	_, span := p.StartSpan(context.Background(), "catalog.filter")
	span.End()
	require.NoError(t, p.Shutdown(context.Background()))

	assert.Contains(t, buf.String(), "catalog.filter")
}

func TestCorrelationMiddleware(t *testing.T) {
	var seen Correlation
	handler := CorrelationMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = CorrelationFromContext(r.Context())
	}))

	t.Run("generates ids", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.NotEmpty(t, seen.CorrelationID)
		assert.NotEmpty(t, seen.RequestID)
		assert.Equal(t, seen.CorrelationID, rec.Header().Get(HeaderCorrelationID))
		assert.Equal(t, seen.RequestID, rec.Header().Get(HeaderRequestID))
	})

	t.Run("propagates incoming ids", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(HeaderCorrelationID, "corr-1")
		req.Header.Set(HeaderRequestID, "req-1")
		handler.ServeHTTP(httptest.NewRecorder(), req)

		assert.Equal(t, Correlation{CorrelationID: "corr-1", RequestID: "req-1"}, seen)
	})
}

func TestInjectAndLogFields(t *testing.T) {
	ctx := WithCorrelation(context.Background(), Correlation{CorrelationID: "c", RequestID: "r"})

	h := http.Header{}
	InjectCorrelationHeaders(ctx, h)
	assert.Equal(t, "c", h.Get(HeaderCorrelationID))
	assert.Equal(t, "r", h.Get(HeaderRequestID))

	assert.Equal(t, []interface{}{"correlation_id", "c", "request_id", "r"}, LogFields(ctx))
	assert.Empty(t, LogFields(context.Background()))
}
