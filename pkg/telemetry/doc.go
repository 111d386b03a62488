// Package telemetry wires OpenTelemetry tracing and operation metrics into
// the agrimarket service.
//
// When telemetry is enabled, spans are exported over OTLP gRPC if an
// endpoint is configured and to stdout otherwise. When disabled, Noop
// provides the same API without recording anything.
//
// CorrelationMiddleware tags every request with correlation and request IDs
// (X-Correlation-ID, X-Request-ID) that flow into logs via LogFields.
package telemetry
