package fetch

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/kbukum/fetchkit/fetch"

// Span and metric attribute keys.
const (
	AttrClient     = "fetch.client"
	AttrOperation  = "fetch.operation"
	AttrMethod     = "http.request.method"
	AttrURL        = "url.full"
	AttrStatusCode = "http.response.status_code"
	AttrErrorCode  = "fetch.error_code"
)

// instruments holds the request metrics of one Client.
type instruments struct {
	requests metric.Int64Counter
	duration metric.Float64Histogram
}

func newInstruments(meter metric.Meter) (*instruments, error) {
	requests, err := meter.Int64Counter("fetch.requests",
		metric.WithDescription("Number of settled fetch calls"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating fetch.requests counter: %w", err)
	}

	duration, err := meter.Float64Histogram("fetch.request.duration",
		metric.WithDescription("Duration of fetch calls in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating fetch.request.duration histogram: %w", err)
	}

	return &instruments{requests: requests, duration: duration}, nil
}

// record adds one settled call. statusCode is 0 when no response was received.
func (m *instruments) record(ctx context.Context, client, op, method string, statusCode int, err error, d time.Duration) {
	attrs := []attribute.KeyValue{
		attribute.String(AttrClient, client),
		attribute.String(AttrOperation, op),
		attribute.String(AttrMethod, method),
		attribute.Int(AttrStatusCode, statusCode),
	}
	if e, ok := err.(*Error); ok {
		attrs = append(attrs, attribute.String(AttrErrorCode, e.Code.String()))
	}
	set := metric.WithAttributes(attrs...)
	m.requests.Add(ctx, 1, set)
	m.duration.Record(ctx, d.Seconds(), set)
}

// startSpan opens a client span. Its context is injected into the outgoing
// headers by build.
func (c *Client) startSpan(ctx context.Context, op, method, target string) (context.Context, trace.Span) {
	ctx, span := c.tracer.Start(ctx, "fetch."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String(AttrClient, c.config.Name),
			attribute.String(AttrMethod, method),
			attribute.String(AttrURL, target),
		),
	)
	return ctx, span
}

// endSpan records the outcome and ends the span.
func endSpan(span trace.Span, statusCode int, err error) {
	if statusCode > 0 {
		span.SetAttributes(attribute.Int(AttrStatusCode, statusCode))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
