package observability

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/fetchkit/logger"
)

// Telemetry owns the providers created by Setup.
type Telemetry struct {
	tp *sdktrace.TracerProvider
	mp *sdkmetric.MeterProvider
}

// Setup initializes tracing and metrics when cfg.Enabled is set.
func Setup(ctx context.Context, cfg Config, log *logger.Logger) (*Telemetry, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	t := &Telemetry{}
	if !cfg.Enabled {
		log.Debug("telemetry disabled")
		return t, nil
	}

	tp, err := InitTracer(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	t.tp = tp

	mp, err := InitMeter(ctx, cfg, log)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, err
	}
	t.mp = mp

	return t, nil
}

// Enabled reports whether Setup installed exporters.
func (t *Telemetry) Enabled() bool {
	return t.tp != nil
}

// TracerProvider returns the installed provider, or the otel global.
func (t *Telemetry) TracerProvider() trace.TracerProvider {
	if t.tp == nil {
		return otel.GetTracerProvider()
	}
	return t.tp
}

// MeterProvider returns the installed provider, or the otel global.
func (t *Telemetry) MeterProvider() metric.MeterProvider {
	if t.mp == nil {
		return otel.GetMeterProvider()
	}
	return t.mp
}

// Shutdown flushes and stops both providers.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var errs []error
	if t.tp != nil {
		errs = append(errs, t.tp.Shutdown(ctx))
	}
	if t.mp != nil {
		errs = append(errs, t.mp.Shutdown(ctx))
	}
	return errors.Join(errs...)
}
